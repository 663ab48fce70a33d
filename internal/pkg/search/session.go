package search

import (
	"context"
	"reflect"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

// DefaultDebounce is how long bounds and filter changes settle before they
// trigger a fetch.
const DefaultDebounce = 500 * time.Millisecond

// Result is what a Session reports to its listener. IsLoading results carry
// the previous page so callers can keep showing it.
type Result struct {
	Page      Page
	IsLoading bool
	Err       error
}

// Invalidator is implemented by sources that can drop cached candidates.
type Invalidator interface {
	Invalidate(ctx context.Context, q CandidateQuery) error
}

// Session keeps the results of a changing query up to date. Bounds and
// filter changes are debounced, page changes apply immediately, and results
// of runs superseded by a newer one are dropped.
type Session struct {
	source   CandidateSource
	pushdown bool
	debounce time.Duration
	onResult func(Result)

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	current    Query
	pending    *Query
	started    bool
	timer      *time.Timer
	generation uint64
	last       Page
	closed     bool
}

// SessionOption customizes a Session.
type SessionOption func(*Session)

// WithPushdown lets the source narrow candidates by the map bounds.
func WithPushdown(enabled bool) SessionOption {
	return func(s *Session) { s.pushdown = enabled }
}

// NewSession creates a session. A non-positive debounce uses
// DefaultDebounce. onResult is called from background goroutines.
func NewSession(source CandidateSource, debounce time.Duration, onResult func(Result), opts ...SessionOption) *Session {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		source:   source,
		debounce: debounce,
		onResult: onResult,
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Set requests results for q.
func (s *Session) Set(q Query) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	latest := s.current
	if s.pending != nil {
		latest = *s.pending
	}

	if s.started && sameSearch(latest, q) {
		if s.pending != nil {
			s.pending.Page, s.pending.PageSize = q.Page, q.PageSize
			s.mu.Unlock()
			return
		}
		s.current = q
		gen := s.nextGeneration()
		s.mu.Unlock()
		go s.run(gen, q)
		return
	}

	s.started = true
	s.pending = &q
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, s.flush)
	s.mu.Unlock()
}

// Refetch drops cached candidates for the current query and runs it now.
func (s *Session) Refetch() {
	s.mu.Lock()
	if s.closed || !s.started {
		s.mu.Unlock()
		return
	}
	if s.pending != nil {
		s.current = *s.pending
		s.pending = nil
		if s.timer != nil {
			s.timer.Stop()
		}
	}
	q := s.current
	gen := s.nextGeneration()
	s.mu.Unlock()

	if inv, ok := s.source.(Invalidator); ok {
		if err := inv.Invalidate(s.ctx, q.CandidateQuery(s.pushdown)); err != nil {
			log.Warnf("[Search] cache invalidation failed: %v", err)
		}
	}
	go s.run(gen, q)
}

// Close stops pending timers and discards in-flight results.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.generation++
	if s.timer != nil {
		s.timer.Stop()
	}
	s.cancel()
}

func (s *Session) flush() {
	s.mu.Lock()
	if s.closed || s.pending == nil {
		s.mu.Unlock()
		return
	}
	q := *s.pending
	s.pending = nil
	s.current = q
	gen := s.nextGeneration()
	s.mu.Unlock()

	s.run(gen, q)
}

func (s *Session) run(gen uint64, q Query) {
	s.mu.Lock()
	previous := s.last
	s.mu.Unlock()
	s.emit(gen, Result{Page: previous, IsLoading: true})

	candidates, err := s.source.Candidates(s.ctx, q.CandidateQuery(s.pushdown))
	if err != nil {
		s.emit(gen, Result{Page: previous, Err: err})
		return
	}
	page := Run(candidates, q)

	s.mu.Lock()
	if gen == s.generation {
		s.last = page
	}
	s.mu.Unlock()
	s.emit(gen, Result{Page: page})
}

func (s *Session) emit(gen uint64, r Result) {
	s.mu.Lock()
	stale := gen != s.generation || s.closed
	s.mu.Unlock()
	if stale || s.onResult == nil {
		return
	}
	s.onResult(r)
}

// nextGeneration must be called with s.mu held.
func (s *Session) nextGeneration() uint64 {
	s.generation++
	return s.generation
}

func sameSearch(a, b Query) bool {
	return a.Bounds == b.Bounds && reflect.DeepEqual(a.Filters, b.Filters)
}
