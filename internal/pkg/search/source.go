package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/ImmoMap/app/models"
	"github.com/ManuelReschke/ImmoMap/internal/pkg/searchstate"
)

const (
	DefaultCacheTTL    = 60 * time.Second
	candidateKeyPrefix = "search:candidates:"
)

// ErrCacheMiss is returned by Cache implementations when a key is absent.
var ErrCacheMiss = errors.New("search: cache miss")

// CandidateQuery is the coarse, store-side part of a search. An empty
// ListingType means every listing type. A nil Bounds fetches regardless of
// location.
type CandidateQuery struct {
	ListingType string
	Bounds      *searchstate.Bounds
}

// CandidateSource fetches the properties that client-side filtering runs on.
type CandidateSource interface {
	Candidates(ctx context.Context, q CandidateQuery) ([]models.Property, error)
}

// Cache is the byte-level key/value store behind CachedSource.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// CachedSource memoizes candidate sets per CandidateQuery.
type CachedSource struct {
	next  CandidateSource
	cache Cache
	ttl   time.Duration
}

// NewCachedSource wraps next with cache. A non-positive ttl uses
// DefaultCacheTTL.
func NewCachedSource(next CandidateSource, cache Cache, ttl time.Duration) *CachedSource {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedSource{next: next, cache: cache, ttl: ttl}
}

func (s *CachedSource) Candidates(ctx context.Context, q CandidateQuery) ([]models.Property, error) {
	key := CandidateCacheKey(q)

	raw, err := s.cache.Get(ctx, key)
	if err == nil {
		var props []models.Property
		if err := json.Unmarshal(raw, &props); err == nil {
			return props, nil
		}
		log.Warnf("[Search] dropping undecodable cache entry %s", key)
	} else if !errors.Is(err, ErrCacheMiss) {
		log.Warnf("[Search] cache read failed for %s: %v", key, err)
	}

	props, err := s.next.Candidates(ctx, q)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(props); err == nil {
		if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
			log.Warnf("[Search] cache write failed for %s: %v", key, err)
		}
	}
	return props, nil
}

// Invalidate drops the cached candidate set for q.
func (s *CachedSource) Invalidate(ctx context.Context, q CandidateQuery) error {
	return s.cache.Delete(ctx, CandidateCacheKey(q))
}

// CandidateCacheKey builds the cache key for q.
func CandidateCacheKey(q CandidateQuery) string {
	lt := q.ListingType
	if lt == "" {
		lt = models.ListingTypeAll
	}
	if q.Bounds == nil {
		return candidateKeyPrefix + lt
	}
	b := q.Bounds
	return fmt.Sprintf("%s%s:%.5f:%.5f:%.5f:%.5f", candidateKeyPrefix, lt, b.North, b.South, b.East, b.West)
}
