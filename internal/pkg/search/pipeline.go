package search

import (
	"github.com/ManuelReschke/ImmoMap/app/models"
	"github.com/ManuelReschke/ImmoMap/internal/pkg/searchstate"
)

// Query is the input of one pipeline run.
type Query struct {
	Bounds   searchstate.Bounds
	Filters  searchstate.FilterState
	Page     int
	PageSize int
}

// QueryFromState derives a pipeline query from browse state.
func QueryFromState(s searchstate.State) Query {
	s = s.Normalized()
	return Query{
		Bounds:   s.MapBounds,
		Filters:  s.FilterState,
		Page:     s.Pagination.Page,
		PageSize: s.Pagination.PageSize,
	}
}

// CandidateQuery returns the coarse query used to fetch candidates. Bounds
// are only included when the source is allowed to narrow by them.
func (q Query) CandidateQuery(pushdown bool) CandidateQuery {
	cq := CandidateQuery{}
	if lt := q.Filters.ListingType; lt != nil && *lt != "" && *lt != models.ListingTypeAll {
		cq.ListingType = *lt
	}
	if pushdown {
		b := q.Bounds
		cq.Bounds = &b
	}
	return cq
}

// Run filters, sorts and paginates a candidate set.
func Run(candidates []models.Property, q Query) Page {
	inBounds := FilterByBounds(candidates, q.Bounds)
	matching := FilterByAttributes(inBounds, q.Filters)
	sorted := SortProperties(matching, q.Filters.Sort.Value)
	return Paginate(sorted, q.Page, q.PageSize)
}
