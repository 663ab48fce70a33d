package searchstate

import "sync"

// FilterPatch carries a partial filter update. Only non-nil fields are
// merged; use Clear* to drop a filter back to absent.
type FilterPatch struct {
	Sort         *SortOption `json:"sort,omitempty"`
	PropertyType *string     `json:"propertyType,omitempty"`
	ListingType  *string     `json:"listingType,omitempty"`
	PriceMin     *float64    `json:"priceMin,omitempty"`
	PriceMax     *float64    `json:"priceMax,omitempty"`
	M2Min        *float64    `json:"m2Min,omitempty"`
	M2Max        *float64    `json:"m2Max,omitempty"`
	Beds         *int        `json:"beds,omitempty"`
	Baths        *int        `json:"baths,omitempty"`

	ClearPropertyType bool `json:"clearPropertyType,omitempty"`
	ClearListingType  bool `json:"clearListingType,omitempty"`
	ClearPrice        bool `json:"clearPrice,omitempty"`
	ClearM2           bool `json:"clearM2,omitempty"`
	ClearBeds         bool `json:"clearBeds,omitempty"`
	ClearBaths        bool `json:"clearBaths,omitempty"`
}

// PaginationPatch carries a partial pagination update.
type PaginationPatch struct {
	Page     *int `json:"page,omitempty"`
	PageSize *int `json:"pageSize,omitempty"`
}

// ChangeFunc is called with the new state and its encoded query value after
// every mutation. Callers replace the current URL rather than pushing a new
// history entry.
type ChangeFunc func(state State, encoded string)

// Store owns a State and serializes mutations on it.
type Store struct {
	mu       sync.Mutex
	state    State
	onChange ChangeFunc
}

// NewStore creates a store seeded with initial. Use FromQuery to obtain the
// initial state from a request URL.
func NewStore(initial State, onChange ChangeFunc) *Store {
	return &Store{state: initial.Clone(), onChange: onChange}
}

// State returns a copy of the current state that shares no memory with the
// store.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// UpdateMapBounds replaces the viewport and resets to the first page.
func (s *Store) UpdateMapBounds(bounds Bounds, zoom *int) {
	s.mutate(func(st *State) {
		st.MapBounds = bounds
		if zoom != nil {
			st.MapZoom = *zoom
		}
		st.Pagination.Page = 1
	})
}

// UpdateFilters merges patch into the filter state and resets to the first
// page.
func (s *Store) UpdateFilters(patch FilterPatch) {
	s.mutate(func(st *State) {
		patch.apply(&st.FilterState)
		st.Pagination.Page = 1
	})
}

// UpdatePagination merges patch into the pagination only.
func (s *Store) UpdatePagination(patch PaginationPatch) {
	s.mutate(func(st *State) {
		if patch.Page != nil {
			st.Pagination.Page = *patch.Page
		}
		if patch.PageSize != nil {
			st.Pagination.PageSize = *patch.PageSize
		}
	})
}

func (s *Store) ToggleMapVisibility() {
	s.mutate(func(st *State) { st.IsMapVisible = !st.IsMapVisible })
}

func (s *Store) ToggleListVisibility() {
	s.mutate(func(st *State) { st.IsListVisible = !st.IsListVisible })
}

// ResetToDefault restores the built-in default state.
func (s *Store) ResetToDefault() {
	s.mutate(func(st *State) { *st = Default() })
}

func (s *Store) mutate(fn func(*State)) {
	s.mu.Lock()
	fn(&s.state)
	snapshot := s.state.Clone()
	onChange := s.onChange
	s.mu.Unlock()

	if onChange != nil {
		onChange(snapshot, Encode(snapshot))
	}
}

func (p FilterPatch) apply(f *FilterState) {
	if p.Sort != nil {
		f.Sort = *p.Sort
	}
	if p.PropertyType != nil {
		f.PropertyType = clonePtr(p.PropertyType)
	}
	if p.ListingType != nil {
		f.ListingType = clonePtr(p.ListingType)
	}
	if p.PriceMin != nil {
		f.PriceMin = clonePtr(p.PriceMin)
	}
	if p.PriceMax != nil {
		f.PriceMax = clonePtr(p.PriceMax)
	}
	if p.M2Min != nil {
		f.M2Min = clonePtr(p.M2Min)
	}
	if p.M2Max != nil {
		f.M2Max = clonePtr(p.M2Max)
	}
	if p.Beds != nil {
		f.Beds = clonePtr(p.Beds)
	}
	if p.Baths != nil {
		f.Baths = clonePtr(p.Baths)
	}

	if p.ClearPropertyType {
		f.PropertyType = nil
	}
	if p.ClearListingType {
		f.ListingType = nil
	}
	if p.ClearPrice {
		f.PriceMin, f.PriceMax = nil, nil
	}
	if p.ClearM2 {
		f.M2Min, f.M2Max = nil, nil
	}
	if p.ClearBeds {
		f.Beds = nil
	}
	if p.ClearBaths {
		f.Baths = nil
	}
}
