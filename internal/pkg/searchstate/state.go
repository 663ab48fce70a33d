package searchstate

// SortKey selects the ordering of search results.
type SortKey string

const (
	SortRelevance SortKey = "globalrelevanceex"
	SortPriceAsc  SortKey = "priceasc"
	SortPriceDesc SortKey = "pricedesc"
	SortM2Asc     SortKey = "m2asc"
	SortM2Desc    SortKey = "m2desc"
	SortDateAsc   SortKey = "dateasc"
	SortDateDesc  SortKey = "datedesc"
)

// CurrentVersion is the schema version written by Encode.
const CurrentVersion = 1

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	DefaultZoom     = 6
)

type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

// Bounds is a map viewport in degrees. South < North and West < East are
// assumed, not enforced.
type Bounds struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

type SortOption struct {
	Value SortKey `json:"value"`
}

// FilterState holds the attribute filters. A nil field is absent and lets
// every property through; a set field is compared.
type FilterState struct {
	Sort         SortOption `json:"sort"`
	PropertyType *string    `json:"propertyType,omitempty"`
	ListingType  *string    `json:"listingType,omitempty"`
	PriceMin     *float64   `json:"priceMin,omitempty"`
	PriceMax     *float64   `json:"priceMax,omitempty"`
	M2Min        *float64   `json:"m2Min,omitempty"`
	M2Max        *float64   `json:"m2Max,omitempty"`
	Beds         *int       `json:"beds,omitempty"`
	Baths        *int       `json:"baths,omitempty"`
}

// State is the complete browse state that is shared through the URL.
type State struct {
	Version       int         `json:"version"`
	Pagination    Pagination  `json:"pagination"`
	IsMapVisible  bool        `json:"isMapVisible"`
	IsListVisible bool        `json:"isListVisible"`
	MapBounds     Bounds      `json:"mapBounds"`
	FilterState   FilterState `json:"filterState"`
	MapZoom       int         `json:"mapZoom"`
}

// FranceBounds covers metropolitan France including Corsica.
var FranceBounds = Bounds{
	North: 51.1,
	South: 41.3,
	East:  9.6,
	West:  -5.2,
}

// Default returns the state used on first load.
func Default() State {
	return State{
		Version: CurrentVersion,
		Pagination: Pagination{
			Page:     1,
			PageSize: DefaultPageSize,
		},
		IsMapVisible:  true,
		IsListVisible: true,
		MapBounds:     FranceBounds,
		FilterState: FilterState{
			Sort: SortOption{Value: SortRelevance},
		},
		MapZoom: DefaultZoom,
	}
}

// IsValidSortKey reports whether k is one of the known sort keys.
func IsValidSortKey(k SortKey) bool {
	switch k {
	case SortRelevance, SortPriceAsc, SortPriceDesc, SortM2Asc, SortM2Desc, SortDateAsc, SortDateDesc:
		return true
	default:
		return false
	}
}

// Normalized returns a copy with out-of-range pagination and unknown sort
// keys replaced by their defaults. Page sizes above MaxPageSize are capped.
func (s State) Normalized() State {
	if s.Pagination.Page < 1 {
		s.Pagination.Page = 1
	}
	if s.Pagination.PageSize < 1 {
		s.Pagination.PageSize = DefaultPageSize
	}
	if s.Pagination.PageSize > MaxPageSize {
		s.Pagination.PageSize = MaxPageSize
	}
	if !IsValidSortKey(s.FilterState.Sort.Value) {
		s.FilterState.Sort.Value = SortRelevance
	}
	return s
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	f := &s.FilterState
	f.PropertyType = clonePtr(f.PropertyType)
	f.ListingType = clonePtr(f.ListingType)
	f.PriceMin = clonePtr(f.PriceMin)
	f.PriceMax = clonePtr(f.PriceMax)
	f.M2Min = clonePtr(f.M2Min)
	f.M2Max = clonePtr(f.M2Max)
	f.Beds = clonePtr(f.Beds)
	f.Baths = clonePtr(f.Baths)
	return s
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
