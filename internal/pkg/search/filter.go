package search

import (
	"github.com/ManuelReschke/ImmoMap/app/models"
	"github.com/ManuelReschke/ImmoMap/internal/pkg/searchstate"
)

// WithinBounds reports whether p has coordinates inside b. Edges are
// inclusive. Properties without latitude or longitude never match.
func WithinBounds(p *models.Property, b searchstate.Bounds) bool {
	if !p.HasCoordinates() {
		return false
	}
	lat, lng := *p.Latitude, *p.Longitude
	return lat >= b.South && lat <= b.North && lng >= b.West && lng <= b.East
}

// FilterByBounds keeps the properties inside b.
func FilterByBounds(props []models.Property, b searchstate.Bounds) []models.Property {
	out := make([]models.Property, 0, len(props))
	for i := range props {
		if WithinBounds(&props[i], b) {
			out = append(out, props[i])
		}
	}
	return out
}

// MatchesFilters applies every present attribute filter. Absent filters pass.
// Unknown area, bedroom or bathroom counts on the property also pass.
func MatchesFilters(p *models.Property, f searchstate.FilterState) bool {
	if !matchesEnum(p.ListingType, f.ListingType, models.ListingTypeAll) {
		return false
	}
	if !matchesEnum(p.PropertyType, f.PropertyType, models.PropertyTypeAll) {
		return false
	}
	if f.PriceMin != nil && p.Price < *f.PriceMin {
		return false
	}
	if f.PriceMax != nil && p.Price > *f.PriceMax {
		return false
	}
	if p.M2 != nil {
		if f.M2Min != nil && *p.M2 < *f.M2Min {
			return false
		}
		if f.M2Max != nil && *p.M2 > *f.M2Max {
			return false
		}
	}
	if f.Beds != nil && p.Bedrooms != nil && *p.Bedrooms < *f.Beds {
		return false
	}
	if f.Baths != nil && p.Bathrooms != nil && *p.Bathrooms < *f.Baths {
		return false
	}
	return true
}

// FilterByAttributes keeps the properties matching f.
func FilterByAttributes(props []models.Property, f searchstate.FilterState) []models.Property {
	out := make([]models.Property, 0, len(props))
	for i := range props {
		if MatchesFilters(&props[i], f) {
			out = append(out, props[i])
		}
	}
	return out
}

func matchesEnum(value string, want *string, wildcard string) bool {
	if want == nil || *want == "" || *want == wildcard {
		return true
	}
	return value == *want
}
