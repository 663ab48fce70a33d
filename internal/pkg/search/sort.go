package search

import (
	"cmp"
	"slices"

	"github.com/ManuelReschke/ImmoMap/app/models"
	"github.com/ManuelReschke/ImmoMap/internal/pkg/searchstate"
)

// RelevanceScore ranks featured listings first, then by price and area.
func RelevanceScore(p *models.Property) float64 {
	score := p.Price/1000 + p.AreaOrZero()/10
	if p.Featured {
		score += 1000
	}
	return score
}

// SortProperties returns a sorted copy of props. The sort is stable, so
// applying it twice with the same key yields the same order.
func SortProperties(props []models.Property, key searchstate.SortKey) []models.Property {
	out := slices.Clone(props)
	slices.SortStableFunc(out, comparator(key))
	return out
}

func comparator(key searchstate.SortKey) func(a, b models.Property) int {
	switch key {
	case searchstate.SortPriceAsc:
		return func(a, b models.Property) int { return cmp.Compare(a.Price, b.Price) }
	case searchstate.SortPriceDesc:
		return func(a, b models.Property) int { return cmp.Compare(b.Price, a.Price) }
	case searchstate.SortM2Asc:
		return func(a, b models.Property) int { return cmp.Compare(a.AreaOrZero(), b.AreaOrZero()) }
	case searchstate.SortM2Desc:
		return func(a, b models.Property) int { return cmp.Compare(b.AreaOrZero(), a.AreaOrZero()) }
	case searchstate.SortDateAsc:
		return func(a, b models.Property) int { return a.CreatedAt.Compare(b.CreatedAt) }
	case searchstate.SortDateDesc:
		return func(a, b models.Property) int { return b.CreatedAt.Compare(a.CreatedAt) }
	default:
		return func(a, b models.Property) int { return cmp.Compare(RelevanceScore(&b), RelevanceScore(&a)) }
	}
}
