package search

import (
	"time"

	"github.com/ManuelReschke/ImmoMap/app/models"
)

func ptr[T any](v T) *T { return &v }

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func property(id string, lat, lng float64, price float64) models.Property {
	return models.Property{
		ID:           id,
		Title:        "Listing " + id,
		ListingType:  models.ListingTypeSale,
		PropertyType: models.PropertyTypeApartment,
		Price:        price,
		Latitude:     ptr(lat),
		Longitude:    ptr(lng),
		CreatedAt:    baseTime,
	}
}

func ids(props []models.Property) []string {
	out := make([]string, len(props))
	for i, p := range props {
		out[i] = p.ID
	}
	return out
}
