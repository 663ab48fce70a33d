package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Listing types a property can be offered under. ListingTypeAll is only used
// by search filters and never stored.
const (
	ListingTypeAll     = "all"
	ListingTypeSale    = "sale"
	ListingTypeRent    = "rent"
	ListingTypeAuction = "auction"
	ListingTypeLease   = "lease"
	ListingTypeLife    = "life_annuity"
)

const (
	PropertyTypeAll        = "all"
	PropertyTypeHouse      = "house"
	PropertyTypeApartment  = "apartment"
	PropertyTypeLand       = "land"
	PropertyTypeCommercial = "commercial"
	PropertyTypeParking    = "parking"
)

// Property is a published real-estate listing.
type Property struct {
	ID           string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       string    `gorm:"type:uuid;index" json:"user_id" validate:"required,uuid"`
	Title        string    `gorm:"type:varchar(255);not null" json:"title" validate:"required,min=3,max=255"`
	Description  string    `gorm:"type:text" json:"description,omitempty"`
	ListingType  string    `gorm:"type:varchar(32);not null;index" json:"listing_type" validate:"required,oneof=sale rent auction lease life_annuity"`
	PropertyType string    `gorm:"type:varchar(32);not null;index" json:"property_type" validate:"required,oneof=house apartment land commercial parking"`
	Price        float64   `gorm:"not null;default:0" json:"price" validate:"gte=0"`
	M2           *float64  `gorm:"column:m2" json:"m2,omitempty" validate:"omitempty,gt=0"`
	Bedrooms     *int      `json:"bedrooms,omitempty" validate:"omitempty,gte=0"`
	Bathrooms    *int      `json:"bathrooms,omitempty" validate:"omitempty,gte=0"`
	Latitude     *float64  `gorm:"index:idx_properties_lat_lng,priority:1" json:"latitude,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Longitude    *float64  `gorm:"index:idx_properties_lat_lng,priority:2" json:"longitude,omitempty" validate:"omitempty,gte=-180,lte=180"`
	Address      string    `gorm:"type:varchar(255)" json:"address,omitempty"`
	City         string    `gorm:"type:varchar(120);index" json:"city,omitempty"`
	PostalCode   string    `gorm:"type:varchar(16)" json:"postal_code,omitempty"`
	Images       string    `gorm:"type:text" json:"images,omitempty"`
	Featured     bool      `gorm:"default:false" json:"featured"`
	ViewCount    int64     `gorm:"not null;default:0" json:"view_count"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// HasCoordinates reports whether both latitude and longitude are known.
func (p *Property) HasCoordinates() bool {
	return p.Latitude != nil && p.Longitude != nil
}

// AreaOrZero returns the living area, treating an unknown area as 0.
func (p *Property) AreaOrZero() float64 {
	if p.M2 == nil {
		return 0
	}
	return *p.M2
}

func (p *Property) Validate() error {
	return validator.New().Struct(p)
}
