package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ManuelReschke/ImmoMap/app/models"
	"github.com/ManuelReschke/ImmoMap/internal/pkg/search"
)

// propertyRepository implements the PropertyRepository interface
type propertyRepository struct {
	db *gorm.DB
}

// NewPropertyRepository creates a new property repository instance
func NewPropertyRepository(db *gorm.DB) PropertyRepository {
	return &propertyRepository{db: db}
}

// Candidates loads the properties a search starts from. A listing type
// and a bounding box are applied in SQL when present; everything else is
// left to the in-memory pipeline.
func (r *propertyRepository) Candidates(ctx context.Context, q search.CandidateQuery) ([]models.Property, error) {
	tx := r.db.WithContext(ctx).Model(&models.Property{})
	if q.ListingType != "" && q.ListingType != models.ListingTypeAll {
		tx = tx.Where("listing_type = ?", q.ListingType)
	}
	if b := q.Bounds; b != nil {
		tx = tx.Where("latitude BETWEEN ? AND ? AND longitude BETWEEN ? AND ?", b.South, b.North, b.West, b.East)
	}

	var props []models.Property
	err := tx.Order("created_at DESC").Find(&props).Error
	return props, err
}

// GetByID retrieves a property by its ID
func (r *propertyRepository) GetByID(ctx context.Context, id string) (*models.Property, error) {
	var p models.Property
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// CountByUserID counts the listings a user has published
func (r *propertyRepository) CountByUserID(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Property{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *propertyRepository) Create(ctx context.Context, p *models.Property) error {
	return r.db.WithContext(ctx).Create(p).Error
}
