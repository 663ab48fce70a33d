package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ManuelReschke/ImmoMap/app/models"
)

// ancillaryServiceRepository implements the AncillaryServiceRepository interface
type ancillaryServiceRepository struct {
	db *gorm.DB
}

// NewAncillaryServiceRepository creates a new ancillary service repository instance
func NewAncillaryServiceRepository(db *gorm.DB) AncillaryServiceRepository {
	return &ancillaryServiceRepository{db: db}
}

// List returns one page of services matching the filter and the total match count
func (r *ancillaryServiceRepository) List(ctx context.Context, filter AncillaryServiceFilter, offset, limit int) ([]models.AncillaryService, int64, error) {
	tx := r.db.WithContext(ctx).Model(&models.AncillaryService{})
	if filter.Category != "" {
		tx = tx.Where("category = ?", filter.Category)
	}
	if filter.City != "" {
		tx = tx.Where("LOWER(city) = LOWER(?)", filter.City)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var services []models.AncillaryService
	err := tx.Order("name ASC").Offset(offset).Limit(limit).Find(&services).Error
	return services, total, err
}

// GetByID retrieves a service by its ID
func (r *ancillaryServiceRepository) GetByID(ctx context.Context, id string) (*models.AncillaryService, error) {
	var s models.AncillaryService
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// Create creates a new service in the database
func (r *ancillaryServiceRepository) Create(ctx context.Context, s *models.AncillaryService) error {
	return r.db.WithContext(ctx).Create(s).Error
}

// Update updates an existing service in the database
func (r *ancillaryServiceRepository) Update(ctx context.Context, s *models.AncillaryService) error {
	return r.db.WithContext(ctx).Save(s).Error
}

// Delete removes a service by its ID
func (r *ancillaryServiceRepository) Delete(ctx context.Context, id string) error {
	tx := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.AncillaryService{})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
