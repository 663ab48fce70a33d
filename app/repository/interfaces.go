package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ManuelReschke/ImmoMap/app/models"
	"github.com/ManuelReschke/ImmoMap/internal/pkg/search"
)

// PropertyRepository defines the interface for listing-related database
// operations. It doubles as the uncached candidate source of the search
// pipeline.
type PropertyRepository interface {
	search.CandidateSource
	GetByID(ctx context.Context, id string) (*models.Property, error)
	CountByUserID(ctx context.Context, userID string) (int64, error)
	Create(ctx context.Context, p *models.Property) error
}

// ProfileRepository defines the interface for profile reads.
type ProfileRepository interface {
	GetByUserID(ctx context.Context, userID string) (*models.Profile, error)
}

// AncillaryServiceFilter narrows an ancillary service listing. Empty fields
// match everything.
type AncillaryServiceFilter struct {
	Category string
	City     string
}

// AncillaryServiceRepository defines the interface for the service directory.
type AncillaryServiceRepository interface {
	List(ctx context.Context, filter AncillaryServiceFilter, offset, limit int) ([]models.AncillaryService, int64, error)
	GetByID(ctx context.Context, id string) (*models.AncillaryService, error)
	Create(ctx context.Context, s *models.AncillaryService) error
	Update(ctx context.Context, s *models.AncillaryService) error
	Delete(ctx context.Context, id string) error
}

// Repositories holds all repository instances
type Repositories struct {
	Property         PropertyRepository
	Profile          ProfileRepository
	AncillaryService AncillaryServiceRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Property:         NewPropertyRepository(db),
		Profile:          NewProfileRepository(db),
		AncillaryService: NewAncillaryServiceRepository(db),
	}
}
