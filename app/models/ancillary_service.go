package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	AncillaryCategoryDiagnostics = "diagnostics"
	AncillaryCategoryMoving      = "moving"
	AncillaryCategoryRenovation  = "renovation"
	AncillaryCategoryNotary      = "notary"
	AncillaryCategoryInsurance   = "insurance"
	AncillaryCategoryFinancing   = "financing"
	AncillaryCategoryOther       = "other"
)

// AncillaryService is a listing for a service around a property transaction
// (movers, diagnostics, notaries, ...).
type AncillaryService struct {
	ID          string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      string    `gorm:"type:uuid;not null;index" json:"user_id" validate:"required,uuid"`
	Name        string    `gorm:"type:varchar(150);not null" json:"name" validate:"required,min=2,max=150"`
	Category    string    `gorm:"type:varchar(32);not null;index" json:"category" validate:"required,oneof=diagnostics moving renovation notary insurance financing other"`
	Description string    `gorm:"type:text" json:"description" validate:"max=5000"`
	Phone       string    `gorm:"type:varchar(32)" json:"phone,omitempty" validate:"max=32"`
	Email       string    `gorm:"type:varchar(200)" json:"email,omitempty" validate:"omitempty,email,max=200"`
	Website     string    `gorm:"type:varchar(255)" json:"website,omitempty" validate:"omitempty,url,max=255"`
	City        string    `gorm:"type:varchar(120);index" json:"city,omitempty" validate:"max=120"`
	PostalCode  string    `gorm:"type:varchar(16)" json:"postal_code,omitempty" validate:"max=16"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (AncillaryService) TableName() string {
	return "ancillary_services"
}

func (s *AncillaryService) Validate() error {
	v := validator.New()
	return v.Struct(s)
}
