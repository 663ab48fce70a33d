package billing

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ManuelReschke/ImmoMap/app/models"
)

// Repository provides DB operations used by the billing service.
type Repository interface {
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	SetCustomerID(ctx context.Context, userID, customerID string) error
	UpdateByUserID(ctx context.Context, userID string, upd ProfileUpdate) (bool, error)
	UpdateByCustomerID(ctx context.Context, customerID string, upd ProfileUpdate) (matched, applied int64, err error)
	CreateWebhookEventIfNotExists(ctx context.Context, event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	MarkWebhookProcessed(ctx context.Context, id uint, processingError string) error
	DeleteProcessedWebhookEvents(ctx context.Context, before time.Time) (int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	var p models.Profile
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) SetCustomerID(ctx context.Context, userID, customerID string) error {
	return r.db.WithContext(ctx).Model(&models.Profile{}).
		Where("user_id = ?", userID).
		Update("stripe_customer_id", customerID).Error
}

func profileColumns(upd ProfileUpdate) map[string]interface{} {
	updates := map[string]interface{}{
		"stripe_subscription_status": upd.Status,
		"max_listings":               upd.MaxListings,
		"updated_at":                 time.Now(),
	}
	if upd.CustomerID != "" {
		updates["stripe_customer_id"] = upd.CustomerID
	}
	if !upd.EventAt.IsZero() {
		updates["stripe_event_at"] = upd.EventAt
	}
	return updates
}

// notOlderThan restricts an update to rows whose last applied Stripe event
// is not newer than the incoming one.
func notOlderThan(tx *gorm.DB, at time.Time) *gorm.DB {
	if at.IsZero() {
		return tx
	}
	return tx.Where("stripe_event_at IS NULL OR stripe_event_at <= ?", at)
}

// countProfiles returns how many profiles match column = value and how many
// of those already carry an event newer than at. Staleness is decided from
// stripe_event_at rather than RowsAffected, which MySQL reports as 0 for
// rows the update left unchanged.
func countProfiles(db *gorm.DB, column, value string, at time.Time) (matched, ahead int64, err error) {
	if err = db.Model(&models.Profile{}).Where(column+" = ?", value).Count(&matched).Error; err != nil || matched == 0 || at.IsZero() {
		return matched, 0, err
	}
	err = db.Model(&models.Profile{}).
		Where(column+" = ? AND stripe_event_at > ?", value, at).
		Count(&ahead).Error
	return matched, ahead, err
}

// UpdateByUserID writes the billing columns of a user's profile, creating
// the row if the user has none yet. It returns false when the stored
// profile already reflects a newer event.
func (r *gormRepository) UpdateByUserID(ctx context.Context, userID string, upd ProfileUpdate) (bool, error) {
	db := r.db.WithContext(ctx)
	if err := notOlderThan(db.Model(&models.Profile{}).Where("user_id = ?", userID), upd.EventAt).
		Updates(profileColumns(upd)).Error; err != nil {
		return false, err
	}

	matched, ahead, err := countProfiles(db, "user_id", userID, upd.EventAt)
	if err != nil {
		return false, err
	}
	if matched > 0 {
		return ahead == 0, nil
	}

	p := &models.Profile{
		UserID:                   userID,
		StripeCustomerID:         upd.CustomerID,
		StripeSubscriptionStatus: upd.Status,
		MaxListings:              upd.MaxListings,
	}
	if !upd.EventAt.IsZero() {
		at := upd.EventAt
		p.StripeEventAt = &at
	}
	created := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(p)
	if created.Error != nil {
		return false, created.Error
	}
	if created.RowsAffected > 0 {
		return true, nil
	}
	// lost a race with a concurrent insert; apply onto that row
	if err := notOlderThan(db.Model(&models.Profile{}).Where("user_id = ?", userID), upd.EventAt).
		Updates(profileColumns(upd)).Error; err != nil {
		return false, err
	}
	_, ahead, err = countProfiles(db, "user_id", userID, upd.EventAt)
	return err == nil && ahead == 0, err
}

// UpdateByCustomerID writes the billing columns of every profile linked to
// the customer. matched counts the linked profiles, applied those that were
// not already ahead of the event.
func (r *gormRepository) UpdateByCustomerID(ctx context.Context, customerID string, upd ProfileUpdate) (int64, int64, error) {
	db := r.db.WithContext(ctx)
	if err := notOlderThan(db.Model(&models.Profile{}).Where("stripe_customer_id = ?", customerID), upd.EventAt).
		Updates(profileColumns(upd)).Error; err != nil {
		return 0, 0, err
	}
	matched, ahead, err := countProfiles(db, "stripe_customer_id", customerID, upd.EventAt)
	if err != nil {
		return 0, 0, err
	}
	return matched, matched - ahead, nil
}

func (r *gormRepository) CreateWebhookEventIfNotExists(ctx context.Context, event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	db := r.db.WithContext(ctx)
	tx := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.BillingWebhookEvent
	if err := db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(ctx context.Context, id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.WithContext(ctx).Model(&models.BillingWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}

func (r *gormRepository) DeleteProcessedWebhookEvents(ctx context.Context, before time.Time) (int64, error) {
	tx := r.db.WithContext(ctx).
		Where("processed_at IS NOT NULL AND processed_at < ? AND processing_error = ?", before, "").
		Delete(&models.BillingWebhookEvent{})
	return tx.RowsAffected, tx.Error
}
