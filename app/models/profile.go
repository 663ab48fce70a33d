package models

import "time"

const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusTrialing = "trialing"
	SubscriptionStatusPastDue  = "past_due"
	SubscriptionStatusCanceled = "canceled"
)

// Profile is the per-user account row. The Stripe columns are owned by the
// billing reconciliation; everything else is written at sign-up.
type Profile struct {
	UserID                   string     `gorm:"column:user_id;type:uuid;primaryKey" json:"user_id"`
	Email                    string     `gorm:"type:varchar(200);default:''" json:"email"`
	StripeCustomerID         string     `gorm:"column:stripe_customer_id;type:varchar(191);default:'';index" json:"stripe_customer_id"`
	StripeSubscriptionStatus string     `gorm:"column:stripe_subscription_status;type:varchar(32);default:''" json:"stripe_subscription_status"`
	MaxListings              int        `gorm:"column:max_listings;not null;default:10" json:"max_listings"`
	StripeEventAt            *time.Time `gorm:"column:stripe_event_at;type:timestamp;default:null" json:"-"`
	CreatedAt                time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt                time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Profile) TableName() string {
	return "profiles"
}

// IsSubscribed reports whether the profile currently holds an active
// subscription.
func (p *Profile) IsSubscribed() bool {
	return p.StripeSubscriptionStatus == SubscriptionStatusActive
}
