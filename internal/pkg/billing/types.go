package billing

import (
	"errors"
	"time"
)

var (
	ErrMissingUserID    = errors.New("missing userId")
	ErrInvalidUserID    = errors.New("userId is not a UUID")
	ErrProfileNotFound  = errors.New("profile not found")
	ErrStripeClient     = errors.New("stripe request failed")
	ErrPriceNotFound    = errors.New("stripe product has no default price")
	ErrWebhookSignature = errors.New("invalid stripe webhook signature")
	ErrMalformedEvent   = errors.New("malformed stripe event payload")
)

// EventKind classifies the Stripe events the reconciliation reacts to.
type EventKind string

const (
	KindCheckoutCompleted   EventKind = "checkout_completed"
	KindSubscriptionUpdated EventKind = "subscription_updated"
	KindSubscriptionDeleted EventKind = "subscription_deleted"
	KindIgnored             EventKind = "ignored"
)

// SubscriptionEvent is the provider-neutral shape of a verified webhook
// event. UserID is only set for checkout completions; CustomerID may be
// empty when Stripe did not attach a customer.
type SubscriptionEvent struct {
	Kind       EventKind
	EventID    string
	EventType  string
	OccurredAt time.Time
	UserID     string
	CustomerID string
	Status     string
}

// ProfileUpdate is the set of billing columns written onto a profile row.
type ProfileUpdate struct {
	Status      string
	MaxListings int
	CustomerID  string
	EventAt     time.Time
}

// Outcome reports what Apply did with an event.
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeNoUser    Outcome = "skipped_no_user"
	OutcomeNoProfile Outcome = "skipped_no_profile"
	OutcomeStale     Outcome = "skipped_stale"
	OutcomeDuplicate Outcome = "duplicate"
)

// WebhookResult summarises a processed delivery.
type WebhookResult struct {
	EventID string
	Outcome Outcome
}

// CheckoutRequest carries what the gateway needs to open a subscription
// checkout for one user.
type CheckoutRequest struct {
	PriceID    string
	UserID     string
	Email      string
	SuccessURL string
	CancelURL  string
}
