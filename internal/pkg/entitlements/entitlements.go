package entitlements

import (
	"strings"

	"github.com/ManuelReschke/ImmoMap/app/models"
)

type Plan string

const (
	PlanFree    Plan = "free"
	PlanPremium Plan = "premium"
)

const (
	MaxListingsFree    = 10
	MaxListingsPremium = 100
)

// PlanForStatus maps a Stripe subscription status to a plan. Only an exactly
// "active" subscription is premium; trialing and past_due fall back to free.
func PlanForStatus(status string) Plan {
	if strings.TrimSpace(status) == models.SubscriptionStatusActive {
		return PlanPremium
	}
	return PlanFree
}

// MaxListings returns the listing quota of a plan.
func MaxListings(plan Plan) int {
	switch plan {
	case PlanPremium:
		return MaxListingsPremium
	default:
		return MaxListingsFree
	}
}

// MaxListingsFor returns the listing quota implied by a subscription status.
func MaxListingsFor(status string) int {
	return MaxListings(PlanForStatus(status))
}

// Remaining returns how many more listings the profile may publish given
// the number already published. The stored quota wins over the derived one
// so manual grants survive.
func Remaining(p *models.Profile, used int) int {
	quota := p.MaxListings
	if quota <= 0 {
		quota = MaxListingsFor(p.StripeSubscriptionStatus)
	}
	if used >= quota {
		return 0
	}
	return quota - used
}
