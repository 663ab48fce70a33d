package billing

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v82"
)

const (
	eventCheckoutSessionCompleted    = "checkout.session.completed"
	eventCustomerSubscriptionUpdated = "customer.subscription.updated"
	eventCustomerSubscriptionDeleted = "customer.subscription.deleted"
)

// ParseStripeEvent reduces a verified Stripe event to the fields the
// reconciliation needs. Event types outside the three handled ones come
// back as KindIgnored.
func ParseStripeEvent(event stripe.Event) (SubscriptionEvent, error) {
	out := SubscriptionEvent{
		Kind:      KindIgnored,
		EventID:   event.ID,
		EventType: string(event.Type),
	}
	if event.Created > 0 {
		out.OccurredAt = time.Unix(event.Created, 0).UTC()
	}
	if event.Data == nil {
		return out, nil
	}

	switch string(event.Type) {
	case eventCheckoutSessionCompleted:
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			return out, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		out.Kind = KindCheckoutCompleted
		out.UserID = cs.Metadata["userId"]
		if cs.Customer != nil {
			out.CustomerID = cs.Customer.ID
		}
	case eventCustomerSubscriptionUpdated, eventCustomerSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return out, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		out.Kind = KindSubscriptionUpdated
		if string(event.Type) == eventCustomerSubscriptionDeleted {
			out.Kind = KindSubscriptionDeleted
		}
		out.Status = string(sub.Status)
		if sub.Customer != nil {
			out.CustomerID = sub.Customer.ID
		}
	}
	return out, nil
}
