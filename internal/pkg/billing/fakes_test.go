package billing

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
	"gorm.io/gorm"

	"github.com/ManuelReschke/ImmoMap/app/models"
)

const (
	userOne    = "6f1c2a3b-4d5e-4f60-8a7b-9c0d1e2f3a4b"
	userTwo    = "0e9d8c7b-6a5f-4e3d-9c2b-1a0f9e8d7c6b"
	userNobody = "00000000-0000-4000-8000-000000000000"
)

type memoryRepo struct {
	mu       sync.Mutex
	profiles map[string]*models.Profile
	events   map[string]*models.BillingWebhookEvent
	nextID   uint
	failWith error
}

func newMemoryRepo(profiles ...models.Profile) *memoryRepo {
	r := &memoryRepo{
		profiles: map[string]*models.Profile{},
		events:   map[string]*models.BillingWebhookEvent{},
	}
	for i := range profiles {
		p := profiles[i]
		r.profiles[p.UserID] = &p
	}
	return r
}

func (r *memoryRepo) profile(userID string) *models.Profile {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[userID]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

func accepts(p *models.Profile, at time.Time) bool {
	return at.IsZero() || p.StripeEventAt == nil || !p.StripeEventAt.After(at)
}

func write(p *models.Profile, upd ProfileUpdate) {
	p.StripeSubscriptionStatus = upd.Status
	p.MaxListings = upd.MaxListings
	if upd.CustomerID != "" {
		p.StripeCustomerID = upd.CustomerID
	}
	if !upd.EventAt.IsZero() {
		at := upd.EventAt
		p.StripeEventAt = &at
	}
}

func (r *memoryRepo) GetProfile(_ context.Context, userID string) (*models.Profile, error) {
	if p := r.profile(userID); p != nil {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memoryRepo) SetCustomerID(_ context.Context, userID, customerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.profiles[userID]; ok {
		p.StripeCustomerID = customerID
	}
	return nil
}

func (r *memoryRepo) UpdateByUserID(_ context.Context, userID string, upd ProfileUpdate) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return false, r.failWith
	}
	p, ok := r.profiles[userID]
	if !ok {
		p = &models.Profile{UserID: userID}
		r.profiles[userID] = p
	} else if !accepts(p, upd.EventAt) {
		return false, nil
	}
	write(p, upd)
	return true, nil
}

func (r *memoryRepo) UpdateByCustomerID(_ context.Context, customerID string, upd ProfileUpdate) (int64, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return 0, 0, r.failWith
	}
	var matched, applied int64
	for _, p := range r.profiles {
		if p.StripeCustomerID != customerID {
			continue
		}
		matched++
		if accepts(p, upd.EventAt) {
			write(p, upd)
			applied++
		}
	}
	return matched, applied, nil
}

func (r *memoryRepo) CreateWebhookEventIfNotExists(_ context.Context, event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if stored, ok := r.events[event.ProviderEventID]; ok {
		cp := *stored
		return false, &cp, nil
	}
	r.nextID++
	event.ID = r.nextID
	cp := *event
	r.events[event.ProviderEventID] = &cp
	return true, event, nil
}

func (r *memoryRepo) MarkWebhookProcessed(_ context.Context, id uint, processingError string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for _, e := range r.events {
		if e.ID == id {
			e.ProcessedAt = &now
			e.ProcessingError = processingError
		}
	}
	return nil
}

func (r *memoryRepo) DeleteProcessedWebhookEvents(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, e := range r.events {
		if e.ProcessedAt != nil && e.ProcessedAt.Before(before) && e.ProcessingError == "" {
			delete(r.events, id)
			n++
		}
	}
	return n, nil
}

func (r *memoryRepo) event(id string) *models.BillingWebhookEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok {
		return nil
	}
	cp := *e
	return &cp
}

type fakeGateway struct {
	priceRef  string
	checkouts []CheckoutRequest
	customers int
	portalFor string
	returnURL string
	err       error
}

func (g *fakeGateway) ResolvePrice(_ context.Context, ref string) (string, error) {
	g.priceRef = ref
	if g.err != nil {
		return "", g.err
	}
	return "price_resolved", nil
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, req CheckoutRequest) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	g.checkouts = append(g.checkouts, req)
	return "https://checkout.stripe.test/c/" + req.UserID, nil
}

func (g *fakeGateway) CreateCustomer(_ context.Context, _, _ string) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	g.customers++
	return "cus_new", nil
}

func (g *fakeGateway) CreatePortalSession(_ context.Context, customerID, returnURL string) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	g.portalFor = customerID
	g.returnURL = returnURL
	return "https://billing.stripe.test/p/" + customerID, nil
}

// stripeEvent builds an event the way the webhook endpoint decodes it.
func stripeEvent(t *testing.T, id, typ string, created time.Time, object map[string]any) stripe.Event {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"id":      id,
		"object":  "event",
		"type":    typ,
		"created": created.Unix(),
		"data":    map[string]any{"object": object},
	})
	require.NoError(t, err)

	var ev stripe.Event
	require.NoError(t, json.Unmarshal(raw, &ev))
	return ev
}

func checkoutCompleted(t *testing.T, id string, at time.Time, userID, customerID string) stripe.Event {
	obj := map[string]any{"id": "cs_" + id, "object": "checkout.session", "customer": customerID}
	if userID != "" {
		obj["metadata"] = map[string]string{"userId": userID}
	}
	return stripeEvent(t, id, "checkout.session.completed", at, obj)
}

func subscriptionEvent(t *testing.T, id, typ string, at time.Time, customerID, status string) stripe.Event {
	return stripeEvent(t, id, typ, at, map[string]any{
		"id":       "sub_" + id,
		"object":   "subscription",
		"customer": customerID,
		"status":   status,
	})
}
