package controllers

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/ManuelReschke/ImmoMap/app/models"
	"github.com/ManuelReschke/ImmoMap/app/repository"
	"github.com/ManuelReschke/ImmoMap/internal/pkg/billing"
	"github.com/ManuelReschke/ImmoMap/internal/pkg/search"
)

const (
	userA = "6f1c2a8e-4b7d-4e39-9a51-0c2d7e3f9b10"
	userB = "0b9e5d44-2f61-4c8a-8d1e-7a3b6c5f2e91"
)

// store backs every repository fake so billing writes are visible to the
// account endpoint.
type store struct {
	mu         sync.Mutex
	profiles   map[string]*models.Profile
	properties []models.Property
	services   map[string]*models.AncillaryService
	events     map[string]*models.BillingWebhookEvent
	failReads  bool
}

func newStore() *store {
	return &store{
		profiles: map[string]*models.Profile{},
		services: map[string]*models.AncillaryService{},
		events:   map[string]*models.BillingWebhookEvent{},
	}
}

func (s *store) addProfile(p models.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = &p
}

func (s *store) profile(userID string) models.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.profiles[userID]
}

// profile repository

func (s *store) GetByUserID(_ context.Context, userID string) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

// property repository

type propertyRepo struct{ *store }

func (r propertyRepo) Candidates(_ context.Context, q search.CandidateQuery) ([]models.Property, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failReads {
		return nil, errors.New("db down")
	}
	var out []models.Property
	for _, p := range r.properties {
		if q.ListingType != "" && p.ListingType != q.ListingType {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (r propertyRepo) GetByID(_ context.Context, id string) (*models.Property, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.properties {
		if r.properties[i].ID == id {
			cp := r.properties[i]
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r propertyRepo) CountByUserID(_ context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, p := range r.properties {
		if p.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (r propertyRepo) Create(_ context.Context, p *models.Property) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.properties = append(r.properties, *p)
	return nil
}

// ancillary service repository

type ancillaryRepo struct{ *store }

func (r ancillaryRepo) List(_ context.Context, f repository.AncillaryServiceFilter, offset, limit int) ([]models.AncillaryService, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []models.AncillaryService
	for _, s := range r.services {
		if f.Category != "" && s.Category != f.Category {
			continue
		}
		if f.City != "" && s.City != f.City {
			continue
		}
		all = append(all, *s)
	}
	slices.SortFunc(all, func(a, b models.AncillaryService) int { return cmp.Compare(a.Name, b.Name) })
	total := int64(len(all))
	if offset >= len(all) {
		return []models.AncillaryService{}, total, nil
	}
	return all[offset:min(offset+limit, len(all))], total, nil
}

func (r ancillaryRepo) GetByID(_ context.Context, id string) (*models.AncillaryService, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.services[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *s
	return &cp, nil
}

func (r ancillaryRepo) Create(_ context.Context, s *models.AncillaryService) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.services[s.ID] = &cp
	return nil
}

func (r ancillaryRepo) Update(ctx context.Context, s *models.AncillaryService) error {
	return r.Create(ctx, s)
}

func (r ancillaryRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.services[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.services, id)
	return nil
}

// billing repository

type billingRepo struct{ *store }

func (r billingRepo) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	return r.GetByUserID(ctx, userID)
}

func (r billingRepo) SetCustomerID(_ context.Context, userID, customerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[userID].StripeCustomerID = customerID
	return nil
}

func apply(p *models.Profile, upd billing.ProfileUpdate) bool {
	if p.StripeEventAt != nil && p.StripeEventAt.After(upd.EventAt) {
		return false
	}
	p.StripeSubscriptionStatus = upd.Status
	p.MaxListings = upd.MaxListings
	if upd.CustomerID != "" {
		p.StripeCustomerID = upd.CustomerID
	}
	at := upd.EventAt
	p.StripeEventAt = &at
	return true
}

func (r billingRepo) UpdateByUserID(_ context.Context, userID string, upd billing.ProfileUpdate) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[userID]
	if !ok {
		p = &models.Profile{UserID: userID}
		r.profiles[userID] = p
	}
	return apply(p, upd), nil
}

func (r billingRepo) UpdateByCustomerID(_ context.Context, customerID string, upd billing.ProfileUpdate) (int64, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched, applied int64
	for _, p := range r.profiles {
		if p.StripeCustomerID == customerID {
			matched++
			if apply(p, upd) {
				applied++
			}
		}
	}
	return matched, applied, nil
}

func (r billingRepo) CreateWebhookEventIfNotExists(_ context.Context, e *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if stored, ok := r.events[e.ProviderEventID]; ok {
		cp := *stored
		return false, &cp, nil
	}
	e.ID = uint(len(r.events) + 1)
	cp := *e
	r.events[e.ProviderEventID] = &cp
	return true, e, nil
}

func (r billingRepo) MarkWebhookProcessed(_ context.Context, id uint, processingError string) error {
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

func (r billingRepo) DeleteProcessedWebhookEvents(context.Context, time.Time) (int64, error) {
	return 0, nil
}

type stubGateway struct {
	err error
}

func (g stubGateway) ResolvePrice(_ context.Context, ref string) (string, error) {
	return "price_1", g.err
}

func (g stubGateway) CreateCheckoutSession(_ context.Context, req billing.CheckoutRequest) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	return "https://checkout.stripe.test/" + req.UserID + "?success=" + req.SuccessURL, nil
}

func (g stubGateway) CreateCustomer(context.Context, string, string) (string, error) {
	return "cus_created", g.err
}

func (g stubGateway) CreatePortalSession(_ context.Context, customerID, _ string) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	return "https://billing.stripe.test/" + customerID, nil
}
