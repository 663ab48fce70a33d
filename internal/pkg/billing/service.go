package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v82"
	"gorm.io/gorm"

	"github.com/ManuelReschke/ImmoMap/app/models"
	"github.com/ManuelReschke/ImmoMap/internal/pkg/entitlements"
)

// Service reconciles Stripe subscription state into profiles and opens
// checkout and portal sessions.
type Service struct {
	repo    Repository
	gateway Gateway
	cfg     Config
}

// NewService creates a billing service. gateway may be nil when only
// webhook reconciliation is needed.
func NewService(repo Repository, gateway Gateway, cfg Config) *Service {
	return &Service{repo: repo, gateway: gateway, cfg: cfg}
}

// NewServiceFromDB creates a billing service from a GORM DB handle and a
// Stripe-backed gateway.
func NewServiceFromDB(db *gorm.DB, cfg Config) *Service {
	return NewService(NewRepository(db), NewStripeGateway(cfg.SecretKey), cfg)
}

func (s *Service) Config() Config {
	return s.cfg
}

// CreateCheckoutSession opens a subscription checkout for the user and
// returns the hosted checkout URL.
func (s *Service) CreateCheckoutSession(ctx context.Context, userID, email, baseURL string) (string, error) {
	userID, err := normalizeUserID(userID)
	if err != nil {
		return "", err
	}

	priceID, err := s.gateway.ResolvePrice(ctx, s.cfg.PriceRef)
	if err != nil {
		return "", err
	}

	return s.gateway.CreateCheckoutSession(ctx, CheckoutRequest{
		PriceID:    priceID,
		UserID:     userID,
		Email:      strings.TrimSpace(email),
		SuccessURL: baseURL + "/account?checkout=success&session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  baseURL + "/account?checkout=canceled",
	})
}

// CreatePortalSession returns a billing portal URL for the user. A Stripe
// customer is created and stored on the profile when none is linked yet.
func (s *Service) CreatePortalSession(ctx context.Context, userID, baseURL string) (string, error) {
	userID, err := normalizeUserID(userID)
	if err != nil {
		return "", err
	}

	profile, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrProfileNotFound
		}
		return "", err
	}

	customerID := profile.StripeCustomerID
	if customerID == "" {
		customerID, err = s.gateway.CreateCustomer(ctx, profile.Email, userID)
		if err != nil {
			return "", err
		}
		if err := s.repo.SetCustomerID(ctx, userID, customerID); err != nil {
			return "", fmt.Errorf("store stripe customer: %w", err)
		}
	}

	return s.gateway.CreatePortalSession(ctx, customerID, baseURL+"/account")
}

// normalizeUserID trims id and requires a UUID, the key type of profiles.
func normalizeUserID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrMissingUserID
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidUserID, id)
	}
	return id, nil
}

// Apply writes the effect of one subscription event onto profiles.
func (s *Service) Apply(ctx context.Context, ev SubscriptionEvent) (Outcome, error) {
	switch ev.Kind {
	case KindCheckoutCompleted:
		if ev.UserID == "" {
			log.Warnf("[Billing] checkout %s completed without userId metadata, skipping", ev.EventID)
			return OutcomeNoUser, nil
		}
		if _, err := uuid.Parse(ev.UserID); err != nil {
			log.Warnf("[Billing] checkout %s carries non-UUID userId %q, skipping", ev.EventID, ev.UserID)
			return OutcomeNoUser, nil
		}
		applied, err := s.repo.UpdateByUserID(ctx, ev.UserID, ProfileUpdate{
			Status:      models.SubscriptionStatusActive,
			MaxListings: entitlements.MaxListingsFor(models.SubscriptionStatusActive),
			CustomerID:  ev.CustomerID,
			EventAt:     ev.OccurredAt,
		})
		if err != nil {
			return "", fmt.Errorf("apply checkout for user %s: %w", ev.UserID, err)
		}
		if !applied {
			log.Infof("[Billing] event %s older than stored state for user %s, skipping", ev.EventID, ev.UserID)
			return OutcomeStale, nil
		}
		return OutcomeApplied, nil

	case KindSubscriptionDeleted, KindSubscriptionUpdated:
		if ev.CustomerID == "" {
			log.Warnf("[Billing] %s event %s has no customer, skipping", ev.EventType, ev.EventID)
			return OutcomeNoProfile, nil
		}
		status := ev.Status
		if ev.Kind == KindSubscriptionDeleted {
			status = models.SubscriptionStatusCanceled
		}
		matched, applied, err := s.repo.UpdateByCustomerID(ctx, ev.CustomerID, ProfileUpdate{
			Status:      status,
			MaxListings: entitlements.MaxListingsFor(status),
			EventAt:     ev.OccurredAt,
		})
		if err != nil {
			return "", fmt.Errorf("apply %s for customer %s: %w", ev.EventType, ev.CustomerID, err)
		}
		if matched == 0 {
			log.Infof("[Billing] no profile for customer %s (event %s)", ev.CustomerID, ev.EventID)
			return OutcomeNoProfile, nil
		}
		if applied == 0 {
			log.Infof("[Billing] event %s older than stored state for customer %s, skipping", ev.EventID, ev.CustomerID)
			return OutcomeStale, nil
		}
		return OutcomeApplied, nil

	default:
		return OutcomeIgnored, nil
	}
}

// ProcessWebhookEvent journals a verified event and applies it once. A
// redelivery of an event that already succeeded is acknowledged as a
// duplicate; a previously failed event is processed again.
func (s *Service) ProcessWebhookEvent(ctx context.Context, event stripe.Event) (WebhookResult, error) {
	result := WebhookResult{EventID: event.ID}

	_, stored, err := s.RecordWebhookEvent(ctx, event)
	if err != nil {
		return result, fmt.Errorf("record webhook event: %w", err)
	}
	if stored.Succeeded() {
		result.Outcome = OutcomeDuplicate
		return result, nil
	}

	outcome, applyErr := s.applyEvent(ctx, event)
	if err := s.MarkWebhookProcessed(ctx, stored.ID, applyErr); err != nil {
		log.Warnf("[Billing] failed to mark webhook event %s processed: %v", event.ID, err)
	}
	if applyErr != nil {
		return result, applyErr
	}
	result.Outcome = outcome
	return result, nil
}

func (s *Service) applyEvent(ctx context.Context, event stripe.Event) (Outcome, error) {
	ev, err := ParseStripeEvent(event)
	if err != nil {
		return "", err
	}
	return s.Apply(ctx, ev)
}

// RecordWebhookEvent persists webhook payloads idempotently.
func (s *Service) RecordWebhookEvent(ctx context.Context, event stripe.Event) (bool, *models.BillingWebhookEvent, error) {
	if strings.TrimSpace(event.ID) == "" {
		return false, nil, fmt.Errorf("%w: missing event id", ErrMalformedEvent)
	}
	payload := ""
	if event.Data != nil {
		payload = string(event.Data.Raw)
	}
	return s.repo.CreateWebhookEventIfNotExists(ctx, &models.BillingWebhookEvent{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: event.ID,
		EventType:       string(event.Type),
		PayloadJSON:     payload,
	})
}

// MarkWebhookProcessed marks an event as processed and stores an optional error.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(ctx, webhookEventID, errMsg)
}

// PruneWebhookEvents deletes successfully processed journal rows older than
// the given age.
func (s *Service) PruneWebhookEvents(ctx context.Context, olderThan time.Duration) (int64, error) {
	n, err := s.repo.DeleteProcessedWebhookEvents(ctx, time.Now().Add(-olderThan))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Infof("[Billing] pruned %d processed webhook events", n)
	}
	return n, nil
}
