package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ManuelReschke/ImmoMap/app/repository"
	"github.com/ManuelReschke/ImmoMap/internal/pkg/billing"
	"github.com/ManuelReschke/ImmoMap/internal/pkg/entitlements"
)

const webhookTimeout = 15 * time.Second

// BillingController serves the Stripe endpoints and the account
// subscription summary.
type BillingController struct {
	billing    *billing.Service
	profiles   repository.ProfileRepository
	properties repository.PropertyRepository
}

func NewBillingController(svc *billing.Service, profiles repository.ProfileRepository, properties repository.PropertyRepository) *BillingController {
	return &BillingController{billing: svc, profiles: profiles, properties: properties}
}

type checkoutRequest struct {
	UserID    string `json:"userId"`
	UserEmail string `json:"userEmail"`
}

func (bc *BillingController) baseURL(c *fiber.Ctx) string {
	cfg := bc.billing.Config()
	return billing.ResolveBaseURL(cfg.AppURL, cfg.PlatformURL, c.Hostname(), c.Protocol())
}

// parseCheckoutRequest reads the body and returns a client error message
// for a missing or non-UUID user id.
func parseCheckoutRequest(c *fiber.Ctx) (checkoutRequest, string) {
	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil || req.UserID == "" {
		return req, "Missing userId"
	}
	if _, err := uuid.Parse(req.UserID); err != nil {
		return req, "Invalid userId"
	}
	return req, ""
}

// HandleCreateCheckoutSession opens a Stripe subscription checkout and
// returns its URL.
func (bc *BillingController) HandleCreateCheckoutSession(c *fiber.Ctx) error {
	if c.Method() != fiber.MethodPost {
		return jsonError(c, fiber.StatusMethodNotAllowed, "Method not allowed")
	}

	req, msg := parseCheckoutRequest(c)
	if msg != "" {
		return jsonError(c, fiber.StatusBadRequest, msg)
	}

	url, err := bc.billing.CreateCheckoutSession(c.UserContext(), req.UserID, req.UserEmail, bc.baseURL(c))
	if err != nil {
		log.Errorf("[Billing] checkout session for user %s failed: %v", req.UserID, err)
		return jsonError(c, fiber.StatusInternalServerError, "Failed to create checkout session")
	}
	return c.JSON(fiber.Map{"url": url})
}

// HandleCreatePortalSession returns a Stripe billing portal URL for the user.
func (bc *BillingController) HandleCreatePortalSession(c *fiber.Ctx) error {
	if c.Method() != fiber.MethodPost {
		return jsonError(c, fiber.StatusMethodNotAllowed, "Method not allowed")
	}

	req, msg := parseCheckoutRequest(c)
	if msg != "" {
		return jsonError(c, fiber.StatusBadRequest, msg)
	}

	url, err := bc.billing.CreatePortalSession(c.UserContext(), req.UserID, bc.baseURL(c))
	if err != nil {
		if errors.Is(err, billing.ErrProfileNotFound) {
			return jsonError(c, fiber.StatusNotFound, "Profile not found")
		}
		log.Errorf("[Billing] portal session for user %s failed: %v", req.UserID, err)
		return jsonError(c, fiber.StatusInternalServerError, "Failed to create portal session")
	}
	return c.JSON(fiber.Map{"url": url})
}

// HandleStripeWebhook verifies and applies a Stripe webhook delivery.
func (bc *BillingController) HandleStripeWebhook(c *fiber.Ctx) error {
	payload := append([]byte(nil), c.BodyRaw()...)

	event, err := billing.VerifyStripeWebhook(payload, c.Get("Stripe-Signature"), bc.billing.Config().WebhookSecret)
	if err != nil {
		log.Warnf("[Billing] rejected webhook: %v", err)
		return c.Status(fiber.StatusBadRequest).SendString("Webhook Error: " + err.Error())
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), webhookTimeout)
	defer cancel()

	res, err := bc.billing.ProcessWebhookEvent(ctx, event)
	if err != nil {
		log.Errorf("[Billing] webhook %s (%s) failed: %v", event.ID, event.Type, err)
		return jsonError(c, fiber.StatusInternalServerError, "Webhook handler failed")
	}
	log.Infof("[Billing] webhook %s (%s): %s", event.ID, event.Type, res.Outcome)
	return c.JSON(fiber.Map{"received": true})
}

// HandleAccountSubscription reports the subscription state and listing
// quota of a user.
func (bc *BillingController) HandleAccountSubscription(c *fiber.Ctx) error {
	userID := c.Params("userId")
	if _, err := uuid.Parse(userID); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid userId")
	}

	ctx := c.UserContext()
	profile, err := bc.profiles.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "Profile not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "Failed to load profile")
	}

	used, err := bc.properties.CountByUserID(ctx, userID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "Failed to count listings")
	}

	return c.JSON(fiber.Map{
		"userId":            profile.UserID,
		"status":            profile.StripeSubscriptionStatus,
		"plan":              entitlements.PlanForStatus(profile.StripeSubscriptionStatus),
		"isSubscribed":      profile.IsSubscribed(),
		"maxListings":       profile.MaxListings,
		"usedListings":      used,
		"remainingListings": entitlements.Remaining(profile, int(used)),
	})
}

var billingController *BillingController

// InitializeBillingController initializes the global billing controller
func InitializeBillingController(svc *billing.Service) {
	factory := repository.GetGlobalFactory()
	billingController = NewBillingController(svc, factory.GetProfileRepository(), factory.GetPropertyRepository())
}

// GetBillingController returns the global billing controller instance
func GetBillingController() *BillingController {
	if billingController == nil {
		panic("billing controller not initialized")
	}
	return billingController
}
