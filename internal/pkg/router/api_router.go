package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/ManuelReschke/ImmoMap/app/controllers"
	"github.com/ManuelReschke/ImmoMap/internal/pkg/constants"
)

type ApiRouter struct {
	Billing    *controllers.BillingController
	Properties *controllers.PropertyController
	Ancillary  *controllers.AncillaryController

	// LimiterStorage keeps rate limit counters; nil uses process memory.
	LimiterStorage fiber.Storage
	RateLimit      int
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group(constants.APIPrefix, limiter.New(limiter.Config{
		Max:        h.rateLimit(),
		Expiration: time.Minute,
		Storage:    h.LimiterStorage,
		KeyGenerator: func(c *fiber.Ctx) string {
			return controllers.GetClientIP(c)
		},
		// Stripe retries on 429, which would only delay reconciliation.
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == constants.APIPrefix+constants.StripeWebhookRoute
		},
	}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	api.All(constants.StripeCheckoutRoute, h.Billing.HandleCreateCheckoutSession)
	api.All(constants.StripePortalRoute, h.Billing.HandleCreatePortalSession)
	api.Post(constants.StripeWebhookRoute, h.Billing.HandleStripeWebhook)
	api.Get(constants.AccountSubscriptionRoute, h.Billing.HandleAccountSubscription)

	api.Get(constants.PropertySearchRoute, h.Properties.HandleSearch)
	api.Post(constants.SearchStateRoute, h.Properties.HandleUpdateSearchState)
	api.Get(constants.PropertiesRoute+"/:id", h.Properties.HandleGetProperty)
	api.Post(constants.PropertiesRoute, h.Properties.HandleCreateProperty)

	services := api.Group(constants.AncillaryServicesRoute)
	services.Get("/", h.Ancillary.HandleList)
	services.Post("/", h.Ancillary.HandleCreate)
	services.Get("/:id", h.Ancillary.HandleGet)
	services.Put("/:id", h.Ancillary.HandleUpdate)
	services.Delete("/:id", h.Ancillary.HandleDelete)
}

func (h ApiRouter) rateLimit() int {
	if h.RateLimit > 0 {
		return h.RateLimit
	}
	return 120
}
