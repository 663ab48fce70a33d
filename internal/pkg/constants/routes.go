package constants

// API route constants
const (
	APIPrefix = "/api"

	StripeCheckoutRoute = "/stripe/create-checkout-session"
	StripePortalRoute   = "/stripe/create-portal-session"
	StripeWebhookRoute  = "/stripe/webhook"

	PropertySearchRoute      = "/v1/properties/search"
	SearchStateRoute         = "/v1/search-state"
	PropertiesRoute          = "/v1/properties"
	AccountSubscriptionRoute = "/v1/account/:userId/subscription"
	AncillaryServicesRoute   = "/v1/ancillary-services"
)
