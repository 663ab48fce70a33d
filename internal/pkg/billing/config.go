package billing

import (
	"fmt"
	"strings"

	"github.com/ManuelReschke/ImmoMap/internal/pkg/env"
)

// Config holds the Stripe settings. PriceRef may be a price id or a
// prod_ reference whose default price is used.
type Config struct {
	SecretKey     string
	WebhookSecret string
	PriceRef      string
	AppURL        string
	PlatformURL   string
}

// LoadConfig reads the billing settings from the environment. A missing
// Stripe key is an error so the server refuses to start half-configured.
func LoadConfig() (Config, error) {
	cfg := Config{
		SecretKey:     strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", "")),
		WebhookSecret: strings.TrimSpace(env.GetEnv("STRIPE_WEBHOOK_SECRET", "")),
		PriceRef:      strings.TrimSpace(env.GetEnv("STRIPE_PRICE_ID", "")),
		AppURL:        strings.TrimSpace(env.GetEnv("APP_URL", "")),
		PlatformURL:   strings.TrimSpace(env.GetEnv("VERCEL_URL", "")),
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var missing []string
	if c.SecretKey == "" {
		missing = append(missing, "STRIPE_SECRET_KEY")
	}
	if c.WebhookSecret == "" {
		missing = append(missing, "STRIPE_WEBHOOK_SECRET")
	}
	if c.PriceRef == "" {
		missing = append(missing, "STRIPE_PRICE_ID")
	}
	if len(missing) > 0 {
		return fmt.Errorf("billing config: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// ResolveBaseURL picks the public origin used for Stripe redirect URLs:
// the explicit app URL, then the platform deployment host (https), then
// the incoming request host.
func ResolveBaseURL(appURL, platformURL, requestHost, proto string) string {
	if u := strings.TrimRight(strings.TrimSpace(appURL), "/"); u != "" {
		return u
	}
	if host := strings.TrimSpace(platformURL); host != "" {
		host = strings.TrimPrefix(strings.TrimPrefix(host, "https://"), "http://")
		return "https://" + strings.TrimRight(host, "/")
	}
	if proto == "" {
		proto = "http"
	}
	return proto + "://" + requestHost
}
