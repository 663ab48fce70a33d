package billing

import (
	"context"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

// Gateway is the slice of the Stripe API the billing flows call.
type Gateway interface {
	ResolvePrice(ctx context.Context, ref string) (string, error)
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error)
	CreateCustomer(ctx context.Context, email, userID string) (string, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
}

type stripeGateway struct {
	api *client.API
}

// NewStripeGateway creates a Gateway backed by the stripe-go client.
func NewStripeGateway(secretKey string) Gateway {
	return &stripeGateway{api: client.New(secretKey, nil)}
}

func (g *stripeGateway) ResolvePrice(ctx context.Context, ref string) (string, error) {
	if !strings.HasPrefix(ref, "prod_") {
		return ref, nil
	}
	params := &stripe.ProductParams{}
	params.Context = ctx
	params.AddExpand("default_price")
	product, err := g.api.Products.Get(ref, params)
	if err != nil {
		return "", fmt.Errorf("%w: get product %s: %v", ErrStripeClient, ref, err)
	}
	if product.DefaultPrice == nil || product.DefaultPrice.ID == "" {
		return "", fmt.Errorf("%w: %s", ErrPriceNotFound, ref)
	}
	return product.DefaultPrice.ID, nil
}

func (g *stripeGateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(req.PriceID), Quantity: stripe.Int64(1)},
		},
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.UserID),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{"userId": req.UserID},
		},
	}
	if req.Email != "" {
		params.CustomerEmail = stripe.String(req.Email)
	}
	params.AddMetadata("userId", req.UserID)
	params.Context = ctx

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("%w: create checkout session: %v", ErrStripeClient, err)
	}
	return sess.URL, nil
}

func (g *stripeGateway) CreateCustomer(ctx context.Context, email, userID string) (string, error) {
	params := &stripe.CustomerParams{}
	if email != "" {
		params.Email = stripe.String(email)
	}
	params.AddMetadata("userId", userID)
	params.Context = ctx

	cus, err := g.api.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("%w: create customer: %v", ErrStripeClient, err)
	}
	return cus.ID, nil
}

func (g *stripeGateway) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	sess, err := g.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("%w: create portal session: %v", ErrStripeClient, err)
	}
	return sess.URL, nil
}
