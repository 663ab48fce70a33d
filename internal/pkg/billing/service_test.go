package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/ImmoMap/app/models"
)

func newTestService(repo *memoryRepo, gw *fakeGateway) *Service {
	return NewService(repo, gw, Config{PriceRef: "prod_premium"})
}

func TestApplyCheckoutActivatesUser(t *testing.T) {
	repo := newMemoryRepo(models.Profile{UserID: userOne, MaxListings: 10})
	svc := newTestService(repo, nil)

	res, err := svc.ProcessWebhookEvent(context.Background(), checkoutCompleted(t, "evt_1", t0, userOne, "cus_1"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, res.Outcome)

	p := repo.profile(userOne)
	require.NotNil(t, p)
	assert.Equal(t, "active", p.StripeSubscriptionStatus)
	assert.Equal(t, 100, p.MaxListings)
	assert.Equal(t, "cus_1", p.StripeCustomerID)
}

func TestApplyCheckoutCreatesMissingProfile(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, nil)

	_, err := svc.ProcessWebhookEvent(context.Background(), checkoutCompleted(t, "evt_1", t0, userTwo, "cus_2"))
	require.NoError(t, err)

	p := repo.profile(userTwo)
	require.NotNil(t, p)
	assert.Equal(t, 100, p.MaxListings)
}

func TestApplyCheckoutWithoutUserIsNoop(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, nil)

	res, err := svc.ProcessWebhookEvent(context.Background(), checkoutCompleted(t, "evt_1", t0, "", "cus_1"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoUser, res.Outcome)
	assert.Empty(t, repo.profiles)
}

func TestApplyCheckoutWithNonUUIDUserIsAcknowledged(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, nil)

	res, err := svc.ProcessWebhookEvent(context.Background(), checkoutCompleted(t, "evt_1", t0, "abc", "cus_1"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoUser, res.Outcome)
	assert.Empty(t, repo.profiles)
	assert.True(t, repo.event("evt_1").Succeeded())
}

func TestApplySubscriptionLifecycle(t *testing.T) {
	repo := newMemoryRepo(models.Profile{UserID: userOne, StripeCustomerID: "cus_1", MaxListings: 10})
	svc := newTestService(repo, nil)
	ctx := context.Background()

	_, err := svc.ProcessWebhookEvent(ctx, checkoutCompleted(t, "evt_1", t0, userOne, "cus_1"))
	require.NoError(t, err)

	_, err = svc.ProcessWebhookEvent(ctx, subscriptionEvent(t, "evt_2", "customer.subscription.updated", t0.Add(time.Minute), "cus_1", "past_due"))
	require.NoError(t, err)
	p := repo.profile(userOne)
	assert.Equal(t, "past_due", p.StripeSubscriptionStatus)
	assert.Equal(t, 10, p.MaxListings)

	_, err = svc.ProcessWebhookEvent(ctx, subscriptionEvent(t, "evt_3", "customer.subscription.updated", t0.Add(2*time.Minute), "cus_1", "active"))
	require.NoError(t, err)
	assert.Equal(t, 100, repo.profile(userOne).MaxListings)

	_, err = svc.ProcessWebhookEvent(ctx, subscriptionEvent(t, "evt_4", "customer.subscription.deleted", t0.Add(3*time.Minute), "cus_1", "active"))
	require.NoError(t, err)
	p = repo.profile(userOne)
	assert.Equal(t, "canceled", p.StripeSubscriptionStatus)
	assert.Equal(t, 10, p.MaxListings)
}

func TestApplyTrialingIsNotPremium(t *testing.T) {
	repo := newMemoryRepo(models.Profile{UserID: userOne, StripeCustomerID: "cus_1", MaxListings: 100})
	svc := newTestService(repo, nil)

	_, err := svc.ProcessWebhookEvent(context.Background(), subscriptionEvent(t, "evt_1", "customer.subscription.updated", t0, "cus_1", "trialing"))
	require.NoError(t, err)
	assert.Equal(t, 10, repo.profile(userOne).MaxListings)
}

func TestApplySkipsStaleEvents(t *testing.T) {
	repo := newMemoryRepo(models.Profile{UserID: userOne, StripeCustomerID: "cus_1"})
	svc := newTestService(repo, nil)
	ctx := context.Background()

	_, err := svc.ProcessWebhookEvent(ctx, subscriptionEvent(t, "evt_new", "customer.subscription.deleted", t0.Add(time.Hour), "cus_1", "canceled"))
	require.NoError(t, err)

	res, err := svc.ProcessWebhookEvent(ctx, checkoutCompleted(t, "evt_old", t0, userOne, "cus_1"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeStale, res.Outcome)

	res, err = svc.ProcessWebhookEvent(ctx, subscriptionEvent(t, "evt_older", "customer.subscription.updated", t0, "cus_1", "active"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeStale, res.Outcome)

	p := repo.profile(userOne)
	assert.Equal(t, "canceled", p.StripeSubscriptionStatus)
	assert.Equal(t, 10, p.MaxListings)
}

func TestApplyRedeliveryWithSameEventTimeIsApplied(t *testing.T) {
	repo := newMemoryRepo(models.Profile{UserID: userOne, StripeCustomerID: "cus_1"})
	svc := newTestService(repo, nil)
	ctx := context.Background()

	_, err := svc.ProcessWebhookEvent(ctx, subscriptionEvent(t, "evt_1", "customer.subscription.updated", t0, "cus_1", "active"))
	require.NoError(t, err)

	res, err := svc.ProcessWebhookEvent(ctx, subscriptionEvent(t, "evt_2", "customer.subscription.updated", t0, "cus_1", "active"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, res.Outcome)
	assert.Equal(t, 100, repo.profile(userOne).MaxListings)
}

func TestApplyUnknownCustomer(t *testing.T) {
	svc := newTestService(newMemoryRepo(), nil)

	res, err := svc.ProcessWebhookEvent(context.Background(), subscriptionEvent(t, "evt_1", "customer.subscription.deleted", t0, "cus_unknown", "canceled"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoProfile, res.Outcome)
}

func TestApplyIgnoresOtherEvents(t *testing.T) {
	svc := newTestService(newMemoryRepo(), nil)

	res, err := svc.ProcessWebhookEvent(context.Background(), stripeEvent(t, "evt_1", "invoice.paid", t0, map[string]any{"id": "in_1", "object": "invoice"}))
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, res.Outcome)
}

func TestProcessWebhookEventDeduplicates(t *testing.T) {
	repo := newMemoryRepo(models.Profile{UserID: userOne})
	svc := newTestService(repo, nil)
	ctx := context.Background()
	ev := checkoutCompleted(t, "evt_1", t0, userOne, "cus_1")

	_, err := svc.ProcessWebhookEvent(ctx, ev)
	require.NoError(t, err)

	// a later cancellation must not be undone by the redelivered checkout
	_, err = svc.ProcessWebhookEvent(ctx, subscriptionEvent(t, "evt_2", "customer.subscription.deleted", t0, "cus_1", "canceled"))
	require.NoError(t, err)

	res, err := svc.ProcessWebhookEvent(ctx, ev)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, res.Outcome)
	assert.Equal(t, "canceled", repo.profile(userOne).StripeSubscriptionStatus)
}

func TestProcessWebhookEventRetriesFailures(t *testing.T) {
	repo := newMemoryRepo(models.Profile{UserID: userOne})
	svc := newTestService(repo, nil)
	ctx := context.Background()
	ev := checkoutCompleted(t, "evt_1", t0, userOne, "cus_1")

	repo.failWith = errors.New("connection reset")
	_, err := svc.ProcessWebhookEvent(ctx, ev)
	require.Error(t, err)
	stored := repo.event("evt_1")
	require.NotNil(t, stored)
	assert.Contains(t, stored.ProcessingError, "connection reset")

	repo.failWith = nil
	res, err := svc.ProcessWebhookEvent(ctx, ev)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, res.Outcome)
	assert.True(t, repo.event("evt_1").Succeeded())
	assert.Equal(t, 100, repo.profile(userOne).MaxListings)
}

func TestPruneWebhookEvents(t *testing.T) {
	repo := newMemoryRepo(models.Profile{UserID: userOne})
	svc := newTestService(repo, nil)
	ctx := context.Background()

	_, err := svc.ProcessWebhookEvent(ctx, checkoutCompleted(t, "evt_1", t0, userOne, "cus_1"))
	require.NoError(t, err)

	n, err := svc.PruneWebhookEvents(ctx, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = svc.PruneWebhookEvents(ctx, -time.Minute)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Nil(t, repo.event("evt_1"))
}

func TestCreateCheckoutSession(t *testing.T) {
	gw := &fakeGateway{}
	svc := newTestService(newMemoryRepo(), gw)

	url, err := svc.CreateCheckoutSession(context.Background(), userOne, "a@b.test", "https://immomap.example")
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.stripe.test/c/"+userOne, url)
	assert.Equal(t, "prod_premium", gw.priceRef)
	require.Len(t, gw.checkouts, 1)
	req := gw.checkouts[0]
	assert.Equal(t, "price_resolved", req.PriceID)
	assert.Equal(t, "a@b.test", req.Email)
	assert.Equal(t, "https://immomap.example/account?checkout=success&session_id={CHECKOUT_SESSION_ID}", req.SuccessURL)
	assert.Equal(t, "https://immomap.example/account?checkout=canceled", req.CancelURL)
}

func TestCreateCheckoutSessionErrors(t *testing.T) {
	svc := newTestService(newMemoryRepo(), &fakeGateway{})
	_, err := svc.CreateCheckoutSession(context.Background(), " ", "", "http://x")
	assert.ErrorIs(t, err, ErrMissingUserID)

	svc = newTestService(newMemoryRepo(), &fakeGateway{err: ErrStripeClient})
	_, err = svc.CreateCheckoutSession(context.Background(), userOne, "", "http://x")
	assert.ErrorIs(t, err, ErrStripeClient)
}

func TestCreateSessionsRejectNonUUIDUser(t *testing.T) {
	gw := &fakeGateway{}
	svc := newTestService(newMemoryRepo(models.Profile{UserID: userOne, StripeCustomerID: "cus_1"}), gw)

	_, err := svc.CreateCheckoutSession(context.Background(), "abc", "", "http://x")
	assert.ErrorIs(t, err, ErrInvalidUserID)
	_, err = svc.CreatePortalSession(context.Background(), "abc", "http://x")
	assert.ErrorIs(t, err, ErrInvalidUserID)
	assert.Empty(t, gw.checkouts)
	assert.Empty(t, gw.portalFor)
}

func TestCreatePortalSession(t *testing.T) {
	t.Run("existing customer", func(t *testing.T) {
		gw := &fakeGateway{}
		svc := newTestService(newMemoryRepo(models.Profile{UserID: userOne, StripeCustomerID: "cus_1"}), gw)

		url, err := svc.CreatePortalSession(context.Background(), userOne, "https://immomap.example")
		require.NoError(t, err)
		assert.Equal(t, "https://billing.stripe.test/p/cus_1", url)
		assert.Equal(t, "https://immomap.example/account", gw.returnURL)
		assert.Zero(t, gw.customers)
	})

	t.Run("customer created and stored", func(t *testing.T) {
		gw := &fakeGateway{}
		repo := newMemoryRepo(models.Profile{UserID: userOne, Email: "a@b.test"})
		svc := newTestService(repo, gw)

		_, err := svc.CreatePortalSession(context.Background(), userOne, "https://immomap.example")
		require.NoError(t, err)
		assert.Equal(t, 1, gw.customers)
		assert.Equal(t, "cus_new", gw.portalFor)
		assert.Equal(t, "cus_new", repo.profile(userOne).StripeCustomerID)
	})

	t.Run("unknown profile", func(t *testing.T) {
		svc := newTestService(newMemoryRepo(), &fakeGateway{})
		_, err := svc.CreatePortalSession(context.Background(), userNobody, "https://immomap.example")
		assert.ErrorIs(t, err, ErrProfileNotFound)
	})
}
