package service

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/gigbridge/api/internal/client"
	"github.com/gigbridge/api/internal/config"
	"github.com/gigbridge/api/internal/model"
	"github.com/gigbridge/api/internal/store"
)

// flakyContractStore fails a fixed number of updates before delegating,
// standing in for a store that is briefly unreachable.
type flakyContractStore struct {
	store.ContractStore
	failures int
}

func (s *flakyContractStore) Update(ctx context.Context, c *model.Contract) error {
	if s.failures > 0 {
		s.failures--
		return errors.New("transient store failure")
	}
	return s.ContractStore.Update(ctx, c)
}

const testWebhookSecret = "whsec_test_secret"

// webhookPayments builds a payment service over the real gateway client so
// signature verification runs against actual HMAC material.
func webhookPayments(env *testEnv) *PaymentService {
	gw := client.NewStripeClient(&config.StripeConfig{
		SecretKey:     "sk_test_key",
		WebhookSecret: testWebhookSecret,
		BaseURL:       "http://stripe.invalid",
		Currency:      "usd",
	})
	return NewPaymentService(env.stores, gw, env.notifications, "usd")
}

// signedEvent returns a payload and matching signature header.
func signedEvent(eventID, eventType, contractID string) ([]byte, string) {
	payload := []byte(fmt.Sprintf(
		`{"id":%q,"type":%q,"data":{"object":{"id":"pi_1","metadata":{"contractId":%q}}}}`,
		eventID, eventType, contractID,
	))
	ts := time.Now().Unix()
	sig := hex.EncodeToString(client.ComputeSignature(testWebhookSecret, ts, payload))
	return payload, fmt.Sprintf("t=%d,v1=%s", ts, sig)
}

func TestCreatePaymentIntent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	contract := acceptedContract(t, env)

	// Freelancer cannot initiate payment.
	if _, err := env.payments.CreatePaymentIntent(ctx, contract.ID, "freelancer-1"); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("expected ErrAccessDenied, got %v", err)
	}

	resp, err := env.payments.CreatePaymentIntent(ctx, contract.ID, "client-1")
	if err != nil {
		t.Fatalf("create intent failed: %v", err)
	}
	if resp.PaymentIntentID == "" || resp.ClientSecret == "" {
		t.Errorf("expected intent id and client secret, got %+v", resp)
	}

	if env.gateway.lastRequest.AmountMinorUnits != 50000 {
		t.Errorf("expected 50000 minor units for $500, got %d", env.gateway.lastRequest.AmountMinorUnits)
	}
	if env.gateway.lastRequest.IdempotencyKey != "contract-intent:"+contract.ID {
		t.Errorf("unexpected idempotency key %q", env.gateway.lastRequest.IdempotencyKey)
	}

	got, _ := env.stores.Contracts.Get(ctx, contract.ID)
	if got.PaymentIntentID != resp.PaymentIntentID {
		t.Errorf("expected intent id persisted on contract")
	}
}

func TestCreatePaymentIntent_AlreadyPaid(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	contract := acceptedContract(t, env)

	contract.PaymentStatus = model.PaymentStatusPaid
	if err := env.stores.Contracts.Update(ctx, contract); err != nil {
		t.Fatalf("failed to mark paid: %v", err)
	}

	_, err := env.payments.CreatePaymentIntent(ctx, contract.ID, "client-1")
	if !errors.Is(err, ErrAlreadyPaid) {
		t.Errorf("expected ErrAlreadyPaid, got %v", err)
	}
	if env.gateway.intentCalls != 0 {
		t.Errorf("expected no gateway call for paid contract, got %d", env.gateway.intentCalls)
	}
}

func TestCreatePaymentIntent_GatewayUnconfigured(t *testing.T) {
	env := newTestEnv(t)
	env.gateway.configured = false
	contract := acceptedContract(t, env)

	_, err := env.payments.CreatePaymentIntent(context.Background(), contract.ID, "client-1")
	if !errors.Is(err, ErrGatewayUnavailable) {
		t.Errorf("expected ErrGatewayUnavailable, got %v", err)
	}
}

func TestWebhook_PaymentSucceeded(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	contract := acceptedContract(t, env)
	payments := webhookPayments(env)

	payload, header := signedEvent("evt_1", client.EventPaymentIntentSucceeded, contract.ID)
	if err := payments.HandleWebhookEvent(ctx, payload, header); err != nil {
		t.Fatalf("webhook failed: %v", err)
	}

	got, _ := env.stores.Contracts.Get(ctx, contract.ID)
	if got.PaymentStatus != model.PaymentStatusPaid {
		t.Errorf("expected paid contract, got %s", got.PaymentStatus)
	}

	if n := env.notificationsOf(t, "freelancer-1", model.NotificationPayment); len(n) != 1 {
		t.Errorf("expected 1 payment notification, got %d", len(n))
	}
}

func TestWebhook_ReplayIsNoOp(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	contract := acceptedContract(t, env)
	payments := webhookPayments(env)

	payload, header := signedEvent("evt_replay", client.EventPaymentIntentSucceeded, contract.ID)
	if err := payments.HandleWebhookEvent(ctx, payload, header); err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}
	if err := payments.HandleWebhookEvent(ctx, payload, header); err != nil {
		t.Fatalf("redelivery failed: %v", err)
	}

	if n := env.notificationsOf(t, "freelancer-1", model.NotificationPayment); len(n) != 1 {
		t.Errorf("expected 1 payment notification after replay, got %d", len(n))
	}
}

func TestWebhook_RetryAfterFailedApply(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	contract := acceptedContract(t, env)

	env.stores.Contracts = &flakyContractStore{ContractStore: env.stores.Contracts, failures: 1}
	payments := webhookPayments(env)

	payload, header := signedEvent("evt_retry", client.EventPaymentIntentSucceeded, contract.ID)
	if err := payments.HandleWebhookEvent(ctx, payload, header); err == nil {
		t.Fatal("expected delivery to fail while the contract store is down")
	}

	got, _ := env.stores.Contracts.Get(ctx, contract.ID)
	if got.PaymentStatus != model.PaymentStatusPending {
		t.Fatalf("expected pending contract after failed apply, got %s", got.PaymentStatus)
	}

	// The gateway redelivers the same event id; this time the state
	// change must land instead of being skipped as already processed.
	if err := payments.HandleWebhookEvent(ctx, payload, header); err != nil {
		t.Fatalf("redelivery failed: %v", err)
	}

	got, _ = env.stores.Contracts.Get(ctx, contract.ID)
	if got.PaymentStatus != model.PaymentStatusPaid {
		t.Errorf("expected paid contract after redelivery, got %s", got.PaymentStatus)
	}
	if n := env.notificationsOf(t, "freelancer-1", model.NotificationPayment); len(n) != 1 {
		t.Errorf("expected 1 payment notification, got %d", len(n))
	}
}

func TestWebhook_CheckoutAfterIntentRecordsSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	contract := acceptedContract(t, env)
	payments := webhookPayments(env)

	payload, header := signedEvent("evt_intent_first", client.EventPaymentIntentSucceeded, contract.ID)
	if err := payments.HandleWebhookEvent(ctx, payload, header); err != nil {
		t.Fatalf("intent webhook failed: %v", err)
	}

	sessionPayload := []byte(fmt.Sprintf(
		`{"id":"evt_checkout_late","type":%q,"data":{"object":{"id":"cs_1","metadata":{"contractId":%q}}}}`,
		client.EventCheckoutCompleted, contract.ID,
	))
	ts := time.Now().Unix()
	sig := hex.EncodeToString(client.ComputeSignature(testWebhookSecret, ts, sessionPayload))
	if err := payments.HandleWebhookEvent(ctx, sessionPayload, fmt.Sprintf("t=%d,v1=%s", ts, sig)); err != nil {
		t.Fatalf("checkout webhook failed: %v", err)
	}

	got, _ := env.stores.Contracts.Get(ctx, contract.ID)
	if got.CheckoutSessionID != "cs_1" {
		t.Errorf("expected session id recorded on paid contract, got %q", got.CheckoutSessionID)
	}
	if n := env.notificationsOf(t, "freelancer-1", model.NotificationPayment); len(n) != 1 {
		t.Errorf("expected no second payment notification, got %d", len(n))
	}
}

func TestWebhook_PaymentFailed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	contract := acceptedContract(t, env)
	payments := webhookPayments(env)

	payload, header := signedEvent("evt_fail", client.EventPaymentIntentFailed, contract.ID)
	if err := payments.HandleWebhookEvent(ctx, payload, header); err != nil {
		t.Fatalf("webhook failed: %v", err)
	}

	got, _ := env.stores.Contracts.Get(ctx, contract.ID)
	if got.PaymentStatus != model.PaymentStatusFailed {
		t.Errorf("expected failed payment, got %s", got.PaymentStatus)
	}

	if n := env.notificationsOf(t, "client-1", model.NotificationPayment); len(n) != 1 {
		t.Errorf("expected 1 payment notification for client, got %d", len(n))
	}
}

func TestWebhook_BadSignature(t *testing.T) {
	env := newTestEnv(t)
	contract := acceptedContract(t, env)
	payments := webhookPayments(env)

	payload, _ := signedEvent("evt_bad", client.EventPaymentIntentSucceeded, contract.ID)
	badHeader := fmt.Sprintf("t=%d,v1=%s", time.Now().Unix(), "deadbeef")

	err := payments.HandleWebhookEvent(context.Background(), payload, badHeader)
	if !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("expected ErrInvalidSignature, got %v", err)
	}

	got, _ := env.stores.Contracts.Get(context.Background(), contract.ID)
	if got.PaymentStatus != model.PaymentStatusPending {
		t.Errorf("expected payment state untouched, got %s", got.PaymentStatus)
	}
}

func TestWebhook_UnknownContractAcknowledged(t *testing.T) {
	env := newTestEnv(t)
	payments := webhookPayments(env)

	payload, header := signedEvent("evt_orphan", client.EventPaymentIntentSucceeded, "no-such-contract")
	if err := payments.HandleWebhookEvent(context.Background(), payload, header); err != nil {
		t.Errorf("expected orphan event acknowledged, got %v", err)
	}
}

func TestPaymentStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	contract := acceptedContract(t, env)
	payments := webhookPayments(env)

	payload, header := signedEvent("evt_stats", client.EventPaymentIntentSucceeded, contract.ID)
	if err := payments.HandleWebhookEvent(ctx, payload, header); err != nil {
		t.Fatalf("webhook failed: %v", err)
	}

	clientStats, err := env.payments.Stats(ctx, "client-1", model.RoleClient)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if clientStats.TotalPaid != 500 {
		t.Errorf("expected total paid 500, got %.2f", clientStats.TotalPaid)
	}

	freelancerStats, err := env.payments.Stats(ctx, "freelancer-1", model.RoleFreelancer)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if freelancerStats.TotalEarned != 500 {
		t.Errorf("expected total earned 500, got %.2f", freelancerStats.TotalEarned)
	}
}
