package client

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gigbridge/api/internal/config"
)

// Webhook event types the reconciliation core reacts to
const (
	EventPaymentIntentSucceeded = "payment_intent.succeeded"
	EventPaymentIntentFailed    = "payment_intent.payment_failed"
	EventCheckoutCompleted      = "checkout.session.completed"
)

// signatureTolerance bounds how old a signed webhook timestamp may be.
const signatureTolerance = 5 * time.Minute

// ErrSignatureInvalid is returned when a webhook payload fails verification.
var ErrSignatureInvalid = errors.New("webhook signature verification failed")

// StripeClient talks to the Stripe REST API. Requests are form-encoded per
// the Stripe wire protocol; idempotency keys make intent creation safe to
// retry after a failed persist step.
type StripeClient struct {
	httpClient    *http.Client
	baseURL       string
	secretKey     string
	webhookSecret string
}

// PaymentIntent is the gateway-side object for an authorized charge
type PaymentIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	Status       string `json:"status"`
}

// CreateIntentRequest carries everything the gateway needs for an intent
type CreateIntentRequest struct {
	AmountMinorUnits int64
	Currency         string
	Description      string
	Metadata         map[string]string
	IdempotencyKey   string
}

// WebhookEvent is a signed event delivered by the gateway
type WebhookEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// PaymentIntentObject is the data.object payload of payment_intent events
type PaymentIntentObject struct {
	ID       string            `json:"id"`
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Metadata map[string]string `json:"metadata"`
}

// CheckoutSessionObject is the data.object payload of checkout.session events
type CheckoutSessionObject struct {
	ID       string            `json:"id"`
	Metadata map[string]string `json:"metadata"`
}

// NewStripeClient creates a new Stripe API client
func NewStripeClient(cfg *config.StripeConfig) *StripeClient {
	return &StripeClient{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:       cfg.BaseURL,
		secretKey:     cfg.SecretKey,
		webhookSecret: cfg.WebhookSecret,
	}
}

// CreateIntent creates a payment intent on the gateway
func (c *StripeClient) CreateIntent(ctx context.Context, req *CreateIntentRequest) (*PaymentIntent, error) {
	if !c.IsConfigured() {
		return nil, fmt.Errorf("stripe secret key not configured")
	}

	form := url.Values{}
	form.Set("amount", strconv.FormatInt(req.AmountMinorUnits, 10))
	form.Set("currency", req.Currency)
	form.Set("description", req.Description)
	form.Set("automatic_payment_methods[enabled]", "true")
	for k, v := range req.Metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/payment_intents", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)
	if req.IdempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("stripe API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var intent PaymentIntent
	if err := json.Unmarshal(respBody, &intent); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &intent, nil
}

// ConstructEvent verifies the signature header against the raw payload and
// returns the parsed event. The header format is "t=<unix>,v1=<hex-hmac>"
// where the hmac is computed over "<unix>.<payload>".
func (c *StripeClient) ConstructEvent(payload []byte, sigHeader string) (*WebhookEvent, error) {
	if c.webhookSecret == "" {
		return nil, fmt.Errorf("stripe webhook secret not configured")
	}

	timestamp, signatures, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return nil, err
	}

	// Absolute skew: a future-dated timestamp is as suspect as a stale one.
	skew := time.Since(time.Unix(timestamp, 0))
	if skew < 0 {
		skew = -skew
	}
	if skew > signatureTolerance {
		return nil, ErrSignatureInvalid
	}

	expected := ComputeSignature(c.webhookSecret, timestamp, payload)
	valid := false
	for _, sig := range signatures {
		decoded, err := hex.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(decoded, expected) {
			valid = true
			break
		}
	}
	if !valid {
		return nil, ErrSignatureInvalid
	}

	var event WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	return &event, nil
}

// ComputeSignature computes the v1 webhook signature for a payload. Exposed
// so tests can sign synthetic events.
func ComputeSignature(secret string, timestamp int64, payload []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return mac.Sum(nil)
}

func parseSignatureHeader(header string) (int64, []string, error) {
	if header == "" {
		return 0, nil, ErrSignatureInvalid
	}

	var timestamp int64 = -1
	var signatures []string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			ts, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return 0, nil, ErrSignatureInvalid
			}
			timestamp = ts
		case "v1":
			signatures = append(signatures, kv[1])
		}
	}

	if timestamp < 0 || len(signatures) == 0 {
		return 0, nil, ErrSignatureInvalid
	}
	return timestamp, signatures, nil
}

// IsConfigured returns true if the client has valid configuration
func (c *StripeClient) IsConfigured() bool {
	return c.secretKey != ""
}
