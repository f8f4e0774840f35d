package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/gigbridge/api/internal/client"
	"github.com/gigbridge/api/internal/model"
	"github.com/gigbridge/api/internal/store"
)

// PaymentGateway is the slice of the gateway client the reconciliation
// core depends on. Tests stand in a fake; production uses StripeClient.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, req *client.CreateIntentRequest) (*client.PaymentIntent, error)
	ConstructEvent(payload []byte, sigHeader string) (*client.WebhookEvent, error)
	IsConfigured() bool
}

// PaymentService creates payment intents and reconciles gateway webhook
// events against contract payment state.
type PaymentService struct {
	contracts     store.ContractStore
	events        store.EventStore
	gateway       PaymentGateway
	notifications *NotificationService
	currency      string
}

func NewPaymentService(stores *store.Stores, gateway PaymentGateway, notifications *NotificationService, currency string) *PaymentService {
	return &PaymentService{
		contracts:     stores.Contracts,
		events:        stores.Events,
		gateway:       gateway,
		notifications: notifications,
		currency:      currency,
	}
}

// CreatePaymentIntent asks the gateway for an intent covering the contract
// amount. Client only; a paid contract is never charged again. The
// idempotency key is derived from the contract id so a retry after a
// failed persist reuses the gateway-side intent.
func (s *PaymentService) CreatePaymentIntent(ctx context.Context, contractID, actorID string) (*model.PaymentIntentResponse, error) {
	contract, err := s.contracts.Get(ctx, contractID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, ErrContractNotFound
		}
		return nil, err
	}

	if contract.ClientID != actorID {
		return nil, ErrAccessDenied
	}
	if contract.PaymentStatus == model.PaymentStatusPaid {
		return nil, ErrAlreadyPaid
	}

	if s.gateway == nil || !s.gateway.IsConfigured() {
		return nil, ErrGatewayUnavailable
	}

	intent, err := s.gateway.CreateIntent(ctx, &client.CreateIntentRequest{
		AmountMinorUnits: int64(math.Round(contract.Amount * 100)),
		Currency:         s.currency,
		Description:      fmt.Sprintf("Contract %s", contract.ID),
		Metadata: map[string]string{
			"contractId":   contract.ID,
			"jobId":        contract.JobID,
			"freelancerId": contract.FreelancerID,
		},
		IdempotencyKey: "contract-intent:" + contract.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	contract.PaymentIntentID = intent.ID
	contract.UpdatedAt = time.Now()
	if err := s.contracts.Update(ctx, contract); err != nil {
		return nil, fmt.Errorf("failed to record payment intent: %w", err)
	}

	return &model.PaymentIntentResponse{
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
	}, nil
}

// HandleWebhookEvent verifies, deduplicates and applies a gateway event.
// Redelivery of an already-processed event id is acknowledged without
// side effects.
func (s *PaymentService) HandleWebhookEvent(ctx context.Context, payload []byte, sigHeader string) error {
	event, err := s.gateway.ConstructEvent(payload, sigHeader)
	if err != nil {
		if errors.Is(err, client.ErrSignatureInvalid) {
			return ErrInvalidSignature
		}
		return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	processed, err := s.events.IsProcessed(ctx, event.ID)
	if err != nil {
		return fmt.Errorf("failed to check webhook event: %w", err)
	}
	if processed {
		log.Printf("Skipping already-processed webhook event %s", event.ID)
		return nil
	}

	if err := s.applyEvent(ctx, event); err != nil {
		return err
	}

	// Marked only after the state change lands: a failed apply stays
	// unmarked so gateway redelivery retries it. The per-contract status
	// guards keep the retry from double-notifying.
	if _, err := s.events.MarkProcessed(ctx, event.ID); err != nil {
		log.Printf("Failed to record webhook event %s: %v", event.ID, err)
	}
	return nil
}

func (s *PaymentService) applyEvent(ctx context.Context, event *client.WebhookEvent) error {
	switch event.Type {
	case client.EventPaymentIntentSucceeded:
		var intent client.PaymentIntentObject
		if err := json.Unmarshal(event.Data.Object, &intent); err != nil {
			return fmt.Errorf("failed to parse payment intent: %w", err)
		}
		return s.applyPaymentSucceeded(ctx, intent.Metadata["contractId"], "")

	case client.EventPaymentIntentFailed:
		var intent client.PaymentIntentObject
		if err := json.Unmarshal(event.Data.Object, &intent); err != nil {
			return fmt.Errorf("failed to parse payment intent: %w", err)
		}
		return s.applyPaymentFailed(ctx, intent.Metadata["contractId"])

	case client.EventCheckoutCompleted:
		var session client.CheckoutSessionObject
		if err := json.Unmarshal(event.Data.Object, &session); err != nil {
			return fmt.Errorf("failed to parse checkout session: %w", err)
		}
		return s.applyPaymentSucceeded(ctx, session.Metadata["contractId"], session.ID)

	default:
		log.Printf("Unhandled webhook event type %s", event.Type)
		return nil
	}
}

// applyPaymentSucceeded moves the contract to paid. A contract that was
// already paid, or that the event no longer matches, is left alone; the
// event is still acknowledged so the gateway stops redelivering.
func (s *PaymentService) applyPaymentSucceeded(ctx context.Context, contractID, checkoutSessionID string) error {
	contract, err := s.contracts.Get(ctx, contractID)
	if err != nil {
		if err == store.ErrNotFound {
			log.Printf("Webhook references unknown contract %s", contractID)
			return nil
		}
		return err
	}

	if contract.PaymentStatus == model.PaymentStatusPaid {
		// A succeeded-intent event may land before the checkout event;
		// the session id still has to be recorded.
		if checkoutSessionID != "" && contract.CheckoutSessionID == "" {
			contract.CheckoutSessionID = checkoutSessionID
			contract.UpdatedAt = time.Now()
			return s.contracts.Update(ctx, contract)
		}
		return nil
	}

	contract.PaymentStatus = model.PaymentStatusPaid
	if checkoutSessionID != "" {
		contract.CheckoutSessionID = checkoutSessionID
	}
	contract.UpdatedAt = time.Now()
	if err := s.contracts.Update(ctx, contract); err != nil {
		return err
	}

	s.notify(ctx, contract.FreelancerID, model.NotificationPayment,
		"Payment Received",
		fmt.Sprintf("A payment of $%.2f has been received for your contract", contract.Amount),
		map[string]interface{}{
			"contractId": contract.ID,
			"jobId":      contract.JobID,
		},
		fmt.Sprintf("/contract/%s", contract.JobID),
	)

	return nil
}

func (s *PaymentService) applyPaymentFailed(ctx context.Context, contractID string) error {
	contract, err := s.contracts.Get(ctx, contractID)
	if err != nil {
		if err == store.ErrNotFound {
			log.Printf("Webhook references unknown contract %s", contractID)
			return nil
		}
		return err
	}

	if contract.PaymentStatus != model.PaymentStatusPending {
		return nil
	}

	contract.PaymentStatus = model.PaymentStatusFailed
	contract.UpdatedAt = time.Now()
	if err := s.contracts.Update(ctx, contract); err != nil {
		return err
	}

	s.notify(ctx, contract.ClientID, model.NotificationPayment,
		"Payment Failed",
		"Your payment could not be processed. Please try again.",
		map[string]interface{}{
			"contractId": contract.ID,
			"jobId":      contract.JobID,
		},
		fmt.Sprintf("/contract/%s", contract.JobID),
	)

	return nil
}

// History returns a page of the user's contracts that carry payment state,
// newest first.
func (s *PaymentService) History(ctx context.Context, userID string, page, limit int) (*model.ContractListResponse, error) {
	all, err := s.contracts.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	paged, pagination := paginate(all, page, limit)
	return &model.ContractListResponse{Contracts: paged, Pagination: pagination}, nil
}

// Stats aggregates payment totals for a user. Clients see what they paid
// and what is still pending; freelancers see earnings on paid contracts.
func (s *PaymentService) Stats(ctx context.Context, userID, role string) (*model.PaymentStats, error) {
	contracts, err := s.contracts.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	stats := &model.PaymentStats{Role: role}
	for _, c := range contracts {
		if role == model.RoleClient {
			if c.ClientID != userID {
				continue
			}
			switch c.PaymentStatus {
			case model.PaymentStatusPaid:
				stats.TotalPaid += c.Amount
			case model.PaymentStatusPending:
				stats.PendingPayments++
			}
		} else {
			if c.FreelancerID != userID {
				continue
			}
			switch c.PaymentStatus {
			case model.PaymentStatusPaid:
				stats.TotalEarned += c.Amount
			case model.PaymentStatusPending:
				stats.PendingEarnings += c.Amount
			}
		}
	}

	return stats, nil
}

func (s *PaymentService) notify(ctx context.Context, userID string, typ model.NotificationType, title, message string, data map[string]interface{}, actionURL string) {
	if _, err := s.notifications.Notify(ctx, userID, typ, title, message, data, actionURL); err != nil {
		log.Printf("Failed to create %s notification for user %s: %v", typ, userID, err)
	}
}
