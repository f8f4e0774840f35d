package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/gigbridge/api/internal/client"
	"github.com/gigbridge/api/internal/model"
	"github.com/gigbridge/api/internal/store"
)

// fakeEnqueuer records enqueued pushes instead of touching a queue.
type fakeEnqueuer struct {
	pushes []string
}

func (f *fakeEnqueuer) EnqueuePush(_ context.Context, notificationID, _ string) error {
	f.pushes = append(f.pushes, notificationID)
	return nil
}

// fakeGateway stands in for the payment gateway. It returns a canned
// intent and counts calls so tests can assert the already-paid guard.
type fakeGateway struct {
	configured  bool
	intentCalls int
	lastRequest *client.CreateIntentRequest
}

func (g *fakeGateway) CreateIntent(_ context.Context, req *client.CreateIntentRequest) (*client.PaymentIntent, error) {
	g.intentCalls++
	g.lastRequest = req
	return &client.PaymentIntent{
		ID:           "pi_" + uuid.New().String()[:8],
		ClientSecret: "cs_test_secret",
		Amount:       req.AmountMinorUnits,
		Currency:     req.Currency,
		Status:       "requires_payment_method",
	}, nil
}

func (g *fakeGateway) ConstructEvent(payload []byte, sigHeader string) (*client.WebhookEvent, error) {
	return nil, client.ErrSignatureInvalid
}

func (g *fakeGateway) IsConfigured() bool { return g.configured }

// testEnv wires the full service graph over in-memory stores.
type testEnv struct {
	stores        *store.Stores
	enqueuer      *fakeEnqueuer
	gateway       *fakeGateway
	notifications *NotificationService
	contracts     *ContractService
	bids          *BidService
	payments      *PaymentService
	jobs          *JobService
	messages      *MessageService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	stores := store.NewMemoryStores()
	enqueuer := &fakeEnqueuer{}
	gateway := &fakeGateway{configured: true}

	notifications := NewNotificationService(stores.Notifications, enqueuer)
	contracts := NewContractService(stores, notifications)
	bids := NewBidService(stores, contracts, notifications, nil, nil)
	payments := NewPaymentService(stores, gateway, notifications, "usd")
	jobs := NewJobService(stores)
	messages := NewMessageService(stores, notifications)

	return &testEnv{
		stores:        stores,
		enqueuer:      enqueuer,
		gateway:       gateway,
		notifications: notifications,
		contracts:     contracts,
		bids:          bids,
		payments:      payments,
		jobs:          jobs,
		messages:      messages,
	}
}

func (e *testEnv) seedJob(t *testing.T, clientID string) *model.Job {
	t.Helper()
	job := &model.Job{
		ID:        uuid.New().String(),
		ClientID:  clientID,
		Title:     "Build a landing page",
		Status:    model.JobStatusOpen,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := e.stores.Jobs.Create(context.Background(), job); err != nil {
		t.Fatalf("failed to seed job: %v", err)
	}
	return job
}

func (e *testEnv) seedBid(t *testing.T, jobID, freelancerID string) *model.Bid {
	t.Helper()
	bid, err := e.bids.SubmitBid(context.Background(), freelancerID, &model.SubmitBidRequest{
		JobID:        jobID,
		Amount:       500,
		Proposal:     "I can do this",
		TimelineDays: 7,
	})
	if err != nil {
		t.Fatalf("failed to seed bid: %v", err)
	}
	return bid
}

// notificationsOf returns the user's notifications of the given type.
func (e *testEnv) notificationsOf(t *testing.T, userID string, typ model.NotificationType) []*model.Notification {
	t.Helper()
	all, err := e.stores.Notifications.ListByUser(context.Background(), userID)
	if err != nil {
		t.Fatalf("failed to list notifications: %v", err)
	}
	var out []*model.Notification
	for _, n := range all {
		if n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}
