package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/gigbridge/api/internal/auth"
	"github.com/gigbridge/api/internal/client"
	"github.com/gigbridge/api/internal/config"
	"github.com/gigbridge/api/internal/handler"
	"github.com/gigbridge/api/internal/middleware"
	"github.com/gigbridge/api/internal/service"
	"github.com/gigbridge/api/internal/store"
)

const (
	testJWTSecret     = "test-secret-for-e2e"
	testWebhookSecret = "whsec_e2e"
)

// fakeGateway satisfies intent creation without network access. Webhook
// verification still runs through the real client.
type fakeGateway struct {
	stripe *client.StripeClient
}

func (g *fakeGateway) CreateIntent(_ context.Context, req *client.CreateIntentRequest) (*client.PaymentIntent, error) {
	return &client.PaymentIntent{
		ID:           "pi_e2e_1",
		ClientSecret: "cs_e2e_secret",
		Amount:       req.AmountMinorUnits,
		Currency:     req.Currency,
	}, nil
}

func (g *fakeGateway) ConstructEvent(payload []byte, sigHeader string) (*client.WebhookEvent, error) {
	return g.stripe.ConstructEvent(payload, sigHeader)
}

func (g *fakeGateway) IsConfigured() bool { return true }

// testApp holds all components needed for testing
type testApp struct {
	app    *fiber.App
	stores *store.Stores
}

// setupApp creates a Fiber app like main.go but over in-memory stores,
// with unconfigured external clients so services use mock fallbacks.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	stores := store.NewMemoryStores()
	validate := validator.New()

	stripeClient := client.NewStripeClient(&config.StripeConfig{
		SecretKey:     "sk_test",
		WebhookSecret: testWebhookSecret,
		BaseURL:       "http://stripe.invalid",
		Currency:      "usd",
	})

	// Services — nil enqueuer, AI and storage trigger fallbacks
	notificationService := service.NewNotificationService(stores.Notifications, nil)
	contractService := service.NewContractService(stores, notificationService)
	bidService := service.NewBidService(stores, contractService, notificationService, nil, nil)
	paymentService := service.NewPaymentService(stores, &fakeGateway{stripe: stripeClient}, notificationService, "usd")
	jobService := service.NewJobService(stores)
	messageService := service.NewMessageService(stores, notificationService)

	// Handlers
	bidHandler := handler.NewBidHandler(bidService, validate)
	contractHandler := handler.NewContractHandler(contractService, validate)
	paymentHandler := handler.NewPaymentHandler(paymentService)
	notificationHandler := handler.NewNotificationHandler(notificationService)
	jobHandler := handler.NewJobHandler(jobService, validate)
	messageHandler := handler.NewMessageHandler(messageService, validate)
	authHandler := handler.NewAuthHandler(nil, testJWTSecret)

	// Auth middleware — legacy HMAC only
	authMiddleware := middleware.NewLegacyAuthMiddleware(testJWTSecret)

	app := fiber.New(fiber.Config{
		BodyLimit: 20 * 1024 * 1024,
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/auth/verify", authHandler.Verify)
	app.Post("/api/payments/webhook", paymentHandler.Webhook)

	// API routes (authenticated, no rate limits in tests)
	api := app.Group("/api", authMiddleware.Authenticate())

	jobs := api.Group("/jobs")
	jobs.Post("/", jobHandler.Create)
	jobs.Get("/", jobHandler.ListOpen)
	jobs.Get("/:jobId", jobHandler.Get)

	bids := api.Group("/bids")
	bids.Post("/", bidHandler.Submit)
	bids.Post("/generate-proposal", bidHandler.GenerateProposal)
	bids.Get("/my", bidHandler.ListMine)
	bids.Get("/job/:jobId", bidHandler.ListForJob)
	bids.Post("/:bidId/accept", bidHandler.Accept)
	bids.Post("/:bidId/reject", bidHandler.Reject)
	bids.Post("/:bidId/attachments", bidHandler.Attach)
	bids.Delete("/:bidId", bidHandler.Withdraw)

	contracts := api.Group("/contracts")
	contracts.Post("/", contractHandler.Create)
	contracts.Get("/my", contractHandler.ListMine)
	contracts.Get("/job/:jobId", contractHandler.GetByJob)
	contracts.Get("/:contractId", contractHandler.Get)
	contracts.Post("/:contractId/complete", contractHandler.Complete)
	contracts.Post("/:contractId/tasks", contractHandler.AddTask)
	contracts.Put("/:contractId/tasks/:taskId", contractHandler.UpdateTaskStatus)
	contracts.Post("/:contractId/milestones", contractHandler.AddMilestone)
	contracts.Post("/:contractId/milestones/:milestoneId/approve", contractHandler.ApproveMilestone)

	payments := api.Group("/payments")
	payments.Post("/contracts/:contractId/intent", paymentHandler.CreateIntent)
	payments.Get("/history", paymentHandler.History)
	payments.Get("/stats", paymentHandler.Stats)

	notifications := api.Group("/notifications")
	notifications.Get("/", notificationHandler.List)
	notifications.Put("/read-all", notificationHandler.MarkAllRead)
	notifications.Put("/:notificationId/read", notificationHandler.MarkRead)

	conversations := api.Group("/conversations")
	conversations.Get("/", messageHandler.ListConversations)
	conversations.Get("/:conversationId/messages", messageHandler.ListMessages)
	conversations.Post("/:conversationId/messages", messageHandler.Send)
	api.Delete("/messages/:messageId", messageHandler.Delete)

	return &testApp{app: app, stores: stores}
}

// generateToken creates a legacy HMAC JWT token for test requests.
func generateToken(t *testing.T, userID, role string) string {
	t.Helper()
	claims := auth.LegacyClaims{
		UserID: userID,
		Email:  userID + "@example.com",
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer: "gigbridge-api",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}
	return signed
}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path string, body string, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// doAuthRequest performs a request authenticated as the given user.
func doAuthRequest(t *testing.T, app *fiber.App, method, path, body, userID, role string) (*http.Response, error) {
	t.Helper()
	return doRequest(app, method, path, body, map[string]string{
		"Authorization": "Bearer " + generateToken(t, userID, role),
	})
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	var result map[string]interface{}
	if err := json.Unmarshal(b, &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, string(b))
	}
	return result
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

// assertErrorCode checks the error envelope code.
func assertErrorCode(t *testing.T, result map[string]interface{}, code string) {
	t.Helper()
	errObj, ok := result["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object, got %v", result)
	}
	if errObj["code"] != code {
		t.Errorf("expected error code %s, got %v", code, errObj["code"])
	}
}

// createJob posts a job as the given client and returns its id.
func createJob(t *testing.T, ta *testApp, clientID string) string {
	t.Helper()
	body := `{"title": "Build an API", "description": "REST API for a shop", "budget": 1000}`
	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/jobs/", body, clientID, "client")
	if err != nil {
		t.Fatalf("create job failed: %v", err)
	}
	assertStatus(t, resp, http.StatusCreated)
	result := parseJSON(t, resp)
	id, _ := result["id"].(string)
	if id == "" {
		t.Fatal("expected job id in response")
	}
	return id
}

// submitBid posts a bid as the given freelancer and returns its id.
func submitBid(t *testing.T, ta *testApp, jobID, freelancerID string, amount float64) string {
	t.Helper()
	body := fmt.Sprintf(`{"jobId": %q, "amount": %.0f, "proposal": "I can build this", "timelineDays": 14}`, jobID, amount)
	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/bids/", body, freelancerID, "freelancer")
	if err != nil {
		t.Fatalf("submit bid failed: %v", err)
	}
	assertStatus(t, resp, http.StatusCreated)
	result := parseJSON(t, resp)
	id, _ := result["id"].(string)
	if id == "" {
		t.Fatal("expected bid id in response")
	}
	return id
}
