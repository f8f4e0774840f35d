package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/gigbridge/api/internal/auth"
	"github.com/gigbridge/api/internal/client"
	"github.com/gigbridge/api/internal/config"
	"github.com/gigbridge/api/internal/handler"
	"github.com/gigbridge/api/internal/middleware"
	"github.com/gigbridge/api/internal/service"
	"github.com/gigbridge/api/internal/store"
	"github.com/gigbridge/api/internal/worker"
	ws "github.com/gigbridge/api/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test Redis connection
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available: %v", err)
	}

	// Initialize Asynq client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	// Initialize validator
	validate := validator.New()

	// Initialize WebSocket hub
	hub := ws.NewHub(ws.NewMemoryPresence())
	go hub.Run()

	// Initialize stores
	stores := store.NewRedisStores(redisClient)

	// Initialize external clients
	stripeClient := client.NewStripeClient(&cfg.Stripe)
	openaiClient := client.NewOpenAIClient(&cfg.OpenAI)

	var storageClient client.StorageClient
	if cfg.R2.AccountID != "" {
		r2Client, err := client.NewR2Client(&cfg.R2)
		if err != nil {
			log.Printf("Warning: R2 storage unavailable: %v", err)
		} else {
			storageClient = r2Client
		}
	}

	// Initialize services
	notificationService := service.NewNotificationService(stores.Notifications, service.NewAsynqPushEnqueuer(asynqClient))
	contractService := service.NewContractService(stores, notificationService)
	bidService := service.NewBidService(stores, contractService, notificationService, openaiClient, storageClient)
	paymentService := service.NewPaymentService(stores, stripeClient, notificationService, cfg.Stripe.Currency)
	jobService := service.NewJobService(stores)
	messageService := service.NewMessageService(stores, notificationService)

	// Initialize handlers
	bidHandler := handler.NewBidHandler(bidService, validate)
	contractHandler := handler.NewContractHandler(contractService, validate)
	paymentHandler := handler.NewPaymentHandler(paymentService)
	notificationHandler := handler.NewNotificationHandler(notificationService)
	jobHandler := handler.NewJobHandler(jobService, validate)
	messageHandler := handler.NewMessageHandler(messageService, validate)

	// Initialize auth: Zitadel JWKS when configured, HMAC fallback for dev
	var verifier auth.TokenVerifier
	if cfg.Zitadel.Issuer != "" {
		v, err := auth.NewJWKSVerifier(&cfg.Zitadel)
		if err != nil {
			log.Printf("Warning: JWKS verifier unavailable: %v", err)
		} else {
			verifier = v
			defer v.Close()
		}
	}

	var authMiddleware *middleware.AuthMiddleware
	switch {
	case verifier != nil && cfg.JWT.Secret != "":
		authMiddleware = middleware.NewAuthMiddlewareWithFallback(verifier, cfg.JWT.Secret)
	case verifier != nil:
		authMiddleware = middleware.NewAuthMiddleware(verifier)
	default:
		authMiddleware = middleware.NewLegacyAuthMiddleware(cfg.JWT.Secret)
	}

	authHandler := handler.NewAuthHandler(verifier, cfg.JWT.Secret)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    20 * 1024 * 1024, // 20MB
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// ForwardAuth verification for the API gateway
	app.Get("/auth/verify", authHandler.Verify)

	// Webhook endpoint stays outside the authenticated group; trust comes
	// from the gateway signature over the raw body.
	app.Post("/api/payments/webhook", paymentHandler.Webhook)

	// API routes
	var api fiber.Router
	if cfg.Gateway.Enabled {
		api = app.Group("/api", middleware.GatewayAuthMiddleware())
	} else {
		api = app.Group("/api", authMiddleware.Authenticate())
	}

	// Job routes
	jobs := api.Group("/jobs")
	jobs.Post("/", jobHandler.Create)
	jobs.Get("/", jobHandler.ListOpen)
	jobs.Get("/:jobId", jobHandler.Get)

	// Bid routes
	bids := api.Group("/bids")
	bids.Post("/", rateLimiter.BidLimit(cfg.RateLimit.BidsPerHour), bidHandler.Submit)
	bids.Post("/generate-proposal", rateLimiter.ProposalLimit(cfg.RateLimit.ProposalsPerMin), bidHandler.GenerateProposal)
	bids.Get("/my", bidHandler.ListMine)
	bids.Get("/job/:jobId", bidHandler.ListForJob)
	bids.Post("/:bidId/accept", bidHandler.Accept)
	bids.Post("/:bidId/reject", bidHandler.Reject)
	bids.Post("/:bidId/attachments", bidHandler.Attach)
	bids.Delete("/:bidId", bidHandler.Withdraw)

	// Contract routes
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

	// Payment routes
	payments := api.Group("/payments")
	payments.Post("/contracts/:contractId/intent", paymentHandler.CreateIntent)
	payments.Get("/history", paymentHandler.History)
	payments.Get("/stats", paymentHandler.Stats)

	// Notification routes
	notifications := api.Group("/notifications")
	notifications.Get("/", notificationHandler.List)
	notifications.Put("/read-all", notificationHandler.MarkAllRead)
	notifications.Put("/:notificationId/read", notificationHandler.MarkRead)

	// Conversation routes
	conversations := api.Group("/conversations")
	conversations.Get("/", messageHandler.ListConversations)
	conversations.Get("/:conversationId/messages", messageHandler.ListMessages)
	conversations.Post("/:conversationId/messages", messageHandler.Send)
	api.Delete("/messages/:messageId", messageHandler.Delete)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		token := c.Query("token")
		claims, err := auth.ValidateLegacyToken(token, cfg.JWT.Secret)
		if err != nil {
			if verifier == nil {
				return fiber.ErrUnauthorized
			}
			zclaims, zerr := verifier.Validate(token)
			if zerr != nil {
				return fiber.ErrUnauthorized
			}
			c.Locals("userId", zclaims.UserID)
			return c.Next()
		}
		c.Locals("userId", claims.UserID)
		return c.Next()
	})

	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		userID, _ := c.Locals("userId").(string)
		hub.HandleConnection(c, userID)
	}))

	// Start Asynq worker server
	go startWorkerServer(cfg, stores, hub)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func startWorkerServer(cfg *config.Config, stores *store.Stores, hub *ws.Hub) {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"notifications": 10,
			},
		},
	)

	notificationWorker := worker.NewNotificationWorker(stores.Notifications, hub)

	mux := asynq.NewServeMux()
	notificationWorker.Register(mux)

	if err := srv.Run(mux); err != nil {
		log.Printf("Asynq worker error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
