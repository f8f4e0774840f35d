package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/gigbridge/api/internal/middleware"
	"github.com/gigbridge/api/internal/model"
	"github.com/gigbridge/api/internal/service"
	"github.com/gigbridge/api/pkg/response"
)

type PaymentHandler struct {
	service *service.PaymentService
}

func NewPaymentHandler(svc *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{service: svc}
}

// CreateIntent handles POST /api/payments/contracts/:contractId/intent
func (h *PaymentHandler) CreateIntent(c *fiber.Ctx) error {
	result, err := h.service.CreatePaymentIntent(c.Context(), c.Params("contractId"), middleware.GetUserID(c))
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, result)
}

// Webhook handles POST /api/payments/webhook. Unauthenticated; trust comes
// from the signature over the raw body.
func (h *PaymentHandler) Webhook(c *fiber.Ctx) error {
	if err := h.service.HandleWebhookEvent(c.Context(), c.Body(), c.Get("Stripe-Signature")); err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, fiber.Map{"received": true})
}

// History handles GET /api/payments/history
func (h *PaymentHandler) History(c *fiber.Ctx) error {
	result, err := h.service.History(c.Context(),
		middleware.GetUserID(c),
		queryInt(c, "page", 1),
		queryInt(c, "limit", 10),
	)
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, result)
}

// Stats handles GET /api/payments/stats
func (h *PaymentHandler) Stats(c *fiber.Ctx) error {
	role := middleware.GetUserRole(c)
	if role == "" {
		role = model.RoleFreelancer
	}

	result, err := h.service.Stats(c.Context(), middleware.GetUserID(c), role)
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, result)
}
