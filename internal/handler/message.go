package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/gigbridge/api/internal/middleware"
	"github.com/gigbridge/api/internal/model"
	"github.com/gigbridge/api/internal/service"
	"github.com/gigbridge/api/pkg/response"
)

type MessageHandler struct {
	service   *service.MessageService
	validator *validator.Validate
}

func NewMessageHandler(svc *service.MessageService, v *validator.Validate) *MessageHandler {
	return &MessageHandler{
		service:   svc,
		validator: v,
	}
}

// ListConversations handles GET /api/conversations
func (h *MessageHandler) ListConversations(c *fiber.Ctx) error {
	conversations, err := h.service.ListConversations(c.Context(), middleware.GetUserID(c))
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, fiber.Map{"conversations": conversations})
}

// ListMessages handles GET /api/conversations/:conversationId/messages
func (h *MessageHandler) ListMessages(c *fiber.Ctx) error {
	result, err := h.service.ListMessages(c.Context(),
		c.Params("conversationId"),
		middleware.GetUserID(c),
		queryInt(c, "page", 1),
		queryInt(c, "limit", 50),
	)
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, result)
}

// Send handles POST /api/conversations/:conversationId/messages
func (h *MessageHandler) Send(c *fiber.Ctx) error {
	var req model.SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	m, err := h.service.SendMessage(c.Context(), c.Params("conversationId"), middleware.GetUserID(c), &req)
	if err != nil {
		return serviceError(c, err)
	}
	return response.Created(c, m)
}

// Delete handles DELETE /api/messages/:messageId
func (h *MessageHandler) Delete(c *fiber.Ctx) error {
	m, err := h.service.DeleteMessage(c.Context(), c.Params("messageId"), middleware.GetUserID(c))
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, m)
}
