package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/gigbridge/api/internal/middleware"
	"github.com/gigbridge/api/internal/service"
	"github.com/gigbridge/api/pkg/response"
)

type NotificationHandler struct {
	service *service.NotificationService
}

func NewNotificationHandler(svc *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{service: svc}
}

// List handles GET /api/notifications
func (h *NotificationHandler) List(c *fiber.Ctx) error {
	result, err := h.service.List(c.Context(),
		middleware.GetUserID(c),
		c.Query("unread") == "true",
		queryInt(c, "page", 1),
		queryInt(c, "limit", 20),
	)
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, result)
}

// MarkRead handles PUT /api/notifications/:notificationId/read
func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	n, err := h.service.MarkRead(c.Context(), c.Params("notificationId"), middleware.GetUserID(c))
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, n)
}

// MarkAllRead handles PUT /api/notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *fiber.Ctx) error {
	updated, err := h.service.MarkAllRead(c.Context(), middleware.GetUserID(c))
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, fiber.Map{"updated": updated})
}
