package handler

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/gigbridge/api/internal/service"
	"github.com/gigbridge/api/pkg/response"
)

// formatValidationErrors formats validator errors for response
func formatValidationErrors(err error) interface{} {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		errors := make(map[string]string)
		for _, e := range validationErrors {
			errors[e.Field()] = e.Tag()
		}
		return errors
	}
	return nil
}

// serviceError maps a service sentinel onto the HTTP error envelope.
// Anything unrecognized is a 500.
func serviceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrJobNotFound),
		errors.Is(err, service.ErrBidNotFound),
		errors.Is(err, service.ErrContractNotFound),
		errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, service.ErrMilestoneNotFound),
		errors.Is(err, service.ErrNotificationNotFound),
		errors.Is(err, service.ErrConversationNotFound),
		errors.Is(err, service.ErrMessageNotFound):
		return response.NotFound(c, err.Error())

	case errors.Is(err, service.ErrEmptyMessage):
		return response.ValidationError(c, err.Error(), nil)

	case errors.Is(err, service.ErrAccessDenied):
		return response.Forbidden(c, err.Error())

	case errors.Is(err, service.ErrDuplicateBid),
		errors.Is(err, service.ErrContractExists):
		return response.Conflict(c, err.Error())

	case errors.Is(err, service.ErrJobNotOpen),
		errors.Is(err, service.ErrBidNotPending),
		errors.Is(err, service.ErrMilestoneNotPending),
		errors.Is(err, service.ErrAlreadyPaid),
		errors.Is(err, service.ErrContractNotActive):
		return response.InvalidState(c, err.Error())

	case errors.Is(err, service.ErrGatewayUnavailable):
		return response.GatewayError(c, err.Error())

	case errors.Is(err, service.ErrInvalidSignature):
		return response.SignatureError(c, err.Error())

	default:
		return response.ServiceError(c, "Something went wrong")
	}
}

// queryInt reads an integer query parameter with a default
func queryInt(c *fiber.Ctx, name string, def int) int {
	v := c.Query(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
