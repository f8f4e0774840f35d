package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/gigbridge/api/internal/middleware"
	"github.com/gigbridge/api/internal/model"
	"github.com/gigbridge/api/internal/service"
	"github.com/gigbridge/api/pkg/response"
)

type JobHandler struct {
	service   *service.JobService
	validator *validator.Validate
}

func NewJobHandler(svc *service.JobService, v *validator.Validate) *JobHandler {
	return &JobHandler{
		service:   svc,
		validator: v,
	}
}

// Create handles POST /api/jobs
func (h *JobHandler) Create(c *fiber.Ctx) error {
	var req model.CreateJobRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	job, err := h.service.CreateJob(c.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		return serviceError(c, err)
	}

	return response.Created(c, job)
}

// Get handles GET /api/jobs/:jobId
func (h *JobHandler) Get(c *fiber.Ctx) error {
	job, err := h.service.GetJob(c.Context(), c.Params("jobId"))
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, job)
}

// ListOpen handles GET /api/jobs
func (h *JobHandler) ListOpen(c *fiber.Ctx) error {
	jobs, err := h.service.ListOpenJobs(c.Context())
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, fiber.Map{"jobs": jobs})
}
