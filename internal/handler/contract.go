package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/gigbridge/api/internal/middleware"
	"github.com/gigbridge/api/internal/model"
	"github.com/gigbridge/api/internal/service"
	"github.com/gigbridge/api/pkg/response"
)

type ContractHandler struct {
	service   *service.ContractService
	validator *validator.Validate
}

func NewContractHandler(svc *service.ContractService, v *validator.Validate) *ContractHandler {
	return &ContractHandler{
		service:   svc,
		validator: v,
	}
}

// Create handles POST /api/contracts
func (h *ContractHandler) Create(c *fiber.Ctx) error {
	var req model.CreateContractRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	contract, err := h.service.CreateContract(c.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		return serviceError(c, err)
	}

	return response.Created(c, contract)
}

// Get handles GET /api/contracts/:contractId
func (h *ContractHandler) Get(c *fiber.Ctx) error {
	contract, err := h.service.GetContract(c.Context(), c.Params("contractId"), middleware.GetUserID(c))
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, contract)
}

// GetByJob handles GET /api/contracts/job/:jobId
func (h *ContractHandler) GetByJob(c *fiber.Ctx) error {
	contract, err := h.service.GetContractByJob(c.Context(), c.Params("jobId"), middleware.GetUserID(c))
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, contract)
}

// ListMine handles GET /api/contracts/my
func (h *ContractHandler) ListMine(c *fiber.Ctx) error {
	result, err := h.service.ListUserContracts(c.Context(),
		middleware.GetUserID(c),
		model.ContractStatus(c.Query("status")),
		queryInt(c, "page", 1),
		queryInt(c, "limit", 10),
	)
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, result)
}

// Complete handles POST /api/contracts/:contractId/complete
func (h *ContractHandler) Complete(c *fiber.Ctx) error {
	contract, err := h.service.CompleteContract(c.Context(), c.Params("contractId"), middleware.GetUserID(c))
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, contract)
}

// AddTask handles POST /api/contracts/:contractId/tasks
func (h *ContractHandler) AddTask(c *fiber.Ctx) error {
	var req model.AddTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	contract, err := h.service.AddTask(c.Context(), c.Params("contractId"), middleware.GetUserID(c), &req)
	if err != nil {
		return serviceError(c, err)
	}

	return response.Created(c, contract)
}

// UpdateTaskStatus handles PUT /api/contracts/:contractId/tasks/:taskId
func (h *ContractHandler) UpdateTaskStatus(c *fiber.Ctx) error {
	var req model.UpdateTaskStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	contract, err := h.service.UpdateTaskStatus(c.Context(),
		c.Params("contractId"), c.Params("taskId"), middleware.GetUserID(c), req.Status)
	if err != nil {
		return serviceError(c, err)
	}

	return response.OK(c, contract)
}

// AddMilestone handles POST /api/contracts/:contractId/milestones
func (h *ContractHandler) AddMilestone(c *fiber.Ctx) error {
	var req model.AddMilestoneRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	contract, err := h.service.AddMilestone(c.Context(), c.Params("contractId"), middleware.GetUserID(c), &req)
	if err != nil {
		return serviceError(c, err)
	}

	return response.Created(c, contract)
}

// ApproveMilestone handles POST /api/contracts/:contractId/milestones/:milestoneId/approve
func (h *ContractHandler) ApproveMilestone(c *fiber.Ctx) error {
	contract, err := h.service.ApproveMilestone(c.Context(),
		c.Params("contractId"), c.Params("milestoneId"), middleware.GetUserID(c))
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, contract)
}
