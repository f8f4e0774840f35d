package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/gigbridge/api/internal/middleware"
	"github.com/gigbridge/api/internal/model"
	"github.com/gigbridge/api/internal/service"
	"github.com/gigbridge/api/pkg/response"
)

type BidHandler struct {
	service   *service.BidService
	validator *validator.Validate
}

func NewBidHandler(svc *service.BidService, v *validator.Validate) *BidHandler {
	return &BidHandler{
		service:   svc,
		validator: v,
	}
}

// Submit handles POST /api/bids
func (h *BidHandler) Submit(c *fiber.Ctx) error {
	var req model.SubmitBidRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	bid, err := h.service.SubmitBid(c.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		return serviceError(c, err)
	}

	return response.Created(c, bid)
}

// Accept handles POST /api/bids/:bidId/accept
func (h *BidHandler) Accept(c *fiber.Ctx) error {
	bid, err := h.service.AcceptBid(c.Context(), c.Params("bidId"), middleware.GetUserID(c))
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, bid)
}

// Reject handles POST /api/bids/:bidId/reject
func (h *BidHandler) Reject(c *fiber.Ctx) error {
	bid, err := h.service.RejectBid(c.Context(), c.Params("bidId"), middleware.GetUserID(c))
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, bid)
}

// Withdraw handles DELETE /api/bids/:bidId
func (h *BidHandler) Withdraw(c *fiber.Ctx) error {
	bid, err := h.service.WithdrawBid(c.Context(), c.Params("bidId"), middleware.GetUserID(c))
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, bid)
}

// ListForJob handles GET /api/bids/job/:jobId
func (h *BidHandler) ListForJob(c *fiber.Ctx) error {
	bids, err := h.service.ListJobBids(c.Context(), c.Params("jobId"), middleware.GetUserID(c))
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, fiber.Map{"bids": bids})
}

// ListMine handles GET /api/bids/my
func (h *BidHandler) ListMine(c *fiber.Ctx) error {
	result, err := h.service.ListFreelancerBids(c.Context(),
		middleware.GetUserID(c),
		model.BidStatus(c.Query("status")),
		queryInt(c, "page", 1),
		queryInt(c, "limit", 10),
	)
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, result)
}

// GenerateProposal handles POST /api/bids/generate-proposal
func (h *BidHandler) GenerateProposal(c *fiber.Ctx) error {
	var req model.GenerateProposalRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	return response.OK(c, h.service.GenerateProposal(c.Context(), &req))
}

// Attach handles POST /api/bids/:bidId/attachments
func (h *BidHandler) Attach(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return response.ValidationError(c, "Missing file upload", nil)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return response.ValidationError(c, "Unreadable file upload", nil)
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	bid, err := h.service.AttachFile(c.Context(),
		c.Params("bidId"),
		middleware.GetUserID(c),
		fileHeader.Filename,
		contentType,
		fileHeader.Size,
		file,
	)
	if err != nil {
		return serviceError(c, err)
	}

	return response.Created(c, bid)
}
