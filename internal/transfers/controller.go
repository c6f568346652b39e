package transfers

import (
	"errors"
	"net/http"

	"raceday/internal/shared/domain"
	"raceday/internal/shared/middleware"
	"raceday/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{
		service: service,
	}
}

// ConsumeReferralRequest binds the referral code from a transfer recipient
type ConsumeReferralRequest struct {
	ReferralCode string `json:"referral_code" binding:"required"`
}

// CreateTransfer opens a slot transfer for the caller
func (c *Controller) CreateTransfer(ctx *gin.Context) {
	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	transfer, err := c.service.CreateTransfer(ctx.Request.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			response.RespondJSON(ctx, "error", http.StatusNotFound, "You do not hold a slot to transfer", nil, nil)
		case errors.Is(err, domain.ErrDuplicateActiveTransfer):
			response.RespondJSON(ctx, "error", http.StatusConflict, "You already have an active transfer", nil, nil)
		default:
			response.RespondJSON(ctx, "error", http.StatusInternalServerError, "Failed to create transfer", nil, err.Error())
		}
		return
	}

	response.RespondJSON(ctx, "success", http.StatusCreated, "Transfer created, share the referral code", transfer, nil)
}

// ConsumeReferral binds the caller to a pending transfer by code
func (c *Controller) ConsumeReferral(ctx *gin.Context) {
	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	var request ConsumeReferralRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	transfer, err := c.service.ConsumeReferral(ctx.Request.Context(), request.ReferralCode, userID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			response.RespondJSON(ctx, "error", http.StatusNotFound, "Unknown referral code", nil, nil)
		case errors.Is(err, domain.ErrInvalidTransition):
			response.RespondJSON(ctx, "error", http.StatusConflict, "Referral code cannot be used", nil, err.Error())
		case errors.Is(err, domain.ErrDuplicateActive):
			response.RespondJSON(ctx, "error", http.StatusConflict, "You already hold a slot", nil, nil)
		default:
			response.RespondJSON(ctx, "error", http.StatusInternalServerError, "Failed to consume referral code", nil, err.Error())
		}
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Referral code accepted, awaiting admin approval", transfer, nil)
}

// CancelTransfer withdraws the caller's pending transfer
func (c *Controller) CancelTransfer(ctx *gin.Context) {
	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	transferID, err := uuid.Parse(ctx.Param("transfer_id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid transfer ID", nil, nil)
		return
	}

	if err := c.service.Cancel(ctx.Request.Context(), transferID, userID); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			response.RespondJSON(ctx, "error", http.StatusNotFound, "Transfer not found", nil, nil)
		case errors.Is(err, domain.ErrInvalidTransition):
			response.RespondJSON(ctx, "error", http.StatusConflict, "Transfer can no longer be cancelled", nil, err.Error())
		default:
			response.RespondJSON(ctx, "error", http.StatusInternalServerError, "Failed to cancel transfer", nil, err.Error())
		}
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Transfer cancelled", nil, nil)
}

// GetMyTransfer returns the caller's active transfer
func (c *Controller) GetMyTransfer(ctx *gin.Context) {
	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	transfer, err := c.service.ActiveTransfer(ctx.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			response.RespondJSON(ctx, "error", http.StatusNotFound, "No active transfer", nil, nil)
			return
		}
		response.RespondJSON(ctx, "error", http.StatusInternalServerError, "Failed to get transfer", nil, err.Error())
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Active transfer retrieved", transfer, nil)
}

// ApproveTransfer resolves an awaiting_approval transfer (admin)
func (c *Controller) ApproveTransfer(ctx *gin.Context) {
	transferID, err := uuid.Parse(ctx.Param("transfer_id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid transfer ID", nil, nil)
		return
	}

	result, err := c.service.Approve(ctx.Request.Context(), transferID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			response.RespondJSON(ctx, "error", http.StatusNotFound, "Transfer not found", nil, nil)
		case errors.Is(err, domain.ErrInvalidTransition):
			response.RespondJSON(ctx, "error", http.StatusConflict, "Transfer cannot be approved", nil, err.Error())
		default:
			response.RespondJSON(ctx, "error", http.StatusInternalServerError, "Failed to approve transfer", nil, err.Error())
		}
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Transfer approved", result, nil)
}

// RejectTransfer rejects an awaiting_approval transfer (admin)
func (c *Controller) RejectTransfer(ctx *gin.Context) {
	transferID, err := uuid.Parse(ctx.Param("transfer_id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid transfer ID", nil, nil)
		return
	}

	result, err := c.service.Reject(ctx.Request.Context(), transferID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			response.RespondJSON(ctx, "error", http.StatusNotFound, "Transfer not found", nil, nil)
		case errors.Is(err, domain.ErrInvalidTransition):
			response.RespondJSON(ctx, "error", http.StatusConflict, "Transfer cannot be rejected", nil, err.Error())
		default:
			response.RespondJSON(ctx, "error", http.StatusInternalServerError, "Failed to reject transfer", nil, err.Error())
		}
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Transfer rejected", result, nil)
}

// ListTransfers lists transfers with an optional status filter (admin)
func (c *Controller) ListTransfers(ctx *gin.Context) {
	status := Status(ctx.Query("status"))

	transfers, err := c.service.List(ctx.Request.Context(), status)
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Failed to list transfers", nil, err.Error())
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Transfers retrieved", gin.H{
		"count":     len(transfers),
		"transfers": transfers,
	}, nil)
}
