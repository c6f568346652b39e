package participants

import (
	"errors"
	"net/http"
	"strconv"

	"raceday/internal/shared/domain"
	"raceday/internal/shared/middleware"
	"raceday/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{
		service: service,
	}
}

// UpdatePaymentStatusRequest binds a payment status change
type UpdatePaymentStatusRequest struct {
	PaymentStatus string `json:"payment_status" binding:"required,oneof=unpaid paid confirmed"`
}

// GetMe returns the caller's participant record
func (c *Controller) GetMe(ctx *gin.Context) {
	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	participant, err := c.service.Get(ctx.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			response.RespondJSON(ctx, "error", http.StatusNotFound, "You are not registered", nil, nil)
			return
		}
		response.RespondJSON(ctx, "error", http.StatusInternalServerError, "Failed to get registration", nil, err.Error())
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Registration retrieved", participant, nil)
}

// ListByRole lists participants for a role (admin)
func (c *Controller) ListByRole(ctx *gin.Context) {
	role := domain.Role(ctx.Query("role"))

	list, err := c.service.ListByRole(ctx.Request.Context(), role)
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Failed to list participants", nil, err.Error())
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Participants retrieved", gin.H{
		"role":         role,
		"count":        len(list),
		"participants": list,
	}, nil)
}

// UpdatePaymentStatus changes a participant's payment status (admin)
func (c *Controller) UpdatePaymentStatus(ctx *gin.Context) {
	userID, err := strconv.ParseInt(ctx.Param("user_id"), 10, 64)
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid user ID", nil, nil)
		return
	}

	var request UpdatePaymentStatusRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	if err := c.service.SetPaymentStatus(ctx.Request.Context(), userID, PaymentStatus(request.PaymentStatus)); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			response.RespondJSON(ctx, "error", http.StatusNotFound, "Participant not found", nil, nil)
			return
		}
		response.RespondJSON(ctx, "error", http.StatusInternalServerError, "Failed to update payment status", nil, err.Error())
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Payment status updated", nil, nil)
}
