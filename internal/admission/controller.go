package admission

import (
	"errors"
	"net/http"
	"strconv"

	"raceday/internal/shared/domain"
	"raceday/internal/shared/middleware"
	"raceday/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type Controller struct {
	service   Service
	validator *validator.Validate
}

func NewController(service Service) *Controller {
	return &Controller{
		service:   service,
		validator: validator.New(),
	}
}

// Register admits the caller or queues them, depending on capacity
func (c *Controller) Register(ctx *gin.Context) {
	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	var request RegisterRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	if err := c.validator.Struct(&request); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Validation failed", nil, err.Error())
		return
	}

	outcome, err := c.service.RegisterOrQueue(ctx.Request.Context(), userID, request.UserName, domain.Role(request.Role), request.Category, request.Cluster)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrDuplicateActive):
			response.RespondJSON(ctx, "error", http.StatusConflict, "You are already registered or queued", nil, nil)
		case errors.Is(err, domain.ErrSettingsMissing), errors.Is(err, domain.ErrSettingsInvalid):
			response.RespondJSON(ctx, "error", http.StatusServiceUnavailable, "Registration is not configured", nil, err.Error())
		default:
			response.RespondJSON(ctx, "error", http.StatusInternalServerError, "Registration failed", nil, err.Error())
		}
		return
	}

	if outcome.Admitted {
		response.RespondJSON(ctx, "success", http.StatusCreated, "Registration confirmed", outcome, nil)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusAccepted, "Capacity full, you are on the waitlist", outcome, nil)
}

// Confirm claims an open slot offer
func (c *Controller) Confirm(ctx *gin.Context) {
	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	participant, err := c.service.Confirm(ctx.Request.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			response.RespondJSON(ctx, "error", http.StatusNotFound, "No open slot offer", nil, nil)
		case errors.Is(err, domain.ErrInvalidTransition):
			response.RespondJSON(ctx, "error", http.StatusConflict, "Offer is no longer confirmable", nil, err.Error())
		case errors.Is(err, domain.ErrCapacityExceeded):
			response.RespondJSON(ctx, "error", http.StatusConflict, "Slot no longer available, you keep your offer", nil, nil)
		default:
			response.RespondJSON(ctx, "error", http.StatusInternalServerError, "Confirmation failed", nil, err.Error())
		}
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Slot confirmed, you are registered", participant, nil)
}

// Decline gives up an open slot offer
func (c *Controller) Decline(ctx *gin.Context) {
	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	if err := c.service.Decline(ctx.Request.Context(), userID); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			response.RespondJSON(ctx, "error", http.StatusNotFound, "No open slot offer", nil, nil)
		case errors.Is(err, domain.ErrInvalidTransition):
			response.RespondJSON(ctx, "error", http.StatusConflict, "No offer to decline", nil, err.Error())
		default:
			response.RespondJSON(ctx, "error", http.StatusInternalServerError, "Decline failed", nil, err.Error())
		}
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Offer declined", nil, nil)
}

// Leave removes the caller from the waitlist
func (c *Controller) Leave(ctx *gin.Context) {
	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	if err := c.service.Leave(ctx.Request.Context(), userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			response.RespondJSON(ctx, "error", http.StatusNotFound, "You are not on the waitlist", nil, nil)
			return
		}
		response.RespondJSON(ctx, "error", http.StatusInternalServerError, "Failed to leave waitlist", nil, err.Error())
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Removed from waitlist", nil, nil)
}

// GetSummary returns the capacity view across roles
func (c *Controller) GetSummary(ctx *gin.Context) {
	summary, err := c.service.Summary(ctx.Request.Context())
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusInternalServerError, "Failed to build capacity summary", nil, err.Error())
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Capacity summary", summary, nil)
}

// SetLimit changes a role's capacity (admin)
func (c *Controller) SetLimit(ctx *gin.Context) {
	role := domain.Role(ctx.Param("role"))

	var request SetLimitRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	if err := c.validator.Struct(&request); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Validation failed", nil, err.Error())
		return
	}

	change, err := c.service.SetLimit(ctx.Request.Context(), role, request.Limit)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrLimitBelowOccupancy):
			response.RespondJSON(ctx, "error", http.StatusConflict, "Limit below current occupancy", nil, err.Error())
		case errors.Is(err, domain.ErrSettingsInvalid):
			response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid limit", nil, err.Error())
		default:
			response.RespondJSON(ctx, "error", http.StatusInternalServerError, "Failed to set limit", nil, err.Error())
		}
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Limit updated", change, nil)
}

// RemoveParticipant revokes a slot (admin)
func (c *Controller) RemoveParticipant(ctx *gin.Context) {
	userID, err := strconv.ParseInt(ctx.Param("user_id"), 10, 64)
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid user ID", nil, nil)
		return
	}

	if err := c.service.RemoveParticipant(ctx.Request.Context(), userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			response.RespondJSON(ctx, "error", http.StatusNotFound, "Participant not found", nil, nil)
			return
		}
		response.RespondJSON(ctx, "error", http.StatusInternalServerError, "Failed to remove participant", nil, err.Error())
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Participant removed", nil, nil)
}

// PromoteUser admits a queued user by expanding capacity (admin)
func (c *Controller) PromoteUser(ctx *gin.Context) {
	userID, err := strconv.ParseInt(ctx.Param("user_id"), 10, 64)
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid user ID", nil, nil)
		return
	}

	result, err := c.service.PromoteUser(ctx.Request.Context(), userID)
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusInternalServerError, "Failed to promote user", nil, err.Error())
		return
	}
	if !result.Success {
		response.RespondJSON(ctx, "error", http.StatusConflict, result.Error, result, nil)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "User promoted", result, nil)
}

// DemoteUser moves a participant back to the waitlist (admin)
func (c *Controller) DemoteUser(ctx *gin.Context) {
	userID, err := strconv.ParseInt(ctx.Param("user_id"), 10, 64)
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid user ID", nil, nil)
		return
	}

	result, err := c.service.DemoteUser(ctx.Request.Context(), userID)
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusInternalServerError, "Failed to demote user", nil, err.Error())
		return
	}
	if !result.Success {
		response.RespondJSON(ctx, "error", http.StatusConflict, result.Error, result, nil)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "User demoted", result, nil)
}
