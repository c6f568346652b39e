package waitlist

import (
	"errors"
	"net/http"

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

// GetPosition returns the caller's queue position
func (c *Controller) GetPosition(ctx *gin.Context) {
	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	position, err := c.service.Position(ctx.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			response.RespondJSON(ctx, "error", http.StatusNotFound, "You are not on the waitlist", nil, nil)
			return
		}
		response.RespondJSON(ctx, "error", http.StatusInternalServerError, "Failed to get waitlist position", nil, err.Error())
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Waitlist position retrieved", position, nil)
}

// GetEntries lists waitlist entries for a role (admin)
func (c *Controller) GetEntries(ctx *gin.Context) {
	role := domain.Role(ctx.Param("role"))
	status := Status(ctx.Query("status"))

	entries, err := c.service.Entries(ctx.Request.Context(), role, status)
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Failed to list waitlist entries", nil, err.Error())
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Waitlist entries retrieved", gin.H{
		"role":    role,
		"count":   len(entries),
		"entries": entries,
	}, nil)
}

// GetStats returns queue statistics across roles (admin)
func (c *Controller) GetStats(ctx *gin.Context) {
	stats, err := c.service.Stats(ctx.Request.Context())
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusInternalServerError, "Failed to get waitlist stats", nil, err.Error())
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Waitlist stats retrieved", stats, nil)
}

// HealthCheck returns waitlist module health
func (c *Controller) HealthCheck(ctx *gin.Context) {
	response.RespondJSON(ctx, "success", http.StatusOK, "Waitlist module is healthy", gin.H{
		"module": "waitlist",
		"status": "healthy",
	}, nil)
}
