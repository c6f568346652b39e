package notifications

import (
	"net/http"
	"strconv"

	"raceday/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
)

type Controller struct {
	repo Repository
}

func NewController(repo Repository) *Controller {
	return &Controller{
		repo: repo,
	}
}

// GetRecent lists recent delivery records (admin)
func (c *Controller) GetRecent(ctx *gin.Context) {
	limit := 50
	if raw := ctx.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid limit parameter", nil, nil)
			return
		}
		limit = parsed
	}

	records, err := c.repo.ListRecent(ctx.Request.Context(), limit)
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusInternalServerError, "Failed to list notifications", nil, err.Error())
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Notifications retrieved", gin.H{
		"count":   len(records),
		"records": records,
	}, nil)
}

// GetStats returns delivery counts grouped by outcome (admin)
func (c *Controller) GetStats(ctx *gin.Context) {
	counts, err := c.repo.CountByOutcome(ctx.Request.Context())
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusInternalServerError, "Failed to get notification stats", nil, err.Error())
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Notification stats retrieved", gin.H{
		"outcomes": counts,
	}, nil)
}
