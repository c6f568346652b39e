package participants

import (
	"raceday/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// SetupParticipantRoutes configures participant read routes
func SetupParticipantRoutes(rg *gin.RouterGroup, controller *Controller) {
	participants := rg.Group("/participants")
	participants.Use(middleware.JWTAuth(), middleware.RequireRoles(middleware.RoleUser, middleware.RoleAdmin))
	{
		participants.GET("/me", controller.GetMe)
	}

	adminParticipants := rg.Group("/admin/participants")
	adminParticipants.Use(middleware.JWTAuth(), middleware.RequireAdmin())
	{
		adminParticipants.GET("", controller.ListByRole)
		adminParticipants.PATCH("/:user_id/payment", controller.UpdatePaymentStatus)
	}
}
