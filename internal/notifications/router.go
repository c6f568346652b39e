package notifications

import (
	"raceday/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// SetupNotificationRoutes configures the delivery audit routes (admin only)
func SetupNotificationRoutes(rg *gin.RouterGroup, controller *Controller) {
	admin := rg.Group("/admin/notifications")
	admin.Use(middleware.JWTAuth(), middleware.RequireAdmin())
	{
		admin.GET("", controller.GetRecent)
		admin.GET("/stats", controller.GetStats)
	}
}
