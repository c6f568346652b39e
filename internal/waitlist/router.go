package waitlist

import (
	"raceday/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// SetupWaitlistRoutes configures all waitlist-related routes following the same pattern as other modules
func SetupWaitlistRoutes(rg *gin.RouterGroup, controller *Controller) {
	waitlist := rg.Group("/waitlist")
	{
		// Health check - no auth required
		waitlist.GET("/health", controller.HealthCheck)

		// Authenticated user operations
		authenticated := waitlist.Group("")
		authenticated.Use(middleware.JWTAuth(), middleware.RequireRoles(middleware.RoleUser, middleware.RoleAdmin))
		{
			authenticated.GET("/position", controller.GetPosition)
		}
	}

	// Admin waitlist routes
	adminWaitlist := rg.Group("/admin/waitlist")
	adminWaitlist.Use(middleware.JWTAuth(), middleware.RequireAdmin())
	{
		adminWaitlist.GET("/stats", controller.GetStats)
		adminWaitlist.GET("/entries/:role", controller.GetEntries)
	}
}
