package admission

import (
	"raceday/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// SetupAdmissionRoutes configures registration and admin capacity routes
func SetupAdmissionRoutes(rg *gin.RouterGroup, controller *Controller) {
	registration := rg.Group("/registration")
	registration.Use(middleware.JWTAuth(), middleware.RequireRoles(middleware.RoleUser, middleware.RoleAdmin))
	{
		registration.POST("", controller.Register)
		registration.POST("/confirm", controller.Confirm)
		registration.POST("/decline", controller.Decline)
		registration.DELETE("/waitlist", controller.Leave)
	}

	capacity := rg.Group("/capacity")
	{
		capacity.GET("/summary", controller.GetSummary)
	}

	admin := rg.Group("/admin")
	admin.Use(middleware.JWTAuth(), middleware.RequireAdmin())
	{
		admin.PUT("/capacity/:role", controller.SetLimit)
		admin.DELETE("/participants/:user_id", controller.RemoveParticipant)
		admin.POST("/promote/:user_id", controller.PromoteUser)
		admin.POST("/demote/:user_id", controller.DemoteUser)
	}
}
