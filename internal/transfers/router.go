package transfers

import (
	"raceday/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// SetupTransferRoutes configures all slot transfer routes following the same pattern as other modules
func SetupTransferRoutes(rg *gin.RouterGroup, controller *Controller) {
	transfers := rg.Group("/transfers")
	transfers.Use(middleware.JWTAuth(), middleware.RequireRoles(middleware.RoleUser, middleware.RoleAdmin))
	{
		transfers.POST("", controller.CreateTransfer)
		transfers.GET("/mine", controller.GetMyTransfer)
		transfers.POST("/consume", controller.ConsumeReferral)
		transfers.DELETE("/:transfer_id", controller.CancelTransfer)
	}

	adminTransfers := rg.Group("/admin/transfers")
	adminTransfers.Use(middleware.JWTAuth(), middleware.RequireAdmin())
	{
		adminTransfers.GET("", controller.ListTransfers)
		adminTransfers.POST("/:transfer_id/approve", controller.ApproveTransfer)
		adminTransfers.POST("/:transfer_id/reject", controller.RejectTransfer)
	}
}
