package notifications

import (
	"parkly/internal/shared/config"
	"parkly/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupNotificationRoutes(rg *gin.RouterGroup, cfg *config.Config, controller *Controller) {
	notifications := rg.Group("/notifications")
	notifications.Use(middleware.JWTAuth(cfg))
	{
		notifications.GET("", controller.GetNotifications)    // GET /api/v1/notifications?status=unread
		notifications.PUT("/:id/read", controller.MarkAsRead) // PUT /api/v1/notifications/:id/read
	}
}
