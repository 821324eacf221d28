package audit

import (
	"parkly/internal/shared/config"
	"parkly/internal/shared/middleware"
	"parkly/internal/users"

	"github.com/gin-gonic/gin"
)

func SetupAuditRoutes(rg *gin.RouterGroup, cfg *config.Config, controller *Controller) {
	logs := rg.Group("/audit-logs")
	logs.Use(middleware.JWTAuth(cfg), middleware.RequireRoles(users.RoleAdmin))
	{
		logs.GET("", controller.ListLogs) // GET /api/v1/audit-logs?entity_type=booking&page=1
	}
}
