package staff

import (
	"parkly/internal/shared/config"
	"parkly/internal/shared/middleware"
	"parkly/internal/users"

	"github.com/gin-gonic/gin"
)

func SetupStaffRoutes(rg *gin.RouterGroup, cfg *config.Config, controller *Controller) {
	accounts := rg.Group("/users")
	accounts.Use(middleware.JWTAuth(cfg))
	{
		accounts.POST("/garage-admin", middleware.RequireRoles(users.RoleAdmin), controller.CreateGarageAdmin)
		accounts.POST("/employee", middleware.RequireRoles(users.RoleGarageAdmin, users.RoleAdmin), controller.CreateEmployee)

		accounts.GET("", middleware.RequireRoles(users.RoleAdmin), controller.GetUsers)       // GET /api/v1/users?role=employee&search=ali
		accounts.GET("/stats", middleware.RequireRoles(users.RoleAdmin), controller.GetStats) // GET /api/v1/users/stats
		accounts.GET("/:id", controller.GetUser)                                              // admin or self
		accounts.PATCH("/:id/toggle-active", middleware.RequireRoles(users.RoleAdmin), controller.ToggleActive)
		accounts.PUT("/:id/role", middleware.RequireRoles(users.RoleAdmin), controller.UpdateRole)
		accounts.DELETE("/:id", middleware.RequireRoles(users.RoleAdmin), controller.DeleteUser)
	}

	garageStaff := rg.Group("/garages")
	garageStaff.Use(middleware.JWTAuth(cfg))
	{
		garageStaff.GET("/:id/employees", middleware.RequireRoles(users.RoleGarageAdmin, users.RoleAdmin), controller.GetGarageEmployees)
	}
}
