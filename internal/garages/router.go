package garages

import (
	"parkly/internal/shared/config"
	"parkly/internal/shared/middleware"
	"parkly/internal/users"

	"github.com/gin-gonic/gin"
)

func SetupGarageRoutes(rg *gin.RouterGroup, cfg *config.Config, controller *Controller) {
	// Public browsing
	public := rg.Group("/garages")
	{
		public.GET("", controller.GetGarages)         // GET /api/v1/garages?governorate=Cairo&page=1
		public.GET("/:id", controller.GetGarage)      // GET /api/v1/garages/:id
		public.GET("/:id/spots", controller.GetSpots) // GET /api/v1/garages/:id/spots?status=available
	}

	// Garage management
	manage := rg.Group("/garages")
	manage.Use(middleware.JWTAuth(cfg))
	{
		manage.POST("", middleware.RequireRoles(users.RoleGarageAdmin), controller.CreateGarage)
		manage.PUT("/:id", middleware.RequireRoles(users.RoleGarageAdmin, users.RoleAdmin), controller.UpdateGarage)
		manage.DELETE("/:id", middleware.RequireRoles(users.RoleGarageAdmin, users.RoleAdmin), controller.DeleteGarage)
		manage.POST("/:id/spots", middleware.RequireRoles(users.RoleGarageAdmin), controller.CreateSpot)
		manage.DELETE("/:id/spots/:spotId", middleware.RequireRoles(users.RoleGarageAdmin), controller.DeleteSpot)
	}
}
