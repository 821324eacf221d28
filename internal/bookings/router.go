package bookings

import (
	"parkly/internal/shared/config"
	"parkly/internal/shared/middleware"
	"parkly/internal/users"

	"github.com/gin-gonic/gin"
)

// SetupBookingRoutes configures all booking-related routes
func SetupBookingRoutes(rg *gin.RouterGroup, cfg *config.Config, controller *Controller) {
	bookings := rg.Group("/bookings")
	bookings.Use(middleware.JWTAuth(cfg))
	{
		bookings.POST("", middleware.RequireRoles(users.RoleCustomer), controller.CreateBooking)
		bookings.GET("", middleware.RequireRoles(users.RoleCustomer), controller.GetMyBookings) // GET /api/v1/bookings?status=confirmed
		bookings.GET("/:id", controller.GetBooking)
		bookings.PUT("/cancel/:id", middleware.RequireRoles(users.RoleCustomer), controller.CancelBooking)
		bookings.PUT("/:id/confirm-payment",
			middleware.RequireRoles(users.RoleGarageAdmin, users.RoleEmployee, users.RoleAdmin),
			controller.ConfirmPayment)
	}

	staff := rg.Group("/garages")
	staff.Use(middleware.JWTAuth(cfg), middleware.RequireRoles(users.RoleGarageAdmin, users.RoleEmployee, users.RoleAdmin))
	{
		staff.GET("/:id/bookings", controller.GetGarageBookings)
	}
}
