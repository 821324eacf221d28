package wallets

import (
	"parkly/internal/shared/config"
	"parkly/internal/shared/middleware"
	"parkly/internal/users"

	"github.com/gin-gonic/gin"
)

func SetupWalletRoutes(rg *gin.RouterGroup, cfg *config.Config, controller *Controller) {
	wallets := rg.Group("/wallets")
	wallets.Use(middleware.JWTAuth(cfg))
	{
		wallets.POST("", middleware.RequireRoles(users.RoleCustomer), controller.OpenWallet)
		wallets.GET("", middleware.RequireRoles(users.RoleCustomer), controller.GetWallets)
		wallets.GET("/:id", controller.GetWallet)
		wallets.GET("/:id/transactions", controller.GetTransactions) // GET /api/v1/wallets/:id/transactions?type=refund
		wallets.GET("/:id/reconcile", middleware.RequireRoles(users.RoleAdmin), controller.ReconcileWallet)
	}

	transactions := rg.Group("/transactions")
	transactions.Use(middleware.JWTAuth(cfg), middleware.RequireRoles(users.RoleCustomer))
	{
		transactions.POST("/top-up", controller.TopUp)
	}
}
