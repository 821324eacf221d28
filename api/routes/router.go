// api/routes/router.go
package routes

import (
	"net/http"
	"time"

	"parkly/internal/audit"
	"parkly/internal/auth"
	"parkly/internal/bookings"
	"parkly/internal/garages"
	"parkly/internal/notifications"
	"parkly/internal/pricing"
	"parkly/internal/shared/config"
	"parkly/internal/shared/database"
	"parkly/internal/staff"
	"parkly/internal/tickets"
	"parkly/internal/wallets"
	"parkly/pkg/cache"
	"parkly/pkg/logger"
	"parkly/pkg/metrics"

	"github.com/gin-gonic/gin"
)

// Router holds all route dependencies
type Router struct {
	config  *config.Config
	db      *database.DB
	metrics *metrics.Metrics
	log     *logger.Logger

	audit         audit.Service
	notifications notifications.Service
	garageRepo    garages.Repository
	garages       garages.Service
	staff         staff.Service
	wallets       wallets.Service
	bookings      bookings.Service
	auth          auth.Service
}

// NewRouter builds every service once so routes and background jobs share them.
// producer may be nil, notifications are then written straight to the database.
func NewRouter(cfg *config.Config, db *database.DB, m *metrics.Metrics, producer notifications.Producer, log *logger.Logger) *Router {
	pg := db.GetPostgreSQL()
	tx := database.NewTransactor(pg)

	r := &Router{config: cfg, db: db, metrics: m, log: log}

	r.audit = audit.NewService(audit.NewRepository(pg))
	r.notifications = notifications.NewService(notifications.NewRepository(pg), producer, log)

	r.garageRepo = garages.NewRepository(pg)
	r.garages = garages.NewService(r.garageRepo, cache.NewService(db.GetRedisClient(), log), r.audit, log)

	r.staff = staff.NewService(staff.NewRepository(pg), r.garageRepo, tx, r.notifications, r.audit, log)

	r.wallets = wallets.NewService(wallets.NewRepository(pg), r.garageRepo, tx, r.audit, m, log, cfg.Booking.DefaultCurrency)

	r.bookings = bookings.NewService(bookings.Dependencies{
		Repo:      bookings.NewRepository(pg),
		Inventory: r.garageRepo,
		Staff:     r.staff,
		Pricing:   pricing.NewPolicy(cfg.Booking.GracePeriod),
		Ledger:    r.wallets,
		Tickets:   tickets.NewIssuer(cfg.Booking.TicketTTL),
		Tx:        tx,
		Notifier:  r.notifications,
		Audit:     r.audit,
		Metrics:   m,
		Log:       log,
	})

	r.auth = auth.NewService(auth.NewRepository(pg), cfg, r.notifications, r.audit, log)
	return r
}

// Wallets exposes the wallet service for the reconciliation job
func (r *Router) Wallets() wallets.Service {
	return r.wallets
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	// Health check and basic info endpoints
	r.setupHealthRoutes(engine)

	api := engine.Group(r.config.GetAPIBasePath())
	{
		auth.SetupAuthRoutes(api, r.config, auth.NewController(r.auth, r.log))
		garages.SetupGarageRoutes(api, r.config, garages.NewController(r.garages))
		staff.SetupStaffRoutes(api, r.config, staff.NewController(r.staff))
		wallets.SetupWalletRoutes(api, r.config, wallets.NewController(r.wallets))
		bookings.SetupBookingRoutes(api, r.config, bookings.NewController(r.bookings))
		notifications.SetupNotificationRoutes(api, r.config, notifications.NewController(r.notifications))
		audit.SetupAuditRoutes(api, r.config, audit.NewController(r.audit))
	}
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   "parkly-backend",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "parkly-backend",
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})

	engine.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "operational",
			"api_version": r.config.APIVersion,
			"timestamp":   time.Now(),
		})
	})

	if r.metrics != nil {
		engine.GET("/metrics", gin.WrapH(r.metrics.Handler()))
	}
}
