package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"parkly/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetRateLimitType(t *testing.T) {
	cases := map[string]RateLimitType{
		"/health":                          RateLimitTypeHealth,
		"/metrics":                         RateLimitTypeHealth,
		"/api/v1/auth/login":               RateLimitTypeAuth,
		"/api/v1/bookings":                 RateLimitTypeBooking,
		"/api/v1/bookings/cancel/:id":      RateLimitTypeBooking,
		"/api/v1/wallets/:id/transactions": RateLimitTypeWallet,
		"/api/v1/transactions/top-up":      RateLimitTypeWallet,
		"/api/v1/garages/:id":              RateLimitTypePublic,
		"/api/v1/audit-logs":               RateLimitTypeAdmin,
		"/api/v1/users/:id/role":           RateLimitTypeAdmin,
		"/api/v1/garages/:id/employees":    RateLimitTypeAdmin,
		"/api/v1/garages/:id/bookings":     RateLimitTypeBooking,
		"/api/v1/notifications/:id/read":   RateLimitTypeDefault,
	}
	for path, want := range cases {
		assert.Equal(t, want, getRateLimitType(path), path)
	}
}

func TestWhitelistedIPBypassesRedis(t *testing.T) {
	// No Redis behind this client: a whitelisted caller must never reach it
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 50 * time.Millisecond})
	defer client.Close()

	limiter := NewRateLimiter(client, &Config{
		Enabled:         true,
		WindowDuration:  time.Minute,
		BookingRequests: 5,
		WhitelistedIPs:  []string{"10.0.0.7"},
	})

	result, err := limiter.IsAllowed(context.Background(), "10.0.0.7", RateLimitTypeBooking)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, 5, result.Limit)

	_, err = limiter.IsAllowed(context.Background(), "10.0.0.8", RateLimitTypeBooking)
	assert.Error(t, err)
}

func TestMiddlewareFailsOpenWhenRedisIsDown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 50 * time.Millisecond})
	defer client.Close()

	limiter := NewRateLimiter(client, &Config{Enabled: true, WindowDuration: time.Minute, DefaultRequests: 1})
	engine := gin.New()
	engine.Use(Middleware(limiter, logger.Discard()))
	engine.GET("/api/v1/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestGetClientIPPrefersForwardedFor(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")

	assert.Equal(t, "203.0.113.9", getClientIP(c))
}
