package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "/api/v1", cfg.GetAPIBasePath())
	assert.Equal(t, 15*time.Minute, cfg.Booking.GracePeriod)
	assert.Equal(t, 15*time.Minute, cfg.Booking.TicketTTL)
	assert.Equal(t, cfg.Redis.Host+":"+cfg.Redis.Port, cfg.Redis.Addr)
	assert.Contains(t, cfg.Database.DSN, "dbname="+cfg.Database.Name)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("BOOKING_GRACE_PERIOD", "20m")
	t.Setenv("TICKET_TTL", "5m")
	t.Setenv("WALLET_DEFAULT_CURRENCY", "usd")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092 ,")
	t.Setenv("JWT_EXPIRES_IN", "60")

	cfg := Load()

	assert.Equal(t, ":9090", cfg.GetServerAddress())
	assert.Equal(t, 20*time.Minute, cfg.Booking.GracePeriod)
	assert.Equal(t, 5*time.Minute, cfg.Booking.TicketTTL)
	assert.Equal(t, "USD", cfg.Booking.DefaultCurrency)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, time.Minute, cfg.JWT.JWTExpiresIn)
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("DB_MAX_OPEN_CONNS", "lots")
	t.Setenv("RATE_LIMIT_ENABLED", "maybe")

	cfg := Load()

	assert.Equal(t, 100, cfg.Database.MaxOpenConns)
	assert.True(t, cfg.RateLimit.Enabled)
}
