package constants

import (
	"fmt"
	"time"
)

// Redis cache keys and TTLs.
// Pattern: parkly:{module}:{operation}:{identifier}

const (
	CACHE_PREFIX = "parkly"
)

// Cache TTLs
const (
	TTL_GARAGE_DETAIL = 30 * time.Minute
	TTL_GARAGE_LIST   = 5 * time.Minute
)

// ================== GARAGES MODULE ==================

const (
	CACHE_KEY_GARAGE_DETAIL = CACHE_PREFIX + ":garages:detail:uuid:" // + garage-id
	CACHE_KEY_GARAGES_LIST  = CACHE_PREFIX + ":garages:list"         // + :page:X:limit:Y
)

// ================== RATE LIMIT ==================

const (
	KEY_PREFIX_RATE_LIMIT = CACHE_PREFIX + ":ratelimit"
)

// GarageDetailKey returns the cache key for a single garage
func GarageDetailKey(garageID string) string {
	return CACHE_KEY_GARAGE_DETAIL + garageID
}

// GarageListKey returns the cache key for a page of active garages
func GarageListKey(page, limit int) string {
	return fmt.Sprintf("%s:page:%d:limit:%d", CACHE_KEY_GARAGES_LIST, page, limit)
}

// GarageListPattern matches every cached garage listing page
func GarageListPattern() string {
	return CACHE_KEY_GARAGES_LIST + ":*"
}

// RateLimitKey returns the sliding window key for a client and limit type
func RateLimitKey(clientIP, limitType string) string {
	return fmt.Sprintf("%s:%s:%s", KEY_PREFIX_RATE_LIMIT, clientIP, limitType)
}
