package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RateLimiter caps how many events an organization may submit per window.
// Each accepted event is a member of a sorted set scored by its arrival
// time; a Lua script trims, counts and adds atomically.
type RateLimiter struct {
	redisClient *redis.Client
	logger      *slog.Logger
	window      time.Duration
}

// KEYS[1] set, ARGV now ms, window ms, limit, member. Returns 1 if admitted.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)

if redis.call('ZCARD', key) < limit then
    redis.call('ZADD', key, now, member)
    redis.call('PEXPIRE', key, window + 1000)
    return 1
end
return 0
`)

// NewRateLimiter creates a limiter counting events over window (one second
// when window is not positive).
func NewRateLimiter(redisClient *redis.Client, window time.Duration, logger *slog.Logger) *RateLimiter {
	if window <= 0 {
		window = time.Second
	}
	return &RateLimiter{
		redisClient: redisClient,
		logger:      logger,
		window:      window,
	}
}

// OrganizationKey names the limiter bucket of an organization.
func OrganizationKey(organizationID int64) string {
	return fmt.Sprintf("organization:%d", organizationID)
}

func rlKey(bucket string) string {
	return fmt.Sprintf("rl:%s", bucket)
}

// Allow reports whether one more event fits in the bucket. A limit of zero
// or less disables limiting. Redis failures admit the event.
func (rl *RateLimiter) Allow(ctx context.Context, bucket string, limit int) bool {
	if limit <= 0 {
		return true
	}

	now := time.Now().UnixMilli()
	result, err := slidingWindowScript.Run(ctx, rl.redisClient, []string{rlKey(bucket)},
		now, rl.window.Milliseconds(), limit, uuid.NewString(),
	).Int64()
	if err != nil {
		rl.logger.Error("rate limiter script failed", "error", err, "bucket", bucket)
		return true
	}

	if result == 0 {
		rl.logger.Debug("rate limited", "bucket", bucket, "limit", limit)
		return false
	}
	return true
}
