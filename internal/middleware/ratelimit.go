package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"deepthoughts/internal/auth"
	"deepthoughts/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy defines the behavior when the rate limit store (Redis) is unavailable.
type FailPolicy int

const (
	// FailOpen allows the request to proceed if Redis is unavailable.
	FailOpen FailPolicy = iota
	// FailClosed blocks the request (503 Service Unavailable) if Redis is unavailable.
	FailClosed
)

var errNilRedis = errors.New("redis client is nil")

// CheckRateLimit increments the fixed-window counter for resource/id and
// reports whether the caller is still within limit.
func CheckRateLimit(ctx context.Context, rdb redis.Cmdable, resource, id string, limit int, window time.Duration) (bool, error) {
	if rdb == nil {
		return false, errNilRedis
	}
	if limit <= 0 {
		return true, nil
	}

	key := fmt.Sprintf("rl:%s:%s", resource, id)

	cnt, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		observability.RedisErrors.WithLabelValues("incr").Inc()
		return false, err
	}
	if cnt == 1 {
		if err := rdb.Expire(ctx, key, window).Err(); err != nil {
			observability.RedisErrors.WithLabelValues("expire").Inc()
		}
	}
	return cnt <= int64(limit), nil
}

// RateLimit returns a Fiber middleware enforcing `limit` requests per `window`.
// Authenticated callers are keyed by user id, everyone else by remote IP.
func RateLimit(rdb redis.Cmdable, limit int, window time.Duration, name ...string) fiber.Handler {
	return RateLimitWithPolicy(rdb, limit, window, FailOpen, name...)
}

// RateLimitWithPolicy is RateLimit with an explicit failure policy.
func RateLimitWithPolicy(rdb redis.Cmdable, limit int, window time.Duration, policy FailPolicy, name ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := "ip:" + c.IP()
		if ac, ok := c.Locals(AuthContextLocal).(auth.AuthContext); ok {
			if ident, ok := auth.IdentityOf(ac); ok {
				id = fmt.Sprintf("user:%d", ident.UserID)
			}
		}

		resource := c.Path()
		if len(name) > 0 {
			resource = name[0]
		}

		allowed, err := CheckRateLimit(c.UserContext(), rdb, resource, id, limit, window)
		if err != nil {
			if policy == FailClosed {
				Logger.WarnContext(c.UserContext(), "rate limit unavailable",
					"resource", resource, "error", err)
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"error": "rate limit unavailable",
				})
			}
			return c.Next()
		}

		if !allowed {
			c.Set(fiber.HeaderRetryAfter, fmt.Sprintf("%d", int(window.Seconds())))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "rate limit exceeded",
			})
		}
		return c.Next()
	}
}
