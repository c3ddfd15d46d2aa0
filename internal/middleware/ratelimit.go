// Package middleware provides request logging, tracing, metrics, rate limiting
// and session token handling for the HTTP layer.
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

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

// KeyFunc derives the rate limit identity for a request.
type KeyFunc func(c *fiber.Ctx) string

// rateLimitBypassed reports whether limits are disabled for the running environment.
func rateLimitBypassed() bool {
	switch os.Getenv("APP_ENV") {
	case "", "test", "development", "stress":
		return true
	}
	return false
}

// CheckRateLimit checks if a resource has exceeded its rate limit.
// Returns true if allowed, false if limit exceeded.
func CheckRateLimit(ctx context.Context, rdb *redis.Client, resource, id string, limit int, window time.Duration) (bool, error) {
	if rateLimitBypassed() {
		return true, nil
	}
	return countHit(ctx, rdb, resource, id, limit, window)
}

func countHit(ctx context.Context, rdb *redis.Client, resource, id string, limit int, window time.Duration) (bool, error) {
	if rdb == nil {
		return false, fmt.Errorf("redis client is nil")
	}

	key := fmt.Sprintf("rl:%s:%s", resource, id)

	cnt, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if cnt == 1 {
		rdb.Expire(ctx, key, window)
	}
	return cnt <= int64(limit), nil
}

// ByUserOrIP keys by authenticated user when present, otherwise by remote IP.
func ByUserOrIP(c *fiber.Ctx) string {
	if uid := c.Locals("userID"); uid != nil {
		return fmt.Sprintf("user:%v", uid)
	}
	return "ip:" + c.IP()
}

// ByIPAndParam keys by remote IP plus a route parameter, so one visitor is
// throttled per resource rather than globally.
func ByIPAndParam(param string) KeyFunc {
	return func(c *fiber.Ctx) string {
		return fmt.Sprintf("ip:%s:%s", c.IP(), c.Params(param))
	}
}

// RateLimit returns a Fiber middleware enforcing `limit` requests per `window`
// keyed by user or IP, failing open.
func RateLimit(rdb *redis.Client, limit int, window time.Duration, name string) fiber.Handler {
	return RateLimitWithPolicy(rdb, limit, window, FailOpen, name, ByUserOrIP)
}

// RateLimitWithPolicy returns a Fiber middleware with an explicit failure policy and key function.
func RateLimitWithPolicy(rdb *redis.Client, limit int, window time.Duration, policy FailPolicy, name string, key KeyFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		resource := name
		if resource == "" {
			resource = c.Path()
		}

		allowed, err := CheckRateLimit(c.UserContext(), rdb, resource, key(c), limit, window)
		if err != nil {
			if policy == FailClosed {
				Logger.WarnContext(c.UserContext(), "rate limit store unavailable",
					slog.String("resource", resource), slog.String("error", err.Error()))
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"error": "rate limit unavailable",
				})
			}
			return c.Next()
		}

		if !allowed {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "rate limit exceeded",
			})
		}
		return c.Next()
	}
}

// SilentThrottle is like RateLimit but reports throttled requests as a
// successful no-op. It is used for counters where refusing loudly would
// only invite retries.
func SilentThrottle(rdb *redis.Client, limit int, window time.Duration, name string, key KeyFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		allowed, err := CheckRateLimit(c.UserContext(), rdb, name, key(c), limit, window)
		if err == nil && !allowed {
			return c.JSON(fiber.Map{"counted": false})
		}
		return c.Next()
	}
}
