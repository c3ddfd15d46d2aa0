// Package cache holds the process-wide Redis client. Besides the prompt,
// catalog and settings caches in this package, the same client backs rate
// limits, session revocation, websocket tickets and inbox push.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"promptlime/internal/middleware"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 5 * time.Second

var client *redis.Client

// errorCounter feeds redis_errors_total. A cache miss (redis.Nil) is not an error.
type errorCounter struct{}

func (errorCounter) DialHook(next redis.DialHook) redis.DialHook { return next }

func (errorCounter) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		countFailure(cmd.Name(), err)
		return err
	}
}

func (errorCounter) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		countFailure("pipeline", err)
		return err
	}
}

func countFailure(command string, err error) {
	if err != nil && !errors.Is(err, redis.Nil) {
		middleware.RedisErrors.WithLabelValues(command).Inc()
	}
}

// options accepts either a redis:// URL or a bare host:port.
func options(addr string) (*redis.Options, error) {
	if !strings.Contains(addr, "://") {
		return &redis.Options{Addr: addr}, nil
	}
	return redis.ParseURL(addr)
}

// InitRedis connects to REDIS_URL. On a bad URL or a failed ping the client
// stays nil: caches fall through to the database, rate limits fail open and
// realtime push is off.
func InitRedis(addr string) {
	client = nil
	opts, err := options(addr)
	if err != nil {
		middleware.Logger.Warn("invalid REDIS_URL, running without redis", slog.String("error", err.Error()))
		return
	}

	c := redis.NewClient(opts)
	c.AddHook(errorCounter{})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		middleware.Logger.Warn("redis unreachable, running without redis",
			slog.String("addr", opts.Addr), slog.String("error", err.Error()))
		_ = c.Close()
		return
	}
	middleware.Logger.Info("redis connected", slog.String("addr", opts.Addr), slog.Int("db", opts.DB))
	client = c
}

// GetClient returns the shared client, or nil when Redis is unavailable.
func GetClient() *redis.Client {
	return client
}

// SetClient swaps the shared client, e.g. for a miniredis instance in tests.
func SetClient(c *redis.Client) {
	client = c
}
