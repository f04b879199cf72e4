package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	apperrors "github.com/spec-kit/municipal-requests/pkg/util"
)

// Limiter implements a fixed-window counter backed by Redis. When Redis
// is unreachable requests are allowed through; throttling is a
// protection layer, not a correctness requirement.
type Limiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	logger *zap.Logger
}

// NewLimiter constructs a limiter allowing limit requests per window.
func NewLimiter(client *redis.Client, limit int, window time.Duration, logger *zap.Logger) *Limiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Limiter{client: client, limit: limit, window: window, logger: logger}
}

// Allow reports whether the caller identified by key may proceed.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	if l.client == nil || l.limit <= 0 {
		return true, nil
	}

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return true, err
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return true, err
		}
	}
	return count <= int64(l.limit), nil
}

// Middleware throttles requests keyed by client IP under the given
// prefix.
func (l *Limiter) Middleware(prefix string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := fmt.Sprintf("ratelimit:%s:%s", prefix, c.IP())
		allowed, err := l.Allow(c.Context(), key)
		if err != nil {
			l.logger.Warn("rate limiter unavailable", zap.Error(err))
		}
		if !allowed {
			return apperrors.NewRateLimited("too many requests, try again later")
		}
		return c.Next()
	}
}
