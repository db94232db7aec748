package security

import (
	"context"
	"fmt"
	"time"

	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"
)

// RateLimiter throttles mutation endpoints with per-identity counters in
// Redis, keyed by user id for authenticated requests and by IP otherwise.
type RateLimiter struct {
	redis  *redis.Client
	limit  int64
	window time.Duration
}

func NewRateLimiter(redisClient *redis.Client, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		redis:  redisClient,
		limit:  int64(limit),
		window: window,
	}
}

// Allow counts one request for identity and reports whether it is still
// under the limit. Redis failures fail open: throttling is protection,
// not a correctness dependency.
func (r *RateLimiter) Allow(ctx context.Context, identity string) bool {
	key := fmt.Sprintf("ratelimit:mutation:%s", identity)

	count, err := r.redis.Incr(ctx, key).Result()
	if err != nil {
		return true
	}
	if count == 1 {
		r.redis.Expire(ctx, key, r.window)
	}

	return count <= r.limit
}

// MutationRateLimit is the route middleware guarding mutating endpoints.
func (r *RateLimiter) MutationRateLimit() func(e *core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		identity := e.RealIP()
		if e.Auth != nil {
			identity = fmt.Sprintf("user:%s", e.Auth.Id)
		}

		if !r.Allow(e.Request.Context(), identity) {
			return e.JSON(429, map[string]string{
				"error": "Rate limit exceeded. Please try again later.",
			})
		}

		return e.Next()
	}
}
