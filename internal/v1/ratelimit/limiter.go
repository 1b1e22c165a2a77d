// Package ratelimit implements HTTP rate limiting backed by an in-memory
// store. The WebSocket event stream is not limited here; the only per-event
// shaping is the cursor throttle in the session package.
package ratelimit

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/sp201004/CollabCanvas/backend/go/internal/v1/config"
	"github.com/sp201004/CollabCanvas/backend/go/internal/v1/metrics"
)

// RateLimiter holds the rate limiter instances
type RateLimiter struct {
	apiGlobal *limiter.Limiter
	apiPublic *limiter.Limiter
	store     limiter.Store
}

// NewRateLimiter creates a new RateLimiter instance
func NewRateLimiter(cfg *config.Config) (*RateLimiter, error) {
	apiGlobalRate, err := limiter.NewRateFromFormatted(cfg.RateLimitAPIGlobal)
	if err != nil {
		return nil, fmt.Errorf("invalid API global rate: %w", err)
	}

	apiPublicRate, err := limiter.NewRateFromFormatted(cfg.RateLimitAPIPublic)
	if err != nil {
		return nil, fmt.Errorf("invalid API public rate: %w", err)
	}

	store := memory.NewStore()

	return &RateLimiter{
		apiGlobal: limiter.New(store, apiGlobalRate),
		apiPublic: limiter.New(store, apiPublicRate),
		store:     store,
	}, nil
}

// GlobalMiddleware returns a Gin middleware that enforces per-IP limits on
// the HTTP surface.
func (rl *RateLimiter) GlobalMiddleware() gin.HandlerFunc {
	return rl.middleware(rl.apiGlobal, "api_global")
}

// PublicMiddleware applies the tighter unauthenticated limit, used on the
// health endpoint.
func (rl *RateLimiter) PublicMiddleware() gin.HandlerFunc {
	return rl.middleware(rl.apiPublic, "api_public")
}

func (rl *RateLimiter) middleware(l *limiter.Limiter, endpoint string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()

		limiterCtx, err := l.Get(c.Request.Context(), key)
		if err != nil {
			// Fail open; limiting is protective, not load-bearing.
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", limiterCtx.Limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", limiterCtx.Remaining))

		if limiterCtx.Reached {
			metrics.RateLimitExceeded.WithLabelValues(endpoint, "ip").Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}

		c.Next()
	}
}
