package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/channelgate/channelgate/internal/infrastructure/ratelimit"
	"github.com/channelgate/channelgate/internal/shared/logger"
	"github.com/channelgate/channelgate/internal/shared/utils"
)

// RateLimit throttles per client IP. Redis failures let the request through.
func RateLimit(limiter ratelimit.RateLimiter, cfg ratelimit.Config, scope string, log logger.Interface) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, err := limiter.Allow(c.Request.Context(), scope+":"+c.ClientIP(), cfg)
		if err != nil {
			log.Warnw("rate limiter unavailable", "error", err, "scope", scope)
			c.Next()
			return
		}
		if !allowed {
			utils.ErrorResponse(c, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
			c.Abort()
			return
		}
		c.Next()
	}
}
