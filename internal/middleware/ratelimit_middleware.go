package middleware

import (
	"context"
	"net/http"
	"strconv"

	"wsecho/internal/redis"
	"wsecho/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

// HandshakeLimiter is satisfied by *redis.RateLimiter.
type HandshakeLimiter interface {
	AllowHandshake(ctx context.Context, ip string) (*redis.RateLimitResult, error)
}

// WebSocketRateLimitMiddleware limits WebSocket handshakes per client IP.
// A nil limiter disables the check.
func WebSocketRateLimitMiddleware(limiter HandshakeLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		result, err := limiter.AllowHandshake(c.Request.Context(), c.ClientIP())
		if err != nil {
			c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse("rate limit error", httpdto.CodeInternal))
			c.Abort()
			return
		}

		setRateLimitHeaders(c, result)

		if !result.Allowed {
			c.JSON(http.StatusTooManyRequests, httpdto.NewErrorResponse("connection rate limit exceeded", httpdto.CodeRateLimited))
			c.Abort()
			return
		}

		c.Next()
	}
}

// setRateLimitHeaders sets standard rate limit response headers
func setRateLimitHeaders(c *gin.Context, result *redis.RateLimitResult) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(int64(result.ResetIn.Seconds()), 10))
}
