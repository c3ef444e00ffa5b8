package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"face-score/internal/apierr"
	"face-score/internal/ratelimit"
)

// RateLimit applies the fixed-window policy for route to every request,
// keyed by client IP. Rate headers are set on every response.
func RateLimit(l *ratelimit.Limiter, route string, p ratelimit.Policy) gin.HandlerFunc {
	return func(c *gin.Context) {
		res := l.Allow(c.Request.Context(), ratelimit.ClientIP(c.Request), route, p)

		reset := int(res.Reset / time.Second)
		retryAfter := int(res.RetryAfter / time.Second)

		h := c.Writer.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		h.Set("X-RateLimit-Reset", strconv.Itoa(reset))

		if res.Allowed {
			c.Next()
			return
		}

		h.Set("Retry-After", strconv.Itoa(retryAfter))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"success":    false,
			"code":       apierr.KindRateLimited,
			"error":      "too many requests, please try again later",
			"limit":      res.Limit,
			"remaining":  res.Remaining,
			"reset":      reset,
			"retryAfter": retryAfter,
		})
	}
}
