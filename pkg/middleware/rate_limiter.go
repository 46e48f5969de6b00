package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/zap"
)

// RateLimitMiddleware limits requests per client IP. rate uses the
// "<limit>-<period>" format, e.g. "600-M" or "10-S".
func RateLimitMiddleware(rate string, logger *zap.Logger) (gin.HandlerFunc, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit %q: %w", rate, err)
	}

	instance := limiter.New(memory.NewStore(), r)
	return mgin.NewMiddleware(instance,
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			logger.Warn("Rate limit exceeded",
				zap.String("ip", c.ClientIP()),
				zap.String("path", c.Request.URL.Path))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":  http.StatusTooManyRequests,
				"msg":   "Too many requests, please slow down",
				"data":  nil,
				"error": "RATE_LIMITED",
			})
		}),
	), nil
}
