package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

const DefaultRequestsPerSecond = 10

// RateLimit allows perSecond requests per client IP. Zero uses the default.
func RateLimit(perSecond int64) gin.HandlerFunc {
	if perSecond <= 0 {
		perSecond = DefaultRequestsPerSecond
	}
	rateLimiter := limiter.New(memory.NewStore(), limiter.Rate{
		Period: 1 * time.Second,
		Limit:  perSecond,
	})
	return mgin.NewMiddleware(rateLimiter)
}
