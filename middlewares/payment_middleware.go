package middlewares

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iqbalhamzah/dinelink/utils"
	"golang.org/x/time/rate"
)

// PaymentRateLimiter caps settlement attempts; the ledger is append-only
// so a runaway client must not be able to hammer it.
func PaymentRateLimiter() gin.HandlerFunc {
	limiter := rate.NewLimiter(rate.Every(time.Second), 10)
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.JSON(429, gin.H{
				"error":   "Too many requests",
				"message": "Please wait before making another payment request",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// LogPaymentRequest audits every call into the payment endpoints.
func LogPaymentRequest() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		utils.InfoLogger.Printf(
			"Payment Request - Method: %s, Path: %s, Status: %d, Duration: %v",
			method, path, c.Writer.Status(), time.Since(start),
		)
	}
}
