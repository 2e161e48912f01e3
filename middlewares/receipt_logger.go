package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/iqbalhamzah/dinelink/utils"
)

// ReceiptLoggerMiddleware leaves an audit line around receipt lookups.
func ReceiptLoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		utils.InfoLogger.Printf("Generating receipt for payment ID: %s", c.Param("payment_id"))

		c.Next()

		if c.Writer.Status() == 200 {
			utils.InfoLogger.Printf("Receipt generated for payment ID: %s", c.Param("payment_id"))
		} else {
			utils.ErrorLogger.Printf("Failed to generate receipt for payment ID: %s", c.Param("payment_id"))
		}
	}
}
