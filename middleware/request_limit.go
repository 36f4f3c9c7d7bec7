package middleware

import (
	"github.com/gin-gonic/gin"

	"rag-platform/utils"
)

// RequestSizeLimit rejects request bodies larger than maxSize bytes before
// the handler touches them.
func RequestSizeLimit(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxSize {
			utils.Respond(c, utils.TooLarge("Request body exceeds maximum size."))
			c.Abort()
			return
		}
		c.Next()
	}
}
