package middlewares

import (
	"github.com/gin-gonic/gin"
)

// The API only ever returns JSON, so nothing needs to be loadable from its responses.
const apiCSP = "default-src 'none'; frame-ancestors 'none'"

func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "no-referrer")
		c.Header("Cache-Control", "no-store")
		c.Header("Content-Security-Policy", apiCSP)
		c.Next()
	}
}
