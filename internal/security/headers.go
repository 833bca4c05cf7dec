package security

import (
	"os"

	"github.com/gin-gonic/gin"
)

// SecurityHeaders adds standard security headers to all responses
func (sm *SecurityMiddleware) SecurityHeaders(c *gin.Context) {
	c.Header("X-Frame-Options", "DENY")
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
	c.Header("Permissions-Policy", "geolocation=(), microphone=(), camera=()")

	// HSTS only where HTTPS is actually terminated here
	if os.Getenv("ENABLE_HSTS") == "true" {
		c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
	}

	c.Next()
}
