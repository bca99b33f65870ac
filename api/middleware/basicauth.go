package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// BasicAuthConfig holds the single credential pair the ingestion endpoints
// accept.
type BasicAuthConfig struct {
	User     string
	Password string
}

// BasicAuthMiddleware creates a middleware function to validate HTTP basic
// auth credentials. Comparison is constant-time.
func BasicAuthMiddleware(config BasicAuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, password, ok := c.Request.BasicAuth()
		if !ok {
			c.Header("WWW-Authenticate", `Basic realm="mailvault"`)
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Missing credentials",
			})
			c.Abort()
			return
		}

		userOK := subtle.ConstantTimeCompare([]byte(user), []byte(config.User)) == 1
		passOK := subtle.ConstantTimeCompare([]byte(password), []byte(config.Password)) == 1
		if !userOK || !passOK {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid credentials",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
