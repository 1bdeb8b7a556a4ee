package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"huddle/utils"
)

// ClientIDKey is the gin context key holding the authenticated client id.
const ClientIDKey = "clientID"

// OptionalClientAuth accepts anonymous requests. A bearer token, when present,
// must be valid; its subject becomes the request's client id.
func OptionalClientAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid Authorization header"})
			return
		}
		clientID, err := utils.ExtractIDFromToken(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}
		c.Set(ClientIDKey, clientID)
		c.Next()
	}
}

// ClientID returns the authenticated client id, if any.
func ClientID(c *gin.Context) (string, bool) {
	id := c.GetString(ClientIDKey)
	return id, id != ""
}
