package session

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const contextKey = "portal_session"

// Middleware resolves the session from a Bearer token, or from the token
// query parameter for WebSocket upgrades.
func Middleware(store *Store, tokens *TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.Query("token")
		if header := c.GetHeader("Authorization"); header != "" {
			if !strings.HasPrefix(header, "Bearer ") {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header"})
				return
			}
			raw = strings.TrimPrefix(header, "Bearer ")
		}
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Session token is required"})
			return
		}

		id, err := tokens.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid session token"})
			return
		}
		sess, ok := store.Get(id)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": ErrNotFound.Error()})
			return
		}

		Bind(c, sess)
		c.Next()
	}
}

// Bind stores sess on the request context.
func Bind(c *gin.Context, sess *Session) {
	c.Set(contextKey, sess)
}

// FromContext returns the session resolved by Middleware.
func FromContext(c *gin.Context) *Session {
	v, ok := c.Get(contextKey)
	if !ok {
		return nil
	}
	sess, _ := v.(*Session)
	return sess
}
