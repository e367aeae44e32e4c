package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Context keys set by Middleware.
const (
	ContextUserID   = "userID"
	ContextEmail    = "userEmail"
	ContextUsername = "username"
)

// AnonymousUser is the caller when no verifier is configured.
const AnonymousUser = "anonymous"

// Middleware requires a valid bearer token. With a nil verifier every request
// runs as AnonymousUser.
func Middleware(v *Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if v == nil {
			c.Set(ContextUserID, AnonymousUser)
			c.Next()
			return
		}

		token, ok := bearerToken(c.Request)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or malformed authorization header"})
			return
		}

		claims, err := v.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(ContextUserID, claims.Subject)
		c.Set(ContextEmail, claims.Email)
		c.Set(ContextUsername, claims.Username)
		c.Next()
	}
}

// bearerToken reads the Authorization header, falling back to the "token"
// query parameter for websocket upgrades, which cannot set headers.
func bearerToken(r *http.Request) (string, bool) {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	}
	if t := r.URL.Query().Get("token"); t != "" {
		return t, true
	}
	return "", false
}

// UserID returns the caller set by Middleware.
func UserID(c *gin.Context) string {
	if id := c.GetString(ContextUserID); id != "" {
		return id
	}
	return AnonymousUser
}
