package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// ContextKeyClaims is the key for storing validated claims in gin context
	ContextKeyClaims = "authClaims"
	// ContextKeySubject is the key for storing the authenticated subject
	ContextKeySubject = "authSubject"
)

// RequireJWT rejects requests without a valid bearer token and stores the
// validated claims in the gin context.
func RequireJWT(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Missing or invalid Authorization header",
			})
			return
		}

		tokenString := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		claims, err := m.ValidateToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":  "Invalid token",
				"detail": err.Error(),
			})
			return
		}

		c.Set(ContextKeyClaims, claims)
		c.Set(ContextKeySubject, claims.Subject)
		c.Next()
	}
}

// GetClaims returns the validated claims from context (if authenticated)
func GetClaims(c *gin.Context) (*Claims, bool) {
	v, exists := c.Get(ContextKeyClaims)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*Claims)
	return claims, ok
}

// Subject returns the authenticated subject, or "" when unauthenticated.
func Subject(c *gin.Context) string {
	v, exists := c.Get(ContextKeySubject)
	if !exists {
		return ""
	}
	s, _ := v.(string)
	return s
}
