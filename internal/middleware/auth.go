package middleware

import (
	"net/http"
	"strings"

	"sika/config"
	"sika/internal/auth"

	"github.com/gin-gonic/gin"
)

// AuthRequired validates the bearer token and sets agent_id, email and role
// in the request context.
func AuthRequired(cfg *config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		claims, err := auth.ParseAccessToken(cfg, parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		c.Set("agent_id", claims.AgentID)
		c.Set("email", claims.Email)
		c.Set("role", claims.Role)
		c.Next()
	}
}

// GetAgentID returns the authenticated agent ID (must run after AuthRequired).
func GetAgentID(c *gin.Context) uint {
	v, _ := c.Get("agent_id")
	if v == nil {
		return 0
	}
	return v.(uint)
}
