package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/phonginreallife/leadtriage/services"
)

type AuthMiddleware struct {
	Auth *services.AuthService
}

func NewAuthMiddleware(auth *services.AuthService) *AuthMiddleware {
	return &AuthMiddleware{Auth: auth}
}

// RequireAuth validates the bearer token and stores user_id, user_email and user_role
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := m.Auth.ExtractTokenFromHeader(c.GetHeader("Authorization"))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			c.Abort()
			return
		}

		claims, err := m.Auth.ValidateToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token: " + err.Error()})
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("user_email", claims.Email)
		c.Set("user_role", claims.Role)
		c.Next()
	}
}

// RequireSLAOverride only lets admins and managers through
func RequireSLAOverride() gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString("user_role")
		if !services.CanOverrideSLA(role) {
			log.Printf("WARNING: user %s (role %q) tried to change a manual SLA status", c.GetString("user_id"), role)
			c.JSON(http.StatusForbidden, gin.H{"error": "Only admins and managers can change SLA status"})
			c.Abort()
			return
		}
		c.Next()
	}
}
