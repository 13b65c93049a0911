package middleware

import (
	"errors"
	"strings"

	"ai-tutor-backend/internal/auth"
	"ai-tutor-backend/utils"

	"github.com/gin-gonic/gin"
)

// RequireAdmin guards write and maintenance routes with an admin bearer
// token. With no secret configured every request is refused.
func RequireAdmin(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			utils.RespondWithForbidden(c, "Admin API is disabled")
			c.Abort()
			return
		}

		tokenString := extractBearer(c.GetHeader("Authorization"))
		if tokenString == "" {
			utils.RespondWithUnauthorized(c, "Authentication token is required")
			c.Abort()
			return
		}

		claims, err := auth.ValidateAdminToken(secret, tokenString)
		if errors.Is(err, auth.ErrNotAdmin) {
			utils.RespondWithForbidden(c, "Admin role required")
			c.Abort()
			return
		}
		if err != nil {
			utils.RespondWithUnauthorized(c, "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set("claims", claims)
		c.Next()
	}
}

// GetAdminSubject returns the subject of the verified admin token, if any
func GetAdminSubject(c *gin.Context) string {
	if v, ok := c.Get("claims"); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims.Subject
		}
	}
	return ""
}

func extractBearer(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
