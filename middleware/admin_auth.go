package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/storefront/services"
)

const AdminClaimsKey = "admin_claims"

// TokenParser is satisfied by services.AuthService.
type TokenParser interface {
	ParseToken(token string) (*services.AdminClaims, error)
}

// AdminAuth requires a valid admin bearer token.
func AdminAuth(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		claims, err := parser.ParseToken(strings.TrimSpace(token))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(AdminClaimsKey, claims)
		c.Next()
	}
}
