// Package middleware holds the cross-cutting HTTP concerns: bearer-token
// authentication, role gating and request logging.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ultrastock/backend/internal/api/dto"
	"github.com/ultrastock/backend/internal/infrastructure/auth"
)

// claimsKey is where Authenticate stashes the verified claims on the
// request context.
const claimsKey = "session.claims"

// Authenticate verifies the bearer token and attaches its claims to the
// request. A missing token is 401; a bad or expired one is 403,
// matching what the frontend distinguishes between "log in" and
// "session invalid".
func Authenticate(tokens *auth.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.Error("Token required"))
			return
		}

		claims, err := tokens.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, dto.Error("Invalid token"))
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireRole gates a route to the given roles. Must run after
// Authenticate.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(c *gin.Context) {
		claims := Principal(c)
		if claims == nil || !allowed[claims.Role] {
			c.AbortWithStatusJSON(http.StatusForbidden, dto.Error("Permission denied"))
			return
		}
		c.Next()
	}
}

// Principal returns the authenticated claims, or nil on routes that ran
// without Authenticate.
func Principal(c *gin.Context) *auth.Claims {
	value, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, ok := value.(*auth.Claims)
	if !ok {
		return nil
	}
	return claims
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return header[len(prefix):]
	}
	return ""
}
