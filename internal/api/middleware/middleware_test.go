package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ultrastock/backend/internal/infrastructure/auth"
	"github.com/ultrastock/backend/internal/infrastructure/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTokenService() *auth.TokenService {
	return auth.NewTokenService(config.AuthConfig{JWTSecret: "test-secret", TokenTTLDays: 7})
}

func protectedRouter(tokens *auth.TokenService, roles ...string) *gin.Engine {
	r := gin.New()
	group := r.Group("/", Authenticate(tokens))
	if len(roles) > 0 {
		group.Use(RequireRole(roles...))
	}
	group.GET("/ping", func(c *gin.Context) {
		claims := Principal(c)
		c.JSON(http.StatusOK, gin.H{"user": claims.Username})
	})
	return r
}

func doRequest(r *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthenticateMissingToken(t *testing.T) {
	w := doRequest(protectedRouter(newTokenService()), "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Token required")
}

func TestAuthenticateInvalidToken(t *testing.T) {
	w := doRequest(protectedRouter(newTokenService()), "not-a-token")

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid token")
}

func TestAuthenticateValidToken(t *testing.T) {
	tokens := newTokenService()
	token, err := tokens.Issue(auth.Identity{UserID: "u1", Username: "somchai", Role: auth.RoleReseller})
	require.NoError(t, err)

	w := doRequest(protectedRouter(tokens), token)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "somchai")
}

func TestRequireRoleDenied(t *testing.T) {
	tokens := newTokenService()
	token, err := tokens.Issue(auth.Identity{UserID: "u1", Username: "somchai", Role: auth.RoleReseller})
	require.NoError(t, err)

	w := doRequest(protectedRouter(tokens, auth.RoleOwner), token)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Permission denied")
}

func TestRequireRoleAllowsAnyListed(t *testing.T) {
	tokens := newTokenService()
	token, err := tokens.Issue(auth.Identity{UserID: "u1", Username: "boss", Role: auth.RoleSuperAdmin})
	require.NoError(t, err)

	w := doRequest(protectedRouter(tokens, auth.RoleOwner, auth.RoleSuperAdmin), token)

	assert.Equal(t, http.StatusOK, w.Code)
}
