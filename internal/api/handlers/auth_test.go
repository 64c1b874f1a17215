package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ultrastock/backend/internal/adapters/script"
	"github.com/ultrastock/backend/internal/api/middleware"
	"github.com/ultrastock/backend/internal/infrastructure/auth"
	"github.com/ultrastock/backend/internal/infrastructure/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubDirectory struct {
	user     *script.User
	loginErr error
	getErr   error
}

func (d *stubDirectory) Login(ctx context.Context, username, password string) (*script.User, error) {
	if d.loginErr != nil {
		return nil, d.loginErr
	}
	return d.user, nil
}

func (d *stubDirectory) Register(ctx context.Context, username, password, name, phone, lineID string) (*script.User, error) {
	if d.loginErr != nil {
		return nil, d.loginErr
	}
	return d.user, nil
}

func (d *stubDirectory) GetUser(ctx context.Context, userID string) (*script.User, error) {
	if d.getErr != nil {
		return nil, d.getErr
	}
	return d.user, nil
}

func testTokens() *auth.TokenService {
	return auth.NewTokenService(config.AuthConfig{JWTSecret: "test-secret", TokenTTLDays: 7})
}

func authRouter(dir UserDirectory, tokens *auth.TokenService) *gin.Engine {
	h := NewAuthHandler(dir, tokens)
	r := gin.New()
	r.POST("/api/login", h.Login)
	r.POST("/api/register", h.Register)
	r.GET("/api/check-session", middleware.Authenticate(tokens), h.CheckSession)
	return r
}

func postJSON(r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	encoded, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(encoded))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	tokens := testTokens()
	dir := &stubDirectory{user: &script.User{
		ID:          "u1",
		Username:    "somchai",
		Role:        auth.RoleReseller,
		Permissions: map[string]bool{"canBuyWithoutCommission": true},
	}}

	w := postJSON(authRouter(dir, tokens), "/api/login",
		map[string]string{"username": "somchai", "password": "pw"})

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool   `json:"success"`
		Token   string `json:"token"`
		User    struct {
			ID   string `json:"id"`
			Role string `json:"role"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "u1", resp.User.ID)
	assert.Equal(t, auth.RoleReseller, resp.User.Role)

	claims, err := tokens.Verify(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.True(t, claims.Permissions["canBuyWithoutCommission"])
}

func TestLoginMissingCredentials(t *testing.T) {
	w := postJSON(authRouter(&stubDirectory{}, testTokens()), "/api/login",
		map[string]string{"username": "somchai"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginRejectedCredentials(t *testing.T) {
	dir := &stubDirectory{loginErr: &script.BackendError{Action: "login", Message: "invalid credentials"}}

	w := postJSON(authRouter(dir, testTokens()), "/api/login",
		map[string]string{"username": "somchai", "password": "wrong"})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid credentials")
}

func TestRegisterAutoLogin(t *testing.T) {
	dir := &stubDirectory{user: &script.User{ID: "u2", Username: "newbie", Role: auth.RoleCustomer}}

	w := postJSON(authRouter(dir, testTokens()), "/api/register",
		map[string]string{"username": "newbie", "password": "pw", "name": "New"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"token"`)
}

func TestCheckSessionRefetchesUser(t *testing.T) {
	tokens := testTokens()
	dir := &stubDirectory{user: &script.User{ID: "u1", Username: "somchai", Role: auth.RoleAdmin}}
	token, err := tokens.Issue(auth.Identity{UserID: "u1", Username: "somchai", Role: auth.RoleReseller})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/check-session", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	authRouter(dir, tokens).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	// the response reflects the directory, not the stale token claims
	assert.Contains(t, w.Body.String(), auth.RoleAdmin)
}

func TestCheckSessionGoneUser(t *testing.T) {
	tokens := testTokens()
	dir := &stubDirectory{getErr: &script.BackendError{Action: "getUser", Message: "not found"}}
	token, err := tokens.Issue(auth.Identity{UserID: "u1", Username: "ghost", Role: auth.RoleCustomer})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/check-session", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	authRouter(dir, tokens).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Session expired")
}
