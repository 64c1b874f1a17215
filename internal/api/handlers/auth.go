package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ultrastock/backend/internal/adapters/script"
	"github.com/ultrastock/backend/internal/api/dto"
	"github.com/ultrastock/backend/internal/api/middleware"
	"github.com/ultrastock/backend/internal/infrastructure/auth"
)

// AuthHandler implements login, register and session checks.
type AuthHandler struct {
	users  UserDirectory
	tokens *auth.TokenService
}

// NewAuthHandler creates the auth handler.
func NewAuthHandler(users UserDirectory, tokens *auth.TokenService) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens}
}

// Login checks credentials against the directory and issues a session
// token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, dto.Error("Username and password required"))
		return
	}
	if h.users == nil {
		c.JSON(http.StatusServiceUnavailable, dto.Error("stock backend is not configured"))
		return
	}

	user, err := h.users.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		var berr *script.BackendError
		if errors.As(err, &berr) {
			c.JSON(http.StatusUnauthorized, dto.Error(berr.Message))
			return
		}
		c.JSON(http.StatusBadGateway, dto.Error("stock backend unreachable"))
		return
	}

	h.issueSession(c, user)
}

// Register creates a customer account and logs it in immediately.
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, dto.Error("Username and password required"))
		return
	}
	if h.users == nil {
		c.JSON(http.StatusServiceUnavailable, dto.Error("stock backend is not configured"))
		return
	}

	user, err := h.users.Register(c.Request.Context(), req.Username, req.Password, req.Name, req.Phone, req.LineID)
	if err != nil {
		var berr *script.BackendError
		if errors.As(err, &berr) {
			c.JSON(http.StatusBadRequest, dto.Error(berr.Message))
			return
		}
		c.JSON(http.StatusBadGateway, dto.Error("stock backend unreachable"))
		return
	}

	h.issueSession(c, user)
}

// CheckSession re-reads the account behind the token, so a deleted or
// demoted user loses access without waiting for token expiry.
func (h *AuthHandler) CheckSession(c *gin.Context) {
	claims := middleware.Principal(c)
	if claims == nil || h.users == nil {
		c.JSON(http.StatusUnauthorized, dto.Error("Session expired"))
		return
	}

	user, err := h.users.GetUser(c.Request.Context(), claims.UserID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, dto.Error("Session expired"))
		return
	}

	c.JSON(http.StatusOK, dto.SessionResponse{Success: true, User: sessionUser(user)})
}

func (h *AuthHandler) issueSession(c *gin.Context, user *script.User) {
	token, err := h.tokens.Issue(auth.Identity{
		UserID:      user.ID,
		Username:    user.Username,
		Role:        user.Role,
		Permissions: user.Permissions,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.Error("could not create session"))
		return
	}

	c.JSON(http.StatusOK, dto.LoginResponse{Success: true, Token: token, User: sessionUser(user)})
}

func sessionUser(user *script.User) dto.SessionUser {
	permissions := user.Permissions
	if permissions == nil {
		permissions = map[string]bool{}
	}
	return dto.SessionUser{
		ID:          user.ID,
		Username:    user.Username,
		Role:        user.Role,
		Permissions: permissions,
	}
}
