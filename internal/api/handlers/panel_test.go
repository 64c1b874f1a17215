package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ultrastock/backend/internal/api/middleware"
	"github.com/ultrastock/backend/internal/infrastructure/auth"
)

func panelRouter(backend Backend, identity auth.Identity) *gin.Engine {
	tokens := testTokens()
	token, _ := tokens.Issue(identity)

	h := NewPanelHandler(backend)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Request.Header.Set("Authorization", "Bearer "+token)
		c.Next()
	})
	group := r.Group("/api", middleware.Authenticate(tokens))
	group.GET("/dashboard", h.Dashboard)
	group.POST("/orders", h.CreateOrder)
	group.GET("/admin-commission/:userId", h.AdminCommission)
	return r
}

func reseller() auth.Identity {
	return auth.Identity{UserID: "u1", Username: "somchai", Role: auth.RoleReseller}
}

func TestDashboardForwardsCallerIdentity(t *testing.T) {
	backend := &stubBackend{raw: `{"success":true,"stats":{}}`}

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	w := httptest.NewRecorder()
	panelRouter(backend, reseller()).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "getDashboardStats", backend.lastAction)
}

func TestCreateOrderStockSaleNeedsPermission(t *testing.T) {
	backend := &stubBackend{raw: `{"success":true}`}

	w := postJSON(panelRouter(backend, reseller()), "/api/orders",
		map[string]any{"subEmailIds": []string{"s1"}, "saleType": "stock"})

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, backend.lastAction, "backend must not be called")
}

func TestCreateOrderStockSaleWithPermission(t *testing.T) {
	backend := &stubBackend{raw: `{"success":true}`}
	identity := reseller()
	identity.Permissions = map[string]bool{"canBuyWithoutCommission": true}

	w := postJSON(panelRouter(backend, identity), "/api/orders",
		map[string]any{"subEmailIds": []string{"s1"}, "saleType": "stock"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "createOrder", backend.lastAction)
}

func TestCreateOrderDirectSaleAllowed(t *testing.T) {
	backend := &stubBackend{raw: `{"success":true}`}

	w := postJSON(panelRouter(backend, reseller()), "/api/orders",
		map[string]any{"subEmailIds": []string{"s1"}, "saleType": "direct"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "createOrder", backend.lastAction)
}

func TestAdminCommissionSelfOnly(t *testing.T) {
	backend := &stubBackend{raw: `{"success":true}`}
	router := panelRouter(backend, reseller())

	req := httptest.NewRequest(http.MethodGet, "/api/admin-commission/other-user", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/admin-commission/u1", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminCommissionOwnerSeesAnyone(t *testing.T) {
	backend := &stubBackend{raw: `{"success":true}`}
	owner := auth.Identity{UserID: "boss", Username: "boss", Role: auth.RoleOwner}

	req := httptest.NewRequest(http.MethodGet, "/api/admin-commission/u1", nil)
	w := httptest.NewRecorder()
	panelRouter(backend, owner).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "getAdminCommissionStats", backend.lastAction)
}
