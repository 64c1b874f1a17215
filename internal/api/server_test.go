package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ultrastock/backend/internal/adapters/script"
	"github.com/ultrastock/backend/internal/application/payment"
	"github.com/ultrastock/backend/internal/domain/reconcile"
	"github.com/ultrastock/backend/internal/infrastructure/auth"
	"github.com/ultrastock/backend/internal/infrastructure/config"
)

type fakeBackend struct {
	lastAction string
}

func (b *fakeBackend) Call(ctx context.Context, action string, payload script.Payload) (*script.Response, error) {
	b.lastAction = action
	return &script.Response{Success: true, Raw: []byte(`{"success":true}`)}, nil
}

type nopVerifier struct{}

func (nopVerifier) Verify(ctx context.Context, imageBase64 string) (reconcile.PaymentClaim, error) {
	return reconcile.PaymentClaim{}, nil
}

type nopLedger struct{}

func (nopLedger) OutstandingBalance(ctx context.Context, principalID string) (reconcile.OutstandingBalance, error) {
	return reconcile.OutstandingBalance{}, nil
}

func (nopLedger) MarkPaid(ctx context.Context, ids []string, ref string, paidAt time.Time) error {
	return nil
}

func (nopLedger) PendingOrder(ctx context.Context, principalID, orderID string) (reconcile.PendingOrder, bool, error) {
	return reconcile.PendingOrder{}, false, nil
}

func (nopLedger) CompletePendingOrder(ctx context.Context, orderID, referenceID string) error {
	return nil
}

type nopDuplicates struct{}

func (nopDuplicates) IsReferenceUsed(ctx context.Context, ref string) (bool, error) {
	return false, nil
}

type nopAccounts struct{}

func (nopAccounts) ReceivingAccount(ctx context.Context) (reconcile.ReceivingAccount, error) {
	return reconcile.ReceivingAccount{}, nil
}

type nopMessenger struct{}

func (nopMessenger) SendAs(ctx context.Context, botToken, chatID, text string) error {
	return nil
}

func newTestServer(t *testing.T) (*Server, *auth.TokenService, *fakeBackend) {
	t.Helper()

	tokens := auth.NewTokenService(config.AuthConfig{JWTSecret: "test-secret", TokenTTLDays: 7})
	backend := &fakeBackend{}
	svc := payment.NewService(payment.Deps{
		Verifier:   nopVerifier{},
		Ledger:     nopLedger{},
		Duplicates: nopDuplicates{},
		Accounts:   nopAccounts{},
	})

	server := NewServer(Config{Port: 0}, Deps{
		Tokens:    tokens,
		Payments:  svc,
		Backend:   backend,
		Messenger: nopMessenger{},
	})
	return server, tokens, backend
}

func get(server *Server, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)
	return w
}

func TestHealthIsPublic(t *testing.T) {
	server, _, _ := newTestServer(t)

	w := get(server, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBankAccountIsPublic(t *testing.T) {
	server, _, backend := newTestServer(t)

	w := get(server, "/api/bank-account", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "getBankAccount", backend.lastAction)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	server, _, _ := newTestServer(t)

	for _, path := range []string{
		"/api/check-session",
		"/api/dashboard",
		"/api/reseller/unpaid",
		"/api/customer/pending-orders",
		"/api/settings",
	} {
		w := get(server, path, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestRoleGating(t *testing.T) {
	server, tokens, _ := newTestServer(t)

	resellerToken, err := tokens.Issue(auth.Identity{UserID: "u1", Username: "somchai", Role: auth.RoleReseller})
	require.NoError(t, err)
	ownerToken, err := tokens.Issue(auth.Identity{UserID: "boss", Username: "boss", Role: auth.RoleOwner})
	require.NoError(t, err)

	// owner-only routes reject non-owners
	for _, path := range []string{"/api/admins", "/api/settings", "/api/commissions"} {
		w := get(server, path, resellerToken)
		assert.Equal(t, http.StatusForbidden, w.Code, path)
	}

	// and let the owner through to the backend
	w := get(server, "/api/admins", ownerToken)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthenticatedPassthrough(t *testing.T) {
	server, tokens, backend := newTestServer(t)

	token, err := tokens.Issue(auth.Identity{UserID: "u1", Username: "somchai", Role: auth.RoleReseller})
	require.NoError(t, err)

	w := get(server, "/api/reseller/balance", token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "getResellerBalance", backend.lastAction)
}

func TestLoginWithoutDirectoryIsUnavailable(t *testing.T) {
	server, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/login", nil)
	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)

	// no body at all is a 400 before the directory is consulted
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
