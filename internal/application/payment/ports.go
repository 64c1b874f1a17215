package payment

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ultrastock/backend/internal/domain/reconcile"
)

// SlipVerifier extracts a payment claim from a slip image.
type SlipVerifier interface {
	Verify(ctx context.Context, imageBase64 string) (reconcile.PaymentClaim, error)
}

// LedgerGateway reads outstanding-balance snapshots and applies
// settlements. Implementations must make MarkPaid idempotent per
// transaction id; the service never provides mutual exclusion itself.
type LedgerGateway interface {
	OutstandingBalance(ctx context.Context, principalID string) (reconcile.OutstandingBalance, error)
	MarkPaid(ctx context.Context, transactionIDs []string, referenceID string, paidAt time.Time) error

	PendingOrder(ctx context.Context, principalID, orderID string) (reconcile.PendingOrder, bool, error)
	CompletePendingOrder(ctx context.Context, orderID, referenceID string) error
}

// DuplicateChecker reports whether a slip reference has been used before.
type DuplicateChecker interface {
	IsReferenceUsed(ctx context.Context, referenceID string) (bool, error)
}

// AccountProvider reads the merchant's configured receiving account.
type AccountProvider interface {
	ReceivingAccount(ctx context.Context) (reconcile.ReceivingAccount, error)
}

// AuditEntry records the outcome of a reconciliation attempt.
type AuditEntry struct {
	PrincipalID    string
	DisplayName    string
	Role           string
	Amount         decimal.Decimal
	ReferenceID    string
	Status         string
	Type           string
	Description    string
	TransactionIDs []string
}

// AuditLogger durably records reconciliation outcomes. Writes are
// best-effort: a failed audit never rolls back a settlement.
type AuditLogger interface {
	RecordPayment(ctx context.Context, entry AuditEntry) error
}

// Renewer forwards an order renewal to the stock backend. Optional; the
// renewal flow is rejected when no renewer is wired.
type Renewer interface {
	RenewOrder(ctx context.Context, req RenewRequest) error
}

// RenewRequest identifies the order (by its stock email) and the package
// being purchased.
type RenewRequest struct {
	Email       string
	PackageDays int
	PrincipalID string
	Role        string
	ReferenceID string
	PaidAmount  decimal.Decimal
}

// Notifier pushes a human-readable message to the chat bot. Failures are
// reported but never block a reconciliation outcome.
type Notifier interface {
	Send(ctx context.Context, text string) error
}
