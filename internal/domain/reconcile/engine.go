package reconcile

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

// DefaultMaxSlipAge is how old a slip may be before it is rejected.
const DefaultMaxSlipAge = 24 * time.Hour

// Engine evaluates payment claims against expected ledger state.
//
// Checks run in a fixed order and short-circuit on the first failure:
// outstanding balance, duplicate reference, receiving account, slip age,
// amount. The cheap lookups come first; the amount check runs last so its
// error message only ever describes a fresh, correctly-destined transfer.
type Engine struct {
	maxSlipAge time.Duration
	now        func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxSlipAge overrides the staleness window.
func WithMaxSlipAge(d time.Duration) Option {
	return func(e *Engine) { e.maxSlipAge = d }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates a reconciliation engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		maxSlipAge: DefaultMaxSlipAge,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Reconcile decides whether claim settles the principal's outstanding
// balance. isDuplicate is the duplicate-check collaborator's answer for
// claim.ReferenceID; it is ignored when the reference is empty, since the
// collaborator was never consulted for such claims.
func (e *Engine) Reconcile(claim PaymentClaim, expected OutstandingBalance, account ReceivingAccount, isDuplicate bool) Outcome {
	if expected.AmountDue.IsZero() {
		return rejected(ReasonNoOutstandingBalance, "no outstanding balance to settle")
	}
	return e.evaluate(claim, expected.AmountDue, expected.TransactionIDs, account, isDuplicate)
}

// ReconcileOrder decides whether claim pays for a single pending order.
// The caller must already have established that the order exists and is
// unpaid; an accepted outcome settles exactly that order.
func (e *Engine) ReconcileOrder(claim PaymentClaim, order PendingOrder, account ReceivingAccount, isDuplicate bool) Outcome {
	return e.evaluate(claim, order.Amount, []string{order.ID}, account, isDuplicate)
}

func (e *Engine) evaluate(claim PaymentClaim, due decimal.Decimal, transactionIDs []string, account ReceivingAccount, isDuplicate bool) Outcome {
	// A claim without a reference id never consulted the duplicate
	// collaborator, so it cannot be flagged here.
	if claim.ReferenceID != "" && isDuplicate {
		return rejected(ReasonDuplicateReference,
			fmt.Sprintf("slip %s has already been used", claim.ReferenceID))
	}

	if out, ok := e.checkReceivingAccount(claim, account); !ok {
		return out
	}

	if out, ok := e.checkSlipAge(claim); !ok {
		return out
	}

	if !claim.Amount.Equal(due) {
		return rejected(ReasonAmountMismatch,
			fmt.Sprintf("amount mismatch: expected ฿%s but slip shows ฿%s", due.String(), claim.Amount.String()))
	}

	return Outcome{
		Accepted:              true,
		SettledAmount:         claim.Amount,
		ReferenceID:           claim.ReferenceID,
		SettledTransactionIDs: append([]string(nil), transactionIDs...),
	}
}

// checkReceivingAccount verifies the slip was sent to the merchant's
// account. Providers mask digits, so the comparison tolerates either
// normalized number containing the other. When either side is absent the
// check is skipped.
func (e *Engine) checkReceivingAccount(claim PaymentClaim, account ReceivingAccount) (Outcome, bool) {
	ours := NormalizeAccount(account.AccountNumber)
	theirs := NormalizeAccount(claim.ReceivingAccount)
	if ours == "" || theirs == "" {
		return Outcome{}, true
	}
	if !strings.Contains(ours, theirs) && !strings.Contains(theirs, ours) {
		return rejected(ReasonAccountMismatch, "slip was sent to a different account"), false
	}
	return Outcome{}, true
}

// checkSlipAge rejects slips older than the staleness window. Claims
// without a timestamp skip the check.
func (e *Engine) checkSlipAge(claim PaymentClaim) (Outcome, bool) {
	if claim.Timestamp.IsZero() {
		return Outcome{}, true
	}
	if e.now().Sub(claim.Timestamp) > e.maxSlipAge {
		return rejected(ReasonSlipExpired,
			fmt.Sprintf("slip is older than %d hours", int(e.maxSlipAge.Hours()))), false
	}
	return Outcome{}, true
}

// NormalizeAccount strips separators from a bank account number, keeping
// only letters and digits.
func NormalizeAccount(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
