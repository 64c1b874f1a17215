// Package reconcile decides whether a verified payment slip settles an
// outstanding balance or a pending order.
//
// The engine is pure: it holds no mutable state, performs no I/O, and
// reaches its decision from the inputs alone. Callers are responsible
// for fetching the balance snapshot, asking the duplicate-check
// collaborator, and acting on an accepted outcome.
package reconcile

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentClaim is the normalized payment record extracted from a slip by
// the verification provider. Any field may be absent: an empty string,
// zero amount, or zero time means the provider did not return it.
type PaymentClaim struct {
	// ReferenceID is the provider-assigned bank transaction reference,
	// used for duplicate detection.
	ReferenceID string

	// Amount is the transferred amount in the ledger currency.
	Amount decimal.Decimal

	// ReceivingAccount is the destination bank account as reported by
	// the provider. Providers may mask digits.
	ReceivingAccount string

	// Timestamp is the bank transaction instant.
	Timestamp time.Time
}

// OutstandingBalance is a point-in-time snapshot of what a principal owes.
//
// AmountDue is the sum of the unpaid transactions listed in
// TransactionIDs; a zero AmountDue implies an empty TransactionIDs.
type OutstandingBalance struct {
	PrincipalID    string
	AmountDue      decimal.Decimal
	TransactionIDs []string
}

// PendingOrder is an unpaid order awaiting a payment slip.
type PendingOrder struct {
	ID     string
	Amount decimal.Decimal
}

// ReceivingAccount is the merchant's configured destination account.
type ReceivingAccount struct {
	AccountNumber string
}

// Reason classifies why a claim was rejected.
type Reason string

const (
	ReasonNoOutstandingBalance Reason = "NO_OUTSTANDING_BALANCE"
	ReasonDuplicateReference   Reason = "DUPLICATE_REFERENCE"
	ReasonAccountMismatch      Reason = "ACCOUNT_MISMATCH"
	ReasonSlipExpired          Reason = "SLIP_EXPIRED"
	ReasonAmountMismatch       Reason = "AMOUNT_MISMATCH"
)

// Outcome is the engine's decision for one claim.
//
// When Accepted is true, SettledAmount, ReferenceID and
// SettledTransactionIDs describe the settlement the caller must apply.
// Otherwise Reason and Message explain the rejection.
type Outcome struct {
	Accepted bool

	Reason  Reason
	Message string

	SettledAmount         decimal.Decimal
	ReferenceID           string
	SettledTransactionIDs []string
}

func rejected(reason Reason, message string) Outcome {
	return Outcome{Reason: reason, Message: message}
}
