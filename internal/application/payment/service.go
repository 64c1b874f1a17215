// Package payment orchestrates the slip reconciliation flows: it chains
// the verifier, ledger, duplicate-check, receiving-account and audit
// collaborators around the reconcile engine, in the order the engine's
// policy expects.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ultrastock/backend/internal/adapters/easyslip"
	"github.com/ultrastock/backend/internal/domain/reconcile"
)

// RejectKind classifies a rejected attempt for the HTTP layer.
type RejectKind string

const (
	// RejectMissingInput means the request was refused before any
	// external call was made.
	RejectMissingInput RejectKind = "missing_input"
	// RejectVerification means the slip provider could not produce a
	// payment claim.
	RejectVerification RejectKind = "verification_failed"
	// RejectPolicy means the engine rejected the claim.
	RejectPolicy RejectKind = "policy"
)

// ErrRenewalUnavailable is returned when no renewer is wired.
var ErrRenewalUnavailable = errors.New("order renewal is not available on this deployment")

// Principal identifies the authenticated caller of a payment flow.
type Principal struct {
	ID       string
	Username string
	Role     string
}

// Result is the outcome of a payment attempt. Ok distinguishes success;
// on rejection, Kind/Reason/Message explain it in user-actionable terms.
type Result struct {
	Ok          bool
	Kind        RejectKind
	Reason      reconcile.Reason
	Message     string
	PaidAmount  decimal.Decimal
	ReferenceID string
}

func rejectedResult(kind RejectKind, reason reconcile.Reason, message string) Result {
	return Result{Kind: kind, Reason: reason, Message: message}
}

// Deps are the collaborators a Service needs. Renewer and Notifier are
// optional.
type Deps struct {
	Verifier   SlipVerifier
	Ledger     LedgerGateway
	Duplicates DuplicateChecker
	Accounts   AccountProvider
	Audit      AuditLogger
	Renewer    Renewer
	Notifier   Notifier
	Engine     *reconcile.Engine
	Logger     *slog.Logger
}

// Service runs the payment flows. It is stateless; every attempt
// re-reads the balance snapshot and may run concurrently with others.
type Service struct {
	deps Deps
	now  func() time.Time
}

// NewService creates a payment service.
func NewService(deps Deps) *Service {
	if deps.Engine == nil {
		deps.Engine = reconcile.NewEngine()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{deps: deps, now: time.Now}
}

// SettleOutstanding verifies a slip against the principal's outstanding
// balance and, when accepted, marks the covered transactions paid.
func (s *Service) SettleOutstanding(ctx context.Context, principal Principal, imageBase64 string) (Result, error) {
	if imageBase64 == "" {
		return rejectedResult(RejectMissingInput, "", "payment slip image is required"), nil
	}

	// Fresh snapshot per attempt; never cached across attempts.
	balance, err := s.deps.Ledger.OutstandingBalance(ctx, principal.ID)
	if err != nil {
		return Result{}, fmt.Errorf("reading outstanding balance: %w", err)
	}

	// The engine re-checks this, but bailing out here avoids a wasted
	// verifier call for principals who owe nothing.
	if balance.AmountDue.IsZero() {
		return rejectedResult(RejectPolicy, reconcile.ReasonNoOutstandingBalance,
			"no outstanding balance to settle"), nil
	}

	claim, result, err := s.verifyAndCheck(ctx, imageBase64)
	if err != nil || result != nil {
		return deref(result), err
	}

	account := s.receivingAccount(ctx)
	isDup, err := s.lookupDuplicate(ctx, claim.ReferenceID)
	if err != nil {
		return Result{}, err
	}

	outcome := s.deps.Engine.Reconcile(claim, balance, account, isDup)
	if !outcome.Accepted {
		return rejectedResult(RejectPolicy, outcome.Reason, outcome.Message), nil
	}

	if err := s.deps.Ledger.MarkPaid(ctx, outcome.SettledTransactionIDs, outcome.ReferenceID, s.now()); err != nil {
		return Result{}, fmt.Errorf("marking transactions paid: %w", err)
	}

	s.recordAudit(ctx, AuditEntry{
		PrincipalID:    principal.ID,
		DisplayName:    principal.Username,
		Role:           principal.Role,
		Amount:         outcome.SettledAmount,
		ReferenceID:    outcome.ReferenceID,
		Status:         "approved",
		Type:           "payment",
		TransactionIDs: outcome.SettledTransactionIDs,
	})

	s.notify(ctx, fmt.Sprintf("💰 <b>Payment received</b>\n%s paid ฿%s (%d transactions)",
		principal.Username, outcome.SettledAmount.String(), len(outcome.SettledTransactionIDs)))

	return Result{
		Ok:          true,
		Message:     fmt.Sprintf("payment of ฿%s accepted", outcome.SettledAmount.String()),
		PaidAmount:  outcome.SettledAmount,
		ReferenceID: outcome.ReferenceID,
	}, nil
}

// PayPendingOrder verifies a slip against one pending order and, when
// accepted, completes that order.
func (s *Service) PayPendingOrder(ctx context.Context, principal Principal, orderID, imageBase64 string) (Result, error) {
	if imageBase64 == "" {
		return rejectedResult(RejectMissingInput, "", "payment slip image is required"), nil
	}

	order, found, err := s.deps.Ledger.PendingOrder(ctx, principal.ID, orderID)
	if err != nil {
		return Result{}, fmt.Errorf("reading pending order: %w", err)
	}
	if !found {
		return rejectedResult(RejectMissingInput, "", "order not found or already expired"), nil
	}

	claim, result, err := s.verifyAndCheck(ctx, imageBase64)
	if err != nil || result != nil {
		return deref(result), err
	}

	account := s.receivingAccount(ctx)
	isDup, err := s.lookupDuplicate(ctx, claim.ReferenceID)
	if err != nil {
		return Result{}, err
	}

	outcome := s.deps.Engine.ReconcileOrder(claim, order, account, isDup)
	if !outcome.Accepted {
		return rejectedResult(RejectPolicy, outcome.Reason, outcome.Message), nil
	}

	if err := s.deps.Ledger.CompletePendingOrder(ctx, order.ID, outcome.ReferenceID); err != nil {
		return Result{}, fmt.Errorf("completing order: %w", err)
	}

	s.recordAudit(ctx, AuditEntry{
		PrincipalID:    principal.ID,
		DisplayName:    principal.Username,
		Role:           principal.Role,
		Amount:         outcome.SettledAmount,
		ReferenceID:    outcome.ReferenceID,
		Status:         "approved",
		Type:           "order",
		TransactionIDs: outcome.SettledTransactionIDs,
	})

	s.notify(ctx, fmt.Sprintf("🛒 <b>Order paid</b>\n%s paid ฿%s for order %s",
		principal.Username, outcome.SettledAmount.String(), order.ID))

	return Result{
		Ok:          true,
		Message:     fmt.Sprintf("payment of ฿%s accepted", outcome.SettledAmount.String()),
		PaidAmount:  outcome.SettledAmount,
		ReferenceID: outcome.ReferenceID,
	}, nil
}

// RenewWithPayment verifies a slip covering a renewal quote and forwards
// the renewal. The slip amount may exceed the quote; only underpayment is
// rejected.
func (s *Service) RenewWithPayment(ctx context.Context, principal Principal, email string, packageDays int, amount decimal.Decimal, imageBase64 string) (Result, error) {
	if imageBase64 == "" {
		return rejectedResult(RejectMissingInput, "", "payment slip image is required"), nil
	}
	if s.deps.Renewer == nil {
		return Result{}, ErrRenewalUnavailable
	}

	claim, result, err := s.verifyAndCheck(ctx, imageBase64)
	if err != nil || result != nil {
		return deref(result), err
	}

	if claim.Amount.LessThan(amount) {
		return rejectedResult(RejectPolicy, reconcile.ReasonAmountMismatch,
			fmt.Sprintf("amount mismatch: renewal costs ฿%s but slip shows ฿%s",
				amount.String(), claim.Amount.String())), nil
	}

	err = s.deps.Renewer.RenewOrder(ctx, RenewRequest{
		Email:       email,
		PackageDays: packageDays,
		PrincipalID: principal.ID,
		Role:        principal.Role,
		ReferenceID: claim.ReferenceID,
		PaidAmount:  claim.Amount,
	})
	if err != nil {
		return Result{}, fmt.Errorf("renewing order: %w", err)
	}

	s.recordAudit(ctx, AuditEntry{
		PrincipalID: principal.ID,
		DisplayName: principal.Username,
		Role:        principal.Role,
		Amount:      claim.Amount,
		ReferenceID: claim.ReferenceID,
		Status:      "approved",
		Type:        "renewal",
		Description: fmt.Sprintf("renew %s for %d days", email, packageDays),
	})

	return Result{
		Ok:          true,
		Message:     fmt.Sprintf("renewed %s for %d days", email, packageDays),
		PaidAmount:  claim.Amount,
		ReferenceID: claim.ReferenceID,
	}, nil
}

// verifyAndCheck runs the verifier and normalizes its failure into a
// Result. Exactly one of (claim), (result), (err) is meaningful.
func (s *Service) verifyAndCheck(ctx context.Context, imageBase64 string) (reconcile.PaymentClaim, *Result, error) {
	claim, err := s.deps.Verifier.Verify(ctx, imageBase64)
	if err != nil {
		var verr *easyslip.VerificationError
		if errors.As(err, &verr) {
			r := rejectedResult(RejectVerification, "", verr.Message)
			return reconcile.PaymentClaim{}, &r, nil
		}
		return reconcile.PaymentClaim{}, nil, fmt.Errorf("verifying slip: %w", err)
	}
	return claim, nil, nil
}

// lookupDuplicate consults the duplicate checker only for non-empty
// references; empty references are assumed not duplicate.
func (s *Service) lookupDuplicate(ctx context.Context, referenceID string) (bool, error) {
	if referenceID == "" {
		return false, nil
	}
	isDup, err := s.deps.Duplicates.IsReferenceUsed(ctx, referenceID)
	if err != nil {
		return false, fmt.Errorf("checking duplicate slip: %w", err)
	}
	return isDup, nil
}

// receivingAccount reads the configured account, degrading to "absent"
// when the settings store is unreachable; the engine then skips the
// account check, matching the lenient policy for masked providers.
func (s *Service) receivingAccount(ctx context.Context) reconcile.ReceivingAccount {
	account, err := s.deps.Accounts.ReceivingAccount(ctx)
	if err != nil {
		s.deps.Logger.Warn("could not read receiving account, skipping account check", "error", err)
		return reconcile.ReceivingAccount{}
	}
	return account
}

// recordAudit writes the audit entry best-effort. Settlement already
// happened; an under-logged success beats rolling back a real payment.
func (s *Service) recordAudit(ctx context.Context, entry AuditEntry) {
	if s.deps.Audit == nil {
		return
	}
	if err := s.deps.Audit.RecordPayment(ctx, entry); err != nil {
		s.deps.Logger.Error("audit write failed after settlement",
			"principal", entry.PrincipalID, "reference", entry.ReferenceID, "error", err)
	}
}

func (s *Service) notify(ctx context.Context, text string) {
	if s.deps.Notifier == nil {
		return
	}
	if err := s.deps.Notifier.Send(ctx, text); err != nil {
		s.deps.Logger.Warn("notification failed", "error", err)
	}
}

func deref(r *Result) Result {
	if r == nil {
		return Result{}
	}
	return *r
}
