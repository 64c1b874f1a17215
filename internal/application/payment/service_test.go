package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ultrastock/backend/internal/adapters/easyslip"
	"github.com/ultrastock/backend/internal/domain/reconcile"
)

// In-memory collaborators with call tracking and error injection, in the
// style of the storage mock repository.

type mockVerifier struct {
	claim  reconcile.PaymentClaim
	err    error
	called bool
}

func (m *mockVerifier) Verify(_ context.Context, _ string) (reconcile.PaymentClaim, error) {
	m.called = true
	return m.claim, m.err
}

type mockLedger struct {
	balance reconcile.OutstandingBalance
	order   reconcile.PendingOrder
	found   bool

	balanceErr  error
	markPaidErr error
	completeErr error

	markPaidCalled bool
	markPaidIDs    []string
	markPaidRef    string
	completedID    string
}

func (m *mockLedger) OutstandingBalance(_ context.Context, _ string) (reconcile.OutstandingBalance, error) {
	return m.balance, m.balanceErr
}

func (m *mockLedger) MarkPaid(_ context.Context, ids []string, ref string, _ time.Time) error {
	m.markPaidCalled = true
	m.markPaidIDs = ids
	m.markPaidRef = ref
	return m.markPaidErr
}

func (m *mockLedger) PendingOrder(_ context.Context, _, _ string) (reconcile.PendingOrder, bool, error) {
	return m.order, m.found, nil
}

func (m *mockLedger) CompletePendingOrder(_ context.Context, orderID, _ string) error {
	m.completedID = orderID
	return m.completeErr
}

type mockDuplicates struct {
	used   bool
	err    error
	called bool
}

func (m *mockDuplicates) IsReferenceUsed(_ context.Context, _ string) (bool, error) {
	m.called = true
	return m.used, m.err
}

type mockAccounts struct {
	account reconcile.ReceivingAccount
	err     error
}

func (m *mockAccounts) ReceivingAccount(_ context.Context) (reconcile.ReceivingAccount, error) {
	return m.account, m.err
}

type mockAudit struct {
	entries []AuditEntry
	err     error
}

func (m *mockAudit) RecordPayment(_ context.Context, entry AuditEntry) error {
	m.entries = append(m.entries, entry)
	return m.err
}

type mockNotifier struct {
	messages []string
	err      error
}

func (m *mockNotifier) Send(_ context.Context, text string) error {
	m.messages = append(m.messages, text)
	return m.err
}

type mockRenewer struct {
	req RenewRequest
	err error
}

func (m *mockRenewer) RenewOrder(_ context.Context, req RenewRequest) error {
	m.req = req
	return m.err
}

type fixture struct {
	verifier   *mockVerifier
	ledger     *mockLedger
	duplicates *mockDuplicates
	accounts   *mockAccounts
	audit      *mockAudit
	notifier   *mockNotifier
	renewer    *mockRenewer
	service    *Service
}

func newFixture() *fixture {
	f := &fixture{
		verifier: &mockVerifier{
			claim: reconcile.PaymentClaim{
				ReferenceID:      "R1",
				Amount:           decimal.NewFromInt(500),
				ReceivingAccount: "111222333",
				Timestamp:        time.Now(),
			},
		},
		ledger: &mockLedger{
			balance: reconcile.OutstandingBalance{
				PrincipalID:    "u1",
				AmountDue:      decimal.NewFromInt(500),
				TransactionIDs: []string{"t1", "t2"},
			},
			order: reconcile.PendingOrder{ID: "ord-1", Amount: decimal.NewFromInt(500)},
			found: true,
		},
		duplicates: &mockDuplicates{},
		accounts:   &mockAccounts{account: reconcile.ReceivingAccount{AccountNumber: "111-222-333"}},
		audit:      &mockAudit{},
		notifier:   &mockNotifier{},
		renewer:    &mockRenewer{},
	}
	f.service = NewService(Deps{
		Verifier:   f.verifier,
		Ledger:     f.ledger,
		Duplicates: f.duplicates,
		Accounts:   f.accounts,
		Audit:      f.audit,
		Renewer:    f.renewer,
		Notifier:   f.notifier,
	})
	return f
}

var principal = Principal{ID: "u1", Username: "somchai", Role: "reseller"}

func TestSettleOutstandingAccepted(t *testing.T) {
	f := newFixture()

	result, err := f.service.SettleOutstanding(context.Background(), principal, "img")
	require.NoError(t, err)

	require.True(t, result.Ok)
	assert.True(t, result.PaidAmount.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, "R1", result.ReferenceID)

	assert.True(t, f.ledger.markPaidCalled)
	assert.Equal(t, []string{"t1", "t2"}, f.ledger.markPaidIDs)
	assert.Equal(t, "R1", f.ledger.markPaidRef)

	require.Len(t, f.audit.entries, 1)
	entry := f.audit.entries[0]
	assert.Equal(t, "u1", entry.PrincipalID)
	assert.Equal(t, "approved", entry.Status)
	assert.Equal(t, []string{"t1", "t2"}, entry.TransactionIDs)

	assert.Len(t, f.notifier.messages, 1)
}

func TestSettleOutstandingMissingImage(t *testing.T) {
	f := newFixture()

	result, err := f.service.SettleOutstanding(context.Background(), principal, "")
	require.NoError(t, err)

	assert.False(t, result.Ok)
	assert.Equal(t, RejectMissingInput, result.Kind)
	// rejected before any external call
	assert.False(t, f.verifier.called)
	assert.False(t, f.ledger.markPaidCalled)
}

func TestSettleOutstandingNoBalanceSkipsVerifier(t *testing.T) {
	f := newFixture()
	f.ledger.balance = reconcile.OutstandingBalance{PrincipalID: "u1", AmountDue: decimal.Zero}

	result, err := f.service.SettleOutstanding(context.Background(), principal, "img")
	require.NoError(t, err)

	assert.Equal(t, RejectPolicy, result.Kind)
	assert.Equal(t, reconcile.ReasonNoOutstandingBalance, result.Reason)
	assert.False(t, f.verifier.called, "verifier must not be called when nothing is owed")
}

func TestSettleOutstandingVerificationFailure(t *testing.T) {
	f := newFixture()
	f.verifier.err = &easyslip.VerificationError{Message: "unreadable image"}

	result, err := f.service.SettleOutstanding(context.Background(), principal, "img")
	require.NoError(t, err)

	assert.Equal(t, RejectVerification, result.Kind)
	assert.Equal(t, "unreadable image", result.Message)
	assert.False(t, f.ledger.markPaidCalled)
}

func TestSettleOutstandingPolicyRejection(t *testing.T) {
	f := newFixture()
	f.duplicates.used = true

	result, err := f.service.SettleOutstanding(context.Background(), principal, "img")
	require.NoError(t, err)

	assert.Equal(t, RejectPolicy, result.Kind)
	assert.Equal(t, reconcile.ReasonDuplicateReference, result.Reason)
	assert.False(t, f.ledger.markPaidCalled)
	assert.Empty(t, f.audit.entries)
}

func TestSettleOutstandingEmptyReferenceSkipsDuplicateCheck(t *testing.T) {
	f := newFixture()
	f.verifier.claim.ReferenceID = ""
	f.duplicates.used = true // would reject if consulted

	result, err := f.service.SettleOutstanding(context.Background(), principal, "img")
	require.NoError(t, err)

	assert.True(t, result.Ok)
	assert.False(t, f.duplicates.called)
}

func TestSettleOutstandingAuditFailureIsNonFatal(t *testing.T) {
	f := newFixture()
	f.audit.err = errors.New("audit store down")

	result, err := f.service.SettleOutstanding(context.Background(), principal, "img")
	require.NoError(t, err)

	// settlement stands even though the audit write failed
	assert.True(t, result.Ok)
	assert.True(t, f.ledger.markPaidCalled)
}

func TestSettleOutstandingNotifierFailureIsNonFatal(t *testing.T) {
	f := newFixture()
	f.notifier.err = errors.New("telegram down")

	result, err := f.service.SettleOutstanding(context.Background(), principal, "img")
	require.NoError(t, err)
	assert.True(t, result.Ok)
}

func TestSettleOutstandingAccountLookupFailureSkipsCheck(t *testing.T) {
	f := newFixture()
	f.accounts.err = errors.New("settings unreachable")
	f.verifier.claim.ReceivingAccount = "9999999999"

	// with the configured account unknown the mismatch cannot be detected
	result, err := f.service.SettleOutstanding(context.Background(), principal, "img")
	require.NoError(t, err)
	assert.True(t, result.Ok)
}

func TestSettleOutstandingSettlementFailurePropagates(t *testing.T) {
	f := newFixture()
	f.ledger.markPaidErr = errors.New("ledger write failed")

	_, err := f.service.SettleOutstanding(context.Background(), principal, "img")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "marking transactions paid")
	assert.Empty(t, f.audit.entries)
}

func TestPayPendingOrderAccepted(t *testing.T) {
	f := newFixture()

	result, err := f.service.PayPendingOrder(context.Background(), principal, "ord-1", "img")
	require.NoError(t, err)

	require.True(t, result.Ok)
	assert.Equal(t, "ord-1", f.ledger.completedID)
	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, []string{"ord-1"}, f.audit.entries[0].TransactionIDs)
	assert.Equal(t, "order", f.audit.entries[0].Type)
}

func TestPayPendingOrderNotFound(t *testing.T) {
	f := newFixture()
	f.ledger.found = false

	result, err := f.service.PayPendingOrder(context.Background(), principal, "missing", "img")
	require.NoError(t, err)

	assert.Equal(t, RejectMissingInput, result.Kind)
	assert.False(t, f.verifier.called, "verifier must not be called for an unknown order")
}

func TestPayPendingOrderAmountMismatch(t *testing.T) {
	f := newFixture()
	f.verifier.claim.Amount = decimal.NewFromInt(450)

	result, err := f.service.PayPendingOrder(context.Background(), principal, "ord-1", "img")
	require.NoError(t, err)

	assert.Equal(t, reconcile.ReasonAmountMismatch, result.Reason)
	assert.Contains(t, result.Message, "500")
	assert.Contains(t, result.Message, "450")
	assert.Empty(t, f.ledger.completedID)
}

func TestRenewWithPaymentAccepted(t *testing.T) {
	f := newFixture()
	f.verifier.claim.Amount = decimal.NewFromInt(600) // overpayment is fine

	result, err := f.service.RenewWithPayment(context.Background(), principal,
		"stock1@example.com", 30, decimal.NewFromInt(500), "img")
	require.NoError(t, err)

	require.True(t, result.Ok)
	assert.Equal(t, "stock1@example.com", f.renewer.req.Email)
	assert.Equal(t, 30, f.renewer.req.PackageDays)
	assert.Equal(t, "R1", f.renewer.req.ReferenceID)
	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, "renewal", f.audit.entries[0].Type)
}

func TestRenewWithPaymentUnderpaid(t *testing.T) {
	f := newFixture()
	f.verifier.claim.Amount = decimal.NewFromInt(400)

	result, err := f.service.RenewWithPayment(context.Background(), principal,
		"stock1@example.com", 30, decimal.NewFromInt(500), "img")
	require.NoError(t, err)

	assert.Equal(t, reconcile.ReasonAmountMismatch, result.Reason)
	assert.Empty(t, f.renewer.req.Email)
}

func TestRenewWithPaymentWithoutRenewer(t *testing.T) {
	f := newFixture()
	f.service = NewService(Deps{
		Verifier:   f.verifier,
		Ledger:     f.ledger,
		Duplicates: f.duplicates,
		Accounts:   f.accounts,
		Audit:      f.audit,
	})

	_, err := f.service.RenewWithPayment(context.Background(), principal,
		"e@example.com", 30, decimal.NewFromInt(500), "img")
	assert.ErrorIs(t, err, ErrRenewalUnavailable)
}
