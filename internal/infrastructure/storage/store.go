// Package storage is a sqlite-backed implementation of the ledger,
// duplicate-check, audit-log and receiving-account contracts, for
// deployments that run without the spreadsheet scripting service.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/ultrastock/backend/internal/application/payment"
	"github.com/ultrastock/backend/internal/domain/reconcile"
)

// Store provides sqlite database access for the payment ledger.
type Store struct {
	db *sql.DB
}

// The store satisfies the payment-flow ports except order renewal,
// which needs the stock backend.
var (
	_ payment.LedgerGateway    = (*Store)(nil)
	_ payment.DuplicateChecker = (*Store)(nil)
	_ payment.AccountProvider  = (*Store)(nil)
	_ payment.AuditLogger      = (*Store)(nil)
)

// NewStore opens (creating if necessary) the database at path and runs
// pending migrations.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.runMigrations(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// OutstandingBalance sums the principal's unpaid transactions.
func (s *Store) OutstandingBalance(ctx context.Context, principalID string) (reconcile.OutstandingBalance, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, amount FROM reseller_transactions
		WHERE user_id = ? AND paid = 0
		ORDER BY created_at`, principalID)
	if err != nil {
		return reconcile.OutstandingBalance{}, err
	}
	defer func() { _ = rows.Close() }()

	balance := reconcile.OutstandingBalance{PrincipalID: principalID, AmountDue: decimal.Zero}
	for rows.Next() {
		var id, amount string
		if err := rows.Scan(&id, &amount); err != nil {
			return reconcile.OutstandingBalance{}, err
		}
		dec, err := decimal.NewFromString(amount)
		if err != nil {
			return reconcile.OutstandingBalance{}, fmt.Errorf("corrupt amount on transaction %s: %w", id, err)
		}
		balance.AmountDue = balance.AmountDue.Add(dec)
		balance.TransactionIDs = append(balance.TransactionIDs, id)
	}
	return balance, rows.Err()
}

// MarkPaid settles the given transactions. The conditional update makes
// settlement at-most-once per transaction id: a row already paid is
// counted as already settled, not re-settled.
func (s *Store) MarkPaid(ctx context.Context, transactionIDs []string, referenceID string, paidAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, id := range transactionIDs {
		if _, err := tx.ExecContext(ctx, `
			UPDATE reseller_transactions
			SET paid = 1, slip_ref = ?, paid_at = ?
			WHERE id = ? AND paid = 0`, referenceID, paidAt.UTC(), id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// AddTransaction appends an unpaid charge to a reseller's ledger.
func (s *Store) AddTransaction(ctx context.Context, userID string, amount decimal.Decimal, description string) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reseller_transactions (id, user_id, amount, description)
		VALUES (?, ?, ?, ?)`, id, userID, amount.String(), description)
	return id, err
}

// PendingOrder looks up one of the principal's unpaid orders.
func (s *Store) PendingOrder(ctx context.Context, principalID, orderID string) (reconcile.PendingOrder, bool, error) {
	var amount string
	err := s.db.QueryRowContext(ctx, `
		SELECT amount FROM pending_orders
		WHERE id = ? AND user_id = ? AND status = ?`,
		orderID, principalID, OrderStatusPending).Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
		return reconcile.PendingOrder{}, false, nil
	}
	if err != nil {
		return reconcile.PendingOrder{}, false, err
	}

	dec, err := decimal.NewFromString(amount)
	if err != nil {
		return reconcile.PendingOrder{}, false, fmt.Errorf("corrupt amount on order %s: %w", orderID, err)
	}
	return reconcile.PendingOrder{ID: orderID, Amount: dec}, true, nil
}

// CreatePendingOrder stores a new unpaid order and returns its id.
func (s *Store) CreatePendingOrder(ctx context.Context, userID string, amount decimal.Decimal, packageDays int) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pending_orders (id, user_id, amount, package_days)
		VALUES (?, ?, ?, ?)`, id, userID, amount.String(), packageDays)
	return id, err
}

// CompletePendingOrder marks a pending order paid. Completing an order
// that is not pending is a no-op, keeping the write idempotent.
func (s *Store) CompletePendingOrder(ctx context.Context, orderID, referenceID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE pending_orders
		SET status = ?, slip_ref = ?, completed_at = ?
		WHERE id = ? AND status = ?`,
		OrderStatusCompleted, referenceID, time.Now().UTC(), orderID, OrderStatusPending)
	return err
}

// CancelPendingOrder voids an unpaid order.
func (s *Store) CancelPendingOrder(ctx context.Context, orderID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE pending_orders SET status = ? WHERE id = ? AND status = ?`,
		OrderStatusCancelled, orderID, OrderStatusPending)
	return err
}

// IsReferenceUsed reports whether a slip reference already appears in
// the payment log.
func (s *Store) IsReferenceUsed(ctx context.Context, referenceID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM payment_logs WHERE slip_ref = ? AND slip_ref != ''`,
		referenceID).Scan(&count)
	return count > 0, err
}

// RecordPayment appends an audit entry.
func (s *Store) RecordPayment(ctx context.Context, entry payment.AuditEntry) error {
	idsJSON, err := json.Marshal(entry.TransactionIDs)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO payment_logs
		(user_id, user_name, user_role, amount, slip_ref, status, type, description, transaction_ids_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.PrincipalID, entry.DisplayName, entry.Role,
		entry.Amount.String(), entry.ReferenceID, entry.Status,
		entry.Type, entry.Description, string(idsJSON))
	return err
}

// ListPaymentLogs returns the most recent audit entries.
func (s *Store) ListPaymentLogs(ctx context.Context, limit int) ([]PaymentLog, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, user_name, user_role, amount, slip_ref, status, type, description, transaction_ids_json, created_at
		FROM payment_logs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var logs []PaymentLog
	for rows.Next() {
		var entry PaymentLog
		var amount, idsJSON string
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.UserName, &entry.UserRole,
			&amount, &entry.SlipRef, &entry.Status, &entry.Type, &entry.Description,
			&idsJSON, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("corrupt amount on payment log %d: %w", entry.ID, err)
		}
		if err := json.Unmarshal([]byte(idsJSON), &entry.TransactionIDs); err != nil {
			return nil, fmt.Errorf("corrupt transaction ids on payment log %d: %w", entry.ID, err)
		}
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}

// ReceivingAccount reads the configured bank account from settings. An
// unconfigured account is not an error; it disables the account check.
func (s *Store) ReceivingAccount(ctx context.Context) (reconcile.ReceivingAccount, error) {
	value, err := s.Setting(ctx, SettingBankAccountNumber)
	if err != nil {
		return reconcile.ReceivingAccount{}, err
	}
	return reconcile.ReceivingAccount{AccountNumber: reconcile.NormalizeAccount(value)}, nil
}

// Setting reads one settings value; missing keys return "".
func (s *Store) Setting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// SetSetting upserts one settings value.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}
