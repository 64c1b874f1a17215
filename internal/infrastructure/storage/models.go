package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// ResellerTransaction is one buy-now-pay-later charge on a reseller's
// ledger. Amounts are stored as decimal strings to avoid float drift.
type ResellerTransaction struct {
	ID          string
	UserID      string
	Amount      decimal.Decimal
	Description string
	Paid        bool
	SlipRef     string
	PaidAt      *time.Time
	CreatedAt   time.Time
}

// PendingOrderRecord is an order awaiting payment.
type PendingOrderRecord struct {
	ID          string
	UserID      string
	Amount      decimal.Decimal
	PackageDays int
	Status      string
	SlipRef     string
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// Pending order statuses.
const (
	OrderStatusPending   = "pending"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

// PaymentLog is one audit entry for a reconciliation outcome.
type PaymentLog struct {
	ID             int64
	UserID         string
	UserName       string
	UserRole       string
	Amount         decimal.Decimal
	SlipRef        string
	Status         string
	Type           string
	Description    string
	TransactionIDs []string
	CreatedAt      time.Time
}

// Setting keys used by the payment flows.
const (
	SettingBankAccountNumber = "bank_account_number"
	SettingBankAccountName   = "bank_account_name"
	SettingBankName          = "bank_name"
)
