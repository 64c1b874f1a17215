package dto

import "github.com/shopspring/decimal"

// LoginRequest carries panel credentials.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest creates a customer account.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	LineID   string `json:"lineId"`
}

// SubmitPaymentRequest settles a reseller's outstanding balance with a
// slip image.
type SubmitPaymentRequest struct {
	SlipImage string `json:"slipImage"`
}

// PayOrderRequest pays one pending order with a slip image.
type PayOrderRequest struct {
	OrderID   string `json:"orderId"`
	SlipImage string `json:"slipImage"`
}

// RenewWithPaymentRequest renews an order (identified by its stock
// email) backed by a verified slip.
type RenewWithPaymentRequest struct {
	Email       string          `json:"email"`
	PackageDays int             `json:"packageDays"`
	Amount      decimal.Decimal `json:"amount"`
	SlipImage   string          `json:"slipImage"`
}

// RenewByEmailRequest renews an order without payment verification;
// used by admins who collect payment out of band.
type RenewByEmailRequest struct {
	Email       string `json:"email"`
	PackageDays int    `json:"packageDays"`
}

// RenewByIDRequest renews an order by its id.
type RenewByIDRequest struct {
	PackageDays int    `json:"packageDays"`
	SlipRef     string `json:"slipRef"`
}

// TelegramTestRequest sends a test notification with explicit bot
// credentials, before they are saved to settings.
type TelegramTestRequest struct {
	BotToken string `json:"botToken"`
	ChatID   string `json:"chatId"`
}

// ResetPasswordRequest sets a user's password.
type ResetPasswordRequest struct {
	NewPassword string `json:"newPassword"`
}

// PayCommissionRequest records a commission payout to an admin.
type PayCommissionRequest struct {
	AdminID string          `json:"adminId"`
	Amount  decimal.Decimal `json:"amount"`
	Note    string          `json:"note"`
}

// BankAccountRequest updates the merchant's receiving account.
type BankAccountRequest struct {
	BankName      string `json:"bankName"`
	AccountNumber string `json:"accountNumber"`
	AccountName   string `json:"accountName"`
}
