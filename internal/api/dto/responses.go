// Package dto defines the request and response shapes of the HTTP API.
// Every response carries the {"success": ..., "error": ...} envelope the
// panel frontend expects.
package dto

import "github.com/shopspring/decimal"

// ErrorResponse is the envelope for any failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}

// Error builds a failure envelope.
func Error(message string) ErrorResponse {
	return ErrorResponse{Success: false, Error: message}
}

// ErrorWithCode builds a failure envelope with a machine-readable
// rejection code alongside the human message.
func ErrorWithCode(code, message string) ErrorResponse {
	return ErrorResponse{Success: false, Error: message, Code: code}
}

// SessionUser is the identity block returned by login, register and
// check-session.
type SessionUser struct {
	ID          string          `json:"id"`
	Username    string          `json:"username"`
	Role        string          `json:"role"`
	Permissions map[string]bool `json:"permissions"`
}

// LoginResponse is returned on successful authentication.
type LoginResponse struct {
	Success bool        `json:"success"`
	Token   string      `json:"token"`
	User    SessionUser `json:"user"`
}

// SessionResponse is returned by check-session.
type SessionResponse struct {
	Success bool        `json:"success"`
	User    SessionUser `json:"user"`
}

// PaymentResponse is returned when a slip is accepted.
type PaymentResponse struct {
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	PaidAmount decimal.Decimal `json:"paidAmount"`
	SlipRef    string          `json:"slipRef,omitempty"`
}

// MessageResponse is a bare success acknowledgement.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Message builds a success acknowledgement.
func Message(text string) MessageResponse {
	return MessageResponse{Success: true, Message: text}
}
