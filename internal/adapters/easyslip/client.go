// Package easyslip verifies bank transfer slips through the EasySlip API
// and normalizes the provider response into a payment claim.
package easyslip

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/shopspring/decimal"

	"github.com/ultrastock/backend/internal/domain/reconcile"
	"github.com/ultrastock/backend/internal/infrastructure/config"
)

const verifyPath = "/api/v1/verify"

// VerificationError is the normalized failure for both provider
// rejections and transport problems. Slip verification failing is an
// expected outcome, not a fault; callers surface Message to the payer.
type VerificationError struct {
	Message string
}

func (e *VerificationError) Error() string {
	return "slip verification failed: " + e.Message
}

// Client calls the EasySlip verification API.
type Client struct {
	baseURL string
	apiKey  string
	http    *retryablehttp.Client
	logger  *slog.Logger
}

// NewClient creates an EasySlip client from config.
func NewClient(cfg config.EasySlipConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.HTTPClient.Timeout = 30 * time.Second
	rc.Logger = nil

	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    rc,
		logger:  logger,
	}
}

// verifyRequest is the provider's request body.
type verifyRequest struct {
	Image string `json:"image"`
}

// verifyResponse mirrors the provider's envelope. Every data field is
// optional; absent fields become the claim's zero values.
type verifyResponse struct {
	Status  int       `json:"status"`
	Message string    `json:"message"`
	Data    *slipData `json:"data"`
}

type slipData struct {
	TransRef       string          `json:"transRef"`
	TransTimestamp json.RawMessage `json:"transTimestamp"`
	Amount         *slipAmount     `json:"amount"`
	Receiver       *slipParty      `json:"receiver"`
	Sender         *slipParty      `json:"sender"`
}

type slipAmount struct {
	Amount decimal.Decimal `json:"amount"`
}

type slipParty struct {
	Account *slipAccount `json:"account"`
}

type slipAccount struct {
	Value string `json:"value"`
}

// Verify submits a base64-encoded slip image and returns the normalized
// payment claim. All failures, including transport errors, come back as
// a *VerificationError.
func (c *Client) Verify(ctx context.Context, imageBase64 string) (reconcile.PaymentClaim, error) {
	body, err := json.Marshal(verifyRequest{Image: imageBase64})
	if err != nil {
		return reconcile.PaymentClaim{}, &VerificationError{Message: err.Error()}
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+verifyPath, bytes.NewReader(body))
	if err != nil {
		return reconcile.PaymentClaim{}, &VerificationError{Message: err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("easyslip request failed", "error", err)
		return reconcile.PaymentClaim{}, &VerificationError{Message: "could not reach slip verification service"}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return reconcile.PaymentClaim{}, &VerificationError{Message: "could not read verification response"}
	}

	var parsed verifyResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		c.logger.Warn("easyslip returned malformed response", "status", resp.StatusCode)
		return reconcile.PaymentClaim{}, &VerificationError{Message: "unreadable verification response"}
	}

	if parsed.Status != http.StatusOK || parsed.Data == nil {
		msg := parsed.Message
		if msg == "" {
			msg = fmt.Sprintf("verification rejected (status %d)", parsed.Status)
		}
		return reconcile.PaymentClaim{}, &VerificationError{Message: msg}
	}

	return normalizeClaim(parsed.Data), nil
}

// normalizeClaim maps provider fields into a PaymentClaim, tolerating
// every field being absent.
func normalizeClaim(data *slipData) reconcile.PaymentClaim {
	claim := reconcile.PaymentClaim{
		ReferenceID: data.TransRef,
		Timestamp:   parseTimestamp(data.TransTimestamp),
	}
	if data.Amount != nil {
		claim.Amount = data.Amount.Amount
	}
	if data.Receiver != nil && data.Receiver.Account != nil {
		claim.ReceivingAccount = data.Receiver.Account.Value
	}
	return claim
}

// parseTimestamp accepts either an RFC 3339 string or epoch
// milliseconds, which is what the provider has been seen returning.
// Anything else maps to the absent sentinel (zero time).
func parseTimestamp(raw json.RawMessage) time.Time {
	if len(raw) == 0 {
		return time.Time{}
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if ts, err := time.Parse(time.RFC3339, s); err == nil {
			return ts
		}
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.UnixMilli(ms)
		}
		return time.Time{}
	}

	var ms int64
	if err := json.Unmarshal(raw, &ms); err == nil {
		return time.UnixMilli(ms)
	}

	return time.Time{}
}
