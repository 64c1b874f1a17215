package script

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ultrastock/backend/internal/application/payment"
	"github.com/ultrastock/backend/internal/domain/reconcile"
)

// The client implements all payment-flow ports against the scripting
// service: ledger reads/writes, duplicate checks, the receiving-account
// read, the audit log and order renewal.
var (
	_ payment.LedgerGateway    = (*Client)(nil)
	_ payment.DuplicateChecker = (*Client)(nil)
	_ payment.AccountProvider  = (*Client)(nil)
	_ payment.AuditLogger      = (*Client)(nil)
	_ payment.Renewer          = (*Client)(nil)
)

// OutstandingBalance reads the principal's unpaid amount and the
// transaction ids it covers.
func (c *Client) OutstandingBalance(ctx context.Context, principalID string) (reconcile.OutstandingBalance, error) {
	resp, err := c.call(ctx, "getResellerUnpaidAmount", Payload{"userId": principalID})
	if err != nil {
		return reconcile.OutstandingBalance{}, err
	}

	var body struct {
		UnpaidAmount       decimal.Decimal `json:"unpaidAmount"`
		UnpaidTransactions []struct {
			ID string `json:"id"`
		} `json:"unpaidTransactions"`
	}
	if err := resp.Decode(&body); err != nil {
		return reconcile.OutstandingBalance{}, err
	}

	ids := make([]string, 0, len(body.UnpaidTransactions))
	for _, tx := range body.UnpaidTransactions {
		ids = append(ids, tx.ID)
	}

	return reconcile.OutstandingBalance{
		PrincipalID:    principalID,
		AmountDue:      body.UnpaidAmount,
		TransactionIDs: ids,
	}, nil
}

// MarkPaid settles the given transactions. The scripting service makes
// this idempotent per transaction id, so retries are safe.
func (c *Client) MarkPaid(ctx context.Context, transactionIDs []string, referenceID string, paidAt time.Time) error {
	_, err := c.call(ctx, "markResellerTransactionsPaid", Payload{
		"transactionIds": transactionIDs,
		"slipRef":        referenceID,
		"paidAt":         paidAt.UTC().Format(time.RFC3339),
	})
	return err
}

// PendingOrder looks up one of the principal's pending orders.
func (c *Client) PendingOrder(ctx context.Context, principalID, orderID string) (reconcile.PendingOrder, bool, error) {
	resp, err := c.call(ctx, "getPendingOrders", Payload{"userId": principalID})
	if err != nil {
		return reconcile.PendingOrder{}, false, err
	}

	var body struct {
		Orders []struct {
			ID     string          `json:"id"`
			Amount decimal.Decimal `json:"amount"`
		} `json:"orders"`
	}
	if err := resp.Decode(&body); err != nil {
		return reconcile.PendingOrder{}, false, err
	}

	for _, order := range body.Orders {
		if order.ID == orderID {
			return reconcile.PendingOrder{ID: order.ID, Amount: order.Amount}, true, nil
		}
	}
	return reconcile.PendingOrder{}, false, nil
}

// CompletePendingOrder finalizes a paid order, tagging it with the slip
// reference.
func (c *Client) CompletePendingOrder(ctx context.Context, orderID, referenceID string) error {
	_, err := c.call(ctx, "completePendingOrder", Payload{
		"orderId": orderID,
		"slipRef": referenceID,
	})
	return err
}

// IsReferenceUsed asks the backend whether a slip reference has been
// seen before.
func (c *Client) IsReferenceUsed(ctx context.Context, referenceID string) (bool, error) {
	resp, err := c.Call(ctx, "checkDuplicateSlip", Payload{"slipRef": referenceID})
	if err != nil {
		return false, err
	}

	var body struct {
		IsDuplicate bool `json:"isDuplicate"`
	}
	if err := resp.Decode(&body); err != nil {
		return false, err
	}
	return body.IsDuplicate, nil
}

// ReceivingAccount reads the merchant bank account from settings,
// normalized for comparison against provider-reported accounts.
func (c *Client) ReceivingAccount(ctx context.Context) (reconcile.ReceivingAccount, error) {
	resp, err := c.call(ctx, "getBankAccount", nil)
	if err != nil {
		return reconcile.ReceivingAccount{}, err
	}

	var body struct {
		BankAccount struct {
			AccountNumber string `json:"accountNumber"`
		} `json:"bankAccount"`
	}
	if err := resp.Decode(&body); err != nil {
		return reconcile.ReceivingAccount{}, err
	}

	return reconcile.ReceivingAccount{
		AccountNumber: reconcile.NormalizeAccount(body.BankAccount.AccountNumber),
	}, nil
}

// RecordPayment appends an entry to the payment log.
func (c *Client) RecordPayment(ctx context.Context, entry payment.AuditEntry) error {
	p := Payload{
		"userId":   entry.PrincipalID,
		"userName": entry.DisplayName,
		"userRole": entry.Role,
		"amount":   entry.Amount,
		"slipRef":  entry.ReferenceID,
		"status":   entry.Status,
	}
	if len(entry.TransactionIDs) > 0 {
		p["transactionIds"] = entry.TransactionIDs
	}
	if entry.Type != "" {
		p["type"] = entry.Type
	}
	if entry.Description != "" {
		p["description"] = entry.Description
	}

	_, err := c.call(ctx, "savePaymentLog", p)
	return err
}

// RenewOrder extends an order's package, identified by its stock email.
func (c *Client) RenewOrder(ctx context.Context, req payment.RenewRequest) error {
	_, err := c.call(ctx, "renewOrderByEmail", Payload{
		"email":       req.Email,
		"packageDays": req.PackageDays,
		"userId":      req.PrincipalID,
		"userRole":    req.Role,
		"slipRef":     req.ReferenceID,
		"paidAmount":  req.PaidAmount,
	})
	return err
}
