package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ultrastock/backend/internal/adapters/script"
	"github.com/ultrastock/backend/internal/api/dto"
	"github.com/ultrastock/backend/internal/api/middleware"
	"github.com/ultrastock/backend/internal/application/payment"
)

// PaymentsHandler implements the slip-verified payment routes plus the
// pending-order and renewal plumbing around them.
type PaymentsHandler struct {
	payments *payment.Service
	backend  Backend
}

// NewPaymentsHandler creates the payments handler. The backend is used
// for pass-through routes and may be nil on sqlite deployments.
func NewPaymentsHandler(payments *payment.Service, backend Backend) *PaymentsHandler {
	return &PaymentsHandler{payments: payments, backend: backend}
}

// UnpaidBalance relays the reseller's outstanding amount.
func (h *PaymentsHandler) UnpaidBalance(c *gin.Context) {
	claims := middleware.Principal(c)
	forward(c, h.backend, "getResellerUnpaidAmount", script.Payload{"userId": claims.UserID})
}

// SubmitPayment settles the reseller's outstanding balance with a
// verified slip.
func (h *PaymentsHandler) SubmitPayment(c *gin.Context) {
	var req dto.SubmitPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.Error("invalid request body"))
		return
	}

	result, err := h.payments.SettleOutstanding(c.Request.Context(), principal(c), req.SlipImage)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.Error("payment processing failed"))
		return
	}
	writeResult(c, result)
}

// CreatePendingOrder forwards a customer's order reservation.
func (h *PaymentsHandler) CreatePendingOrder(c *gin.Context) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, dto.Error("invalid request body"))
		return
	}

	claims := middleware.Principal(c)
	forward(c, h.backend, "createPendingOrder", script.Payload{
		"userId":      claims.UserID,
		"userName":    claims.Username,
		"subEmailIds": body["subEmailIds"],
		"packageDays": body["packageDays"],
		"amount":      body["amount"],
	})
}

// ListPendingOrders relays the customer's unpaid orders.
func (h *PaymentsHandler) ListPendingOrders(c *gin.Context) {
	claims := middleware.Principal(c)
	forward(c, h.backend, "getPendingOrders", script.Payload{"userId": claims.UserID})
}

// PayOrder pays one pending order with a verified slip.
func (h *PaymentsHandler) PayOrder(c *gin.Context) {
	var req dto.PayOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.Error("invalid request body"))
		return
	}

	result, err := h.payments.PayPendingOrder(c.Request.Context(), principal(c), req.OrderID, req.SlipImage)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.Error("payment processing failed"))
		return
	}
	writeResult(c, result)
}

// CancelPendingOrder voids an unpaid order.
func (h *PaymentsHandler) CancelPendingOrder(c *gin.Context) {
	forward(c, h.backend, "cancelPendingOrder", script.Payload{"orderId": c.Param("id")})
}

// RenewByID forwards an order renewal keyed by order id.
func (h *PaymentsHandler) RenewByID(c *gin.Context) {
	var req dto.RenewByIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.Error("invalid request body"))
		return
	}

	claims := middleware.Principal(c)
	forward(c, h.backend, "renewOrder", script.Payload{
		"orderId":     c.Param("id"),
		"packageDays": req.PackageDays,
		"userId":      claims.UserID,
		"userRole":    claims.Role,
		"slipRef":     req.SlipRef,
	})
}

// RenewByEmail forwards an unverified renewal; used by staff who take
// payment out of band.
func (h *PaymentsHandler) RenewByEmail(c *gin.Context) {
	var req dto.RenewByEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.Error("invalid request body"))
		return
	}

	claims := middleware.Principal(c)
	forward(c, h.backend, "renewOrderByEmail", script.Payload{
		"email":       req.Email,
		"packageDays": req.PackageDays,
		"userId":      claims.UserID,
		"userRole":    claims.Role,
	})
}

// RenewWithPayment renews an order backed by a verified slip.
func (h *PaymentsHandler) RenewWithPayment(c *gin.Context) {
	var req dto.RenewWithPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.Error("invalid request body"))
		return
	}

	result, err := h.payments.RenewWithPayment(c.Request.Context(), principal(c),
		req.Email, req.PackageDays, req.Amount, req.SlipImage)
	if err != nil {
		if errors.Is(err, payment.ErrRenewalUnavailable) {
			c.JSON(http.StatusServiceUnavailable, dto.Error("renewal is not available"))
			return
		}
		c.JSON(http.StatusInternalServerError, dto.Error("payment processing failed"))
		return
	}
	writeResult(c, result)
}
