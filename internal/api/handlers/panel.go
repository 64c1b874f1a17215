package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ultrastock/backend/internal/adapters/script"
	"github.com/ultrastock/backend/internal/api/dto"
	"github.com/ultrastock/backend/internal/api/middleware"
	"github.com/ultrastock/backend/internal/infrastructure/auth"
)

// PanelHandler forwards the stock-management routes to the backend and
// relays its envelope verbatim. These routes own no local state; the
// backend stays the source of truth for stock, orders and commissions.
type PanelHandler struct {
	backend Backend
}

// NewPanelHandler creates the pass-through handler.
func NewPanelHandler(backend Backend) *PanelHandler {
	return &PanelHandler{backend: backend}
}

// Dashboard relays the caller's dashboard stats.
func (h *PanelHandler) Dashboard(c *gin.Context) {
	claims := middleware.Principal(c)
	forward(c, h.backend, "getDashboardStats", script.Payload{
		"userId": claims.UserID,
		"role":   claims.Role,
	})
}

// DashboardEnhanced relays date-filtered dashboard stats.
func (h *PanelHandler) DashboardEnhanced(c *gin.Context) {
	claims := middleware.Principal(c)
	forward(c, h.backend, "getDashboardStatsEnhanced", script.Payload{
		"userId":    claims.UserID,
		"role":      claims.Role,
		"startDate": c.Query("startDate"),
		"endDate":   c.Query("endDate"),
	})
}

// ListMainEmails relays the main-email inventory.
func (h *PanelHandler) ListMainEmails(c *gin.Context) {
	claims := middleware.Principal(c)
	forward(c, h.backend, "getMainEmails", script.Payload{"role": claims.Role})
}

// AddMainEmail registers a new main email.
func (h *PanelHandler) AddMainEmail(c *gin.Context) {
	body, ok := bindBody(c)
	if !ok {
		return
	}
	claims := middleware.Principal(c)
	forward(c, h.backend, "addMainEmail", script.Payload{
		"email":     body["email"],
		"password":  body["password"],
		"createdBy": claims.UserID,
	})
}

// UpdateMainEmail updates a main email's credentials.
func (h *PanelHandler) UpdateMainEmail(c *gin.Context) {
	body, ok := bindBody(c)
	if !ok {
		return
	}
	forward(c, h.backend, "updateMainEmail", script.Payload{
		"id":       c.Param("id"),
		"email":    body["email"],
		"password": body["password"],
	})
}

// DeleteMainEmail removes a main email.
func (h *PanelHandler) DeleteMainEmail(c *gin.Context) {
	forward(c, h.backend, "deleteMainEmail", script.Payload{"id": c.Param("id")})
}

// ListSubEmails relays the sub-email stock, filtered by status.
func (h *PanelHandler) ListSubEmails(c *gin.Context) {
	claims := middleware.Principal(c)
	forward(c, h.backend, "getSubEmails", script.Payload{
		"role":   claims.Role,
		"status": c.DefaultQuery("status", "stock"),
	})
}

// AddSubEmails bulk-adds stock under a main email.
func (h *PanelHandler) AddSubEmails(c *gin.Context) {
	body, ok := bindBody(c)
	if !ok {
		return
	}
	claims := middleware.Principal(c)
	forward(c, h.backend, "addSubEmails", script.Payload{
		"mainEmailId": body["mainEmailId"],
		"emails":      body["emails"],
		"createdBy":   claims.UserID,
	})
}

// DeleteSubEmail removes one stock entry.
func (h *PanelHandler) DeleteSubEmail(c *gin.Context) {
	forward(c, h.backend, "deleteSubEmail", script.Payload{"id": c.Param("id")})
}

// SearchSubEmail looks up a stock entry by address.
func (h *PanelHandler) SearchSubEmail(c *gin.Context) {
	claims := middleware.Principal(c)
	forward(c, h.backend, "searchSubEmail", script.Payload{
		"email": c.Query("email"),
		"role":  claims.Role,
	})
}

// CreateOrder sells stock. Selling without commission needs an explicit
// permission unless the caller is owner or super admin.
func (h *PanelHandler) CreateOrder(c *gin.Context) {
	body, ok := bindBody(c)
	if !ok {
		return
	}
	claims := middleware.Principal(c)

	if body["saleType"] == "stock" {
		privileged := claims.Role == auth.RoleOwner || claims.Role == auth.RoleSuperAdmin ||
			claims.Permissions["canBuyWithoutCommission"]
		if !privileged {
			c.JSON(http.StatusForbidden, dto.Error("Permission denied"))
			return
		}
	}

	forward(c, h.backend, "createOrder", script.Payload{
		"subEmailIds":  body["subEmailIds"],
		"packageDays":  body["packageDays"],
		"customerName": body["customerName"],
		"saleType":     body["saleType"],
		"remark":       body["remark"],
		"adminId":      claims.UserID,
		"adminRole":    claims.Role,
	})
}

// ListOrders relays the caller's orders with optional filters.
func (h *PanelHandler) ListOrders(c *gin.Context) {
	claims := middleware.Principal(c)
	forward(c, h.backend, "getOrders", script.Payload{
		"userId":   claims.UserID,
		"role":     claims.Role,
		"filter":   c.Query("filter"),
		"saleType": c.Query("saleType"),
	})
}

// ExtendOrder adds days to an active order.
func (h *PanelHandler) ExtendOrder(c *gin.Context) {
	body, ok := bindBody(c)
	if !ok {
		return
	}
	forward(c, h.backend, "extendOrder", script.Payload{
		"orderId": c.Param("id"),
		"days":    body["days"],
	})
}

// ExpireOrder marks an order's stock as removed.
func (h *PanelHandler) ExpireOrder(c *gin.Context) {
	forward(c, h.backend, "markOrderExpired", script.Payload{"orderId": c.Param("id")})
}

// ListExpiring relays the orders expiring within the query window.
func (h *PanelHandler) ListExpiring(c *gin.Context) {
	days, err := strconv.Atoi(c.Query("days"))
	if err != nil || days <= 0 {
		days = 7
	}
	forward(c, h.backend, "getExpiringEmails", script.Payload{"days": days})
}

// ListAdmins relays the staff roster.
func (h *PanelHandler) ListAdmins(c *gin.Context) {
	forward(c, h.backend, "getAdmins", nil)
}

// AddAdmin creates a staff account.
func (h *PanelHandler) AddAdmin(c *gin.Context) {
	body, ok := bindBody(c)
	if !ok {
		return
	}
	forward(c, h.backend, "addAdmin", script.Payload{
		"username":    body["username"],
		"password":    body["password"],
		"role":        body["role"],
		"permissions": body["permissions"],
	})
}

// UpdateAdmin updates a staff account.
func (h *PanelHandler) UpdateAdmin(c *gin.Context) {
	body, ok := bindBody(c)
	if !ok {
		return
	}
	forward(c, h.backend, "updateAdmin", script.Payload{
		"id":          c.Param("id"),
		"username":    body["username"],
		"password":    body["password"],
		"role":        body["role"],
		"permissions": body["permissions"],
	})
}

// DeleteAdmin removes a staff account.
func (h *PanelHandler) DeleteAdmin(c *gin.Context) {
	forward(c, h.backend, "deleteAdmin", script.Payload{"id": c.Param("id")})
}

// ListPackages relays the package price list.
func (h *PanelHandler) ListPackages(c *gin.Context) {
	forward(c, h.backend, "getPackages", nil)
}

// SavePackages replaces the package price list.
func (h *PanelHandler) SavePackages(c *gin.Context) {
	body, ok := bindBody(c)
	if !ok {
		return
	}
	forward(c, h.backend, "savePackages", script.Payload{"packages": body["packages"]})
}

// ListCommissions relays the per-admin commission settings.
func (h *PanelHandler) ListCommissions(c *gin.Context) {
	forward(c, h.backend, "getCommissionSettings", nil)
}

// UpdateCommission replaces one admin's commission table.
func (h *PanelHandler) UpdateCommission(c *gin.Context) {
	body, ok := bindBody(c)
	if !ok {
		return
	}
	forward(c, h.backend, "updateCommission", script.Payload{
		"adminId":     c.Param("adminId"),
		"commissions": body["commissions"],
	})
}

// CommissionLog relays the caller's commission history.
func (h *PanelHandler) CommissionLog(c *gin.Context) {
	claims := middleware.Principal(c)
	forward(c, h.backend, "getCommissionLog", script.Payload{
		"userId": claims.UserID,
		"role":   claims.Role,
		"month":  c.Query("month"),
	})
}

// AdminCommission relays one admin's commission stats. Only the owner
// may look at other people's numbers.
func (h *PanelHandler) AdminCommission(c *gin.Context) {
	claims := middleware.Principal(c)
	targetID := c.Param("userId")
	if claims.Role != auth.RoleOwner && claims.UserID != targetID {
		c.JSON(http.StatusForbidden, dto.Error("Permission denied"))
		return
	}
	forward(c, h.backend, "getAdminCommissionStats", script.Payload{
		"userId": targetID,
		"month":  c.Query("month"),
	})
}

// AllAdminsCommission relays every admin's commission summary.
func (h *PanelHandler) AllAdminsCommission(c *gin.Context) {
	forward(c, h.backend, "getAllAdminsCommissionStats", script.Payload{"month": c.Query("month")})
}

// PayCommission records a commission payout.
func (h *PanelHandler) PayCommission(c *gin.Context) {
	var req dto.PayCommissionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.AdminID == "" || req.Amount.IsZero() {
		c.JSON(http.StatusBadRequest, dto.Error("adminId and amount required"))
		return
	}
	claims := middleware.Principal(c)
	forward(c, h.backend, "payCommissionToAdmin", script.Payload{
		"adminId": req.AdminID,
		"amount":  req.Amount,
		"note":    req.Note,
		"paidBy":  claims.UserID,
		"paidAt":  time.Now().UTC().Format(time.RFC3339),
	})
}

// CommissionPayments relays one admin's payout history, owner-or-self.
func (h *PanelHandler) CommissionPayments(c *gin.Context) {
	claims := middleware.Principal(c)
	targetID := c.Param("userId")
	if claims.Role != auth.RoleOwner && claims.UserID != targetID {
		c.JSON(http.StatusForbidden, dto.Error("Permission denied"))
		return
	}
	forward(c, h.backend, "getCommissionPayments", script.Payload{"userId": targetID})
}

// ResellerBalance relays the caller's pay-later balance.
func (h *PanelHandler) ResellerBalance(c *gin.Context) {
	claims := middleware.Principal(c)
	forward(c, h.backend, "getResellerBalance", script.Payload{"userId": claims.UserID})
}

// ResellerTransactions relays the caller's pay-later ledger.
func (h *PanelHandler) ResellerTransactions(c *gin.Context) {
	claims := middleware.Principal(c)
	forward(c, h.backend, "getResellerTransactions", script.Payload{
		"userId": claims.UserID,
		"role":   claims.Role,
	})
}

// MarkTransactionPaid settles one ledger entry by hand, for payments
// taken outside the slip flow.
func (h *PanelHandler) MarkTransactionPaid(c *gin.Context) {
	forward(c, h.backend, "markTransactionPaid", script.Payload{"transactionId": c.Param("id")})
}

// GetSettings relays the panel settings.
func (h *PanelHandler) GetSettings(c *gin.Context) {
	forward(c, h.backend, "getSettings", nil)
}

// UpdateSettings replaces panel settings with the request body.
func (h *PanelHandler) UpdateSettings(c *gin.Context) {
	body, ok := bindBody(c)
	if !ok {
		return
	}
	forward(c, h.backend, "updateSettings", script.Payload(body))
}

// GetBankAccount relays the merchant's receiving account. Public: the
// frontend shows it on the transfer screen before login completes.
func (h *PanelHandler) GetBankAccount(c *gin.Context) {
	forward(c, h.backend, "getBankAccount", nil)
}

// UpdateBankAccount replaces the merchant's receiving account.
func (h *PanelHandler) UpdateBankAccount(c *gin.Context) {
	var req dto.BankAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.Error("invalid request body"))
		return
	}
	forward(c, h.backend, "updateBankAccount", script.Payload{
		"bankName":      req.BankName,
		"accountNumber": req.AccountNumber,
		"accountName":   req.AccountName,
	})
}

// ResetPassword sets a new password on any account.
func (h *PanelHandler) ResetPassword(c *gin.Context) {
	var req dto.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.NewPassword == "" {
		c.JSON(http.StatusBadRequest, dto.Error("new password required"))
		return
	}
	forward(c, h.backend, "resetUserPassword", script.Payload{
		"userId":      c.Param("id"),
		"newPassword": req.NewPassword,
	})
}

// bindBody decodes an arbitrary JSON object, rejecting unparseable
// bodies before anything reaches the backend.
func bindBody(c *gin.Context) (map[string]any, bool) {
	body := map[string]any{}
	if c.Request.Body != nil && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, dto.Error("invalid request body"))
			return nil, false
		}
	}
	return body, true
}
