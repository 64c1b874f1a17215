// Package handlers implements the HTTP routes of the stock panel API.
// Core payment routes run through the payment service; the rest of the
// panel forwards to the stock backend and relays its envelope verbatim.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ultrastock/backend/internal/adapters/script"
	"github.com/ultrastock/backend/internal/api/dto"
	"github.com/ultrastock/backend/internal/api/middleware"
	"github.com/ultrastock/backend/internal/application/payment"
)

// Backend is the stock backend used by pass-through routes. It reports
// business failures inside the envelope, not as errors.
type Backend interface {
	Call(ctx context.Context, action string, payload script.Payload) (*script.Response, error)
}

// UserDirectory authenticates and looks up panel accounts.
type UserDirectory interface {
	Login(ctx context.Context, username, password string) (*script.User, error)
	Register(ctx context.Context, username, password, name, phone, lineID string) (*script.User, error)
	GetUser(ctx context.Context, userID string) (*script.User, error)
}

// forward relays a backend response body verbatim, preserving the
// envelope the panel frontend already speaks.
func forward(c *gin.Context, backend Backend, action string, payload script.Payload) {
	if backend == nil {
		c.JSON(http.StatusServiceUnavailable, dto.Error("stock backend is not configured"))
		return
	}

	resp, err := backend.Call(c.Request.Context(), action, payload)
	if err != nil {
		c.JSON(http.StatusBadGateway, dto.Error("stock backend unreachable"))
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", resp.Raw)
}

// principal converts the request's claims into a payment principal.
func principal(c *gin.Context) payment.Principal {
	claims := middleware.Principal(c)
	if claims == nil {
		return payment.Principal{}
	}
	return payment.Principal{ID: claims.UserID, Username: claims.Username, Role: claims.Role}
}

// writeResult maps a payment result onto the response envelope.
// Accepted attempts are 200; every rejection is 400 with the reason
// code when the policy produced one.
func writeResult(c *gin.Context, result payment.Result) {
	if result.Ok {
		c.JSON(http.StatusOK, dto.PaymentResponse{
			Success:    true,
			Message:    result.Message,
			PaidAmount: result.PaidAmount,
			SlipRef:    result.ReferenceID,
		})
		return
	}
	c.JSON(http.StatusBadRequest, dto.ErrorWithCode(string(result.Reason), result.Message))
}
