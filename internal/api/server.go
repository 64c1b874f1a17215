// Package api assembles the HTTP façade of the stock panel: routing,
// CORS, authentication middleware and the handler set.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/ultrastock/backend/internal/api/handlers"
	"github.com/ultrastock/backend/internal/api/middleware"
	"github.com/ultrastock/backend/internal/application/payment"
	"github.com/ultrastock/backend/internal/infrastructure/auth"
)

// Config holds API server configuration.
type Config struct {
	Port           int
	AllowedOrigins []string
}

// Deps are the collaborators the route table needs. Users and Backend
// may be nil on deployments without the stock backend; routes that need
// them then answer 503.
type Deps struct {
	Tokens    *auth.TokenService
	Users     handlers.UserDirectory
	Payments  *payment.Service
	Backend   handlers.Backend
	Messenger handlers.Messenger
	Logger    *slog.Logger
}

// Server is the HTTP API server.
type Server struct {
	config     Config
	engine     *gin.Engine
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates the server and wires the full route table.
func NewServer(cfg Config, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.Logging(deps.Logger))
	engine.Use(cors.New(corsConfig(cfg.AllowedOrigins)))

	s := &Server{
		config: cfg,
		engine: engine,
		logger: deps.Logger,
	}
	s.setupRoutes(deps)
	return s
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization")
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func (s *Server) setupRoutes(deps Deps) {
	authHandler := handlers.NewAuthHandler(deps.Users, deps.Tokens)
	paymentsHandler := handlers.NewPaymentsHandler(deps.Payments, deps.Backend)
	panelHandler := handlers.NewPanelHandler(deps.Backend)
	reportsHandler := handlers.NewReportsHandler(deps.Messenger, deps.Backend)

	s.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public routes: authentication, and the receiving account shown on
	// the transfer screen before login.
	s.engine.POST("/api/login", authHandler.Login)
	s.engine.POST("/api/register", authHandler.Register)
	s.engine.GET("/api/bank-account", panelHandler.GetBankAccount)

	api := s.engine.Group("/api", middleware.Authenticate(deps.Tokens))

	ownerOnly := middleware.RequireRole(auth.RoleOwner)
	stockStaff := middleware.RequireRole(auth.RoleOwner, auth.RoleSuperAdmin)
	anyStaff := middleware.RequireRole(auth.RoleOwner, auth.RoleSuperAdmin, auth.RoleAdmin)

	api.GET("/check-session", authHandler.CheckSession)

	api.GET("/dashboard", panelHandler.Dashboard)
	api.GET("/dashboard-enhanced", stockStaff, panelHandler.DashboardEnhanced)

	api.GET("/main-emails", stockStaff, panelHandler.ListMainEmails)
	api.POST("/main-emails", stockStaff, panelHandler.AddMainEmail)
	api.PUT("/main-emails/:id", stockStaff, panelHandler.UpdateMainEmail)
	api.DELETE("/main-emails/:id", stockStaff, panelHandler.DeleteMainEmail)

	api.GET("/sub-emails", panelHandler.ListSubEmails)
	api.POST("/sub-emails", stockStaff, panelHandler.AddSubEmails)
	api.DELETE("/sub-emails/:id", stockStaff, panelHandler.DeleteSubEmail)
	api.GET("/sub-emails/search", panelHandler.SearchSubEmail)

	api.POST("/orders", panelHandler.CreateOrder)
	api.GET("/orders", panelHandler.ListOrders)
	api.PUT("/orders/:id/extend", stockStaff, panelHandler.ExtendOrder)
	api.PUT("/orders/:id/expire", stockStaff, panelHandler.ExpireOrder)
	api.POST("/orders/:id/renew", paymentsHandler.RenewByID)
	api.POST("/orders/renew", paymentsHandler.RenewByEmail)
	api.POST("/orders/renew-with-payment", paymentsHandler.RenewWithPayment)

	api.GET("/expiring", stockStaff, panelHandler.ListExpiring)

	api.GET("/admins", ownerOnly, panelHandler.ListAdmins)
	api.POST("/admins", ownerOnly, panelHandler.AddAdmin)
	api.PUT("/admins/:id", ownerOnly, panelHandler.UpdateAdmin)
	api.DELETE("/admins/:id", ownerOnly, panelHandler.DeleteAdmin)

	api.GET("/packages", panelHandler.ListPackages)
	api.POST("/packages", ownerOnly, panelHandler.SavePackages)

	api.GET("/commissions", ownerOnly, panelHandler.ListCommissions)
	api.PUT("/commissions/:adminId", ownerOnly, panelHandler.UpdateCommission)
	api.GET("/commission-log", panelHandler.CommissionLog)
	api.GET("/admin-commission/:userId", panelHandler.AdminCommission)
	api.GET("/all-admins-commission", ownerOnly, panelHandler.AllAdminsCommission)
	api.POST("/pay-commission", ownerOnly, panelHandler.PayCommission)
	api.GET("/commission-payments/:userId", panelHandler.CommissionPayments)

	api.GET("/reseller/balance", panelHandler.ResellerBalance)
	api.GET("/reseller/transactions", panelHandler.ResellerTransactions)
	api.PUT("/reseller/transactions/:id/paid", stockStaff, panelHandler.MarkTransactionPaid)
	api.GET("/reseller/unpaid", paymentsHandler.UnpaidBalance)
	api.POST("/reseller/submit-payment", paymentsHandler.SubmitPayment)

	api.POST("/customer/pending-order", paymentsHandler.CreatePendingOrder)
	api.GET("/customer/pending-orders", paymentsHandler.ListPendingOrders)
	api.POST("/customer/pay-order", paymentsHandler.PayOrder)
	api.DELETE("/customer/pending-order/:id", paymentsHandler.CancelPendingOrder)

	api.GET("/settings", ownerOnly, panelHandler.GetSettings)
	api.PUT("/settings", ownerOnly, panelHandler.UpdateSettings)
	api.PUT("/bank-account", ownerOnly, panelHandler.UpdateBankAccount)

	api.POST("/telegram/test", ownerOnly, reportsHandler.TestTelegram)
	api.POST("/send-stock-report", stockStaff, reportsHandler.SendStockReport)

	api.POST("/users/:id/reset-password", anyStaff, panelHandler.ResetPassword)
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting API server", "addr", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")

	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the engine for tests.
func (s *Server) Router() http.Handler {
	return s.engine
}
