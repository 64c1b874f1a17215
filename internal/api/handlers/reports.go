package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ultrastock/backend/internal/adapters/telegram"
	"github.com/ultrastock/backend/internal/api/dto"
)

// Messenger sends chat messages with explicit credentials.
type Messenger interface {
	SendAs(ctx context.Context, botToken, chatID, text string) error
}

// ReportsHandler implements the Telegram test and stock-report routes.
type ReportsHandler struct {
	messenger Messenger
	backend   Backend
	now       func() time.Time
}

// NewReportsHandler creates the reports handler.
func NewReportsHandler(messenger Messenger, backend Backend) *ReportsHandler {
	return &ReportsHandler{messenger: messenger, backend: backend, now: time.Now}
}

// TestTelegram sends a fixed test message with the credentials from the
// request, so the owner can check them before saving.
func (h *ReportsHandler) TestTelegram(c *gin.Context) {
	var req dto.TelegramTestRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.BotToken == "" || req.ChatID == "" {
		c.JSON(http.StatusBadRequest, dto.Error("botToken and chatId required"))
		return
	}

	err := h.messenger.SendAs(c.Request.Context(), req.BotToken, req.ChatID,
		"🔔 <b>Test notification</b>\n\nIf you can read this, the bot is configured correctly.")
	if err != nil {
		c.JSON(http.StatusOK, dto.Error(err.Error()))
		return
	}
	c.JSON(http.StatusOK, dto.Message("test message sent"))
}

// SendStockReport renders the stock report from the stats in the
// request and sends it with the bot credentials stored in settings.
func (h *ReportsHandler) SendStockReport(c *gin.Context) {
	var req struct {
		MainEmailStats telegram.MainEmailStats `json:"mainEmailStats"`
		DashboardStats telegram.DashboardStats `json:"dashboardStats"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.Error("invalid request body"))
		return
	}

	botToken, chatID, err := h.telegramCredentials(c)
	if err != nil {
		c.JSON(http.StatusOK, dto.Error("could not load settings"))
		return
	}
	if botToken == "" || chatID == "" {
		c.JSON(http.StatusOK, dto.Error("telegram is not configured"))
		return
	}

	message := telegram.BuildStockReport(req.MainEmailStats, req.DashboardStats, h.now())
	if err := h.messenger.SendAs(c.Request.Context(), botToken, chatID, message); err != nil {
		c.JSON(http.StatusOK, dto.Error(err.Error()))
		return
	}
	c.JSON(http.StatusOK, dto.Message("report sent"))
}

func (h *ReportsHandler) telegramCredentials(c *gin.Context) (botToken, chatID string, err error) {
	if h.backend == nil {
		return "", "", nil
	}

	resp, err := h.backend.Call(c.Request.Context(), "getSettings", nil)
	if err != nil {
		return "", "", err
	}

	var body struct {
		Settings struct {
			TelegramBotToken string `json:"telegramBotToken"`
			TelegramChatID   string `json:"telegramChatId"`
		} `json:"settings"`
	}
	if err := resp.Decode(&body); err != nil {
		return "", "", err
	}
	return body.Settings.TelegramBotToken, body.Settings.TelegramChatID, nil
}
