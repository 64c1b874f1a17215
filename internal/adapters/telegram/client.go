// Package telegram pushes notifications to a Telegram chat through the
// bot API. Delivery is best-effort; callers treat failures as reportable
// but never blocking.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/ultrastock/backend/internal/infrastructure/config"
)

const defaultAPIBase = "https://api.telegram.org"

// Client sends messages through the Telegram bot API.
type Client struct {
	apiBase  string
	botToken string
	chatID   string
	http     *retryablehttp.Client
	logger   *slog.Logger
}

// NewClient creates a Telegram client with default credentials from
// config. SendAs can override them per call for runtime-managed bots.
func NewClient(cfg config.TelegramConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = 1
	rc.HTTPClient.Timeout = 15 * time.Second
	rc.Logger = nil

	return &Client{
		apiBase:  defaultAPIBase,
		botToken: cfg.BotToken,
		chatID:   cfg.ChatID,
		http:     rc,
		logger:   logger,
	}
}

// Configured reports whether default credentials are present.
func (c *Client) Configured() bool {
	return c.botToken != "" && c.chatID != ""
}

// Send delivers an HTML-formatted message to the default chat.
func (c *Client) Send(ctx context.Context, text string) error {
	if !c.Configured() {
		return fmt.Errorf("telegram is not configured")
	}
	return c.SendAs(ctx, c.botToken, c.chatID, text)
}

// SendAs delivers an HTML-formatted message with explicit credentials;
// used by the settings test endpoint and for bots managed at runtime.
func (c *Client) SendAs(ctx context.Context, botToken, chatID, text string) error {
	body, err := json.Marshal(map[string]string{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "HTML",
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.apiBase, botToken)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sending telegram message: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("reading telegram response: %w", err)
	}

	var parsed struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("decoding telegram response: %w", err)
	}
	if !parsed.OK {
		return fmt.Errorf("telegram rejected message: %s", parsed.Description)
	}
	return nil
}
