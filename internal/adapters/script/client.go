// Package script is the gateway to the spreadsheet-backed scripting
// service that owns persistence for the stock panel. Every request is a
// POST of {"action": ..., ...payload} JSON; every response carries a
// {"success": ..., "error": ...} envelope plus action-specific fields.
package script

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

// Payload is the action-specific part of a request body.
type Payload map[string]any

// Response is the decoded envelope plus the raw body for pass-through
// routes that forward the backend's reply verbatim.
type Response struct {
	Success bool
	Error   string
	Raw     json.RawMessage
}

// Decode unmarshals the raw body into out.
func (r *Response) Decode(out any) error {
	return json.Unmarshal(r.Raw, out)
}

// Client talks to the scripting service.
type Client struct {
	url    string
	http   *retryablehttp.Client
	logger *slog.Logger
}

// NewClient creates a scripting service client from config.
func NewClient(cfg config.ScriptConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.HTTPClient.Timeout = 60 * time.Second
	rc.Logger = nil

	return &Client{url: cfg.URL, http: rc, logger: logger}
}

// Call posts an action to the scripting service and decodes the
// envelope. A transport failure or unreadable body is returned as an
// error; a business failure comes back as Success=false with the
// backend's error text.
func (c *Client) Call(ctx context.Context, action string, payload Payload) (*Response, error) {
	body := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		body[k] = v
	}
	body["action"] = action

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding %s request: %w", action, err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("building %s request: %w", action, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("script call failed", "action", action, "error", err)
		return nil, fmt.Errorf("calling script action %s: %w", action, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", action, err)
	}

	var envelope struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decoding %s response: %w", action, err)
	}

	return &Response{
		Success: envelope.Success,
		Error:   envelope.Error,
		Raw:     raw,
	}, nil
}

// BackendError is a business failure reported in the response envelope,
// as opposed to a transport failure reaching the service.
type BackendError struct {
	Action  string
	Message string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("script action %s: %s", e.Action, e.Message)
}

// call is Call plus an error when the backend reports failure; for
// typed methods that cannot proceed on Success=false.
func (c *Client) call(ctx context.Context, action string, payload Payload) (*Response, error) {
	resp, err := c.Call(ctx, action, payload)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = "backend reported failure"
		}
		return nil, &BackendError{Action: action, Message: msg}
	}
	return resp, nil
}
