// Package messenger implements the outbound client for the messaging
// provider's send API.
package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const defaultTimeout = 10 * time.Second

// Config holds the settings for the send API client.
type Config struct {
	BaseURL    string
	APIVersion string
	// Timeout bounds the whole send call so a slow provider cannot hold
	// request-handling capacity indefinitely.
	Timeout time.Duration
}

// APIError is a non-success response from the provider's send API.
type APIError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("send API error (status %d, code %d): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("send API error (status %d)", e.StatusCode)
}

// Client calls the provider's send endpoint.
type Client struct {
	sendURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient validates cfg and returns a ready client.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("messenger base URL is empty")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid messenger base URL %q: %w", cfg.BaseURL, err)
	}
	if cfg.APIVersion == "" {
		return nil, fmt.Errorf("messenger API version is empty")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		sendURL:    base.JoinPath(cfg.APIVersion, "me", "messages").String(),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.With("component", "messenger"),
	}, nil
}

type participant struct {
	ID string `json:"id"`
}

type textPayload struct {
	Text string `json:"text"`
}

type sendRequest struct {
	Recipient participant `json:"recipient"`
	Message   textPayload `json:"message"`
}

type sendError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// SendText delivers a text message to recipientID using accessToken. A
// network error, timeout, or non-2xx response is returned as an error; the
// token itself is never logged.
func (c *Client) SendText(ctx context.Context, accessToken, recipientID, text string) error {
	if accessToken == "" {
		return fmt.Errorf("access token is empty")
	}
	if recipientID == "" {
		return fmt.Errorf("recipient ID is empty")
	}

	body, err := json.Marshal(sendRequest{
		Recipient: participant{ID: recipientID},
		Message:   textPayload{Text: text},
	})
	if err != nil {
		return fmt.Errorf("failed to encode send request: %w", err)
	}

	sendURL := c.sendURL + "?access_token=" + url.QueryEscape(accessToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sendURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		c.logger.DebugContext(ctx, "Message sent", "recipient_id", recipientID, "status", resp.StatusCode)
		return nil
	}

	apiErr := &APIError{StatusCode: resp.StatusCode}
	if raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096)); readErr == nil {
		var parsed sendError
		if json.Unmarshal(raw, &parsed) == nil {
			apiErr.Code = parsed.Error.Code
			apiErr.Message = parsed.Error.Message
		}
	}
	return apiErr
}
