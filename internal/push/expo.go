// Package push delivers quiz notifications through the Expo push API.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	// DefaultEndpoint is Expo's push send endpoint.
	DefaultEndpoint = "https://exp.host/--/api/v2/push/send"

	sendTimeout = 10 * time.Second
)

// --------------------------------------------------------------------------
// ExpoSender
// --------------------------------------------------------------------------

// message is the Expo push request body.
type message struct {
	To         string         `json:"to"`
	Title      string         `json:"title"`
	Body       string         `json:"body"`
	Data       map[string]any `json:"data,omitempty"`
	CategoryID string         `json:"categoryId"`
	Sound      string         `json:"sound"`
}

// ExpoSender posts push messages to the Expo push service.
type ExpoSender struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewExpoSender creates a sender. An empty endpoint uses Expo's production
// endpoint; tests point it at a local server.
func NewExpoSender(endpoint string, logger *slog.Logger) *ExpoSender {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &ExpoSender{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: sendTimeout},
		logger:     logger,
	}
}

// Send delivers one notification to a device token. The data payload
// carries the question reference so the client can answer without a
// separate fetch. Any transport error or non-2xx status means "not sent".
func (s *ExpoSender) Send(ctx context.Context, token, title, body string, data map[string]any) error {
	payload, err := json.Marshal(message{
		To:         token,
		Title:      title,
		Body:       body,
		Data:       data,
		CategoryID: "quiz",
		Sound:      "default",
	})
	if err != nil {
		return fmt.Errorf("marshal push message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("expo push API status %d", resp.StatusCode)
	}
	return nil
}
