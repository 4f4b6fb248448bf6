package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// WebhookSender delivers notifications as JSON posts to a webhook URL
// (Discord-compatible payload shape).
type WebhookSender struct {
	url    string
	client *http.Client
}

// NewWebhookSender creates a WebhookSender for the given URL. It uses a
// default HTTP client with a 10-second timeout.
func NewWebhookSender(url string) *WebhookSender {
	return &WebhookSender{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts the message to the webhook. The title is rendered in bold
// using markdown syntax.
func (s *WebhookSender) Send(ctx context.Context, title, message string) error {
	payload := map[string]string{
		"content": fmt.Sprintf("**%s**\n%s", title, message),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("webhook: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("webhook: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// Name returns the sender identifier.
func (s *WebhookSender) Name() string {
	return "webhook"
}
