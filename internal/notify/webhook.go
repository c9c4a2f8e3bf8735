package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"trackerwatch/internal/model"
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Webhook sends transition events to a generic webhook endpoint.
// The payload shape is a published interface consumed by downstream
// automation; do not change the field names.
type Webhook struct {
	url    string
	client HTTPClient
}

// NewWebhook creates a generic webhook channel.
func NewWebhook(url string, client HTTPClient) *Webhook {
	return &Webhook{url: url, client: client}
}

// Name implements Notifier.
func (w *Webhook) Name() string { return "webhook" }

type webhookPayload struct {
	TrackerName string `json:"tracker_name"`
	TrackerURL  string `json:"tracker_url"`
	Message     string `json:"message"`
	Timestamp   string `json:"timestamp"`
	Status      string `json:"status"`
}

// Send implements Notifier.
func (w *Webhook) Send(ctx context.Context, event model.TransitionEvent) error {
	body, err := json.Marshal(webhookPayload{
		TrackerName: event.TrackerName,
		TrackerURL:  event.Link(),
		Message:     event.Message,
		Timestamp:   event.Timestamp.UTC().Format(time.RFC3339),
		Status:      string(model.StatusOpen),
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
