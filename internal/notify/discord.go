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

const discordGreen = 3066993

// Discord sends transition events to a Discord webhook as an embed.
type Discord struct {
	webhookURL string
	client     HTTPClient
}

// NewDiscord creates a Discord channel posting to the given webhook URL.
func NewDiscord(webhookURL string, client HTTPClient) *Discord {
	return &Discord{webhookURL: webhookURL, client: client}
}

// Name implements Notifier.
func (d *Discord) Name() string { return "discord" }

type discordEmbed struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	URL         string        `json:"url"`
	Color       int           `json:"color"`
	Timestamp   string        `json:"timestamp"`
	Footer      discordFooter `json:"footer"`
}

type discordFooter struct {
	Text string `json:"text"`
}

type discordPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

// Send implements Notifier.
func (d *Discord) Send(ctx context.Context, event model.TransitionEvent) error {
	payload := discordPayload{
		Embeds: []discordEmbed{{
			Title:       fmt.Sprintf("%s - Signup Open!", event.TrackerName),
			Description: event.Message,
			URL:         event.Link(),
			Color:       discordGreen,
			Timestamp:   event.Timestamp.UTC().Format(time.RFC3339),
			Footer:      discordFooter{Text: "Tracker Monitor"},
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal embed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// Discord returns 204 No Content on success.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
