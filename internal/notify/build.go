package notify

import (
	"log/slog"
	"strings"

	"trackerwatch/internal/config"
)

// Build constructs one Notifier per enabled channel from the loaded
// configuration. Channel order is fixed so delivery logs stay comparable
// across runs.
func Build(cfg config.Notifications, client HTTPClient, log *slog.Logger) ([]Notifier, error) {
	var channels []Notifier

	if cfg.Discord.Enabled {
		channels = append(channels, NewDiscord(cfg.Discord.WebhookURL, client))
	}
	if cfg.Telegram.Enabled {
		tg, err := NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			return nil, err
		}
		channels = append(channels, tg)
	}
	if cfg.Email.Enabled {
		channels = append(channels, NewEmail(cfg.Email))
	}
	if cfg.Webhook.Enabled {
		channels = append(channels, NewWebhook(cfg.Webhook.URL, client))
	}

	names := make([]string, 0, len(channels))
	for _, ch := range channels {
		names = append(names, ch.Name())
	}
	log.Info("enabled notification channels", "channels", strings.Join(names, ", "))

	return channels, nil
}
