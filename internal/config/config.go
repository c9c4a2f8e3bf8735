// Package config loads and validates the monitor configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/andybalholm/cascadia"
	"github.com/antchfx/xpath"
	"github.com/goccy/go-yaml"

	"trackerwatch/internal/model"
)

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Config is the full application configuration, loaded once at startup and
// read-only thereafter.
type Config struct {
	CheckIntervalMinutes int    `yaml:"check_interval_minutes"`
	CheckDelaySeconds    int    `yaml:"check_delay_seconds"`
	TimeoutSeconds       int    `yaml:"timeout_seconds"`
	UserAgent            string `yaml:"user_agent"`
	LogLevel             string `yaml:"log_level"`

	StatePath string `yaml:"state_path"`
	HistoryDB string `yaml:"history_db"`

	FlareSolverr  FlareSolverrConfig `yaml:"flaresolverr"`
	Trackers      []Tracker          `yaml:"trackers"`
	Notifications Notifications      `yaml:"notifications"`
}

// FlareSolverrConfig configures the optional challenge-solving proxy.
type FlareSolverrConfig struct {
	Enabled      bool   `yaml:"enabled"`
	URL          string `yaml:"url"`
	MaxTimeoutMS int    `yaml:"max_timeout_ms"`
}

// Tracker is one monitored signup page as written in the config file.
type Tracker struct {
	Name            string   `yaml:"name"`
	URL             string   `yaml:"url"`
	SignupURL       string   `yaml:"signup_url,omitempty"`
	Method          string   `yaml:"method"`
	MatchText       []string `yaml:"match_text,omitempty"`
	NotMatchText    []string `yaml:"not_match_text,omitempty"`
	CSSSelector     string   `yaml:"css_selector,omitempty"`
	XPath           string   `yaml:"xpath,omitempty"`
	UseFlareSolverr *bool    `yaml:"use_flaresolverr,omitempty"`
	Enabled         *bool    `yaml:"enabled,omitempty"`
}

// Notifications holds one config block per channel kind.
type Notifications struct {
	Discord  DiscordConfig  `yaml:"discord"`
	Telegram TelegramConfig `yaml:"telegram"`
	Email    EmailConfig    `yaml:"email"`
	Webhook  WebhookConfig  `yaml:"webhook"`
}

// DiscordConfig configures the Discord webhook channel.
type DiscordConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// TelegramConfig configures the Telegram bot channel.
type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
}

// EmailConfig configures the SMTP channel.
type EmailConfig struct {
	Enabled     bool   `yaml:"enabled"`
	SMTPServer  string `yaml:"smtp_server"`
	SMTPPort    int    `yaml:"smtp_port"`
	UseTLS      *bool  `yaml:"use_tls,omitempty"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	FromAddress string `yaml:"from_address"`
	ToAddress   string `yaml:"to_address"`
}

// WebhookConfig configures the generic webhook channel.
type WebhookConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
}

// Load reads the YAML config at path, applies defaults and environment
// overrides, and validates it. Any validation failure is fatal: the engine
// never starts partially configured.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(&cfg)
	applyEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// CheckInterval returns the time between cycle starts.
func (c *Config) CheckInterval() time.Duration {
	return time.Duration(c.CheckIntervalMinutes) * time.Minute
}

// CheckDelay returns the minimum spacing between per-target fetches.
func (c *Config) CheckDelay() time.Duration {
	return time.Duration(c.CheckDelaySeconds) * time.Second
}

// Timeout returns the whole-request fetch timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// FlareSolverrTimeout returns the solve budget passed to the proxy.
func (c *Config) FlareSolverrTimeout() time.Duration {
	return time.Duration(c.FlareSolverr.MaxTimeoutMS) * time.Millisecond
}

// EnabledTargets converts the configured trackers into immutable domain
// targets, preserving configuration order and skipping disabled entries.
func (c *Config) EnabledTargets() []model.Target {
	out := make([]model.Target, 0, len(c.Trackers))
	for _, t := range c.Trackers {
		if t.Enabled != nil && !*t.Enabled {
			continue
		}
		out = append(out, model.Target{
			Name:      t.Name,
			URL:       t.URL,
			SignupURL: t.SignupURL,
			Rule: model.DetectionRule{
				Method:       model.DetectionMethod(t.Method),
				MatchText:    t.MatchText,
				NotMatchText: t.NotMatchText,
				CSSSelector:  t.CSSSelector,
				XPath:        t.XPath,
			},
			UseFlareSolverr: t.UseFlareSolverr,
			Enabled:         true,
		})
	}
	return out
}

// EnabledChannels lists the names of enabled notification channels.
func (c *Config) EnabledChannels() []string {
	var names []string
	if c.Notifications.Discord.Enabled {
		names = append(names, "discord")
	}
	if c.Notifications.Telegram.Enabled {
		names = append(names, "telegram")
	}
	if c.Notifications.Email.Enabled {
		names = append(names, "email")
	}
	if c.Notifications.Webhook.Enabled {
		names = append(names, "webhook")
	}
	return names
}

func applyDefaults(cfg *Config) {
	if cfg.CheckIntervalMinutes <= 0 {
		cfg.CheckIntervalMinutes = 10
	}
	if cfg.CheckDelaySeconds <= 0 {
		cfg.CheckDelaySeconds = 2
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 15
	}
	if strings.TrimSpace(cfg.UserAgent) == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.StatePath == "" {
		cfg.StatePath = "./data/state.json"
	}
	if cfg.FlareSolverr.URL == "" {
		cfg.FlareSolverr.URL = "http://flaresolverr:8191/v1"
	}
	if cfg.FlareSolverr.MaxTimeoutMS <= 0 {
		cfg.FlareSolverr.MaxTimeoutMS = 60000
	}
	for i := range cfg.Trackers {
		t := &cfg.Trackers[i]
		if t.Method == "" {
			t.Method = string(model.MethodTextMatch)
		}
		if t.Enabled == nil {
			v := true
			t.Enabled = &v
		}
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("STATE_PATH"); v != "" {
		cfg.StatePath = v
	}
	if v := os.Getenv("HISTORY_DB"); v != "" {
		cfg.HistoryDB = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}

func validate(cfg *Config) error {
	if len(cfg.Trackers) == 0 {
		return errors.New("config: no trackers configured")
	}

	seen := make(map[string]struct{}, len(cfg.Trackers))
	enabledTrackers := 0

	for i := range cfg.Trackers {
		t := &cfg.Trackers[i]
		t.Name = strings.TrimSpace(t.Name)
		t.URL = strings.TrimSpace(t.URL)
		t.SignupURL = strings.TrimSpace(t.SignupURL)

		if t.Name == "" {
			return fmt.Errorf("config: tracker[%d] missing name", i)
		}
		if _, ok := seen[t.Name]; ok {
			return fmt.Errorf("config: duplicate tracker name %q", t.Name)
		}
		seen[t.Name] = struct{}{}

		if err := validateURL(t.URL); err != nil {
			return fmt.Errorf("config: tracker %q: %w", t.Name, err)
		}
		if t.SignupURL != "" {
			if err := validateURL(t.SignupURL); err != nil {
				return fmt.Errorf("config: tracker %q signup_url: %w", t.Name, err)
			}
		}

		if err := validateRule(t); err != nil {
			return fmt.Errorf("config: tracker %q: %w", t.Name, err)
		}

		if *t.Enabled {
			enabledTrackers++
		}
	}

	if enabledTrackers == 0 {
		return errors.New("config: no trackers enabled")
	}

	if err := validateChannels(&cfg.Notifications); err != nil {
		return err
	}
	return nil
}

func validateURL(raw string) error {
	if raw == "" {
		return errors.New("missing url")
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return fmt.Errorf("url %q must start with http:// or https://", raw)
	}
	return nil
}

// validateRule checks method-specific parameters, compiling selector and
// xpath expressions so a malformed rule fails at startup, not mid-cycle.
func validateRule(t *Tracker) error {
	switch model.DetectionMethod(t.Method) {
	case model.MethodTextMatch:
		if len(t.MatchText) == 0 && len(t.NotMatchText) == 0 {
			return errors.New("text_match needs at least one match_text or not_match_text phrase")
		}
	case model.MethodCSSSelector:
		if t.CSSSelector == "" {
			return errors.New("css_selector method needs a css_selector")
		}
		if _, err := cascadia.Compile(t.CSSSelector); err != nil {
			return fmt.Errorf("invalid css_selector %q: %w", t.CSSSelector, err)
		}
	case model.MethodXPath:
		if t.XPath == "" {
			return errors.New("xpath method needs an xpath expression")
		}
		if _, err := xpath.Compile(t.XPath); err != nil {
			return fmt.Errorf("invalid xpath %q: %w", t.XPath, err)
		}
	default:
		return fmt.Errorf("unknown detection method %q", t.Method)
	}
	return nil
}

func validateChannels(n *Notifications) error {
	enabled := 0
	if n.Discord.Enabled {
		enabled++
		if n.Discord.WebhookURL == "" {
			return errors.New("config: discord channel enabled but webhook_url missing")
		}
	}
	if n.Telegram.Enabled {
		enabled++
		if n.Telegram.BotToken == "" {
			return errors.New("config: telegram channel enabled but bot_token missing")
		}
		if n.Telegram.ChatID == 0 {
			return errors.New("config: telegram channel enabled but chat_id missing")
		}
	}
	if n.Email.Enabled {
		enabled++
		switch {
		case n.Email.SMTPServer == "":
			return errors.New("config: email channel enabled but smtp_server missing")
		case n.Email.FromAddress == "":
			return errors.New("config: email channel enabled but from_address missing")
		case n.Email.ToAddress == "":
			return errors.New("config: email channel enabled but to_address missing")
		}
		if n.Email.SMTPPort == 0 {
			n.Email.SMTPPort = 587
		}
	}
	if n.Webhook.Enabled {
		enabled++
		if n.Webhook.URL == "" {
			return errors.New("config: webhook channel enabled but url missing")
		}
	}
	if enabled == 0 {
		return errors.New("config: no notification channels enabled")
	}
	return nil
}
