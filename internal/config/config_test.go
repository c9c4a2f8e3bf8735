package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"trackerwatch/internal/model"
)

const validYAML = `
check_interval_minutes: 5
check_delay_seconds: 3
trackers:
  - name: AlphaTracker
    url: https://alpha.example/
    signup_url: https://alpha.example/signup
    method: text_match
    match_text: ["registration is open"]
    not_match_text: ["invites only"]
  - name: BetaTracker
    url: https://beta.example/
    method: css_selector
    css_selector: "form#signup-form"
    enabled: false
  - name: GammaTracker
    url: https://gamma.example/
    method: xpath
    xpath: "//form[@id='signup-form']"
notifications:
  webhook:
    enabled: true
    url: https://hooks.example/tracker
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if diff := cmp.Diff(5*time.Minute, cfg.CheckInterval()); diff != "" {
		t.Errorf("interval mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(3*time.Second, cfg.CheckDelay()); diff != "" {
		t.Errorf("delay mismatch (-want +got):\n%s", diff)
	}

	targets := cfg.EnabledTargets()
	var names []string
	for _, tg := range targets {
		names = append(names, tg.Name)
	}
	// BetaTracker is disabled and must be skipped, order preserved.
	if diff := cmp.Diff([]string{"AlphaTracker", "GammaTracker"}, names); diff != "" {
		t.Errorf("enabled targets mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]string{"webhook"}, cfg.EnabledChannels()); diff != "" {
		t.Errorf("channels mismatch (-want +got):\n%s", diff)
	}

	alpha := targets[0]
	if alpha.Rule.Method != model.MethodTextMatch {
		t.Errorf("method = %s, want text_match", alpha.Rule.Method)
	}
	if diff := cmp.Diff("https://alpha.example/signup", alpha.CheckURL()); diff != "" {
		t.Errorf("check url mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
trackers:
  - name: T
    url: https://t.example/
    match_text: ["open"]
notifications:
  webhook: {enabled: true, url: https://h.example/}
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if diff := cmp.Diff(10*time.Minute, cfg.CheckInterval()); diff != "" {
		t.Errorf("default interval mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(2*time.Second, cfg.CheckDelay()); diff != "" {
		t.Errorf("default delay mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(15*time.Second, cfg.Timeout()); diff != "" {
		t.Errorf("default timeout mismatch (-want +got):\n%s", diff)
	}
	if cfg.UserAgent == "" {
		t.Error("expected a default user agent")
	}
	if cfg.StatePath == "" {
		t.Error("expected a default state path")
	}
	// Method defaults to text_match.
	if got := cfg.Trackers[0].Method; got != "text_match" {
		t.Errorf("default method = %q, want text_match", got)
	}
}

func TestLoadFailures(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "no trackers",
			yaml:    "notifications:\n  webhook: {enabled: true, url: https://h.example/}\n",
			wantErr: "no trackers",
		},
		{
			name: "no trackers enabled",
			yaml: `
trackers:
  - {name: T, url: "https://t.example/", match_text: ["open"], enabled: false}
notifications:
  webhook: {enabled: true, url: https://h.example/}
`,
			wantErr: "no trackers enabled",
		},
		{
			name: "no channels enabled",
			yaml: `
trackers:
  - {name: T, url: "https://t.example/", match_text: ["open"]}
`,
			wantErr: "no notification channels",
		},
		{
			name: "duplicate tracker names",
			yaml: `
trackers:
  - {name: T, url: "https://t.example/", match_text: ["open"]}
  - {name: T, url: "https://t2.example/", match_text: ["open"]}
notifications:
  webhook: {enabled: true, url: https://h.example/}
`,
			wantErr: "duplicate tracker name",
		},
		{
			name: "bad url scheme",
			yaml: `
trackers:
  - {name: T, url: "ftp://t.example/", match_text: ["open"]}
notifications:
  webhook: {enabled: true, url: https://h.example/}
`,
			wantErr: "http:// or https://",
		},
		{
			name: "text_match without phrases",
			yaml: `
trackers:
  - {name: T, url: "https://t.example/", method: text_match}
notifications:
  webhook: {enabled: true, url: https://h.example/}
`,
			wantErr: "at least one",
		},
		{
			name: "invalid css selector",
			yaml: `
trackers:
  - {name: T, url: "https://t.example/", method: css_selector, css_selector: "div[unclosed"}
notifications:
  webhook: {enabled: true, url: https://h.example/}
`,
			wantErr: "invalid css_selector",
		},
		{
			name: "invalid xpath",
			yaml: `
trackers:
  - {name: T, url: "https://t.example/", method: xpath, xpath: "//form["}
notifications:
  webhook: {enabled: true, url: https://h.example/}
`,
			wantErr: "invalid xpath",
		},
		{
			name: "unknown method",
			yaml: `
trackers:
  - {name: T, url: "https://t.example/", method: regex}
notifications:
  webhook: {enabled: true, url: https://h.example/}
`,
			wantErr: "unknown detection method",
		},
		{
			name: "webhook enabled without url",
			yaml: `
trackers:
  - {name: T, url: "https://t.example/", match_text: ["open"]}
notifications:
  webhook: {enabled: true}
`,
			wantErr: "url missing",
		},
		{
			name: "telegram enabled without token",
			yaml: `
trackers:
  - {name: T, url: "https://t.example/", match_text: ["open"]}
notifications:
  telegram: {enabled: true, chat_id: 7}
`,
			wantErr: "bot_token missing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("STATE_PATH", "/var/lib/tw/state.json")
	t.Setenv("HISTORY_DB", "/var/lib/tw/history.db")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if diff := cmp.Diff("/var/lib/tw/state.json", cfg.StatePath); diff != "" {
		t.Errorf("state path mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff("/var/lib/tw/history.db", cfg.HistoryDB); diff != "" {
		t.Errorf("history db mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff("debug", cfg.LogLevel); diff != "" {
		t.Errorf("log level mismatch (-want +got):\n%s", diff)
	}
}
