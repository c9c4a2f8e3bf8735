// Command checkcfg validates a monitor configuration without running the
// full monitor, optionally sending a test notification through every
// enabled channel and showing recent check history.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"trackerwatch/internal/config"
	"trackerwatch/internal/fetcher"
	"trackerwatch/internal/history"
	"trackerwatch/internal/model"
	"trackerwatch/internal/notify"
)

func main() {
	cfgPath := flag.String("config", envOrDefault("CONFIG_PATH", "./config/config.yaml"), "path to config file")
	sendTest := flag.Bool("send-test", false, "send a test notification through every enabled channel")
	recent := flag.Int("recent", 0, "show the N most recent checks from the history database")
	transitions := flag.Int("transitions", 0, "show the N most recent notified transitions from the history database")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config invalid: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("config OK: %s\n", *cfgPath)

	targets := cfg.EnabledTargets()
	fmt.Printf("\ntrackers (%d enabled):\n", len(targets))
	for _, t := range targets {
		fmt.Printf("  %-24s %-13s %s\n", t.Name, t.Rule.Method, t.CheckURL())
	}

	fmt.Printf("\nnotification channels: %s\n", strings.Join(cfg.EnabledChannels(), ", "))

	if *sendTest {
		if err := runSendTest(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "send test: %v\n", err)
			os.Exit(1)
		}
	}

	if *recent > 0 {
		if err := showHistory(cfg, *recent, false); err != nil {
			fmt.Fprintf(os.Stderr, "show history: %v\n", err)
			os.Exit(1)
		}
	}

	if *transitions > 0 {
		if err := showHistory(cfg, *transitions, true); err != nil {
			fmt.Fprintf(os.Stderr, "show transitions: %v\n", err)
			os.Exit(1)
		}
	}
}

func runSendTest(cfg *config.Config) error {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	client := fetcher.NewHTTPClient(cfg.Timeout())

	channels, err := notify.Build(cfg.Notifications, client, log)
	if err != nil {
		return err
	}

	event := model.TransitionEvent{
		TrackerName: "Test Tracker",
		TrackerURL:  "https://example.com",
		SignupURL:   "https://example.com/signup",
		Message:     "This is a test notification from the tracker monitor setup.",
		Status:      model.StatusOpen,
		Timestamp:   time.Now().UTC(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	delivered := notify.NewDispatcher(channels, log).Dispatch(ctx, event)
	fmt.Printf("\ntest notification delivered to %d/%d channels\n", delivered, len(channels))
	return nil
}

func showHistory(cfg *config.Config, n int, transitionsOnly bool) error {
	if cfg.HistoryDB == "" {
		return fmt.Errorf("history_db is not configured")
	}

	h, err := history.Open(cfg.HistoryDB)
	if err != nil {
		return err
	}
	defer func() { _ = h.Close() }()

	var recs []history.CheckRecord
	label := "recent checks"
	if transitionsOnly {
		recs, err = h.LastTransitions(context.Background(), n)
		label = "recent transitions"
	} else {
		recs, err = h.RecentChecks(context.Background(), n)
	}
	if err != nil {
		return err
	}

	fmt.Printf("\n%s (%d):\n", label, len(recs))
	for _, rec := range recs {
		line := fmt.Sprintf("  %s  %-24s %-8s %4dms",
			rec.CheckedAt.Format("2006-01-02 15:04:05"), rec.TargetName, rec.Status, rec.DurationMS)
		if rec.Notified {
			line += "  NOTIFIED"
		}
		if rec.FetchError != "" {
			line += "  error: " + rec.FetchError
		}
		fmt.Println(line)
	}
	return nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
