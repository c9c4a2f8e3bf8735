package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"trackerwatch/internal/checker"
	"trackerwatch/internal/config"
	"trackerwatch/internal/fetcher"
	"trackerwatch/internal/history"
	"trackerwatch/internal/notify"
	"trackerwatch/internal/scheduler"
	"trackerwatch/internal/state"
)

func main() {
	cfgPath := flag.String("config", envOrDefault("CONFIG_PATH", "./config/config.yaml"), "path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		slog.Error("load config", "path", *cfgPath, "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	if dir := filepath.Dir(cfg.StatePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error("create data directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	client := fetcher.NewHTTPClient(cfg.Timeout())

	f := fetcher.New(client, cfg.UserAgent, cfg.Timeout(), log)
	if cfg.FlareSolverr.Enabled {
		solver := fetcher.NewFlareSolverr(true, cfg.FlareSolverr.URL,
			cfg.FlareSolverrTimeout(), client)
		f.SetSolver(solver)
		log.Info("flaresolverr enabled", "url", cfg.FlareSolverr.URL)
	}

	channels, err := notify.Build(cfg.Notifications, client, log)
	if err != nil {
		log.Error("build notification channels", "error", err)
		os.Exit(1)
	}

	store := state.NewFileStore(cfg.StatePath)
	chk := checker.New(f, log)

	sched := scheduler.New(cfg.EnabledTargets(), chk, store,
		notify.NewDispatcher(channels, log), cfg.CheckInterval(), cfg.CheckDelay(), log)

	if cfg.HistoryDB != "" {
		h, err := history.Open(cfg.HistoryDB)
		if err != nil {
			log.Error("open history database", "path", cfg.HistoryDB, "error", err)
			os.Exit(1)
		}
		defer func() { _ = h.Close() }()
		sched.SetHistory(h)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sched.Run(ctx)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
