package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"tripfriend_bot/internal/bot"
	"tripfriend_bot/internal/config"
	"tripfriend_bot/internal/conversation"
	"tripfriend_bot/internal/destinations"
	"tripfriend_bot/internal/directory"
	"tripfriend_bot/internal/fetcher"
	"tripfriend_bot/internal/scheduler"
	"tripfriend_bot/internal/storage"
	"tripfriend_bot/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tel, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName:  "tripfriend_bot",
		GRPCEndpoint: cfg.TracesGRPCEndpoint,
		HTTPEndpoint: cfg.TracesHTTPEndpoint,
	}, log)
	if err != nil {
		log.Error("setup telemetry", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			log.Warn("shutdown telemetry", "error", err)
		}
	}()

	cities, err := loadDestinations(ctx, cfg, log)
	if err != nil {
		log.Error("load destinations", "path", cfg.DestinationsPath, "error", err)
		os.Exit(1)
	}
	log.Info("destinations loaded", "count", cities.Len())

	store, err := openStorage(ctx, cfg)
	if err != nil {
		log.Error("open session storage", "backend", cfg.SessionBackend, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	b, err := bot.New(cfg.TelegramBotToken, log)
	if err != nil {
		log.Error("create bot", "error", err)
		os.Exit(1)
	}

	f := fetcher.New(fetcher.NewHTTPClient(cfg.FetchTimeout), log)
	machine := conversation.New(store, f, cities, b, cfg.SiteURL, log)
	sched := scheduler.New(store, cfg.SessionTTL, log)

	log.Info("starting bot", "session_backend", cfg.SessionBackend)

	go sched.Run(ctx)

	b.Run(ctx, machine)

	log.Info("bot stopped")
}

// loadDestinations reads the city table, scraping and caching it when the
// file does not exist yet. A file that exists but cannot be parsed is an error.
func loadDestinations(ctx context.Context, cfg *config.Config, log *slog.Logger) (*destinations.Table, error) {
	table, err := destinations.Load(cfg.DestinationsPath)
	if err == nil {
		return table, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	log.Info("destinations file not found, scraping", "url", directory.DefaultIndexURL)
	src := directory.NewHTTPSource(directory.DefaultIndexURL, 30*time.Second)
	table, err = directory.Scrape(ctx, src, directory.DefaultIndexURL, log)
	if err != nil {
		return nil, err
	}
	if err := destinations.Save(cfg.DestinationsPath, table); err != nil {
		log.Warn("cache destinations", "path", cfg.DestinationsPath, "error", err)
	}
	return table, nil
}

func openStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	if cfg.SessionBackend == config.BackendRedis {
		return storage.NewRedis(ctx, cfg.RedisAddr, cfg.SessionTTL)
	}

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, err
		}
	}
	return storage.NewSQLite(cfg.DatabasePath)
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
