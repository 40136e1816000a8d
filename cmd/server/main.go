package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"fieldmap/internal/config"
	"fieldmap/internal/dispatch"
	"fieldmap/internal/i18n"
	"fieldmap/internal/icons"
	"fieldmap/internal/model"
	"fieldmap/internal/secrets"
	"fieldmap/internal/server"
	"fieldmap/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error("create data directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	store, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		log.Error("open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	bundle, err := i18n.NewBundle(cfg.DefaultLanguage)
	if err != nil {
		log.Error("load locales", "error", err)
		os.Exit(1)
	}

	keyring, err := secrets.NewKeyring(cfg.SecretKey)
	if err != nil {
		log.Error("derive keyring", "error", err)
		os.Exit(1)
	}

	registry := icons.NewRegistry([]icons.Set{
		{ID: cfg.DefaultIconSet, BaseURL: cfg.BaseURL + "/assets/icons/" + cfg.DefaultIconSet, Format: icons.FormatVector},
	}, cfg.DefaultIconSet, cfg.DefaultSpeciesSet)

	callTimeout := time.Duration(cfg.DispatchTimeoutSeconds) * time.Second
	senders := map[model.WebhookKind]dispatch.Sender{
		model.WebhookJSON:     dispatch.NewJSONSender(callTimeout),
		model.WebhookTelegram: dispatch.NewTelegramSender(keyring, nil),
	}
	dispatcher := dispatch.New(store, senders, bundle, registry, dispatch.Options{
		SiteURL:        cfg.BaseURL,
		NavProvider:    cfg.NavProviderURL,
		DefaultLang:    cfg.DefaultLanguage,
		DefaultIconSet: cfg.DefaultIconSet,
		DefaultSpecies: cfg.DefaultSpeciesSet,
		Concurrency:    cfg.DispatchConcurrency,
		CallTimeout:    callTimeout,
	}, log)

	api := server.New(store, dispatcher, bundle, cfg, log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go dispatcher.Run(ctx)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("starting server", "addr", cfg.ListenAddr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("serve", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
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
