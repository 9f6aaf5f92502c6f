package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pauljones0/beatmaplinker/internal/config"
	"github.com/pauljones0/beatmaplinker/internal/format"
	"github.com/pauljones0/beatmaplinker/internal/models"
	"github.com/pauljones0/beatmaplinker/internal/osu"
	"github.com/pauljones0/beatmaplinker/internal/processor"
	"github.com/pauljones0/beatmaplinker/internal/reddit"
	"github.com/pauljones0/beatmaplinker/internal/scanner"
	"github.com/pauljones0/beatmaplinker/internal/tillerino"
)

func main() {
	slog.Info("Starting beatmap linker bot...")
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Critical error loading configuration", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(cfg.LogLevel, cfg.LogFormat))

	templates, err := format.LoadConfig(cfg.TemplatesPath)
	if err != nil {
		slog.Error("Critical error loading reply templates", "path", cfg.TemplatesPath, "error", err)
		os.Exit(1)
	}
	formatter, err := format.New(templates)
	if err != nil {
		slog.Error("Critical error compiling reply templates", "error", err)
		os.Exit(1)
	}

	// The lookup clients hold no per-request state and are shared by both
	// workers. Each worker gets its own Reddit client.
	beatmaps := osu.New(cfg.OsuAPIKey, cfg.HTTPTimeout)
	pp := tillerino.New(cfg.TillerinoAPIKey, cfg.TillerinoWait, cfg.HTTPTimeout)

	newWorker := func(kind models.Kind) (*scanner.Worker, error) {
		client := reddit.New(reddit.Config{
			Username:        cfg.RedditUsername,
			Password:        cfg.RedditPassword,
			ClientID:        cfg.RedditClientID,
			ClientSecret:    cfg.RedditClientSecret,
			UserAgent:       cfg.RedditUserAgent,
			Subreddit:       cfg.Subreddit,
			RequestInterval: cfg.RedditRequestInterval,
			Timeout:         cfg.HTTPTimeout,
		})
		engine := processor.New(client, beatmaps, pp, formatter, cfg)
		return scanner.NewWorker(kind, client, engine, scanner.SettingsFor(cfg, kind)), nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	var httpServer *http.Server
	if cfg.Port != "" {
		httpServer = startHealthServer(cfg.Port)
	}

	slog.Info("Scanning subreddit", "subreddit", cfg.Subreddit, "mode", cfg.ScanMode)
	if err := scanner.NewSupervisor(newWorker, cfg.RetryDelay).Run(ctx); err != nil {
		slog.Error("Supervisor failed", "error", err)
	}

	if httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		}
	}
	slog.Info("Bot stopped.")
}

func startHealthServer(port string) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		slog.Info("Listening on port", "port", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Failed to listen and serve", "error", err)
		}
	}()
	return srv
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, `{"status":"ok"}`)
}

func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
