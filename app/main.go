package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/veni-vici/app/api"
	"github.com/lysyi3m/veni-vici/app/cfg"
	"github.com/lysyi3m/veni-vici/app/database"
	"github.com/lysyi3m/veni-vici/app/discover"
	"github.com/lysyi3m/veni-vici/app/ham"
	"github.com/lysyi3m/veni-vici/app/tasks"
)

// catalogGateway is what the rest of the app needs from the catalog client,
// with or without the circuit breaker in front of it.
type catalogGateway interface {
	discover.Gateway
	tasks.PageCounter
}

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		return
	}

	setupLogger(appCfg.Debug)

	slog.Info("Starting Veni Vici server", "version", appCfg.Version)

	presets, err := cfg.LoadBans(appCfg.BansFile)
	if err != nil {
		slog.Error("Failed to load ban presets", "file", appCfg.BansFile, "error", err)
		os.Exit(1)
	}
	slog.Info("Ban presets loaded", "count", len(presets))

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if appCfg.DBPath == "" {
		slog.Info("Sessions are kept in memory")
	} else {
		slog.Info("Connected to database", "path", appCfg.DBPath)
	}

	sessionStore := database.NewSessionStore(db)

	httpClient := &http.Client{Timeout: appCfg.GetRequestTimeout()}
	client := ham.NewClient(httpClient, ham.ClientConfig{
		BaseURL:   appCfg.HAMBaseURL,
		APIKey:    appCfg.HAMAPIKey,
		UserAgent: appCfg.UserAgent,
		Timeout:   appCfg.GetRequestTimeout(),
		RateLimit: appCfg.RateLimit,
		RateBurst: appCfg.RateBurst,
	})
	if !client.HasAPIKey() {
		slog.Warn("HAM_API_KEY is not set, discovery will fail until it is configured")
	}

	var gateway catalogGateway = client
	if appCfg.BreakerEnabled {
		gateway = ham.NewBreakerClient(client, ham.DefaultBreakerConfig())
		slog.Info("Catalog circuit breaker enabled")
	}

	retriever := discover.NewRetriever(gateway, appCfg.HAMAPIKey)

	slog.Info("Starting background scheduler", "workers", appCfg.WorkerCount, "page_count_refresh", appCfg.GetPageCountRefresh().String())
	scheduler := tasks.NewScheduler(gateway, appCfg.GetPageCountRefresh(), appCfg.WorkerCount)
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(sessionStore, retriever, gateway, scheduler, presets, appCfg.SeenLimit, appCfg.MaxTries)
	server := api.NewServer(handler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	slog.Info("Veni Vici server shutdown complete")
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}
