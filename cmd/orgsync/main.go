package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	httphandler "github.com/ericfisherdev/orgsync/internal/adapter/driving/http"
	"github.com/ericfisherdev/orgsync/internal/config"
	"github.com/ericfisherdev/orgsync/internal/wiring"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on invalid env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := cfg.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"org_config", cfg.OrgConfigPath,
		"source_base_path", cfg.SourceBasePath,
		"max_parallel_orgs", cfg.MaxParallelOrgs,
		"job_timeout", cfg.JobTimeout,
		"webhook_signature_check", cfg.WebhookSecret != "",
	)
	if !cfg.HasSourceCredentials() {
		slog.Warn("no source credentials configured, every run will fail to list pull request files")
	}

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Load the registry, open the run store and wire services.
	services, err := wiring.Build(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := services.Close(); closeErr != nil {
			slog.Error("error closing run store", "error", closeErr)
		}
	}()
	slog.Info("organizations loaded", "count", len(services.Registry.Names()))

	// 4. Create HTTP handler and register routes.
	apiHandler := httphandler.NewHandler(services.Run, services.Runs, services.Health, cfg.WebhookSecret, logger)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httphandler.NewServeMux(apiHandler, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
			stop()
		}
	}()

	// 5. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 6. Stop accepting deliveries, then let running syncs finish. Jobs still
	// running when the deadline passes are cancelled and recorded.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.JobTimeout+10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}
	if err := apiHandler.Shutdown(shutdownCtx); err != nil {
		slog.Warn("in-flight syncs cancelled", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
