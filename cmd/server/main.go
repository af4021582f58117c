package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/venuewatch/venuewatch/internal/api"
	"github.com/venuewatch/venuewatch/internal/app"
	"github.com/venuewatch/venuewatch/internal/auth"
	"github.com/venuewatch/venuewatch/internal/config"
	"github.com/venuewatch/venuewatch/internal/logging"
	"github.com/venuewatch/venuewatch/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to init logger", "error", err)
		os.Exit(1)
	}

	logger.Info("starting venuewatch",
		"storage", cfg.Storage.Backend,
		"sources", cfg.Sources.Mode,
		"enrichment", cfg.Enrichment.Provider,
	)

	ctx := context.Background()
	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}

	if cfg.Auth.JWTSecret == "" || cfg.Auth.AdminPassword == "" {
		logger.Warn("admin credentials not configured; protected endpoints will reject every request")
	}
	authConfig := auth.Config{
		JWTSecret:     cfg.Auth.JWTSecret,
		AdminPassword: cfg.Auth.AdminPassword,
		TokenDuration: cfg.Auth.TokenDuration,
	}

	var store api.StoreChecker
	if application.DBHealth != nil {
		store = application.DBHealth
	}

	mux := http.NewServeMux()
	api.SetupRoutes(mux, application.Surface, application.Collector, store, authConfig, logger)
	mux.Handle("/metrics", application.Metrics.Handler())

	srv := server.New(cfg.Server, logger, application.Metrics.InstrumentHandler(mux))

	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()

	if cfg.Automation.Autostart {
		// Start blocks for the initial full pass.
		go application.Automation.Start(ctx)
	} else {
		logger.Info("automation idle; start it with POST /api/automation/start")
	}

	waitForSignal(logger)

	application.Automation.Stop()
	if err := srv.Shutdown(context.Background()); err != nil {
		logger.Error("failed to shutdown server", "error", err)
	}
	if err := application.Close(); err != nil {
		logger.Error("failed to release resources", "error", err)
	}
	logger.Info("venuewatch stopped")
}

func waitForSignal(logger *slog.Logger) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	sig := <-c
	logger.Info("received signal", "signal", sig.String())
	signal.Stop(c)
	close(c)
}
