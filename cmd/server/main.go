package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"

	"mstcli/internal/assay"
	"mstcli/internal/config"
	apierrors "mstcli/internal/errors"
	"mstcli/internal/infrastructure"
	appmw "mstcli/internal/middleware"
	"mstcli/internal/services"
	transport "mstcli/internal/transport/http"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer infrastructure.CloseLogFile()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, otelShutdown, err := infrastructure.InitOTel(ctx, infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		return fmt.Errorf("initialize otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			logger.Warn("otel shutdown failed", "error", err)
		}
	}()

	service := services.NewAnalysisService(logger, schemaFromConfig(cfg.Analysis), cfg.Analysis.ConcentrationTolerance)
	errorHandler := apierrors.NewErrorHandler(logger)
	analysisHandler := transport.NewAnalysisHandler(service, logger, errorHandler)
	healthHandler := transport.NewHealthHandler(infrastructure.ServiceVersion)

	r := chi.NewRouter()
	r.Use(appmw.RequestID)
	r.Use(appmw.RequestLogger(logger))
	r.Use(appmw.Recoverer(logger))
	if cfg.Server.RateLimit.Enabled {
		r.Use(appmw.NewRateLimiter(cfg.Server.RateLimit.RPS, cfg.Server.RateLimit.Burst, logger).Handler)
	}

	r.Get("/healthz", healthHandler.Healthz)
	if providers.PrometheusHTTP != nil {
		r.Handle("/metrics", providers.PrometheusHTTP)
	}
	r.Mount("/api/analysis", analysisHandler.Routes())

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func schemaFromConfig(cfg config.AnalysisConfig) assay.Schema {
	return assay.Schema{
		Concentration: cfg.ConcentrationColumn,
		FluorBefore:   cfg.FluorBeforeColumn,
		FluorAfter:    cfg.FluorAfterColumn,
		Channel650:    cfg.Channel650Column,
		Channel670:    cfg.Channel670Column,
	}
}
