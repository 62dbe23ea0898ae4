// Package main runs the rewards engine as a long-lived service:
// - Admin HTTP API (prepare, draws, exclusions, monitor control)
// - Fee monitor (polling plus optional WebSocket push)
// - Prometheus metrics and health endpoints
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"holder-rewards/internal/api"
	"holder-rewards/internal/app"
	"holder-rewards/internal/config"
	"holder-rewards/internal/domain"
)

func main() {
	envFile := flag.String("env-file", ".env", "Environment file loaded before parsing configuration")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	autoStart := flag.Bool("start-monitor", false, "Start the fee monitor on boot")
	httpAddr := flag.String("http-addr", "", "Admin API listen address (overrides HTTP_ADDR)")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}
	if *httpAddr != "" {
		cfg.HTTPAddr = *httpAddr
	}
	if err := app.ConfigureLogging(cfg.LogLevel, cfg.LogFormat); err != nil {
		log.WithError(err).Fatal("Invalid logging configuration")
	}
	logger := log.WithField("component", "server")

	if cfg.AdminToken == "" {
		logger.Warn("ADMIN_TOKEN is empty, admin API is unauthenticated")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine, err := app.Build(ctx, cfg, app.Options{
		UseMemory:   *useMemory,
		WithMonitor: true,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to build rewards engine")
	}
	defer engine.Close()

	if *autoStart {
		if err := engine.Service.StartMonitor(ctx); err != nil {
			logger.WithError(err).Error("Fee monitor failed to start")
		}
	}

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: api.NewServer(api.Options{
			Service:    engine.Service,
			AdminToken: cfg.AdminToken,
		}).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.WithField("addr", cfg.HTTPAddr).Info("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.WithField("signal", sig.String()).Info("Received signal, initiating graceful shutdown")
	case err := <-serveErr:
		if err != nil {
			logger.WithError(err).Error("HTTP server error")
		}
	}

	done := make(chan struct{})
	go func() {
		// Second signal or timeout forces exit
		select {
		case sig := <-sigCh:
			logger.WithField("signal", sig.String()).Warn("Received second signal, forcing immediate shutdown")
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Error("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("HTTP shutdown failed")
	}
	if err := engine.Service.StopMonitor(); err != nil &&
		!errors.Is(err, domain.ErrNotMonitoring) && !errors.Is(err, domain.ErrConfiguration) {
		logger.WithError(err).Error("Fee monitor stop failed")
	}
	cancel()
	close(done)

	logger.Info("Shutdown complete")
}
