package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ev-dashboard/internal/app"
	"ev-dashboard/internal/config"
	"ev-dashboard/internal/handlers"
	"ev-dashboard/pkg/logging"
	"ev-dashboard/pkg/metrics"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewStructuredLogger("ev-dashboard-api", version, logging.ParseLevel(cfg.Logging.Level))

	ctx := context.Background()
	logger.Info(ctx, "[STARTUP] Starting EV dashboard API server", logging.Fields{
		"version":           version,
		"server_host":       cfg.Server.Host,
		"server_port":       cfg.Server.Port,
		"db_driver":         cfg.Database.Driver,
		"db_name":           cfg.Database.Database,
		"congestion_source": cfg.Congestion.Source,
	})

	metricsCollector := metrics.NewCollector("ev_dashboard", nil)

	a, err := app.New(ctx, cfg, logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to initialize services", logging.Fields{}, err)
	}
	defer a.Close()

	// Setup router
	router := mux.NewRouter()
	router.Use(handlers.RequestID, handlers.Instrument(metricsCollector, logger))

	handlers.NewSubsidyHandler(a.Subsidies, logger, metricsCollector).RegisterRoutes(router)
	handlers.NewFAQHandler(a.FAQs, logger, metricsCollector).RegisterRoutes(router)
	handlers.NewCongestionHandler(a.Congestion, logger, metricsCollector).RegisterRoutes(router)
	handlers.NewAdminHandler(a.DB, a.Caches(), logger, metricsCollector).RegisterRoutes(router)
	handlers.RegisterDocRoutes(router)

	// Prometheus metrics endpoint
	router.Handle("/metrics", promhttp.Handler())

	var handler http.Handler = router
	if cfg.Server.Gzip {
		handler = gzhttp.GzipHandler(router)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info(ctx, "[SERVER_START] HTTP server listening", logging.Fields{
			"address": server.Addr,
			"gzip":    cfg.Server.Gzip,
		})

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "[SERVER_ERROR] Server failed", logging.Fields{}, err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "[SHUTDOWN] Shutting down server...", logging.Fields{})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "[SHUTDOWN_ERROR] Server forced to shutdown", logging.Fields{}, err)
	}

	logger.Info(ctx, "[SHUTDOWN_COMPLETE] Server stopped", logging.Fields{})
}
