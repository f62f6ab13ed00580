package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"ev-dashboard/internal/config"
	"ev-dashboard/pkg/logging"
	"ev-dashboard/pkg/metrics"
)

const version = "1.0.0"

var (
	cfgFile      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "evctl",
	Short: "Inspect charging congestion and load EV subsidy data",
	Long: `evctl works against the same configuration as the API server.
It prints the hourly congestion table, publishes current congestion over MQTT
and imports subsidy and FAQ CSV exports into the database.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $EV_DASHBOARD_CONFIG or ./config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", formatTable, "output format: table, json or yaml")
}

// loadConfig loads and validates the configuration
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigFile(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newLogger logs to stderr so stdout carries only command output
func newLogger(cfg *config.Config) *logging.StructuredLogger {
	logger := logging.NewStructuredLogger("evctl", version, logging.ParseLevel(cfg.Logging.Level))
	logger.SetOutput(os.Stderr)
	return logger
}

// newMetrics uses a private registry; evctl exposes no /metrics
func newMetrics() *metrics.Collector {
	return metrics.NewCollector("evctl", prometheus.NewRegistry())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
