package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"ev-dashboard/internal/app"
	"ev-dashboard/internal/config"
	"ev-dashboard/internal/congestion"
	"ev-dashboard/internal/publisher"
	"ev-dashboard/internal/services"
	"ev-dashboard/pkg/logging"
)

var (
	congestionSource     string
	congestionChargeType string
	congestionHour       int
	chartOut             string
)

var congestionCmd = &cobra.Command{
	Use:   "congestion",
	Short: "Hourly charging congestion from the load source",
}

var congestionTableCmd = &cobra.Command{
	Use:   "table",
	Short: "Print the classified hourly-mean table",
	RunE:  runCongestionTable,
}

var congestionNowCmd = &cobra.Command{
	Use:   "now",
	Short: "Print the congestion of each charge type at the current hour",
	Long: `Prints the congestion at the current wall-clock hour in the configured
timezone, or at --hour. --charge-type limits the answer to one charge type.`,
	RunE: runCongestionNow,
}

var congestionChartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Render the hourly means as a PNG chart",
	RunE:  runCongestionChart,
}

var congestionPublishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish the current congestion of every charge type over MQTT",
	RunE:  runCongestionPublish,
}

func init() {
	congestionCmd.PersistentFlags().StringVar(&congestionSource, "source", "", "override congestion.source (.csv, .xlsx or s3://bucket/key)")
	congestionCmd.PersistentFlags().StringVar(&congestionChargeType, "charge-type", "", "limit output to one charge type")

	congestionNowCmd.Flags().IntVar(&congestionHour, "hour", -1, "hour 0-23 (default: current hour)")
	congestionPublishCmd.Flags().IntVar(&congestionHour, "hour", -1, "hour 0-23 (default: current hour)")
	congestionChartCmd.Flags().StringVar(&chartOut, "out", "congestion.png", "PNG output file")

	congestionCmd.AddCommand(congestionTableCmd, congestionNowCmd, congestionChartCmd, congestionPublishCmd)
	rootCmd.AddCommand(congestionCmd)
}

func newCongestionService(cfg *config.Config) (*services.CongestionService, *logging.StructuredLogger, error) {
	if congestionSource != "" {
		cfg.Congestion.Source = congestionSource
	}

	logger := newLogger(cfg)
	svc, err := app.NewCongestionService(cfg, logger, newMetrics())
	if err != nil {
		return nil, nil, err
	}
	return svc, logger, nil
}

// hourFlag returns nil when --hour was not given
func hourFlag(cmd *cobra.Command) *int {
	if !cmd.Flags().Changed("hour") {
		return nil
	}
	h := congestionHour
	return &h
}

func runCongestionTable(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc, _, err := newCongestionService(cfg)
	if err != nil {
		return err
	}

	table, err := svc.Table(cmd.Context(), congestionChargeType)
	if err != nil {
		return err
	}
	if len(table) == 0 {
		return fmt.Errorf("no congestion data for %q", congestionChargeType)
	}
	return writeTable(cmd.OutOrStdout(), outputFormat, table)
}

func runCongestionNow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc, _, err := newCongestionService(cfg)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	hour := hourFlag(cmd)

	if congestionChargeType != "" {
		current, err := svc.Current(ctx, congestionChargeType, hour)
		if err != nil {
			return err
		}
		return writeCurrent(cmd.OutOrStdout(), outputFormat, []congestion.Current{current})
	}

	snapshot, err := svc.Snapshot(ctx, hour)
	if err != nil {
		return err
	}
	return writeCurrent(cmd.OutOrStdout(), outputFormat, snapshot)
}

func runCongestionChart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc, _, err := newCongestionService(cfg)
	if err != nil {
		return err
	}

	f, err := os.Create(chartOut)
	if err != nil {
		return fmt.Errorf("creating %s: %w", chartOut, err)
	}
	if err := svc.Chart(cmd.Context(), f, congestionChargeType); err != nil {
		f.Close()
		os.Remove(chartOut)
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Chart written to %s\n", chartOut)
	return nil
}

func runCongestionPublish(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.MQTT.Enabled {
		return fmt.Errorf("mqtt is not enabled in config")
	}

	svc, logger, err := newCongestionService(cfg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	snapshot, err := svc.Snapshot(ctx, hourFlag(cmd))
	if err != nil {
		return err
	}
	if congestionChargeType != "" {
		filtered := snapshot[:0]
		for _, c := range snapshot {
			if c.ChargeType == congestionChargeType {
				filtered = append(filtered, c)
			}
		}
		snapshot = filtered
	}
	if len(snapshot) == 0 {
		return fmt.Errorf("no congestion data to publish")
	}

	pub, err := publisher.New(cfg.MQTT, logger)
	if err != nil {
		return err
	}
	defer pub.Close()

	if err := pub.Publish(ctx, snapshot); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Published %d charge types to %s\n", len(snapshot), cfg.MQTT.Broker)
	return nil
}
