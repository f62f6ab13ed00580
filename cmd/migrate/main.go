package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"ev-dashboard/internal/app"
	"ev-dashboard/internal/config"
	"ev-dashboard/migrations"
	"ev-dashboard/pkg/database"
	"ev-dashboard/pkg/logging"
	"ev-dashboard/pkg/metrics"
)

const migrationName = "001_create_schema"

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	script, err := migrations.Script(migrationName, *direction)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	logger := logging.NewStructuredLogger("ev-dashboard-migrate", "1.0.0", logging.ParseLevel(cfg.Logging.Level))
	metricsCollector := metrics.NewCollector("ev_dashboard_migrate", nil)

	db, err := database.New(app.DatabaseConfig(cfg.Database), logger, metricsCollector)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	fmt.Printf("Running migration: %s.%s (%s)\n", migrationName, *direction, db.Driver())

	if err := db.ApplySchema(context.Background(), script); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to execute migration: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Migration completed successfully")
}
