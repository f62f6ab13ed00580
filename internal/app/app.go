// Package app wires configuration into the database, repositories and
// services shared by cmd/server and cmd/evctl.
package app

import (
	"context"
	"fmt"

	"ev-dashboard/internal/cache"
	"ev-dashboard/internal/config"
	"ev-dashboard/internal/congestion"
	"ev-dashboard/internal/repository"
	"ev-dashboard/internal/services"
	"ev-dashboard/internal/source"
	"ev-dashboard/pkg/database"
	"ev-dashboard/pkg/logging"
	"ev-dashboard/pkg/metrics"
)

// App holds the long-lived components of a process
type App struct {
	Config  *config.Config
	Logger  *logging.StructuredLogger
	Metrics *metrics.Collector
	DB      *database.DB

	Subsidies  *services.SubsidyService
	FAQs       *services.FAQService
	Congestion *services.CongestionService
	Imports    *services.ImportService
}

// DatabaseConfig maps the database section onto the wrapper's config
func DatabaseConfig(cfg config.DatabaseConfig) *database.Config {
	return &database.Config{
		Driver:          cfg.Driver,
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}
}

// CongestionSchema applies the configured column names over the default
// schema; empty settings keep the defaults
func CongestionSchema(cfg config.CongestionConfig) congestion.Schema {
	schema := congestion.DefaultSchema()
	if cfg.DateColumn != "" {
		schema.DateColumn = cfg.DateColumn
	}
	if cfg.CategoryColumn != "" {
		schema.CategoryColumn = cfg.CategoryColumn
	}
	if cfg.HourSuffix != "" {
		schema.HourSuffix = cfg.HourSuffix
	}
	return schema
}

// NewCongestionService builds the congestion service alone. It needs no
// database, so congestion commands can run without one.
func NewCongestionService(cfg *config.Config, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) (*services.CongestionService, error) {
	opener := source.NewOpener(source.S3Config{
		Region:   cfg.Congestion.S3Region,
		Endpoint: cfg.Congestion.S3Endpoint,
	}, metricsCollector)

	svc, err := services.NewCongestionService(opener, services.CongestionOptions{
		Source:   cfg.Congestion.Source,
		Sheet:    cfg.Congestion.Sheet,
		Schema:   CongestionSchema(cfg.Congestion),
		Location: cfg.Congestion.Location(),
		TTL:      cfg.Cache.CongestionTTL,
	}, logger, metricsCollector)
	if err != nil {
		return nil, fmt.Errorf("failed to create congestion service: %w", err)
	}
	return svc, nil
}

// New connects to the database and builds every service
func New(ctx context.Context, cfg *config.Config, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) (*App, error) {
	congestionService, err := NewCongestionService(cfg, logger, metricsCollector)
	if err != nil {
		return nil, err
	}

	db, err := database.New(DatabaseConfig(cfg.Database), logger, metricsCollector)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	subsidyRepo := repository.NewSubsidyRepository(db, logger, metricsCollector)
	faqRepo := repository.NewFAQRepository(db, logger, metricsCollector)

	logger.Info(ctx, "[APP_INIT] Services initialized", logging.Fields{
		"driver":            cfg.Database.Driver,
		"congestion_source": congestionService.Source(),
		"subsidy_ttl":       cfg.Cache.SubsidyTTL.String(),
		"faq_ttl":           cfg.Cache.FAQTTL.String(),
	})

	return &App{
		Config:     cfg,
		Logger:     logger,
		Metrics:    metricsCollector,
		DB:         db,
		Subsidies:  services.NewSubsidyService(subsidyRepo, cfg.Cache.SubsidyTTL, logger, metricsCollector),
		FAQs:       services.NewFAQService(faqRepo, cfg.Cache.FAQTTL, logger, metricsCollector),
		Congestion: congestionService,
		Imports:    services.NewImportService(subsidyRepo, faqRepo, logger, metricsCollector),
	}, nil
}

// Caches lists every read-through cache for administrative invalidation
func (a *App) Caches() []cache.Invalidator {
	var caches []cache.Invalidator
	caches = append(caches, a.Subsidies.Caches()...)
	caches = append(caches, a.FAQs.Caches()...)
	caches = append(caches, a.Congestion.Caches()...)
	return caches
}

// Close releases the database connection
func (a *App) Close() error {
	if a.DB == nil {
		return nil
	}
	return a.DB.Close()
}
