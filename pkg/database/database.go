package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"ev-dashboard/pkg/logging"
	"ev-dashboard/pkg/metrics"
)

// Supported drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds database connection configuration
type Config struct {
	Driver          string
	Host            string
	Port            int
	User            string
	Password        string
	Database        string // database name, or file path for sqlite
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DSN builds the driver-specific data source name
func (c *Config) DSN() string {
	if c.Driver == DriverSQLite {
		return c.Database
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Database,
		c.SSLMode,
	)
}

// DB wraps sqlx.DB with monitoring and metrics
type DB struct {
	db      *sqlx.DB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
	config  *Config

	stop     chan struct{}
	stopOnce sync.Once
}

// New opens a database connection for cfg.Driver and starts pool monitoring
func New(cfg *Config, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) (*DB, error) {
	if cfg.Driver == "" {
		cfg.Driver = DriverPostgres
	}
	if cfg.Driver != DriverPostgres && cfg.Driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	db, err := sqlx.Open(cfg.Driver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	// An in-memory sqlite database lives and dies with its connection
	if cfg.Driver == DriverSQLite && strings.Contains(cfg.Database, ":memory:") {
		cfg.MaxOpenConns = 1
		cfg.MaxIdleConns = 1
		cfg.ConnMaxLifetime = 0
		cfg.ConnMaxIdleTime = 0
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info(ctx, "[DB_INIT] Database connection established", logging.Fields{
		"driver":            cfg.Driver,
		"host":              cfg.Host,
		"database":          cfg.Database,
		"max_open_conns":    cfg.MaxOpenConns,
		"max_idle_conns":    cfg.MaxIdleConns,
		"conn_max_lifetime": cfg.ConnMaxLifetime.String(),
	})

	d := &DB{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
		config:  cfg,
		stop:    make(chan struct{}),
	}

	go d.monitorConnectionPool(10 * time.Second)

	return d, nil
}

// Close stops pool monitoring and closes the database connection
func (d *DB) Close() error {
	d.stopOnce.Do(func() { close(d.stop) })
	d.logger.Info(context.Background(), "[DB_CLOSE] Closing database connection", logging.Fields{
		"database": d.config.Database,
	})
	return d.db.Close()
}

// DB returns the underlying sqlx.DB instance
func (d *DB) DB() *sqlx.DB {
	return d.db
}

// Driver returns the configured driver name
func (d *DB) Driver() string {
	return d.config.Driver
}

// Rebind converts a '?' query into the driver's bindvar style
func (d *DB) Rebind(query string) string {
	return d.db.Rebind(query)
}

// ExecContext executes a command with context and metrics
func (d *DB) ExecContext(ctx context.Context, queryType, query string, args ...interface{}) (sql.Result, error) {
	timer := time.Now()
	defer func() {
		duration := time.Since(timer)
		d.metrics.DBQueryDuration.WithLabelValues(queryType).Observe(duration.Seconds())

		d.logger.Debug(ctx, "[DB_EXEC] Command executed", logging.Fields{
			"query_type":  queryType,
			"duration_ms": duration.Milliseconds(),
		})
	}()

	result, err := d.db.ExecContext(ctx, d.db.Rebind(query), args...)
	if err != nil {
		d.metrics.RecordDBError("exec_error")
		d.logger.Error(ctx, "[DB_EXEC_ERROR] Command failed", logging.Fields{
			"query_type": queryType,
		}, err)
		return nil, err
	}

	return result, nil
}

// GetContext executes a query that returns a single row
func (d *DB) GetContext(ctx context.Context, queryType string, dest interface{}, query string, args ...interface{}) error {
	timer := time.Now()
	defer func() {
		d.metrics.DBQueryDuration.WithLabelValues(queryType).Observe(time.Since(timer).Seconds())
	}()

	err := d.db.GetContext(ctx, dest, d.db.Rebind(query), args...)
	if err != nil && err != sql.ErrNoRows {
		d.metrics.RecordDBError("get_error")
		d.logger.Error(ctx, "[DB_GET_ERROR] Get query failed", logging.Fields{
			"query_type": queryType,
		}, err)
	}

	return err
}

// SelectContext executes a query that returns multiple rows
func (d *DB) SelectContext(ctx context.Context, queryType string, dest interface{}, query string, args ...interface{}) error {
	timer := time.Now()
	defer func() {
		duration := time.Since(timer)
		d.metrics.DBQueryDuration.WithLabelValues(queryType).Observe(duration.Seconds())

		d.logger.Debug(ctx, "[DB_QUERY] Query executed", logging.Fields{
			"query_type":  queryType,
			"duration_ms": duration.Milliseconds(),
		})
	}()

	err := d.db.SelectContext(ctx, dest, d.db.Rebind(query), args...)
	if err != nil {
		d.metrics.RecordDBError("select_error")
		d.logger.Error(ctx, "[DB_SELECT_ERROR] Select query failed", logging.Fields{
			"query_type": queryType,
		}, err)
		return err
	}

	return nil
}

// BeginTx begins a new transaction
func (d *DB) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	var opts *sql.TxOptions
	if d.config.Driver == DriverPostgres {
		opts = &sql.TxOptions{Isolation: sql.LevelSerializable}
	}

	tx, err := d.db.BeginTxx(ctx, opts)
	if err != nil {
		d.metrics.RecordDBError("transaction_begin_error")
		d.logger.Error(ctx, "[DB_TX_ERROR] Failed to begin transaction", logging.Fields{}, err)
		return nil, err
	}

	return tx, nil
}

// ApplySchema executes a multi-statement DDL script
func (d *DB) ApplySchema(ctx context.Context, script string) error {
	if _, err := d.db.ExecContext(ctx, script); err != nil {
		d.metrics.RecordDBError("schema_error")
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// monitorConnectionPool periodically updates connection pool metrics
func (d *DB) monitorConnectionPool(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stop:
			return
		case <-ticker.C:
		}

		stats := d.db.Stats()
		d.metrics.UpdateDBConnectionPool(stats.InUse, stats.Idle, stats.OpenConnections)

		if stats.MaxOpenConnections <= 0 {
			continue
		}

		utilization := float64(stats.InUse) / float64(stats.MaxOpenConnections)
		if utilization > 0.8 {
			d.logger.Warn(context.Background(), "[DB_POOL_WARNING] Connection pool utilization high", logging.Fields{
				"in_use":      stats.InUse,
				"idle":        stats.Idle,
				"total":       stats.OpenConnections,
				"max_open":    stats.MaxOpenConnections,
				"utilization": fmt.Sprintf("%.2f%%", utilization*100),
			})
		}
	}
}

// HealthCheck performs a database health check
func (d *DB) HealthCheck(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := d.db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	return nil
}
