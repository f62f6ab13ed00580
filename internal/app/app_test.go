package app

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ev-dashboard/internal/config"
	"ev-dashboard/pkg/logging"
	"ev-dashboard/pkg/metrics"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "load.csv")
	require.NoError(t, os.WriteFile(path, []byte("date,type,0h,1h\n2024-01-01,AC,1,2\n"), 0o644))

	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Database.Driver = "sqlite"
	cfg.Database.Database = ":memory:"
	cfg.Congestion.Source = path
	cfg.Congestion.DateColumn = "date"
	cfg.Congestion.CategoryColumn = "type"
	cfg.Congestion.HourSuffix = "h"
	cfg.Congestion.Timezone = "UTC"
	return cfg
}

func TestDatabaseConfig(t *testing.T) {
	dbCfg := DatabaseConfig(config.DatabaseConfig{
		Driver:          "postgres",
		Host:            "db",
		Port:            5433,
		Database:        "ev",
		MaxOpenConns:    7,
		ConnMaxLifetime: time.Minute,
	})
	assert.Equal(t, "postgres", dbCfg.Driver)
	assert.Equal(t, "db", dbCfg.Host)
	assert.Equal(t, 5433, dbCfg.Port)
	assert.Equal(t, 7, dbCfg.MaxOpenConns)
	assert.Equal(t, time.Minute, dbCfg.ConnMaxLifetime)
}

func TestCongestionSchema(t *testing.T) {
	schema := CongestionSchema(config.CongestionConfig{DateColumn: "date"})
	assert.Equal(t, "date", schema.DateColumn)
	assert.Equal(t, "충전방식", schema.CategoryColumn)
	assert.Equal(t, "시", schema.HourSuffix)
	assert.NotEmpty(t, schema.DateLayouts)
}

func TestNew(t *testing.T) {
	logger := logging.NewStructuredLogger("app-test", "test", logging.ErrorLevel)
	logger.SetOutput(io.Discard)
	collector := metrics.NewCollector("app_test", prometheus.NewRegistry())
	ctx := context.Background()

	a, err := New(ctx, testConfig(t), logger, collector)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	assert.Len(t, a.Caches(), 6)
	require.NoError(t, a.DB.HealthCheck(ctx))

	categories, err := a.Congestion.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"AC"}, categories)
}

func TestNew_BadSource(t *testing.T) {
	logger := logging.NewStructuredLogger("app-test", "test", logging.ErrorLevel)
	logger.SetOutput(io.Discard)
	collector := metrics.NewCollector("app_test", prometheus.NewRegistry())

	cfg := testConfig(t)
	cfg.Congestion.Source = "load.parquet"
	_, err := New(context.Background(), cfg, logger, collector)
	assert.Error(t, err)
}
