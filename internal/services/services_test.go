package services

import (
	"context"
	"io"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"ev-dashboard/internal/repository"
	"ev-dashboard/migrations"
	"ev-dashboard/pkg/database"
	"ev-dashboard/pkg/logging"
	"ev-dashboard/pkg/metrics"
)

type testDeps struct {
	logger    *logging.StructuredLogger
	metrics   *metrics.Collector
	subsidies repository.SubsidyRepository
	faqs      repository.FAQRepository
}

func newTestDeps(t *testing.T) *testDeps {
	t.Helper()
	logger := logging.NewStructuredLogger("services-test", "test", logging.ErrorLevel)
	logger.SetOutput(io.Discard)
	collector := metrics.NewCollector("services_test", prometheus.NewRegistry())

	db, err := database.New(&database.Config{Driver: database.DriverSQLite, Database: ":memory:"}, logger, collector)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.ApplySchema(context.Background(), migrations.Up()))

	return &testDeps{
		logger:    logger,
		metrics:   collector,
		subsidies: repository.NewSubsidyRepository(db, logger, collector),
		faqs:      repository.NewFAQRepository(db, logger, collector),
	}
}
