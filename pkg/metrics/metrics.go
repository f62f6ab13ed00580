package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector provides application metrics collection
type Collector struct {
	// API Metrics
	APIRequestsTotal   *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec
	APIErrorsTotal     *prometheus.CounterVec

	// Import Metrics
	ImportRecordsTotal *prometheus.CounterVec
	ImportErrorsTotal  *prometheus.CounterVec
	ImportBatchSize    prometheus.Histogram

	// Database Metrics
	DBQueryDuration  *prometheus.HistogramVec
	DBConnectionPool *prometheus.GaugeVec
	DBErrorsTotal    *prometheus.CounterVec

	// Cache Metrics
	CacheRequestsTotal *prometheus.CounterVec
	CacheHitRatio      prometheus.Gauge

	// Congestion Metrics
	CongestionBuildDuration prometheus.Histogram
	CongestionRowsTotal     *prometheus.CounterVec
	SourceLoadDuration      *prometheus.HistogramVec

	mu     sync.Mutex
	hits   float64
	misses float64
}

// NewCollector registers the collectors on reg. A nil reg uses the
// default Prometheus registerer.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		APIRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Total number of API requests by endpoint, method, and status",
			},
			[]string{"endpoint", "method", "status"},
		),

		APIRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_request_duration_seconds",
				Help:      "API request duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1.0, 2.0, 5.0},
			},
			[]string{"endpoint"},
		),

		APIErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_errors_total",
				Help:      "Total number of API errors by type",
			},
			[]string{"error_type", "endpoint"},
		),

		ImportRecordsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "import_records_total",
				Help:      "Total number of records imported by dataset",
			},
			[]string{"dataset"},
		),

		ImportErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "import_errors_total",
				Help:      "Total number of import errors by dataset and type",
			},
			[]string{"dataset", "error_type"},
		),

		ImportBatchSize: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "import_batch_size",
				Help:      "Number of records per batch during import",
				Buckets:   []float64{10, 50, 100, 500, 1000, 5000},
			},
		),

		DBQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "db_query_duration_seconds",
				Help:      "Database query duration in seconds by query type",
				Buckets:   []float64{0.001, 0.002, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5},
			},
			[]string{"query_type"},
		),

		DBConnectionPool: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "db_connection_pool",
				Help:      "Database connection pool statistics",
			},
			[]string{"state"}, // "in_use", "idle", "total"
		),

		DBErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "db_errors_total",
				Help:      "Total number of database errors by type",
			},
			[]string{"error_type"},
		),

		CacheRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_requests_total",
				Help:      "Cache lookups by cache name and result",
			},
			[]string{"cache", "result"}, // "hit", "miss"
		),

		CacheHitRatio: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "cache_hit_ratio",
				Help:      "Cache hit ratio across all caches",
			},
		),

		CongestionBuildDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "congestion_build_duration_seconds",
				Help:      "Duration of congestion table builds in seconds",
				Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
		),

		CongestionRowsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "congestion_classified_rows_total",
				Help:      "Hourly rows classified by congestion level",
			},
			[]string{"level"},
		),

		SourceLoadDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "source_load_duration_seconds",
				Help:      "Duration of load-table source reads by scheme",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"scheme"},
		),
	}
}

// Timer provides timing functionality for operations
type Timer struct {
	start    time.Time
	observer prometheus.Observer
}

// NewTimer creates a new timer
func (c *Collector) NewTimer(histogram prometheus.Observer) *Timer {
	return &Timer{
		start:    time.Now(),
		observer: histogram,
	}
}

// ObserveDuration records the elapsed time since timer creation
func (t *Timer) ObserveDuration() time.Duration {
	duration := time.Since(t.start)
	if t.observer != nil {
		t.observer.Observe(duration.Seconds())
	}
	return duration
}

// RecordAPIRequest increments API request counter
func (c *Collector) RecordAPIRequest(endpoint, method, status string) {
	c.APIRequestsTotal.WithLabelValues(endpoint, method, status).Inc()
}

// RecordAPIError increments API error counter
func (c *Collector) RecordAPIError(errorType, endpoint string) {
	c.APIErrorsTotal.WithLabelValues(errorType, endpoint).Inc()
}

// RecordImport adds successfully imported records for a dataset
func (c *Collector) RecordImport(dataset string, count int) {
	c.ImportRecordsTotal.WithLabelValues(dataset).Add(float64(count))
}

// RecordImportError increments import error counter
func (c *Collector) RecordImportError(dataset, errorType string) {
	c.ImportErrorsTotal.WithLabelValues(dataset, errorType).Inc()
}

// RecordDBError increments database error counter
func (c *Collector) RecordDBError(errorType string) {
	c.DBErrorsTotal.WithLabelValues(errorType).Inc()
}

// RecordCacheHit counts a cache hit and refreshes the hit ratio
func (c *Collector) RecordCacheHit(cache string) {
	c.CacheRequestsTotal.WithLabelValues(cache, "hit").Inc()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hits++
	c.updateHitRatio()
}

// RecordCacheMiss counts a cache miss and refreshes the hit ratio
func (c *Collector) RecordCacheMiss(cache string) {
	c.CacheRequestsTotal.WithLabelValues(cache, "miss").Inc()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.misses++
	c.updateHitRatio()
}

// updateHitRatio must be called with c.mu held
func (c *Collector) updateHitRatio() {
	c.CacheHitRatio.Set(c.hits / (c.hits + c.misses))
}

// RecordCongestionLevel counts one classified hourly row
func (c *Collector) RecordCongestionLevel(level string) {
	c.CongestionRowsTotal.WithLabelValues(level).Inc()
}

// UpdateDBConnectionPool updates database connection pool metrics
func (c *Collector) UpdateDBConnectionPool(inUse, idle, total int) {
	c.DBConnectionPool.WithLabelValues("in_use").Set(float64(inUse))
	c.DBConnectionPool.WithLabelValues("idle").Set(float64(idle))
	c.DBConnectionPool.WithLabelValues("total").Set(float64(total))
}
