package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollector_CacheHitRatio(t *testing.T) {
	c := NewCollector("ev_test", prometheus.NewRegistry())

	c.RecordCacheMiss("subsidy")
	c.RecordCacheHit("subsidy")
	c.RecordCacheHit("subsidy")
	c.RecordCacheHit("faq")

	assert.Equal(t, 0.75, testutil.ToFloat64(c.CacheHitRatio))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.CacheRequestsTotal.WithLabelValues("subsidy", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.CacheRequestsTotal.WithLabelValues("subsidy", "miss")))
}

func TestCollector_Counters(t *testing.T) {
	c := NewCollector("ev_test", prometheus.NewRegistry())

	c.RecordAPIRequest("/api/congestion", "GET", "200")
	c.RecordImport("regions", 12)
	c.RecordImportError("regions", "parse_error")
	c.RecordCongestionLevel("HIGH")
	c.UpdateDBConnectionPool(2, 3, 5)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.APIRequestsTotal.WithLabelValues("/api/congestion", "GET", "200")))
	assert.Equal(t, 12.0, testutil.ToFloat64(c.ImportRecordsTotal.WithLabelValues("regions")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ImportErrorsTotal.WithLabelValues("regions", "parse_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.CongestionRowsTotal.WithLabelValues("HIGH")))
	assert.Equal(t, 5.0, testutil.ToFloat64(c.DBConnectionPool.WithLabelValues("total")))
}

func TestCollector_SeparateRegistries(t *testing.T) {
	// Two collectors with the same namespace must not collide on distinct registries.
	assert.NotPanics(t, func() {
		NewCollector("ev_test", prometheus.NewRegistry())
		NewCollector("ev_test", prometheus.NewRegistry())
	})
}
