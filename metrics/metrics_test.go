package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.PageCrawled("success")
		m.IngestionStarted()(3, "")
		m.EmbeddingBatch(time.Second, nil)
		m.Retry("embed", 1, nil)
		m.Generated("campaign", "gemini:x", time.Second)
		m.GenerationFailed("campaign", "parse")
		m.Searched(time.Millisecond, 2)
		m.QueryCache(true)
		m.CreditConsumed("scan")
		m.CreditDenied("scan")
		m.Bootstrapped("created")
		m.BreakerState("reader", true)
		m.PageCacheHit()
	})
}

func TestCounters(t *testing.T) {
	m := New()

	m.PageCrawled("success")
	m.PageCrawled("success")
	m.PageCrawled("failed")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.PagesCrawled.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PagesCrawled.WithLabelValues("failed")))

	m.EmbeddingBatch(time.Millisecond, errors.New("boom"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EmbeddingBatches.WithLabelValues("failure")))

	m.CreditConsumed("content")
	m.CreditDenied("content")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CreditsConsumed.WithLabelValues("content")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CreditsDenied.WithLabelValues("content")))
}

func TestIngestionStarted(t *testing.T) {
	m := New()

	done := m.IngestionStarted()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveIngestions))
	done(7, "")
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ActiveIngestions))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.ChunksIngested))

	m.IngestionStarted()(0, "embed")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IngestionErrors.WithLabelValues("embed")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.ChunksIngested))
}

func TestHandler(t *testing.T) {
	m := New()
	m.QueryCache(false)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "brandmem_query_cache_misses_total 1"))
}
