// Package metrics provides Prometheus metrics for the ingestion and generation pipeline.
//
// Every recording method is safe to call on a nil *Metrics, so components
// accept an optional collector and never branch on it.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for one process.
type Metrics struct {
	registry *prometheus.Registry

	// Ingestion metrics
	PagesCrawled      *prometheus.CounterVec
	ChunksIngested    prometheus.Counter
	IngestionDuration prometheus.Histogram
	IngestionErrors   *prometheus.CounterVec
	ActiveIngestions  prometheus.Gauge

	// Embedding metrics
	EmbeddingBatches  *prometheus.CounterVec
	EmbeddingDuration prometheus.Histogram
	ExternalRetries   *prometheus.CounterVec

	// Generation metrics
	GenerationDuration *prometheus.HistogramVec
	GenerationErrors   *prometheus.CounterVec

	// Retrieval metrics
	SearchDuration    prometheus.Histogram
	SearchResultCount prometheus.Histogram
	QueryCacheHits    prometheus.Counter
	QueryCacheMisses  prometheus.Counter

	// Tenant and credit metrics
	CreditsConsumed *prometheus.CounterVec
	CreditsDenied   *prometheus.CounterVec
	Bootstraps      *prometheus.CounterVec

	// Crawler metrics
	CircuitBreakerOpen *prometheus.GaugeVec
	PageCacheHits      prometheus.Counter
}

// New creates all collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		PagesCrawled: f.NewCounterVec(prometheus.CounterOpts{
			Name: "brandmem_pages_crawled_total",
			Help: "Pages visited by the crawler by outcome",
		}, []string{"status"}),
		ChunksIngested: f.NewCounter(prometheus.CounterOpts{
			Name: "brandmem_chunks_ingested_total",
			Help: "Memories written by ingestion",
		}),
		IngestionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "brandmem_ingestion_duration_seconds",
			Help:    "Duration of ingestion runs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s to ~4min
		}),
		IngestionErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "brandmem_ingestion_errors_total",
			Help: "Failed ingestion runs by stage",
		}, []string{"stage"}),
		ActiveIngestions: f.NewGauge(prometheus.GaugeOpts{
			Name: "brandmem_active_ingestions",
			Help: "Number of ingestion runs in progress",
		}),

		EmbeddingBatches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "brandmem_embedding_batches_total",
			Help: "Embedding batches by outcome",
		}, []string{"outcome"}),
		EmbeddingDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "brandmem_embedding_duration_seconds",
			Help:    "Duration of one embedding batch in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		ExternalRetries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "brandmem_external_retries_total",
			Help: "Retries of external calls after transient failures",
		}, []string{"op"}),

		GenerationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "brandmem_generation_duration_seconds",
			Help:    "Duration of successful generation requests",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}, []string{"artifact", "generator"}),
		GenerationErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "brandmem_generation_errors_total",
			Help: "Failed generation requests by error kind",
		}, []string{"artifact", "kind"}),

		SearchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "brandmem_search_duration_seconds",
			Help:    "Duration of retrieval in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		SearchResultCount: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "brandmem_search_results_count",
			Help:    "Memories returned per retrieval",
			Buckets: prometheus.LinearBuckets(0, 1, 11),
		}),
		QueryCacheHits: f.NewCounter(prometheus.CounterOpts{
			Name: "brandmem_query_cache_hits_total",
			Help: "Query embeddings served from cache",
		}),
		QueryCacheMisses: f.NewCounter(prometheus.CounterOpts{
			Name: "brandmem_query_cache_misses_total",
			Help: "Query embeddings computed",
		}),

		CreditsConsumed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "brandmem_credits_consumed_total",
			Help: "Credits consumed by capability",
		}, []string{"capability"}),
		CreditsDenied: f.NewCounterVec(prometheus.CounterOpts{
			Name: "brandmem_credits_denied_total",
			Help: "Requests rejected for insufficient credits",
		}, []string{"capability"}),
		Bootstraps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "brandmem_bootstraps_total",
			Help: "Tenant bootstrap calls by result",
		}, []string{"result"}),

		CircuitBreakerOpen: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "brandmem_circuit_breaker_open",
			Help: "1 while the named circuit breaker is open",
		}, []string{"name"}),
		PageCacheHits: f.NewCounter(prometheus.CounterOpts{
			Name: "brandmem_page_cache_hits_total",
			Help: "Crawled pages served from the page cache",
		}),
	}
}

// Registry returns the registry holding every collector.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// PageCrawled records one crawled page with its report status.
func (m *Metrics) PageCrawled(status string) {
	if m == nil {
		return
	}
	m.PagesCrawled.WithLabelValues(status).Inc()
}

// IngestionStarted marks a run in progress and returns a func that ends it.
// stage is empty on success.
func (m *Metrics) IngestionStarted() func(chunks int, stage string) {
	if m == nil {
		return func(int, string) {}
	}
	start := time.Now()
	m.ActiveIngestions.Inc()
	return func(chunks int, stage string) {
		m.ActiveIngestions.Dec()
		m.IngestionDuration.Observe(time.Since(start).Seconds())
		if stage != "" {
			m.IngestionErrors.WithLabelValues(stage).Inc()
			return
		}
		m.ChunksIngested.Add(float64(chunks))
	}
}

// EmbeddingBatch records one embedding batch.
func (m *Metrics) EmbeddingBatch(d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.EmbeddingBatches.WithLabelValues(outcome).Inc()
	m.EmbeddingDuration.Observe(d.Seconds())
}

// Retry records a retry of op. Its signature matches ai.RetryPolicy.OnRetry.
func (m *Metrics) Retry(op string, _ int, _ error) {
	if m == nil {
		return
	}
	m.ExternalRetries.WithLabelValues(op).Inc()
}

// Generated records a successful generation.
func (m *Metrics) Generated(artifact, generator string, d time.Duration) {
	if m == nil {
		return
	}
	m.GenerationDuration.WithLabelValues(artifact, generator).Observe(d.Seconds())
}

// GenerationFailed records a failed generation with its error kind.
func (m *Metrics) GenerationFailed(artifact, kind string) {
	if m == nil {
		return
	}
	m.GenerationErrors.WithLabelValues(artifact, kind).Inc()
}

// Searched records one retrieval.
func (m *Metrics) Searched(d time.Duration, results int) {
	if m == nil {
		return
	}
	m.SearchDuration.Observe(d.Seconds())
	m.SearchResultCount.Observe(float64(results))
}

// QueryCache records a query-embedding cache lookup.
func (m *Metrics) QueryCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.QueryCacheHits.Inc()
	} else {
		m.QueryCacheMisses.Inc()
	}
}

// CreditConsumed records a successful credit decrement.
func (m *Metrics) CreditConsumed(capability string) {
	if m == nil {
		return
	}
	m.CreditsConsumed.WithLabelValues(capability).Inc()
}

// CreditDenied records a request rejected by the credit gate.
func (m *Metrics) CreditDenied(capability string) {
	if m == nil {
		return
	}
	m.CreditsDenied.WithLabelValues(capability).Inc()
}

// Bootstrapped records a bootstrap outcome: existing, created, recovered or failed.
func (m *Metrics) Bootstrapped(result string) {
	if m == nil {
		return
	}
	m.Bootstraps.WithLabelValues(result).Inc()
}

// BreakerState records whether the named circuit breaker is open.
func (m *Metrics) BreakerState(name string, open bool) {
	if m == nil {
		return
	}
	v := 0.0
	if open {
		v = 1
	}
	m.CircuitBreakerOpen.WithLabelValues(name).Set(v)
}

// PageCacheHit records a page served from the page cache.
func (m *Metrics) PageCacheHit() {
	if m == nil {
		return
	}
	m.PageCacheHits.Inc()
}
