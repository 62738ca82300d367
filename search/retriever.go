package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/poiesic/brandmem/core"
	"github.com/poiesic/brandmem/metrics"
	"github.com/poiesic/brandmem/storage"
)

const (
	// DefaultLimit is the number of memories retrieved per query.
	DefaultLimit = 5

	// DefaultThreshold is the minimum cosine similarity of a retrieved memory.
	DefaultThreshold float32 = 0.5

	// DefaultCacheSize is the number of query vectors kept.
	DefaultCacheSize = 256
)

// QueryEmbedder turns one query into a vector. *embedding.Pipeline satisfies it.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Retriever finds a tenant's memories closest to a query.
type Retriever struct {
	memories  storage.MemoryRepository
	embedder  QueryEmbedder
	cache     *lru.Cache[string, []float32]
	cacheSize int
	limit     int
	threshold float32
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever) error

// WithLimit sets the maximum number of results. Default is 5.
func WithLimit(n int) Option {
	return func(r *Retriever) error {
		if n < 1 {
			return fmt.Errorf("limit must be at least 1, got %d", n)
		}
		r.limit = n
		return nil
	}
}

// WithThreshold sets the minimum similarity. Default is 0.5.
func WithThreshold(t float32) Option {
	return func(r *Retriever) error {
		if t < -1 || t > 1 {
			return fmt.Errorf("threshold must be within [-1, 1], got %v", t)
		}
		r.threshold = t
		return nil
	}
}

// WithCacheSize sets the number of cached query vectors. Zero disables the cache.
func WithCacheSize(n int) Option {
	return func(r *Retriever) error {
		if n < 0 {
			return fmt.Errorf("cache size must not be negative, got %d", n)
		}
		r.cacheSize = n
		return nil
	}
}

// WithMetrics records search latency, result counts and cache hits.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Retriever) error {
		r.metrics = m
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// NewRetriever creates a retriever over memories.
func NewRetriever(memories storage.MemoryRepository, embedder QueryEmbedder, opts ...Option) (*Retriever, error) {
	if memories == nil {
		return nil, ErrMemoryRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	r := &Retriever{
		memories:  memories,
		embedder:  embedder,
		cacheSize: DefaultCacheSize,
		limit:     DefaultLimit,
		threshold: DefaultThreshold,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	if r.cacheSize > 0 {
		cache, err := lru.New[string, []float32](r.cacheSize)
		if err != nil {
			return nil, err
		}
		r.cache = cache
	}
	r.logger = r.logger.With("component", "search")
	return r, nil
}

// Retrieve returns the tenant's memories most similar to query, best first.
// An empty store yields an empty result, not an error.
func (r *Retriever) Retrieve(ctx context.Context, tenantID uuid.UUID, query string) ([]*core.SearchResult, error) {
	return r.RetrieveWithMonitor(ctx, tenantID, query, nil)
}

// RetrieveWithMonitor is Retrieve with callbacks at each stage.
func (r *Retriever) RetrieveWithMonitor(ctx context.Context, tenantID uuid.UUID, query string, monitor SearchMonitor) ([]*core.SearchResult, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if err := core.ValidateTenant(tenantID); err != nil {
		return nil, err
	}
	query = normalizeQuery(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	monitor.Start(tenantID, query)
	start := time.Now()

	vector, cached, err := r.queryVector(ctx, query)
	if err != nil {
		r.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, err
	}
	monitor.AfterEmbedding(len(vector), cached)

	results, err := r.SearchVector(ctx, tenantID, vector)
	if err != nil {
		return nil, err
	}

	r.metrics.Searched(time.Since(start), len(results))
	monitor.Finish(results)
	return results, nil
}

// SearchVector runs the similarity query for an already embedded query.
func (r *Retriever) SearchVector(ctx context.Context, tenantID uuid.UUID, vector []float32) ([]*core.SearchResult, error) {
	results, err := r.memories.FindSimilar(ctx, tenantID, vector, r.threshold, r.limit)
	if err != nil {
		r.logger.Error("error querying for similar memories", "tenant", tenantID, "err", err)
		return nil, err
	}
	if results == nil {
		results = []*core.SearchResult{}
	}
	return results, nil
}

func (r *Retriever) queryVector(ctx context.Context, query string) ([]float32, bool, error) {
	if r.cache != nil {
		if vector, ok := r.cache.Get(query); ok {
			r.metrics.QueryCache(true)
			return vector, true, nil
		}
		r.metrics.QueryCache(false)
	}

	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, false, err
	}
	if r.cache != nil {
		r.cache.Add(query, vector)
	}
	return vector, false, nil
}
