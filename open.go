package brandmem

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/poiesic/brandmem/ai"
	"github.com/poiesic/brandmem/ai/gemini"
	"github.com/poiesic/brandmem/ai/openai"
	"github.com/poiesic/brandmem/config"
	"github.com/poiesic/brandmem/crawler"
	"github.com/poiesic/brandmem/metrics"
	"github.com/poiesic/brandmem/storage"
	"github.com/poiesic/brandmem/storage/badger"
	"github.com/poiesic/brandmem/storage/postgres"
)

// Open builds a Service from cfg: it opens the configured store, the AI
// provider, the optional Redis page cache and a crawler. opts are applied
// after the configured values and may override them.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*Service, error) {
	stores, err := OpenStores(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	provider, err := NewProvider(ctx, cfg.AIConfig())
	if err != nil {
		stores.Close()
		return nil, fmt.Errorf("failed to create AI provider: %w", err)
	}

	m := metrics.New()
	base := []Option{
		WithMetrics(m),
		WithAllowance(cfg.Credits.Allowance),
		WithRetrieval(cfg.Retrieval.Limit, cfg.Retrieval.Threshold, cfg.Retrieval.CacheSize),
		WithRetryPolicy(cfg.AIConfig().RetryPolicy()),
		WithBatchSize(cfg.AI.BatchSize),
	}

	crawlOpts := []crawler.Option{
		crawler.WithMetrics(m),
		crawler.WithPageInterval(cfg.Crawler.PageInterval),
	}
	if cfg.Crawler.ReaderURL != "" {
		crawlOpts = append(crawlOpts, crawler.WithReader(cfg.Crawler.ReaderURL, cfg.Crawler.ReaderToken))
	}
	if cfg.Crawler.UserAgent != "" {
		crawlOpts = append(crawlOpts, crawler.WithUserAgent(cfg.Crawler.UserAgent))
	}
	if cfg.Redis.Address != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.Database,
		})
		crawlOpts = append(crawlOpts, crawler.WithPageCache(crawler.NewRedisPageCache(client, cfg.Crawler.CacheTTL)))
		base = append(base, WithCloser(client.Close))
	}
	pages, err := crawler.New(crawlOpts...)
	if err != nil {
		provider.Close()
		stores.Close()
		return nil, fmt.Errorf("failed to create crawler: %w", err)
	}
	base = append(base, WithPageSource(pages))

	svc, err := New(stores, provider, append(base, opts...)...)
	if err != nil {
		provider.Close()
		stores.Close()
		return nil, err
	}
	return svc, nil
}

// OpenStores opens the storage backend named by cfg.
func OpenStores(ctx context.Context, cfg config.StorageConfig) (*storage.Stores, error) {
	switch cfg.Backend {
	case config.StorageBadger:
		stores, err := badger.OpenStores(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open badger store at %s: %w", cfg.Path, err)
		}
		return stores, nil
	case config.StoragePostgres:
		stores, err := postgres.OpenStores(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres store: %w", err)
		}
		return stores, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// NewProvider builds a provider for cfg. Uniform configurations use the
// backend's own provider; mixed ones are composed endpoint by endpoint.
func NewProvider(ctx context.Context, cfg *ai.Config) (ai.Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch uniformBackend(cfg) {
	case ai.BackendGemini:
		return gemini.NewProvider(ctx, cfg)
	case ai.BackendOpenAI:
		return openai.NewProvider(cfg)
	}

	embedder, err := newEmbedder(ctx, cfg)
	if err != nil {
		return nil, err
	}
	generators := make([]ai.Generator, 0, len(cfg.Generation))
	for _, ep := range cfg.Generation {
		var g ai.Generator
		switch ep.Backend {
		case ai.BackendGemini:
			g, err = gemini.NewGenerator(ctx, ep, cfg.Temperature)
		default:
			g, err = openai.NewGenerator(ep, cfg.Temperature)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create generator %s: %w", ep, err)
		}
		generators = append(generators, g)
	}
	return ai.Compose(embedder, generators), nil
}

func newEmbedder(ctx context.Context, cfg *ai.Config) (ai.Embedder, error) {
	if cfg.Embedding.Backend == ai.BackendGemini {
		return gemini.NewEmbedder(ctx, cfg.Embedding)
	}
	return openai.NewEmbedder(cfg.Embedding, cfg.BatchSize)
}

// uniformBackend returns the backend shared by every endpoint, or "" when
// they differ.
func uniformBackend(cfg *ai.Config) ai.Backend {
	b := cfg.Embedding.Backend
	for _, ep := range cfg.Generation {
		if ep.Backend != b {
			return ""
		}
	}
	return b
}
