// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package brandmem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/poiesic/brandmem/ai"
	"github.com/poiesic/brandmem/core"
	"github.com/poiesic/brandmem/credits"
	"github.com/poiesic/brandmem/crawler"
	"github.com/poiesic/brandmem/embedding"
	"github.com/poiesic/brandmem/generation"
	"github.com/poiesic/brandmem/ingestion"
	"github.com/poiesic/brandmem/metrics"
	"github.com/poiesic/brandmem/search"
	"github.com/poiesic/brandmem/storage"
	"github.com/poiesic/brandmem/tenant"
)

var (
	// ErrStoresRequired is returned when New is called without stores.
	ErrStoresRequired = errors.New("stores required")

	// ErrProviderRequired is returned when New is called without an AI provider.
	ErrProviderRequired = errors.New("ai provider required")
)

// PageSource crawls a site. *crawler.Crawler satisfies it.
type PageSource interface {
	Crawl(ctx context.Context, rawURL string, opts crawler.Options) (*crawler.Result, error)
}

// Service is the caller-facing API. It is safe for concurrent use.
type Service struct {
	stores   *storage.Stores
	provider ai.Provider
	closers  []func() error
	metrics  *metrics.Metrics
	logger   *slog.Logger

	meter        *credits.Meter
	bootstrapper *tenant.Bootstrapper
	embedder     *embedding.Pipeline
	retriever    *search.Retriever
	ingester     *ingestion.Pipeline
	orchestrator *generation.Orchestrator
}

// Option configures a Service.
type Option func(*options) error

type options struct {
	pages       PageSource
	metrics     *metrics.Metrics
	logger      *slog.Logger
	allowance   int
	limit       int
	threshold   float32
	cacheSize   int
	retry       *ai.RetryPolicy
	batchSize   int
	minChunkLen int
	brandName   string
	closers     []func() error
}

// WithPageSource sets the crawler used for ingestion and tone analysis.
// Default is a crawler with direct HTML fetching only.
func WithPageSource(pages PageSource) Option {
	return func(o *options) error {
		if pages == nil {
			return errors.New("page source cannot be nil")
		}
		o.pages = pages
		return nil
	}
}

// WithMetrics shares a metrics registry. Default is a fresh one.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) error {
		o.metrics = m
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		o.logger = logger
		return nil
	}
}

// WithAllowance sets the credits provisioned per capability.
func WithAllowance(n int) Option {
	return func(o *options) error {
		if n < 0 {
			return fmt.Errorf("allowance cannot be negative, got %d", n)
		}
		o.allowance = n
		return nil
	}
}

// WithRetrieval tunes grounding retrieval. Zero values keep the defaults.
func WithRetrieval(limit int, threshold float32, cacheSize int) Option {
	return func(o *options) error {
		o.limit = limit
		o.threshold = threshold
		o.cacheSize = cacheSize
		return nil
	}
}

// WithRetryPolicy sets the policy for embedding and generation calls.
func WithRetryPolicy(policy ai.RetryPolicy) Option {
	return func(o *options) error {
		o.retry = &policy
		return nil
	}
}

// WithBatchSize sets the embedding batch size.
func WithBatchSize(n int) Option {
	return func(o *options) error {
		o.batchSize = n
		return nil
	}
}

// WithMinChunkLength overrides the minimum chunk length.
func WithMinChunkLength(n int) Option {
	return func(o *options) error {
		o.minChunkLen = n
		return nil
	}
}

// WithBrandName sets the name of brands created by Bootstrap.
func WithBrandName(name string) Option {
	return func(o *options) error {
		o.brandName = name
		return nil
	}
}

// WithCloser registers a function run by Close after the provider and
// before the stores.
func WithCloser(fn func() error) Option {
	return func(o *options) error {
		o.closers = append(o.closers, fn)
		return nil
	}
}

// New wires a Service on stores and provider. The Service takes ownership
// of both and closes them on Close.
func New(stores *storage.Stores, provider ai.Provider, opts ...Option) (*Service, error) {
	if stores == nil {
		return nil, ErrStoresRequired
	}
	if provider == nil {
		return nil, ErrProviderRequired
	}

	o := &options{
		allowance: core.DefaultCreditAllowance,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if o.metrics == nil {
		o.metrics = metrics.New()
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	s := &Service{
		stores:   stores,
		provider: provider,
		closers:  o.closers,
		metrics:  o.metrics,
		logger:   o.logger.With("component", "brandmem"),
	}
	if err := s.wire(o); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) wire(o *options) error {
	var err error

	if o.pages == nil {
		c, err := crawler.New(crawler.WithMetrics(o.metrics), crawler.WithLogger(o.logger))
		if err != nil {
			return fmt.Errorf("failed to create crawler: %w", err)
		}
		o.pages = c
	}

	s.meter, err = credits.NewMeter(s.stores.Credits,
		credits.WithAllowance(o.allowance),
		credits.WithMetrics(o.metrics),
		credits.WithLogger(o.logger))
	if err != nil {
		return fmt.Errorf("failed to create credit meter: %w", err)
	}

	tenantOpts := []tenant.Option{tenant.WithMetrics(o.metrics), tenant.WithLogger(o.logger)}
	if o.brandName != "" {
		tenantOpts = append(tenantOpts, tenant.WithDefaultName(o.brandName))
	}
	s.bootstrapper, err = tenant.NewBootstrapper(s.stores.Brands, tenantOpts...)
	if err != nil {
		return fmt.Errorf("failed to create bootstrapper: %w", err)
	}

	embedOpts := []embedding.Option{embedding.WithMetrics(o.metrics), embedding.WithLogger(o.logger)}
	if o.batchSize > 0 {
		embedOpts = append(embedOpts, embedding.WithBatchSize(o.batchSize))
	}
	if o.retry != nil {
		embedOpts = append(embedOpts, embedding.WithRetryPolicy(*o.retry))
	}
	s.embedder, err = embedding.NewPipeline(s.provider.Embedder(), embedOpts...)
	if err != nil {
		return fmt.Errorf("failed to create embedding pipeline: %w", err)
	}

	searchOpts := []search.Option{search.WithMetrics(o.metrics), search.WithLogger(o.logger)}
	if o.limit > 0 {
		searchOpts = append(searchOpts, search.WithLimit(o.limit))
	}
	if o.threshold > 0 {
		searchOpts = append(searchOpts, search.WithThreshold(o.threshold))
	}
	if o.cacheSize > 0 {
		searchOpts = append(searchOpts, search.WithCacheSize(o.cacheSize))
	}
	s.retriever, err = search.NewRetriever(s.stores.Memories, s.embedder, searchOpts...)
	if err != nil {
		return fmt.Errorf("failed to create retriever: %w", err)
	}

	ingestOpts := []ingestion.Option{ingestion.WithMetrics(o.metrics), ingestion.WithLogger(o.logger)}
	if o.minChunkLen > 0 {
		ingestOpts = append(ingestOpts, ingestion.WithMinChunkLength(o.minChunkLen))
	}
	s.ingester, err = ingestion.NewPipeline(o.pages, s.embedder, s.stores.Memories, s.stores.Brands, s.meter, ingestOpts...)
	if err != nil {
		return fmt.Errorf("failed to create ingestion pipeline: %w", err)
	}

	chainOpts := []generation.ChainOption{generation.WithChainMetrics(o.metrics), generation.WithChainLogger(o.logger)}
	if o.retry != nil {
		chainOpts = append(chainOpts, generation.WithChainRetryPolicy(*o.retry))
	}
	chain, err := generation.NewChain(s.provider.Generators(), chainOpts...)
	if err != nil {
		return fmt.Errorf("failed to create generator chain: %w", err)
	}
	s.orchestrator, err = generation.NewOrchestrator(chain, s.meter, s.stores.Brands, s.stores.Artifacts,
		generation.WithRetriever(s.retriever),
		generation.WithPageSource(o.pages),
		generation.WithSideIngester(s.ingester),
		generation.WithMetrics(o.metrics),
		generation.WithLogger(o.logger))
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}
	return nil
}

// Close releases the provider, registered closers and stores, in that order.
// It returns the first error but always attempts every step.
func (s *Service) Close() error {
	var first error
	if err := s.provider.Close(); err != nil {
		s.logger.Error("error closing AI provider", "err", err)
		first = err
	}
	for _, fn := range s.closers {
		if err := fn(); err != nil {
			s.logger.Error("error closing resource", "err", err)
			if first == nil {
				first = err
			}
		}
	}
	if err := s.stores.Close(); err != nil {
		s.logger.Error("error closing stores", "err", err)
		if first == nil {
			first = err
		}
	}
	return first
}

// Bootstrap returns the brand owned by ownerID, creating it on first use.
func (s *Service) Bootstrap(ctx context.Context, ownerID uuid.UUID) (*core.Brand, error) {
	return s.bootstrapper.Ensure(ctx, ownerID)
}

// SaveBrand stores the identity fields of brand.OwnerID's brand, creating
// it if needed. The brand ID never changes once assigned.
func (s *Service) SaveBrand(ctx context.Context, brand *core.Brand) (*core.Brand, error) {
	return s.bootstrapper.Save(ctx, brand)
}

// Ingest crawls rawURL and stores its chunks as memories of tenantID.
// On a *ingestion.StageError the partial scan report is attached to the error.
func (s *Service) Ingest(ctx context.Context, rawURL string, tenantID uuid.UUID, opts *ingestion.IngestOptions) (*ingestion.IngestResult, error) {
	return s.ingester.Ingest(ctx, rawURL, tenantID, opts)
}

// IngestBatch runs jobs on a pool of poolSize workers. Zero picks the default.
// Results are returned in job order.
func (s *Service) IngestBatch(ctx context.Context, jobs []ingestion.Job, poolSize int) ([]ingestion.JobResult, error) {
	var opts []ingestion.BatchOption
	if poolSize > 0 {
		opts = append(opts, ingestion.WithPoolSize(poolSize))
	}
	opts = append(opts, ingestion.WithBatchLogger(s.logger))
	runner, err := ingestion.NewBatchRunner(s.ingester, opts...)
	if err != nil {
		return nil, err
	}
	defer runner.Release()
	return runner.Run(ctx, jobs), nil
}

// Seed stores pages supplied by the caller as document memories without
// crawling or charging credits. Batches that fail to embed are skipped and
// reported through the returned error alongside the stored count. The
// tenant must have been bootstrapped.
func (s *Service) Seed(ctx context.Context, tenantID uuid.UUID, pages []crawler.Page) (int, error) {
	if _, err := tenant.Resolve(ctx, s.stores.Brands, tenantID); err != nil {
		return 0, err
	}
	return s.ingester.IngestPages(ctx, tenantID, pages, core.SourceTypeDocument)
}

// GenerateCampaign plans a campaign for tenantID across window.
func (s *Service) GenerateCampaign(ctx context.Context, tenantID uuid.UUID, goal string, window core.DateRange) (*generation.CampaignResult, error) {
	return s.orchestrator.GenerateCampaign(ctx, tenantID, goal, window)
}

// GenerateContent writes one post about topic for platform.
func (s *Service) GenerateContent(ctx context.Context, tenantID uuid.UUID, topic, platform string) (*generation.ContentResult, error) {
	return s.orchestrator.GenerateContent(ctx, tenantID, topic, platform)
}

// AnalyzeTone describes the voice of the page at url. A nil tenantID runs an
// anonymous analysis that is neither charged nor stored.
func (s *Service) AnalyzeTone(ctx context.Context, url string, tenantID *uuid.UUID) (*generation.ToneResult, error) {
	return s.orchestrator.AnalyzeTone(ctx, url, tenantID)
}

// Search returns tenantID's memories closest to query.
func (s *Service) Search(ctx context.Context, tenantID uuid.UUID, query string) ([]*core.SearchResult, error) {
	if err := core.ValidateTenant(tenantID); err != nil {
		return nil, err
	}
	return s.retriever.Retrieve(ctx, tenantID, query)
}

// Credits returns the remaining balance of every capability.
func (s *Service) Credits(ctx context.Context, tenantID uuid.UUID) (map[core.Capability]int, error) {
	return s.meter.Balances(ctx, tenantID)
}

// Balance returns the remaining credits of one capability, provisioning the
// allowance on first read.
func (s *Service) Balance(ctx context.Context, tenantID uuid.UUID, capability core.Capability) (int, error) {
	return s.meter.Check(ctx, tenantID, capability)
}

// Grant sets the remaining balance of one capability.
func (s *Service) Grant(ctx context.Context, tenantID uuid.UUID, capability core.Capability, remaining int) (int, error) {
	return s.meter.Grant(ctx, tenantID, capability, remaining)
}

// CountMemories returns the number of memories held for tenantID.
func (s *Service) CountMemories(ctx context.Context, tenantID uuid.UUID) (int, error) {
	return s.stores.Memories.CountMemories(ctx, tenantID)
}

// Campaigns lists the campaigns saved for tenantID.
func (s *Service) Campaigns(ctx context.Context, tenantID uuid.UUID) ([]*core.Campaign, error) {
	return s.stores.Artifacts.ListCampaigns(ctx, tenantID)
}

// Metrics returns the registry shared by every component.
func (s *Service) Metrics() *metrics.Metrics {
	return s.metrics
}

// Stores returns the repositories backing the Service.
func (s *Service) Stores() *storage.Stores {
	return s.stores
}

// Provider returns the AI provider.
func (s *Service) Provider() ai.Provider {
	return s.provider
}
