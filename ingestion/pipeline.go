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


package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/poiesic/brandmem/chunker"
	"github.com/poiesic/brandmem/core"
	"github.com/poiesic/brandmem/crawler"
	"github.com/poiesic/brandmem/credits"
	"github.com/poiesic/brandmem/embedding"
	"github.com/poiesic/brandmem/metrics"
	"github.com/poiesic/brandmem/storage"
	"github.com/poiesic/brandmem/tenant"
)

// PageSource crawls a site. *crawler.Crawler satisfies it.
type PageSource interface {
	Crawl(ctx context.Context, rawURL string, opts crawler.Options) (*crawler.Result, error)
}

// VectorEmbedder embeds chunk text. *embedding.Pipeline satisfies it.
type VectorEmbedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedPartial(ctx context.Context, texts []string) ([][]float32, error)
}

// Pipeline runs ingestion for one tenant at a time. It holds no per-run
// state and is safe for concurrent use.
type Pipeline struct {
	pages    PageSource
	embedder VectorEmbedder
	memories storage.MemoryRepository
	brands   tenant.BrandGetter
	meter    *credits.Meter
	minLen   int
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithMinChunkLength sets the shortest chunk stored.
// Default is chunker.MinChunkLength.
func WithMinChunkLength(n int) Option {
	return func(p *Pipeline) error {
		if n < 1 {
			return fmt.Errorf("minimum chunk length must be at least 1, got %d", n)
		}
		p.minLen = n
		return nil
	}
}

// WithMetrics records run duration, chunk counts and failing stages.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) error {
		p.metrics = m
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	pages PageSource,
	embedder VectorEmbedder,
	memories storage.MemoryRepository,
	brands tenant.BrandGetter,
	meter *credits.Meter,
	opts ...Option,
) (*Pipeline, error) {
	if pages == nil {
		return nil, ErrCrawlerRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if memories == nil {
		return nil, ErrMemoryRepositoryRequired
	}
	if brands == nil {
		return nil, ErrBrandRepositoryRequired
	}
	if meter == nil {
		return nil, ErrMeterRequired
	}

	p := &Pipeline{
		pages:    pages,
		embedder: embedder,
		memories: memories,
		brands:   brands,
		meter:    meter,
		minLen:   chunker.MinChunkLength,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	p.logger = p.logger.With("component", "ingestion")
	return p, nil
}

// IngestOptions holds optional parameters for ingestion.
type IngestOptions struct {
	// MaxPages above 1 turns on a deep crawl. See crawler.Options.
	MaxPages int

	// Credential overrides the reader service token for this run.
	Credential string
}

// IngestResult summarizes a successful run.
type IngestResult struct {
	// PagesCrawled counts pages that yielded text.
	PagesCrawled     int                  `json:"pages_crawled"`
	ChunksIngested   int                  `json:"chunks_ingested"`
	ScanReport       []crawler.PageReport `json:"scan_report"`
	CreditsRemaining int                  `json:"credits_remaining"`
}

// Ingest crawls rawURL and stores its chunks as website memories of tenantID.
//
// The tenant must have been bootstrapped; an unknown tenant fails at
// StageTenant before any credit is provisioned. The scan credit is checked
// next and consumed only after the memories are committed. Embedding is fail-closed and all memories are written in one
// call, so a failed run stores nothing. Failures are returned as a
// *StageError carrying the partial scan report.
func (p *Pipeline) Ingest(ctx context.Context, rawURL string, tenantID uuid.UUID, opts *IngestOptions) (result *IngestResult, err error) {
	if opts == nil {
		opts = &IngestOptions{}
	}
	finish := p.metrics.IngestionStarted()
	defer func() {
		var se *StageError
		switch {
		case err == nil:
			finish(result.ChunksIngested, "")
		case errors.As(err, &se):
			finish(0, string(se.Stage))
		default:
			finish(0, "unknown")
		}
	}()

	if _, err := tenant.Resolve(ctx, p.brands, tenantID); err != nil {
		return nil, stageError(StageTenant, nil, err)
	}
	if _, err := p.meter.Require(ctx, tenantID, core.CapabilityScan); err != nil {
		return nil, stageError(StageCredits, nil, err)
	}

	crawlOpts := crawler.Options{MaxPages: opts.MaxPages, Credential: opts.Credential}
	crawl, err := p.pages.Crawl(ctx, rawURL, crawlOpts)
	if err != nil {
		var report []crawler.PageReport
		if crawl != nil {
			report = crawl.Report
		}
		return nil, stageError(StageCrawl, report, err)
	}

	chunks, err := p.chunk(crawl.Pages, crawlOpts.Deep())
	if err != nil {
		return nil, stageError(StageChunk, crawl.Report, err)
	}
	report := fillReport(crawl.Report, chunks)
	if len(chunks) == 0 {
		return nil, stageError(StageChunk, report,
			fmt.Errorf("%w: no chunk reached %d characters", core.ErrEmptyContent, p.minLen))
	}

	vectors, err := p.embedder.Embed(ctx, chunker.Contents(chunks))
	if err != nil {
		return nil, stageError(StageEmbed, report, err)
	}

	memories := toMemories(embedding.PairVectors(chunks, vectors), core.SourceTypeWebsite)
	stored, err := p.memories.AddMemories(ctx, tenantID, memories...)
	if err != nil {
		return nil, stageError(StageStore, report, err)
	}

	remaining, err := p.meter.Consume(ctx, tenantID, core.CapabilityScan)
	if err != nil {
		// The memories are already committed and stay.
		p.logger.Warn("scan credit could not be consumed after ingestion", "tenant", tenantID, "err", err)
		remaining = 0
	}

	p.logger.Info("ingestion complete", "tenant", tenantID, "url", rawURL,
		"pages", len(crawl.Pages), "chunks", len(stored))
	return &IngestResult{
		PagesCrawled:     len(crawl.Pages),
		ChunksIngested:   len(stored),
		ScanReport:       report,
		CreditsRemaining: remaining,
	}, nil
}

// IngestPages stores already fetched pages as memories of the given source.
// No credit is checked or consumed.
//
// This path is opportunistic: chunks whose embedding batch failed are
// skipped and the rest are stored. It returns the number stored together
// with the joined batch errors, so a partial store has n > 0 and err != nil.
func (p *Pipeline) IngestPages(ctx context.Context, tenantID uuid.UUID, pages []crawler.Page, source core.SourceType) (int, error) {
	if err := core.ValidateTenant(tenantID); err != nil {
		return 0, err
	}
	chunks, err := p.chunk(pages, len(pages) > 1)
	if err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	vectors, embedErr := p.embedder.EmbedPartial(ctx, chunker.Contents(chunks))
	pairs := embedding.PairVectors(chunks, vectors)
	if len(pairs) < len(chunks) {
		p.logger.Warn("skipping chunks without embeddings", "tenant", tenantID,
			"chunks", len(chunks), "embedded", len(pairs))
	}
	if len(pairs) == 0 {
		return 0, embedErr
	}

	stored, err := p.memories.AddMemories(ctx, tenantID, toMemories(pairs, source)...)
	if err != nil {
		return 0, errors.Join(embedErr, err)
	}
	return len(stored), embedErr
}

func (p *Pipeline) chunk(pages []crawler.Page, deep bool) ([]chunker.Chunk, error) {
	c, err := chunker.New(chunker.WithDeep(deep), chunker.WithMinLength(p.minLen))
	if err != nil {
		return nil, err
	}
	return c.Chunk(pages), nil
}

// fillReport copies report with ChunksFound set from chunks.
func fillReport(report []crawler.PageReport, chunks []chunker.Chunk) []crawler.PageReport {
	counts := chunker.CountByURL(chunks)
	out := make([]crawler.PageReport, len(report))
	for i, r := range report {
		r.ChunksFound = counts[r.URL]
		out[i] = r
	}
	return out
}

func toMemories(pairs []embedding.Pair[chunker.Chunk], source core.SourceType) []*core.Memory {
	memories := make([]*core.Memory, len(pairs))
	for i, pair := range pairs {
		memories[i] = &core.Memory{
			Content:    pair.Item.Content,
			Vector:     pair.Vector,
			SourceType: source,
			Metadata: core.MemoryMetadata{
				URL:   pair.Item.URL,
				Title: strings.TrimSpace(pair.Item.Title),
			},
		}
	}
	return memories
}
