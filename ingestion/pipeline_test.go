package ingestion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/poiesic/brandmem/ai/mock"
	"github.com/poiesic/brandmem/core"
	"github.com/poiesic/brandmem/crawler"
	"github.com/poiesic/brandmem/credits"
	"github.com/poiesic/brandmem/embedding"
	"github.com/poiesic/brandmem/metrics"
	"github.com/poiesic/brandmem/storage"
	"github.com/poiesic/brandmem/storage/badger"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newSite serves paths mapped to HTML bodies; a body of "500" fails.
func newSite(t *testing.T, pages map[string]string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		body, ok := pages[r.URL.Path]
		switch {
		case !ok:
			http.NotFound(w, r)
		case body == "500":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = fmt.Fprint(w, body)
		}
	}))
	t.Cleanup(server.Close)
	return server, &hits
}

func htmlPage(title string, links []string, paragraphs ...string) string {
	var b strings.Builder
	b.WriteString("<html><head><title>" + title + "</title></head><body>")
	for _, p := range paragraphs {
		b.WriteString("<p>" + p + "</p>")
	}
	for _, l := range links {
		b.WriteString(`<a href="` + l + `">` + l + `</a>`)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func paragraphs(topic string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("Paragraph %d explains how we approach %s for every customer.", i+1, topic)
	}
	return out
}

type harness struct {
	stores   *storage.Stores
	meter    *credits.Meter
	embedder *mock.MockEmbedder
	metrics  *metrics.Metrics
	pipeline *Pipeline
}

func newHarness(t *testing.T, embedOpts ...embedding.Option) *harness {
	t.Helper()
	stores, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { stores.Close() })

	meter, err := credits.NewMeter(stores.Credits)
	require.NoError(t, err)

	c, err := crawler.New(crawler.WithPageInterval(0))
	require.NoError(t, err)

	embedder := mock.NewMockEmbedder()
	vectors, err := embedding.NewPipeline(embedder, embedOpts...)
	require.NoError(t, err)

	m := metrics.New()
	p, err := NewPipeline(c, vectors, stores.Memories, stores.Brands, meter, WithMetrics(m))
	require.NoError(t, err)

	return &harness{stores: stores, meter: meter, embedder: embedder, metrics: m, pipeline: p}
}

// brand bootstraps a tenant and returns its brand ID.
func (h *harness) brand(t *testing.T) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	owner := uuid.New()
	_, err := h.stores.Brands.CreateProfile(ctx, owner)
	require.NoError(t, err)
	brand, err := h.stores.Brands.InsertBrand(ctx, &core.Brand{OwnerID: owner, Name: "Harbor Coffee"})
	require.NoError(t, err)
	return brand.ID
}

func (h *harness) count(t *testing.T, tenant uuid.UUID) int {
	t.Helper()
	n, err := h.stores.Memories.CountMemories(context.Background(), tenant)
	require.NoError(t, err)
	return n
}

func (h *harness) scanCredits(t *testing.T, tenant uuid.UUID) int {
	t.Helper()
	n, err := h.meter.Check(context.Background(), tenant, core.CapabilityScan)
	require.NoError(t, err)
	return n
}

func TestNewPipeline_Requirements(t *testing.T) {
	h := newHarness(t)
	c, err := crawler.New()
	require.NoError(t, err)
	vectors, err := embedding.NewPipeline(mock.NewMockEmbedder())
	require.NoError(t, err)

	_, err = NewPipeline(nil, vectors, h.stores.Memories, h.stores.Brands, h.meter)
	assert.ErrorIs(t, err, ErrCrawlerRequired)
	_, err = NewPipeline(c, nil, h.stores.Memories, h.stores.Brands, h.meter)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
	_, err = NewPipeline(c, vectors, nil, h.stores.Brands, h.meter)
	assert.ErrorIs(t, err, ErrMemoryRepositoryRequired)
	_, err = NewPipeline(c, vectors, h.stores.Memories, nil, h.meter)
	assert.ErrorIs(t, err, ErrBrandRepositoryRequired)
	_, err = NewPipeline(c, vectors, h.stores.Memories, h.stores.Brands, nil)
	assert.ErrorIs(t, err, ErrMeterRequired)
	_, err = NewPipeline(c, vectors, h.stores.Memories, h.stores.Brands, h.meter, WithMinChunkLength(0))
	assert.Error(t, err)
}

func TestIngest_DeepCrawlWithFailingPage(t *testing.T) {
	shared := "Every bag is roasted to order in small batches at our harbor-side roastery."
	site, _ := newSite(t, map[string]string{
		"/":      htmlPage("Home", []string{"/two", "/three"}, append(paragraphs("sourcing", 2), shared)...),
		"/two":   "500",
		"/three": htmlPage("Three", nil, append(paragraphs("brewing", 2), shared)...),
	})
	h := newHarness(t)
	tenant := h.brand(t)

	result, err := h.pipeline.Ingest(context.Background(), site.URL, tenant, &IngestOptions{MaxPages: 3})
	require.NoError(t, err)

	require.Len(t, result.ScanReport, 3)
	assert.Equal(t, crawler.StatusSuccess, result.ScanReport[0].Status)
	assert.Equal(t, 3, result.ScanReport[0].ChunksFound)
	assert.Equal(t, site.URL+"/two", result.ScanReport[1].URL)
	assert.Equal(t, crawler.StatusFailed, result.ScanReport[1].Status)
	assert.Zero(t, result.ScanReport[1].ChunksFound)
	assert.Equal(t, crawler.StatusSuccess, result.ScanReport[2].Status)
	assert.Equal(t, 2, result.ScanReport[2].ChunksFound)

	// The shared paragraph is stored once.
	assert.Equal(t, 5, result.ChunksIngested)
	assert.Equal(t, 2, result.PagesCrawled)
	assert.Equal(t, 5, h.count(t, tenant))
	assert.Equal(t, core.DefaultCreditAllowance-1, result.CreditsRemaining)
	assert.Equal(t, core.DefaultCreditAllowance-1, h.scanCredits(t, tenant))
	assert.Equal(t, 5.0, testutil.ToFloat64(h.metrics.ChunksIngested))
}

func TestIngest_StoresProvenance(t *testing.T) {
	site, _ := newSite(t, map[string]string{
		"/": htmlPage("Harbor Coffee", nil, paragraphs("sourcing", 3)...),
	})
	h := newHarness(t)
	tenant := h.brand(t)

	_, err := h.pipeline.Ingest(context.Background(), site.URL, tenant, nil)
	require.NoError(t, err)

	var stored []*core.Memory
	err = h.stores.Memories.IterateMemories(context.Background(), tenant, 10, func(batch []*core.Memory) error {
		stored = append(stored, batch...)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, stored, 3)
	for _, m := range stored {
		assert.Equal(t, core.SourceTypeWebsite, m.SourceType)
		assert.Equal(t, site.URL+"/", m.Metadata.URL)
		assert.Equal(t, "Harbor Coffee", m.Metadata.Title)
		assert.Equal(t, mock.Vector(m.Content), m.Vector)
	}
}

// countingCredits records every ledger call that could provision a balance.
type countingCredits struct {
	storage.CreditRepository
	calls atomic.Int32
}

func (c *countingCredits) GetOrProvision(ctx context.Context, tenantID uuid.UUID, capability core.Capability, allowance int) (*core.CreditBalance, error) {
	c.calls.Add(1)
	return c.CreditRepository.GetOrProvision(ctx, tenantID, capability, allowance)
}

func (c *countingCredits) Decrement(ctx context.Context, tenantID uuid.UUID, capability core.Capability, allowance int) (*core.CreditBalance, error) {
	c.calls.Add(1)
	return c.CreditRepository.Decrement(ctx, tenantID, capability, allowance)
}

func TestIngest_UnknownTenant(t *testing.T) {
	site, hits := newSite(t, map[string]string{"/": htmlPage("Home", nil, paragraphs("x", 3)...)})
	h := newHarness(t)
	ledger := &countingCredits{CreditRepository: h.stores.Credits}
	meter, err := credits.NewMeter(ledger)
	require.NoError(t, err)
	c, err := crawler.New(crawler.WithPageInterval(0))
	require.NoError(t, err)
	vectors, err := embedding.NewPipeline(h.embedder)
	require.NoError(t, err)
	p, err := NewPipeline(c, vectors, h.stores.Memories, h.stores.Brands, meter, WithMetrics(h.metrics))
	require.NoError(t, err)
	stranger := uuid.New()

	_, err = p.Ingest(context.Background(), site.URL, stranger, nil)
	var se *StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, StageTenant, se.Stage)
	assert.ErrorIs(t, err, core.ErrUnknownTenant)
	assert.Equal(t, core.KindUnknownTenant, core.KindOf(err))
	assert.Zero(t, hits.Load())
	assert.Zero(t, ledger.calls.Load())
	assert.Zero(t, h.embedder.CallCount())
	assert.Zero(t, h.count(t, stranger))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.IngestionErrors.WithLabelValues("tenant")))

	// Once bootstrapped the same site ingests normally.
	result, err := p.Ingest(context.Background(), site.URL, h.brand(t), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, result.ChunksIngested)
	assert.Positive(t, ledger.calls.Load())
}

func TestIngest_NoScanCredits(t *testing.T) {
	site, hits := newSite(t, map[string]string{"/": htmlPage("Home", nil, paragraphs("x", 3)...)})
	h := newHarness(t)
	tenant := h.brand(t)
	_, err := h.meter.Grant(context.Background(), tenant, core.CapabilityScan, 0)
	require.NoError(t, err)

	_, err = h.pipeline.Ingest(context.Background(), site.URL, tenant, nil)
	var se *StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, StageCredits, se.Stage)
	assert.ErrorIs(t, err, core.ErrInsufficientCredits)
	assert.Zero(t, hits.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.IngestionErrors.WithLabelValues("credits")))
}

func TestIngest_UnreachableSite(t *testing.T) {
	site, _ := newSite(t, map[string]string{"/": "500"})
	h := newHarness(t)
	tenant := h.brand(t)

	_, err := h.pipeline.Ingest(context.Background(), site.URL, tenant, &IngestOptions{MaxPages: 5})
	var se *StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, StageCrawl, se.Stage)
	require.Len(t, se.Report, 1)
	assert.Equal(t, crawler.StatusFailed, se.Report[0].Status)
	assert.Equal(t, core.KindCrawlUnreachable, core.KindOf(err))
	assert.Equal(t, core.DefaultCreditAllowance, h.scanCredits(t, tenant))
}

func TestIngest_OnlyShortText(t *testing.T) {
	site, _ := newSite(t, map[string]string{"/": htmlPage("Home", nil, "Hi.", "Short.")})
	h := newHarness(t)

	_, err := h.pipeline.Ingest(context.Background(), site.URL, h.brand(t), nil)
	var se *StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, StageChunk, se.Stage)
	assert.ErrorIs(t, err, core.ErrEmptyContent)
}

func TestIngest_EmbeddingFailureStoresNothing(t *testing.T) {
	site, _ := newSite(t, map[string]string{"/": htmlPage("Home", nil, paragraphs("sourcing", 6)...)})
	h := newHarness(t, embedding.WithBatchSize(2))
	calls := 0
	h.embedder.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		calls++
		if calls == 2 {
			return nil, fmt.Errorf("%w: 400 bad request", core.ErrTerminalExternal)
		}
		out := make([][]float32, len(texts))
		for i, text := range texts {
			out[i] = mock.Vector(text)
		}
		return out, nil
	}
	tenant := h.brand(t)

	_, err := h.pipeline.Ingest(context.Background(), site.URL, tenant, nil)
	var se *StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, StageEmbed, se.Stage)
	require.Len(t, se.Report, 1)
	assert.Equal(t, 6, se.Report[0].ChunksFound)

	assert.Zero(t, h.count(t, tenant))
	assert.Equal(t, core.DefaultCreditAllowance, h.scanCredits(t, tenant))
}

func TestIngestPages_SkipsFailedBatches(t *testing.T) {
	h := newHarness(t, embedding.WithBatchSize(2))
	calls := 0
	h.embedder.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		calls++
		if calls == 2 {
			return nil, fmt.Errorf("%w: 400 bad request", core.ErrTerminalExternal)
		}
		out := make([][]float32, len(texts))
		for i, text := range texts {
			out[i] = mock.Vector(text)
		}
		return out, nil
	}
	tenant := uuid.New()
	pages := []crawler.Page{{
		URL:  "https://harbor.example/",
		Text: strings.Join(paragraphs("roasting", 3), "\n\n"),
	}}

	n, err := h.pipeline.IngestPages(context.Background(), tenant, pages, core.SourceTypeToneAnalysis)
	assert.ErrorIs(t, err, core.ErrTerminalExternal)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, h.count(t, tenant))
	assert.Equal(t, core.DefaultCreditAllowance, h.scanCredits(t, tenant))
}

func TestIngestPages_Validation(t *testing.T) {
	h := newHarness(t)

	_, err := h.pipeline.IngestPages(context.Background(), uuid.Nil, nil, core.SourceTypeDocument)
	assert.ErrorIs(t, err, core.ErrMissingTenant)

	n, err := h.pipeline.IngestPages(context.Background(), uuid.New(), []crawler.Page{{Text: "tiny"}}, core.SourceTypeDocument)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, h.embedder.CallCount())
}
