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


package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/poiesic/brandmem/core"
	"github.com/poiesic/brandmem/metrics"
	"golang.org/x/time/rate"
)

// DefaultPageInterval is the minimum gap between page fetches in a deep crawl.
const DefaultPageInterval = 500 * time.Millisecond

// Crawler visits pages with an ordered list of extraction strategies.
// It is safe for concurrent use; each Crawl call is sequential.
type Crawler struct {
	extractors []Extractor
	cache      PageCache
	interval   time.Duration
	client     *http.Client
	readerBase string
	readerKey  string
	userAgent  string
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// Option configures a Crawler.
type Option func(*Crawler) error

// WithReader enables the reader service strategy ahead of direct HTML fetching.
func WithReader(base, apiKey string) Option {
	return func(c *Crawler) error {
		if base == "" {
			return errors.New("reader base URL required")
		}
		c.readerBase = base
		c.readerKey = apiKey
		return nil
	}
}

// WithExtractors replaces the strategy list entirely.
func WithExtractors(extractors ...Extractor) Option {
	return func(c *Crawler) error {
		if len(extractors) == 0 {
			return ErrNoExtractors
		}
		c.extractors = extractors
		return nil
	}
}

// WithPageCache serves repeated URLs from cache.
func WithPageCache(cache PageCache) Option {
	return func(c *Crawler) error {
		c.cache = cache
		return nil
	}
}

// WithPageInterval sets the gap between deep-crawl fetches. Zero disables
// rate limiting. Default is 500ms.
func WithPageInterval(d time.Duration) Option {
	return func(c *Crawler) error {
		if d < 0 {
			return fmt.Errorf("page interval cannot be negative: %s", d)
		}
		c.interval = d
		return nil
	}
}

// WithHTTPClient sets the client used by the default strategies.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Crawler) error {
		c.client = client
		return nil
	}
}

// WithUserAgent sets the User-Agent of direct fetches.
func WithUserAgent(ua string) Option {
	return func(c *Crawler) error {
		c.userAgent = ua
		return nil
	}
}

// WithMetrics records page outcomes, cache hits and breaker state.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Crawler) error {
		c.metrics = m
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Crawler) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// New creates a crawler. Without WithExtractors the strategy list is the
// reader service (when configured) followed by direct HTML fetching.
func New(opts ...Option) (*Crawler, error) {
	c := &Crawler{
		interval: DefaultPageInterval,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	if len(c.extractors) == 0 {
		if c.readerBase != "" {
			c.extractors = append(c.extractors, NewReaderExtractor(c.readerBase, c.readerKey, c.client, c.metrics))
		}
		c.extractors = append(c.extractors, NewHTMLExtractor(c.client, c.userAgent))
	}
	c.logger = c.logger.With("component", "crawler")
	return c, nil
}

// Crawl visits rawURL and, in deep mode, same-origin pages linked from it.
//
// The returned Result is non-nil whenever the URL was valid, even when an
// error is returned, so callers can surface the report. When every page
// failed the error wraps core.ErrCrawlUnreachable; when pages were fetched
// but none held text it wraps core.ErrEmptyContent.
func (c *Crawler) Crawl(ctx context.Context, rawURL string, opts Options) (*Result, error) {
	root, err := core.ValidateURL(rawURL)
	if err != nil {
		return nil, err
	}
	if root.Path == "" {
		root.Path = "/"
	}

	limit := opts.pageLimit()
	limiter := rate.NewLimiter(rate.Inf, 1)
	if c.interval > 0 {
		limiter = rate.NewLimiter(rate.Every(c.interval), 1)
	}

	result := &Result{}
	queue := []string{root.String()}
	for i := 0; i < len(queue) && i < limit; i++ {
		if err := limiter.Wait(ctx); err != nil {
			return result, err
		}

		pageURL := queue[i]
		ex, report := c.visit(ctx, pageURL, opts.Credential)
		if err := ctx.Err(); err != nil {
			return result, err
		}

		result.Report = append(result.Report, report)
		c.metrics.PageCrawled(string(report.Status))
		if report.Status == StatusSuccess {
			result.Pages = append(result.Pages, ex.Page)
		}

		if i == 0 && limit > 1 && ex != nil {
			origin := landing(root, ex.FinalURL)
			queue = append(queue, SameOriginLinks(origin, origin, ex.Links)...)
			c.logger.Debug("discovered links", "root", pageURL, "origin", origin.String(), "links", len(queue)-1, "limit", limit)
		}
	}

	return result, outcome(result)
}

// landing returns the URL the root fetch ended at, so links of a site that
// redirects to its canonical host stay same-origin. Falls back to root.
func landing(root *url.URL, finalURL string) *url.URL {
	if finalURL == "" {
		return root
	}
	u, err := url.Parse(finalURL)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
		return root
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return u
}

// visit runs the strategies for one URL. The extraction is nil when every
// strategy failed.
func (c *Crawler) visit(ctx context.Context, pageURL, credential string) (*Extraction, PageReport) {
	report := PageReport{URL: pageURL}

	if c.cache != nil {
		ex, ok, err := c.cache.Get(ctx, pageURL)
		if err != nil {
			c.logger.Warn("page cache read failed", "url", pageURL, "err", err)
		} else if ok {
			c.metrics.PageCacheHit()
			report.Status = StatusSuccess
			report.Title = ex.Page.Title
			report.Details = "cached"
			return ex, report
		}
	}

	var fetched *Extraction
	var errs []error
	for _, extractor := range c.extractors {
		ex, err := extractor.Extract(ctx, pageURL, credential)
		if err != nil {
			c.logger.Debug("extraction strategy failed", "url", pageURL, "strategy", extractor.Name(), "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", extractor.Name(), err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		if ex.Page.Text == "" {
			if fetched == nil {
				fetched = ex
			}
			continue
		}

		report.Status = StatusSuccess
		report.Title = ex.Page.Title
		report.Details = extractor.Name()
		if fetched != nil && len(ex.Links) == 0 {
			ex.Links = fetched.Links
			if ex.FinalURL == "" {
				ex.FinalURL = fetched.FinalURL
			}
		}
		if c.cache != nil {
			if err := c.cache.Set(ctx, pageURL, ex); err != nil {
				c.logger.Warn("page cache write failed", "url", pageURL, "err", err)
			}
		}
		return ex, report
	}

	if fetched != nil {
		report.Status = StatusEmpty
		report.Title = fetched.Page.Title
		report.Details = "no extractable text"
		c.logger.Info("page had no extractable text", "url", pageURL)
		return fetched, report
	}

	report.Status = StatusFailed
	report.Details = errors.Join(errs...).Error()
	c.logger.Warn("page unreachable", "url", pageURL, "err", report.Details)
	return nil, report
}

func outcome(result *Result) error {
	if len(result.Pages) > 0 {
		return nil
	}
	for _, r := range result.Report {
		if r.Status == StatusEmpty {
			return fmt.Errorf("%w: %d pages fetched", core.ErrEmptyContent, len(result.Report))
		}
	}
	return fmt.Errorf("%w: %d pages failed", core.ErrCrawlUnreachable, len(result.Report))
}
