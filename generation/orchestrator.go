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


package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/brandmem/ai"
	"github.com/poiesic/brandmem/core"
	"github.com/poiesic/brandmem/crawler"
	"github.com/poiesic/brandmem/credits"
	"github.com/poiesic/brandmem/metrics"
	"github.com/poiesic/brandmem/storage"
	"github.com/poiesic/brandmem/tenant"
)

// Artifact names, used in logs and metric labels.
const (
	ArtifactCampaign = "campaign"
	ArtifactContent  = "content"
	ArtifactTone     = "tone"
)

// Retriever finds the memories that ground a prompt. *search.Retriever satisfies it.
type Retriever interface {
	Retrieve(ctx context.Context, tenantID uuid.UUID, query string) ([]*core.SearchResult, error)
}

// PageSource fetches the page analyzed for tone. *crawler.Crawler satisfies it.
type PageSource interface {
	Crawl(ctx context.Context, rawURL string, opts crawler.Options) (*crawler.Result, error)
}

// SideIngester stores pages fetched during tone analysis.
// *ingestion.Pipeline satisfies it.
type SideIngester interface {
	IngestPages(ctx context.Context, tenantID uuid.UUID, pages []crawler.Page, source core.SourceType) (int, error)
}

// Orchestrator runs grounded generation requests.
type Orchestrator struct {
	chain     *Chain
	meter     *credits.Meter
	brands    storage.BrandRepository
	artifacts storage.ArtifactRepository
	retriever Retriever
	pages     PageSource
	ingester  SideIngester
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithRetriever grounds prompts in retrieved memories. Without one every
// prompt is ungrounded.
func WithRetriever(r Retriever) Option {
	return func(o *Orchestrator) error {
		o.retriever = r
		return nil
	}
}

// WithPageSource enables AnalyzeTone.
func WithPageSource(p PageSource) Option {
	return func(o *Orchestrator) error {
		o.pages = p
		return nil
	}
}

// WithSideIngester stores pages fetched by tenant tone analyses.
func WithSideIngester(i SideIngester) Option {
	return func(o *Orchestrator) error {
		o.ingester = i
		return nil
	}
}

// WithMetrics records generation latency and failures.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) error {
		o.metrics = m
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(chain *Chain, meter *credits.Meter, brands storage.BrandRepository, artifacts storage.ArtifactRepository, opts ...Option) (*Orchestrator, error) {
	if chain == nil {
		return nil, ErrNoGenerators
	}
	if meter == nil {
		return nil, ErrMeterRequired
	}
	if brands == nil || artifacts == nil {
		return nil, ErrRepositoryRequired
	}

	o := &Orchestrator{
		chain:     chain,
		meter:     meter,
		brands:    brands,
		artifacts: artifacts,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	o.logger = o.logger.With("component", "generation")
	return o, nil
}

// GenerateCampaign plans one post per day of window towards goal.
func (o *Orchestrator) GenerateCampaign(ctx context.Context, tenantID uuid.UUID, goal string, window core.DateRange) (*CampaignResult, error) {
	goal = strings.TrimSpace(goal)
	if goal == "" {
		return nil, fmt.Errorf("campaign goal: %w", core.ErrMissingContent)
	}
	if err := core.ValidateDateRange(window); err != nil {
		return nil, err
	}

	brand, err := tenant.Resolve(ctx, o.brands, tenantID)
	if err != nil {
		return nil, err
	}
	if _, err := o.meter.Require(ctx, tenantID, core.CapabilityCampaign); err != nil {
		return nil, err
	}

	memories := o.retrieve(ctx, tenantID, goal)
	prompt := campaignPrompt(brand, memories, goal, window)

	raw, generator, err := o.generate(ctx, ArtifactCampaign, prompt)
	if err != nil {
		return nil, err
	}

	var plan core.CampaignPlan
	if err := ai.DecodeJSON(raw, &plan); err != nil {
		return nil, o.parseFailed(ArtifactCampaign, err)
	}
	if len(plan.Posts) == 0 {
		return nil, o.parseFailed(ArtifactCampaign, core.NewParseError(raw, ErrEmptyPlan))
	}
	for i := range plan.Posts {
		plan.Posts[i].Hashtags = normalizeHashtags(plan.Posts[i].Hashtags)
	}

	remaining, err := o.meter.Consume(ctx, tenantID, core.CapabilityCampaign)
	if err != nil {
		o.logger.Warn("credit lost before campaign could be saved", "tenant", tenantID, "err", err)
		return nil, err
	}

	result := &CampaignResult{Plan: plan, Generator: generator, CreditsRemaining: remaining}
	saved, err := o.artifacts.SaveCampaign(ctx, &core.Campaign{
		TenantID: tenantID,
		Goal:     goal,
		Range:    window,
		Plan:     plan,
	})
	if err != nil {
		o.logger.Error("failed to save campaign", "tenant", tenantID, "err", err)
		return result, nil
	}
	result.CampaignID = saved.ID
	return result, nil
}

// GenerateContent writes one post about topic for platform.
func (o *Orchestrator) GenerateContent(ctx context.Context, tenantID uuid.UUID, topic, platform string) (*ContentResult, error) {
	topic = strings.TrimSpace(topic)
	platform = strings.ToLower(strings.TrimSpace(platform))
	if topic == "" {
		return nil, fmt.Errorf("content topic: %w", core.ErrMissingContent)
	}
	if platform == "" {
		return nil, fmt.Errorf("content platform: %w", core.ErrMissingContent)
	}

	brand, err := tenant.Resolve(ctx, o.brands, tenantID)
	if err != nil {
		return nil, err
	}
	if _, err := o.meter.Require(ctx, tenantID, core.CapabilityContent); err != nil {
		return nil, err
	}

	memories := o.retrieve(ctx, tenantID, topic)
	prompt := contentPrompt(brand, memories, topic, platform)

	raw, generator, err := o.generate(ctx, ArtifactContent, prompt)
	if err != nil {
		return nil, err
	}

	var resp contentResponse
	if err := ai.DecodeJSON(raw, &resp); err != nil {
		return nil, o.parseFailed(ArtifactContent, err)
	}
	resp.Content = strings.TrimSpace(resp.Content)
	if resp.Content == "" {
		return nil, o.parseFailed(ArtifactContent, core.NewParseError(raw, ErrEmptyPost))
	}
	hashtags := normalizeHashtags(resp.Hashtags)

	remaining, err := o.meter.Consume(ctx, tenantID, core.CapabilityContent)
	if err != nil {
		o.logger.Warn("credit lost before content could be saved", "tenant", tenantID, "err", err)
		return nil, err
	}

	_, err = o.artifacts.SaveContent(ctx, &core.ContentPiece{
		TenantID: tenantID,
		Topic:    topic,
		Platform: platform,
		Content:  resp.Content,
		Hashtags: hashtags,
	})
	if err != nil {
		o.logger.Error("failed to save content", "tenant", tenantID, "err", err)
	}

	return &ContentResult{
		Content:          resp.Content,
		Hashtags:         hashtags,
		Generator:        generator,
		CreditsRemaining: remaining,
	}, nil
}

// AnalyzeTone describes the voice of the page at url. With a nil tenantID
// the analysis is anonymous: no credit is used and nothing is stored.
// Otherwise the profile is saved, the brand's tone is replaced with it and
// the fetched text is stored as tone_analysis memories on a best-effort basis.
func (o *Orchestrator) AnalyzeTone(ctx context.Context, url string, tenantID *uuid.UUID) (*ToneResult, error) {
	if o.pages == nil {
		return nil, ErrPageSourceRequired
	}
	if _, err := core.ValidateURL(url); err != nil {
		return nil, err
	}

	anonymous := tenantID == nil || *tenantID == uuid.Nil
	if !anonymous {
		if _, err := tenant.Resolve(ctx, o.brands, *tenantID); err != nil {
			return nil, err
		}
		if _, err := o.meter.Require(ctx, *tenantID, core.CapabilityTone); err != nil {
			return nil, err
		}
	}

	crawl, err := o.pages.Crawl(ctx, url, crawler.Options{MaxPages: 1})
	if err != nil {
		return nil, err
	}
	var text strings.Builder
	for _, page := range crawl.Pages {
		text.WriteString(page.Text)
		text.WriteString("\n\n")
	}

	raw, generator, err := o.generate(ctx, ArtifactTone, tonePrompt(url, text.String()))
	if err != nil {
		return nil, err
	}

	var resp toneResponse
	if err := ai.DecodeJSON(raw, &resp); err != nil {
		return nil, o.parseFailed(ArtifactTone, err)
	}
	result := &ToneResult{
		Tone:             strings.TrimSpace(resp.Tone),
		Adjectives:       []string(resp.Adjectives),
		Description:      strings.TrimSpace(resp.Description),
		Archetype:        strings.TrimSpace(resp.Archetype),
		Generator:        generator,
		CreditsRemaining: -1,
	}
	if result.Adjectives == nil {
		result.Adjectives = []string{}
	}
	if anonymous {
		return result, nil
	}

	remaining, err := o.meter.Consume(ctx, *tenantID, core.CapabilityTone)
	if err != nil {
		o.logger.Warn("credit lost before tone profile could be saved", "tenant", *tenantID, "err", err)
		return nil, err
	}
	result.CreditsRemaining = remaining

	o.persistTone(ctx, *tenantID, url, result)
	o.sideIngest(ctx, *tenantID, crawl.Pages)
	return result, nil
}

func (o *Orchestrator) persistTone(ctx context.Context, tenantID uuid.UUID, url string, result *ToneResult) {
	profile, err := o.artifacts.SaveToneProfile(ctx, &core.ToneProfile{
		TenantID:    tenantID,
		URL:         url,
		Tone:        result.Tone,
		Adjectives:  result.Adjectives,
		Description: result.Description,
		Archetype:   result.Archetype,
	})
	if err != nil {
		o.logger.Error("failed to save tone profile", "tenant", tenantID, "err", err)
		return
	}
	if err := o.brands.UpdateTone(ctx, tenantID, profile.Descriptor()); err != nil {
		o.logger.Warn("failed to update brand tone", "tenant", tenantID, "err", err)
	}
}

func (o *Orchestrator) sideIngest(ctx context.Context, tenantID uuid.UUID, pages []crawler.Page) {
	if o.ingester == nil || len(pages) == 0 {
		return
	}
	n, err := o.ingester.IngestPages(ctx, tenantID, pages, core.SourceTypeToneAnalysis)
	if err != nil {
		o.logger.Warn("tone analysis side ingestion incomplete", "tenant", tenantID, "stored", n, "err", err)
		return
	}
	o.logger.Debug("tone analysis text stored", "tenant", tenantID, "stored", n)
}

// retrieve returns grounding memories. Failures degrade to no context.
func (o *Orchestrator) retrieve(ctx context.Context, tenantID uuid.UUID, query string) []*core.SearchResult {
	if o.retriever == nil {
		return nil
	}
	results, err := o.retriever.Retrieve(ctx, tenantID, query)
	if err != nil {
		o.logger.Warn("retrieval failed, generating without context", "tenant", tenantID, "err", err)
		return nil
	}
	return results
}

func (o *Orchestrator) generate(ctx context.Context, artifact, prompt string) (string, string, error) {
	start := time.Now()
	raw, generator, err := o.chain.Generate(ctx, prompt)
	if err != nil {
		o.metrics.GenerationFailed(artifact, core.KindOf(err).String())
		o.logger.Error("generation failed", "artifact", artifact, "err", err)
		return "", "", err
	}
	o.metrics.Generated(artifact, generator, time.Since(start))
	return raw, generator, nil
}

func (o *Orchestrator) parseFailed(artifact string, err error) error {
	o.metrics.GenerationFailed(artifact, core.KindParse.String())
	var pe *core.ParseError
	if errors.As(err, &pe) {
		o.logger.Error("unparseable model output", "artifact", artifact, "err", pe.Err, "raw", pe.Raw)
	}
	return err
}
