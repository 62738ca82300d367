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


package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/poiesic/brandmem/core"
	"github.com/poiesic/brandmem/generation"
	"github.com/poiesic/brandmem/ingestion"
	"github.com/poiesic/brandmem/search"
)

const dateLayout = "2006-01-02"

// Service is the subset of *brandmem.Service served over HTTP.
type Service interface {
	Bootstrap(ctx context.Context, ownerID uuid.UUID) (*core.Brand, error)
	SaveBrand(ctx context.Context, brand *core.Brand) (*core.Brand, error)
	Ingest(ctx context.Context, rawURL string, tenantID uuid.UUID, opts *ingestion.IngestOptions) (*ingestion.IngestResult, error)
	GenerateCampaign(ctx context.Context, tenantID uuid.UUID, goal string, window core.DateRange) (*generation.CampaignResult, error)
	GenerateContent(ctx context.Context, tenantID uuid.UUID, topic, platform string) (*generation.ContentResult, error)
	AnalyzeTone(ctx context.Context, url string, tenantID *uuid.UUID) (*generation.ToneResult, error)
	Search(ctx context.Context, tenantID uuid.UUID, query string) ([]*core.SearchResult, error)
	Credits(ctx context.Context, tenantID uuid.UUID) (map[core.Capability]int, error)
	Campaigns(ctx context.Context, tenantID uuid.UUID) ([]*core.Campaign, error)
}

// Handler serves the HTTP API.
type Handler struct {
	svc     Service
	metrics http.Handler
	logger  *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithMetricsHandler serves h at GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(hd *Handler) {
		hd.metrics = h
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHandler creates a handler for svc.
func NewHandler(svc Service, opts ...Option) *Handler {
	h := &Handler{svc: svc, logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With("component", "api")
	return h
}

// Router builds the gin engine with every route registered.
func (h *Handler) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), h.requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if h.metrics != nil {
		router.GET("/metrics", gin.WrapH(h.metrics))
	}

	v1 := router.Group("/api/v1")
	v1.POST("/tone", h.AnalyzeTone)

	tenants := v1.Group("/tenants/:id")
	tenants.POST("/bootstrap", h.Bootstrap)
	tenants.PUT("/brand", h.SaveBrand)
	tenants.POST("/ingest", h.Ingest)
	tenants.POST("/campaigns", h.GenerateCampaign)
	tenants.GET("/campaigns", h.ListCampaigns)
	tenants.POST("/content", h.GenerateContent)
	tenants.POST("/tone", h.AnalyzeTone)
	tenants.GET("/credits", h.Credits)
	tenants.GET("/search", h.Search)
	return router
}

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

// tenantID parses the :id path parameter.
func (h *Handler) tenantID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil || id == uuid.Nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{
			Error: "invalid tenant id",
			Kind:  core.KindInvalidInput.String(),
		})
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{
			Error: err.Error(),
			Kind:  core.KindInvalidInput.String(),
		})
		return false
	}
	return true
}

// Bootstrap resolves the owner in the path to its brand, creating it if needed.
func (h *Handler) Bootstrap(c *gin.Context) {
	owner, ok := h.tenantID(c)
	if !ok {
		return
	}
	brand, err := h.svc.Bootstrap(c.Request.Context(), owner)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, brand)
}

type brandRequest struct {
	Name     string              `json:"name" binding:"required"`
	Website  string              `json:"website"`
	Tone     core.ToneDescriptor `json:"tone"`
	Audience string              `json:"audience"`
	Values   []string            `json:"values"`
}

// SaveBrand handles onboarding and settings saves. The path ID is the owner.
func (h *Handler) SaveBrand(c *gin.Context) {
	owner, ok := h.tenantID(c)
	if !ok {
		return
	}
	var req brandRequest
	if !h.bind(c, &req) {
		return
	}
	brand, err := h.svc.SaveBrand(c.Request.Context(), &core.Brand{
		OwnerID:  owner,
		Name:     strings.TrimSpace(req.Name),
		Website:  strings.TrimSpace(req.Website),
		Tone:     req.Tone,
		Audience: strings.TrimSpace(req.Audience),
		Values:   req.Values,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, brand)
}

type ingestRequest struct {
	URL        string `json:"url" binding:"required"`
	MaxPages   int    `json:"max_pages"`
	Credential string `json:"credential"`
}

// Ingest crawls a site into the tenant's memory store.
func (h *Handler) Ingest(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var req ingestRequest
	if !h.bind(c, &req) {
		return
	}
	res, err := h.svc.Ingest(c.Request.Context(), req.URL, tenantID, &ingestion.IngestOptions{
		MaxPages:   req.MaxPages,
		Credential: req.Credential,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type campaignRequest struct {
	Goal  string `json:"goal" binding:"required"`
	Start string `json:"start" binding:"required"`
	End   string `json:"end" binding:"required"`
}

func (r campaignRequest) window() (core.DateRange, error) {
	start, err := time.Parse(dateLayout, r.Start)
	if err != nil {
		return core.DateRange{}, core.ErrInvalidDateRange
	}
	end, err := time.Parse(dateLayout, r.End)
	if err != nil {
		return core.DateRange{}, core.ErrInvalidDateRange
	}
	return core.DateRange{Start: start, End: end}, nil
}

// GenerateCampaign plans a campaign across the requested dates.
func (h *Handler) GenerateCampaign(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var req campaignRequest
	if !h.bind(c, &req) {
		return
	}
	window, err := req.window()
	if err != nil {
		h.writeError(c, err)
		return
	}
	res, err := h.svc.GenerateCampaign(c.Request.Context(), tenantID, req.Goal, window)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// ListCampaigns returns the campaigns saved for the tenant.
func (h *Handler) ListCampaigns(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	campaigns, err := h.svc.Campaigns(c.Request.Context(), tenantID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"campaigns": campaigns, "count": len(campaigns)})
}

type contentRequest struct {
	Topic    string `json:"topic" binding:"required"`
	Platform string `json:"platform" binding:"required"`
}

// GenerateContent writes one post.
func (h *Handler) GenerateContent(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var req contentRequest
	if !h.bind(c, &req) {
		return
	}
	res, err := h.svc.GenerateContent(c.Request.Context(), tenantID, req.Topic, req.Platform)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

type toneRequest struct {
	URL string `json:"url" binding:"required"`
}

// AnalyzeTone describes the voice of a page. Without a tenant in the path
// the analysis is anonymous.
func (h *Handler) AnalyzeTone(c *gin.Context) {
	var tenantID *uuid.UUID
	if c.Param("id") != "" {
		id, ok := h.tenantID(c)
		if !ok {
			return
		}
		tenantID = &id
	}
	var req toneRequest
	if !h.bind(c, &req) {
		return
	}
	res, err := h.svc.AnalyzeTone(c.Request.Context(), req.URL, tenantID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Credits returns the tenant's remaining balance per capability.
func (h *Handler) Credits(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	balances, err := h.svc.Credits(c.Request.Context(), tenantID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tenant_id": tenantID, "credits": balances})
}

type searchHit struct {
	Content    string          `json:"content"`
	Score      float32         `json:"score"`
	SourceType core.SourceType `json:"source_type"`
	URL        string          `json:"url,omitempty"`
	Title      string          `json:"title,omitempty"`
	Matched    []string        `json:"matched_terms,omitempty"`
}

// Search returns the tenant's memories closest to the q parameter.
func (h *Handler) Search(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		h.writeError(c, core.ErrMissingContent)
		return
	}
	results, err := h.svc.Search(c.Request.Context(), tenantID, query)
	if err != nil {
		h.writeError(c, err)
		return
	}
	hits := make([]searchHit, len(results))
	for i, r := range results {
		hits[i] = searchHit{
			Content:    r.Memory.Content,
			Score:      r.Score,
			SourceType: r.Memory.SourceType,
			URL:        r.Memory.Metadata.URL,
			Title:      r.Memory.Metadata.Title,
			Matched:    search.MatchedTerms(r.Memory.Content, query),
		}
	}
	c.JSON(http.StatusOK, gin.H{"results": hits, "count": len(hits)})
}
