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


package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/poiesic/brandmem/ai"
	"google.golang.org/genai"
)

// Provider implements ai.Provider using the Gemini API.
// Endpoints sharing a host and key share one client.
type Provider struct {
	embedder   *Embedder
	generators []ai.Generator
	logger     *slog.Logger
}

var _ ai.Provider = (*Provider)(nil)

// NewProvider creates a provider from config. Every endpoint must use the
// Gemini backend; mixed fallback lists are assembled by the caller.
//
// Returns ai.Provider interface (not *Provider) to enforce abstraction.
func NewProvider(ctx context.Context, config *ai.Config) (ai.Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	clients := make(map[ai.Endpoint]*genai.Client)
	clientFor := func(ep ai.Endpoint) (*genai.Client, error) {
		if ep.Backend != ai.BackendGemini {
			return nil, fmt.Errorf("gemini provider: endpoint %s is not a gemini endpoint", ep)
		}
		key := ai.Endpoint{Host: ep.Host, APIKey: ep.APIKey}
		if c, ok := clients[key]; ok {
			return c, nil
		}
		c, err := newClient(ctx, ep)
		if err != nil {
			return nil, err
		}
		clients[key] = c
		return c, nil
	}

	embedClient, err := clientFor(config.Embedding)
	if err != nil {
		return nil, err
	}

	generators := make([]ai.Generator, 0, len(config.Generation))
	for _, ep := range config.Generation {
		c, err := clientFor(ep)
		if err != nil {
			return nil, err
		}
		generators = append(generators, newGenerator(c, ep.Model, config.Temperature))
	}

	return &Provider{
		embedder:   newEmbedder(embedClient, config.Embedding.Model),
		generators: generators,
		logger:     slog.Default().With("component", "gemini-provider"),
	}, nil
}

// Embedder returns the text embedding service.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// Generators returns the generation services in fallback order.
func (p *Provider) Generators() []ai.Generator {
	return p.generators
}

// Close releases resources held by the provider.
// Currently a no-op as the underlying HTTP clients don't require explicit cleanup.
func (p *Provider) Close() error {
	p.logger.Debug("closing gemini provider")
	return nil
}

// newClient builds a genai client for the Gemini API backend.
func newClient(ctx context.Context, ep ai.Endpoint) (*genai.Client, error) {
	cc := &genai.ClientConfig{
		APIKey:     ep.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: http.DefaultClient,
	}
	if ep.Host != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: ep.Host}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return client, nil
}
