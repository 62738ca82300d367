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


package openai

import (
	"fmt"
	"log/slog"

	"github.com/poiesic/brandmem/ai"
)

// Provider implements ai.Provider using OpenAI-compatible services.
type Provider struct {
	embedder   *Embedder
	generators []ai.Generator
	logger     *slog.Logger
}

var _ ai.Provider = (*Provider)(nil)

// NewProvider creates a new AI provider with OpenAI-compatible services.
// The config is validated and normalized before use; every endpoint must
// use the OpenAI backend.
//
// Returns ai.Provider interface (not *Provider) to enforce abstraction
// and prevent coupling to OpenAI-specific implementation details.
func NewProvider(config *ai.Config) (ai.Provider, error) {
	config.Normalize()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Embedding.Backend != ai.BackendOpenAI {
		return nil, fmt.Errorf("openai provider: endpoint %s is not an openai endpoint", config.Embedding)
	}

	embedder, err := newEmbedder(config.Embedding, config.BatchSize)
	if err != nil {
		return nil, err
	}

	generators := make([]ai.Generator, 0, len(config.Generation))
	for _, ep := range config.Generation {
		if ep.Backend != ai.BackendOpenAI {
			return nil, fmt.Errorf("openai provider: endpoint %s is not an openai endpoint", ep)
		}
		gen, err := newGenerator(ep, config.Temperature)
		if err != nil {
			return nil, err
		}
		generators = append(generators, gen)
	}

	return &Provider{
		embedder:   embedder,
		generators: generators,
		logger:     slog.Default().With("component", "openai-provider"),
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
// Currently a no-op as the underlying clients don't require explicit cleanup.
func (p *Provider) Close() error {
	p.logger.Debug("closing OpenAI provider")
	return nil
}
