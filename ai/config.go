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


package ai

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Backend names an AI service family.
type Backend string

const (
	// BackendGemini uses the Gemini API through google.golang.org/genai.
	BackendGemini Backend = "gemini"
	// BackendOpenAI uses any OpenAI-compatible API (OpenAI, Ollama, vLLM, LocalAI).
	BackendOpenAI Backend = "openai"
)

// Endpoint configures one embedding or generation service.
type Endpoint struct {
	// Backend selects the client implementation.
	Backend Backend

	// Host is the base URL of the service. Empty means the backend's public default.
	// Example: "http://localhost:11434/v1" for a local OpenAI-compatible server
	Host string

	// APIKey is the credential sent to the service.
	APIKey string

	// Model is the model identifier.
	// Example: "text-embedding-004", "gemini-2.0-flash", "qwen2.5:3b"
	Model string
}

func (e Endpoint) String() string {
	return string(e.Backend) + ":" + e.Model
}

// Config holds configuration for AI service providers.
type Config struct {
	// Embedding is the embedding service. Its model fixes the vector dimension
	// of every memory written with it.
	Embedding Endpoint

	// Generation lists generation services in fallback order. The first
	// success wins.
	Generation []Endpoint

	// MaxAttempts bounds attempts per call for transient failures.
	// Default: 3
	MaxAttempts int

	// RetryBaseDelay is multiplied by the attempt number between attempts.
	// Default: 1s
	RetryBaseDelay time.Duration

	// BatchSize is the number of texts sent per embedding call.
	// Default: 10
	BatchSize int

	// Temperature is the sampling temperature for generation.
	// Default: 0.7
	Temperature float64
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithEmbedding replaces the embedding endpoint.
func WithEmbedding(ep Endpoint) ConfigOption {
	return func(c *Config) {
		c.Embedding = ep
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.Embedding.Model = model
	}
}

// WithGeneration replaces the generation fallback list.
func WithGeneration(eps ...Endpoint) ConfigOption {
	return func(c *Config) {
		c.Generation = append([]Endpoint(nil), eps...)
	}
}

// WithFallback appends a generation endpoint to the end of the fallback list.
func WithFallback(ep Endpoint) ConfigOption {
	return func(c *Config) {
		c.Generation = append(c.Generation, ep)
	}
}

// WithAPIKey sets the credential on every Gemini endpoint that has none.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		if c.Embedding.Backend == BackendGemini && c.Embedding.APIKey == "" {
			c.Embedding.APIKey = key
		}
		for i := range c.Generation {
			if c.Generation[i].Backend == BackendGemini && c.Generation[i].APIKey == "" {
				c.Generation[i].APIKey = key
			}
		}
	}
}

// WithMaxAttempts sets the attempt bound for transient failures.
func WithMaxAttempts(n int) ConfigOption {
	return func(c *Config) {
		c.MaxAttempts = n
	}
}

// WithRetryBaseDelay sets the linear backoff unit.
func WithRetryBaseDelay(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.RetryBaseDelay = d
	}
}

// WithBatchSize sets the embedding batch size.
func WithBatchSize(n int) ConfigOption {
	return func(c *Config) {
		c.BatchSize = n
	}
}

// WithTemperature sets the generation temperature.
func WithTemperature(t float64) ConfigOption {
	return func(c *Config) {
		c.Temperature = t
	}
}

// DefaultConfig returns a Config that embeds and generates with Gemini.
// The API key must still be supplied.
func DefaultConfig() *Config {
	return &Config{
		Embedding: Endpoint{
			Backend: BackendGemini,
			Model:   "text-embedding-004",
		},
		Generation: []Endpoint{
			{Backend: BackendGemini, Model: "gemini-2.0-flash"},
		},
		MaxAttempts:    3,
		RetryBaseDelay: time.Second,
		BatchSize:      10,
		Temperature:    0.7,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithAPIKey(os.Getenv("GEMINI_API_KEY")),
//	    WithFallback(Endpoint{Backend: BackendOpenAI, Host: "http://localhost:11434/v1", Model: "qwen2.5:3b"}),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// OpenAI-compatible hosts get a /v1 suffix, which Ollama, LocalAI and vLLM require.
func (c *Config) Normalize() {
	c.Embedding = normalizeEndpoint(c.Embedding)
	for i := range c.Generation {
		c.Generation[i] = normalizeEndpoint(c.Generation[i])
	}
}

func normalizeEndpoint(ep Endpoint) Endpoint {
	ep.Backend = Backend(strings.ToLower(strings.TrimSpace(string(ep.Backend))))
	ep.Host = strings.TrimSpace(ep.Host)
	if ep.Backend == BackendOpenAI && ep.Host != "" && !strings.HasSuffix(ep.Host, "/v1") {
		ep.Host = strings.TrimSuffix(ep.Host, "/") + "/v1"
	}
	return ep
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if err := validateEndpoint("embedding", c.Embedding); err != nil {
		return err
	}
	if len(c.Generation) == 0 {
		return errors.New("ai config: at least one generation endpoint is required")
	}
	for i, ep := range c.Generation {
		if err := validateEndpoint(fmt.Sprintf("generation[%d]", i), ep); err != nil {
			return err
		}
	}
	if c.MaxAttempts < 1 {
		return errors.New("ai config: MaxAttempts must be at least 1")
	}
	if c.RetryBaseDelay < 0 {
		return errors.New("ai config: RetryBaseDelay cannot be negative")
	}
	if c.BatchSize < 1 {
		return errors.New("ai config: BatchSize must be at least 1")
	}
	return nil
}

func validateEndpoint(name string, ep Endpoint) error {
	switch ep.Backend {
	case BackendGemini:
		if ep.APIKey == "" {
			return fmt.Errorf("ai config: %s: APIKey is required for gemini", name)
		}
	case BackendOpenAI:
		if ep.Host == "" && ep.APIKey == "" {
			return fmt.Errorf("ai config: %s: Host or APIKey is required for openai", name)
		}
	default:
		return fmt.Errorf("ai config: %s: unknown backend %q", name, ep.Backend)
	}
	if ep.Model == "" {
		return fmt.Errorf("ai config: %s: Model is required", name)
	}
	return nil
}

// RetryPolicy returns the retry policy described by the config.
func (c *Config) RetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: c.MaxAttempts,
		BaseDelay:   c.RetryBaseDelay,
	}
}
