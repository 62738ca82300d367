package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
//
// Errors must be classified: wrap core.ErrTransientExternal for rate limiting,
// unavailability and network failures, and core.ErrTerminalExternal for
// everything else. Use ClassifyStatus and ClassifyError.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in one
	// batched call. The returned slice is in the same order as the input texts.
	// Callers must still check the length of the result against the input.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator turns a single prompt into free text, which is expected to hold JSON.
// Implementations must be thread-safe and classify errors like Embedder.
type Generator interface {
	// Generate sends the prompt and returns the raw model output.
	Generate(ctx context.Context, prompt string) (string, error)

	// Name identifies the backend and model for logs and metrics.
	Name() string
}

// Provider aggregates AI services for convenient initialization and lifecycle management.
type Provider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// Generators returns the generation services in fallback order.
	Generators() []Generator

	// Close releases resources held by the provider and its services.
	Close() error
}
