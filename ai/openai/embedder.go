package openai

import (
	"context"
	"log/slog"

	"github.com/poiesic/brandmem/ai"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Embedder implements ai.Embedder using OpenAI-compatible embedding APIs.
type Embedder struct {
	embedder embeddings.Embedder
	logger   *slog.Logger
}

var _ ai.Embedder = (*Embedder)(nil)

// newEmbedder is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newEmbedder(ep ai.Endpoint, batchSize int) (*Embedder, error) {
	client, err := openai.New(
		openai.WithBaseURL(ep.Host),
		openai.WithToken(token(ep)),
		openai.WithEmbeddingModel(ep.Model),
	)
	if err != nil {
		return nil, err
	}

	embedder, err := embeddings.NewEmbedder(client,
		embeddings.WithStripNewLines(true),
		embeddings.WithBatchSize(batchSize),
	)
	if err != nil {
		return nil, err
	}

	return &Embedder{
		embedder: embedder,
		logger:   slog.Default().With("component", "openai-embedder", "model", ep.Model),
	}, nil
}

// NewEmbedder creates a new embedder for an OpenAI-compatible endpoint.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(ep ai.Endpoint, batchSize int) (ai.Embedder, error) {
	return newEmbedder(ep, batchSize)
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	e.logger.Debug("generating embedding for single text", "length", len(text))

	vectors, err := e.embedder.EmbedDocuments(ctx, []string{text})
	if err != nil {
		e.logger.Warn("failed to generate embedding", "err", err)
		return nil, classify("openai embed", err)
	}
	if len(vectors) == 0 {
		return nil, classify("openai embed", ai.ErrEmptyResponse)
	}
	return vectors[0], nil
}

// EmbedTexts generates vector embeddings for multiple text strings in a batch.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	e.logger.Debug("generating embeddings for texts", "count", len(texts))

	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Warn("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, classify("openai embed", err)
	}
	return vectors, nil
}

// token returns the bearer credential. Local OpenAI-compatible services
// accept any token, so "none" stands in when no key is configured.
func token(ep ai.Endpoint) string {
	if ep.APIKey == "" {
		return "none"
	}
	return ep.APIKey
}
