package gemini

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/brandmem/ai"
	"google.golang.org/genai"
)

// Embedder implements ai.Embedder using the Gemini embedding API.
type Embedder struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

var _ ai.Embedder = (*Embedder)(nil)

// newEmbedder is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newEmbedder(client *genai.Client, model string) *Embedder {
	return &Embedder{
		client: client,
		model:  model,
		logger: slog.Default().With("component", "gemini-embedder", "model", model),
	}
}

// NewEmbedder creates an embedder for the configured embedding endpoint.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(ctx context.Context, ep ai.Endpoint) (ai.Embedder, error) {
	client, err := newClient(ctx, ep)
	if err != nil {
		return nil, err
	}
	return newEmbedder(client, ep.Model), nil
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, ai.ClassifyError("gemini embed", fmt.Errorf("expected 1 vector, got %d: %w", len(vectors), ai.ErrEmptyResponse))
	}
	return vectors[0], nil
}

// EmbedTexts sends texts as one batch and returns vectors in input order.
// The result length is whatever the service returned; callers check it.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	e.logger.Debug("generating embeddings for texts", "count", len(texts))

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	result, err := e.client.Models.EmbedContent(ctx, e.model, contents, nil)
	if err != nil {
		e.logger.Warn("failed to generate embeddings", "count", len(texts), "status", statusOf(err), "err", err)
		return nil, classify("gemini embed", err)
	}

	vectors := make([][]float32, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		if emb == nil {
			continue
		}
		vectors[i] = emb.Values
	}
	return vectors, nil
}
