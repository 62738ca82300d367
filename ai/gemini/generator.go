package gemini

import (
	"context"
	"log/slog"
	"strings"

	"github.com/poiesic/brandmem/ai"
	"google.golang.org/genai"
)

// Generator implements ai.Generator using Gemini generateContent.
type Generator struct {
	client      *genai.Client
	model       string
	temperature float32
	logger      *slog.Logger
}

var _ ai.Generator = (*Generator)(nil)

func newGenerator(client *genai.Client, model string, temperature float64) *Generator {
	return &Generator{
		client:      client,
		model:       model,
		temperature: float32(temperature),
		logger:      slog.Default().With("component", "gemini-generator", "model", model),
	}
}

// NewGenerator creates a generator for one generation endpoint.
//
// Returns ai.Generator interface to enforce abstraction.
func NewGenerator(ctx context.Context, ep ai.Endpoint, temperature float64) (ai.Generator, error) {
	client, err := newClient(ctx, ep)
	if err != nil {
		return nil, err
	}
	return newGenerator(client, ep.Model, temperature), nil
}

// Name returns "gemini:<model>".
func (g *Generator) Name() string {
	return "gemini:" + g.model
}

// Generate sends prompt as a single user turn and returns the concatenated text parts.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(g.temperature),
		ResponseMIMEType: "application/json",
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), config)
	if err != nil {
		g.logger.Warn("generation failed", "status", statusOf(err), "err", err)
		return "", classify("gemini generate", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ai.ClassifyError("gemini generate", ai.ErrEmptyResponse)
	}
	return text, nil
}
