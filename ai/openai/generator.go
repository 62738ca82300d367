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
	"context"
	"log/slog"
	"strings"

	"github.com/poiesic/brandmem/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Generator implements ai.Generator using OpenAI-compatible chat APIs.
type Generator struct {
	client      llms.Model
	model       string
	temperature float64
	logger      *slog.Logger
}

var _ ai.Generator = (*Generator)(nil)

func newGenerator(ep ai.Endpoint, temperature float64) (*Generator, error) {
	client, err := openai.New(
		openai.WithBaseURL(ep.Host),
		openai.WithToken(token(ep)),
		openai.WithModel(ep.Model),
	)
	if err != nil {
		return nil, err
	}

	return &Generator{
		client:      client,
		model:       ep.Model,
		temperature: temperature,
		logger:      slog.Default().With("component", "openai-generator", "model", ep.Model),
	}, nil
}

// NewGenerator creates a generator for an OpenAI-compatible chat endpoint.
//
// Returns ai.Generator interface to enforce abstraction.
func NewGenerator(ep ai.Endpoint, temperature float64) (ai.Generator, error) {
	return newGenerator(ep, temperature)
}

// Name returns "openai:<model>".
func (g *Generator) Name() string {
	return "openai:" + g.model
}

// Generate sends the prompt as a single human message in JSON mode.
// Output parsing is left to the caller.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(prompt)},
		},
	}

	response, err := g.client.GenerateContent(ctx, content,
		llms.WithTemperature(g.temperature),
		llms.WithJSONMode(),
	)
	if err != nil {
		g.logger.Warn("failed to generate content", "err", err)
		return "", classify("openai generate", err)
	}

	if len(response.Choices) < 1 {
		g.logger.Debug("no choices returned from model")
		return "", ai.ClassifyError("openai generate", ai.ErrEmptyResponse)
	}

	text := strings.TrimSpace(response.Choices[0].Content)
	if text == "" {
		return "", ai.ClassifyError("openai generate", ai.ErrEmptyResponse)
	}
	return text, nil
}
