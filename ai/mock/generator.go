package mock

import (
	"context"
	"sync"
)

// MockGenerator is a test double for ai.Generator.
type MockGenerator struct {
	// GenerateFunc is called by Generate if set.
	GenerateFunc func(ctx context.Context, prompt string) (string, error)

	// Response is returned when GenerateFunc is nil.
	Response string

	name string

	mu      sync.Mutex
	prompts []string
}

// NewMockGenerator creates a generator that always answers with response.
func NewMockGenerator(name, response string) *MockGenerator {
	return &MockGenerator{name: name, Response: response}
}

// Generate records the prompt and returns the configured output.
func (g *MockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()

	if g.GenerateFunc != nil {
		return g.GenerateFunc(ctx, prompt)
	}
	return g.Response, nil
}

// Name returns the configured name.
func (g *MockGenerator) Name() string {
	if g.name == "" {
		return "mock"
	}
	return g.name
}

// CallCount returns the number of Generate calls.
func (g *MockGenerator) CallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

// Prompts returns every prompt received, in order.
func (g *MockGenerator) Prompts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.prompts...)
}

// LastPrompt returns the most recent prompt or "".
func (g *MockGenerator) LastPrompt() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.prompts) == 0 {
		return ""
	}
	return g.prompts[len(g.prompts)-1]
}
