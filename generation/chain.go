package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/brandmem/ai"
	"github.com/poiesic/brandmem/metrics"
)

// Chain tries generators in order. Each generator gets the full retry
// policy before the next one is tried.
type Chain struct {
	generators []ai.Generator
	retry      ai.RetryPolicy
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// ChainOption configures a Chain.
type ChainOption func(*Chain) error

// WithChainRetryPolicy sets the policy applied to each generator.
// Default is ai.DefaultRetryPolicy().
func WithChainRetryPolicy(policy ai.RetryPolicy) ChainOption {
	return func(c *Chain) error {
		c.retry = policy
		return nil
	}
}

// WithChainMetrics counts retries.
func WithChainMetrics(m *metrics.Metrics) ChainOption {
	return func(c *Chain) error {
		c.metrics = m
		return nil
	}
}

// WithChainLogger sets a custom logger.
// Default is slog.Default().
func WithChainLogger(logger *slog.Logger) ChainOption {
	return func(c *Chain) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// NewChain creates a chain over generators, in fallback order.
func NewChain(generators []ai.Generator, opts ...ChainOption) (*Chain, error) {
	if len(generators) == 0 {
		return nil, ErrNoGenerators
	}
	c := &Chain{
		generators: generators,
		retry:      ai.DefaultRetryPolicy(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.metrics != nil && c.retry.OnRetry == nil {
		c.retry.OnRetry = c.metrics.Retry
	}
	c.logger = c.logger.With("component", "generation")
	return c, nil
}

// Generate returns the output of the first generator that succeeds and its
// name. If all fail, the per-generator errors are joined.
func (c *Chain) Generate(ctx context.Context, prompt string) (string, string, error) {
	var errs []error
	for _, g := range c.generators {
		name := g.Name()
		out, err := ai.Retry(ctx, c.retry, "generate "+name, func(ctx context.Context) (string, error) {
			return g.Generate(ctx, prompt)
		})
		if err == nil {
			return out, name, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", "", ctxErr
		}
		c.logger.Warn("generator failed", "generator", name, "err", err)
		errs = append(errs, fmt.Errorf("%s: %w", name, err))
	}
	return "", "", fmt.Errorf("all %d generators failed: %w", len(c.generators), errors.Join(errs...))
}

// Names lists the generators in fallback order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.generators))
	for i, g := range c.generators {
		names[i] = g.Name()
	}
	return names
}
