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


package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/brandmem/ai"
	"github.com/poiesic/brandmem/metrics"
)

// DefaultBatchSize is the number of texts sent per embedding call.
const DefaultBatchSize = 10

// Pipeline batches texts through an ai.Embedder.
// It is safe for concurrent use when the embedder is.
type Pipeline struct {
	embedder  ai.Embedder
	batchSize int
	retry     ai.RetryPolicy
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithBatchSize sets the number of texts per call. Default is 10.
func WithBatchSize(n int) Option {
	return func(p *Pipeline) error {
		if n < 1 {
			return fmt.Errorf("batch size must be at least 1, got %d", n)
		}
		p.batchSize = n
		return nil
	}
}

// WithRetryPolicy sets the retry policy applied to every batch.
// Default is ai.DefaultRetryPolicy().
func WithRetryPolicy(policy ai.RetryPolicy) Option {
	return func(p *Pipeline) error {
		p.retry = policy
		return nil
	}
}

// WithMetrics records batch outcomes and retries.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) error {
		p.metrics = m
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates an embedding pipeline over embedder.
func NewPipeline(embedder ai.Embedder, opts ...Option) (*Pipeline, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	p := &Pipeline{
		embedder:  embedder,
		batchSize: DefaultBatchSize,
		retry:     ai.DefaultRetryPolicy(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	if p.metrics != nil && p.retry.OnRetry == nil {
		p.retry.OnRetry = p.metrics.Retry
	}
	p.logger = p.logger.With("component", "embedding")
	return p, nil
}

// BatchSize returns the configured batch size.
func (p *Pipeline) BatchSize() int {
	return p.batchSize
}

// Embed returns one vector per text, in input order. Batches run
// sequentially and the first failed batch fails the call; no partial
// result is returned.
func (p *Pipeline) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += p.batchSize {
		end := min(start+p.batchSize, len(texts))
		batch := texts[start:end]

		got, err := p.embedBatch(ctx, batch)
		if err != nil {
			p.logger.Error("embedding batch failed", "start", start, "size", len(batch), "err", err)
			return nil, fmt.Errorf("embedding batch %d-%d: %w", start, end, err)
		}
		if len(got) != len(batch) {
			p.logger.Error("embedding count mismatch", "start", start, "expected", len(batch), "received", len(got))
			return nil, fmt.Errorf("%w: batch %d-%d expected %d, received %d",
				ErrCountMismatch, start, end, len(batch), len(got))
		}
		for i, v := range got {
			if len(v) == 0 {
				return nil, fmt.Errorf("%w: text %d", ErrEmptyVector, start+i)
			}
		}
		vectors = append(vectors, got...)
	}
	return vectors, nil
}

// EmbedPartial returns a slice the same length as texts. Entries whose batch
// failed, or that the service did not answer for, are nil. Batch failures
// are joined into the returned error, which is non-nil whenever any entry
// is nil.
//
// On a count mismatch the batch's vectors are kept for the first
// min(len(batch), len(vectors)) texts and the rest stay nil.
func (p *Pipeline) EmbedPartial(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	var errs []error

	for start := 0; start < len(texts); start += p.batchSize {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		end := min(start+p.batchSize, len(texts))
		batch := texts[start:end]

		got, err := p.embedBatch(ctx, batch)
		if err != nil {
			p.logger.Warn("skipping failed embedding batch", "start", start, "size", len(batch), "err", err)
			errs = append(errs, fmt.Errorf("embedding batch %d-%d: %w", start, end, err))
			continue
		}
		if len(got) != len(batch) {
			p.logger.Warn("embedding count mismatch, truncating", "start", start, "expected", len(batch), "received", len(got))
			errs = append(errs, fmt.Errorf("%w: batch %d-%d expected %d, received %d",
				ErrCountMismatch, start, end, len(batch), len(got)))
		}
		n := min(len(got), len(batch))
		for i := 0; i < n; i++ {
			if len(got[i]) == 0 {
				errs = append(errs, fmt.Errorf("%w: text %d", ErrEmptyVector, start+i))
				continue
			}
			vectors[start+i] = got[i]
		}
	}
	return vectors, errors.Join(errs...)
}

// EmbedQuery embeds a single text as a one-item batch.
func (p *Pipeline) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (p *Pipeline) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	start := time.Now()
	got, err := ai.Retry(ctx, p.retry, "embed", func(ctx context.Context) ([][]float32, error) {
		return p.embedder.EmbedTexts(ctx, batch)
	})
	p.metrics.EmbeddingBatch(time.Since(start), err)
	return got, err
}
