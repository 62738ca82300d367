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


package reembed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/brandmem/ai"
	"github.com/poiesic/brandmem/core"
	"github.com/poiesic/brandmem/embedding"
	"github.com/poiesic/brandmem/metrics"
	"github.com/poiesic/brandmem/storage"
)

// Config holds configuration for a migration.
type Config struct {
	// TenantID limits the migration to one tenant. uuid.Nil migrates all.
	TenantID uuid.UUID

	// BatchSize is the number of memories read from the source at a time.
	BatchSize int

	// EmbedBatchSize is the number of texts sent per embedding call.
	EmbedBatchSize int

	// ReportInterval is how often to report progress, in memories.
	ReportInterval int

	// MaxRetries is the number of attempts per embedding call.
	MaxRetries int

	// RetryDelay is the linear backoff unit between attempts.
	RetryDelay time.Duration

	// Normalize scales new vectors to unit length.
	Normalize bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		EmbedBatchSize: embedding.DefaultBatchSize,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     time.Second,
	}
}

// Summary describes a finished migration.
type Summary struct {
	Memories int
	Tenants  int
	Elapsed  time.Duration
}

// Reembedder copies memories from one store into another with new vectors.
type Reembedder struct {
	source    storage.MemoryRepository
	dest      storage.MemoryRepository
	config    *Config
	progress  io.Writer
	processor *BatchProcessor
	iterator  *MemoryIterator
	logger    *slog.Logger
}

// NewReembedder creates a reembedder. progress receives status lines,
// typically os.Stderr; m may be nil.
func NewReembedder(source, dest storage.MemoryRepository, embedder ai.Embedder, config *Config, progress io.Writer, m *metrics.Metrics) (*Reembedder, error) {
	if source == nil {
		return nil, ErrSourceRequired
	}
	if dest == nil {
		return nil, ErrDestinationRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}

	policy := ai.RetryPolicy{MaxAttempts: config.MaxRetries, BaseDelay: config.RetryDelay}
	opts := []embedding.Option{embedding.WithRetryPolicy(policy), embedding.WithMetrics(m)}
	if config.EmbedBatchSize > 0 {
		opts = append(opts, embedding.WithBatchSize(config.EmbedBatchSize))
	}
	pipeline, err := embedding.NewPipeline(embedder, opts...)
	if err != nil {
		return nil, err
	}

	return &Reembedder{
		source:    source,
		dest:      dest,
		config:    config,
		progress:  progress,
		processor: NewBatchProcessor(dest, pipeline, config.Normalize),
		iterator:  NewMemoryIterator(source, config.TenantID, config.BatchSize),
		logger:    slog.Default().With("component", "reembed"),
	}, nil
}

// Run migrates every memory in scope. The destination must hold no
// memories in scope, so an interrupted run is restarted from a fresh store.
func (r *Reembedder) Run(ctx context.Context) (*Summary, error) {
	existing, err := r.dest.CountMemories(ctx, r.config.TenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect destination: %w", err)
	}
	if existing > 0 {
		return nil, fmt.Errorf("%w: %d memories", ErrDestinationNotEmpty, existing)
	}

	total, err := r.iterator.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count memories: %w", err)
	}
	out := r.progress
	if out == nil {
		out = io.Discard
	}
	if total == 0 {
		fmt.Fprintf(out, "No memories found (0 memories)\n")
		return &Summary{}, nil
	}

	fmt.Fprintf(out, "Starting re-embedding of %d memories (batch size: %d)\n", total, r.iterator.batchSize)
	tracker := NewProgressTracker(out, total, r.config.ReportInterval)
	tracker.Start()

	tenants := make(map[uuid.UUID]struct{})
	migrated := 0
	err = r.iterator.ForEach(ctx, func(batch []*core.Memory) error {
		n, err := r.processor.Process(ctx, batch)
		migrated += n
		tracker.Add(n)
		if err != nil {
			return err
		}
		for _, m := range batch {
			tenants[m.TenantID] = struct{}{}
		}
		return nil
	})
	if err != nil {
		r.logger.Error("re-embedding stopped", "migrated", migrated, "total", total, "err", err)
		return nil, err
	}

	tracker.Finish()
	summary := &Summary{Memories: migrated, Tenants: len(tenants), Elapsed: tracker.Snapshot().Elapsed}
	fmt.Fprintf(out, "Re-embedding complete. Migrated %d memories of %d tenants in %v\n",
		summary.Memories, summary.Tenants, summary.Elapsed.Round(time.Millisecond))
	return summary, nil
}
