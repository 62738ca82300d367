package ingestion

import (
	"context"
	"log/slog"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
)

// Ingester runs one ingestion. *Pipeline satisfies it.
type Ingester interface {
	Ingest(ctx context.Context, rawURL string, tenantID uuid.UUID, opts *IngestOptions) (*IngestResult, error)
}

// Job is one ingestion request of a batch.
type Job struct {
	URL      string
	TenantID uuid.UUID
	Options  *IngestOptions
}

// JobResult is the outcome of a Job. Exactly one of Result and Err is set.
type JobResult struct {
	Job    Job
	Result *IngestResult
	Err    error
}

// BatchRunner runs independent ingestions on a bounded worker pool. Each
// ingestion stays sequential inside; only whole jobs run in parallel.
type BatchRunner struct {
	ingester Ingester
	pool     *ants.Pool
	logger   *slog.Logger
}

// BatchOption configures a BatchRunner.
type BatchOption func(*BatchRunner) error

// WithPoolSize sets the number of concurrent ingestions.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) BatchOption {
	return func(b *BatchRunner) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if b.pool != nil {
			b.pool.Release()
		}
		b.pool = pool
		return nil
	}
}

// WithBatchLogger sets a custom logger.
// Default is slog.Default().
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchRunner) error {
		if logger == nil {
			logger = slog.Default()
		}
		b.logger = logger
		return nil
	}
}

// NewBatchRunner creates a runner. Call Release when done.
func NewBatchRunner(ingester Ingester, opts ...BatchOption) (*BatchRunner, error) {
	if ingester == nil {
		return nil, ErrPipelineRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	b := &BatchRunner{
		ingester: ingester,
		pool:     pool,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if optErr := opt(b); optErr != nil {
			b.Release()
			return nil, optErr
		}
	}
	b.logger = b.logger.With("component", "ingestion-batch")
	return b, nil
}

// Run executes jobs and returns their results in job order. It blocks until
// every job has finished.
func (b *BatchRunner) Run(ctx context.Context, jobs []Job) []JobResult {
	results := make([]JobResult, len(jobs))
	var wg sync.WaitGroup

	for i, job := range jobs {
		results[i].Job = job
		wg.Add(1)
		err := b.pool.Submit(func() {
			defer wg.Done()
			res, err := b.ingester.Ingest(ctx, job.URL, job.TenantID, job.Options)
			if err != nil {
				b.logger.Warn("batch ingestion failed", "url", job.URL, "tenant", job.TenantID, "err", err)
				results[i].Err = err
				return
			}
			results[i].Result = res
		})
		if err != nil {
			wg.Done()
			results[i].Err = err
		}
	}

	wg.Wait()
	return results
}

// Release releases the worker pool.
// The runner should not be used after calling Release.
func (b *BatchRunner) Release() {
	if b.pool != nil {
		b.pool.Release()
	}
}
