package reembed

import (
	"context"

	"github.com/google/uuid"
	"github.com/poiesic/brandmem/core"
	"github.com/poiesic/brandmem/storage"
)

// DefaultBatchSize is the default number of memories read per batch.
const DefaultBatchSize = 100

// MemoryIterator walks the memories of one tenant, or of every tenant when
// the tenant is uuid.Nil, in batches.
type MemoryIterator struct {
	repo      storage.MemoryRepository
	tenantID  uuid.UUID
	batchSize int
}

// NewMemoryIterator creates an iterator. A batchSize below 1 means DefaultBatchSize.
func NewMemoryIterator(repo storage.MemoryRepository, tenantID uuid.UUID, batchSize int) *MemoryIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &MemoryIterator{repo: repo, tenantID: tenantID, batchSize: batchSize}
}

// Count returns the number of memories ForEach will visit.
func (it *MemoryIterator) Count(ctx context.Context) (int, error) {
	return it.repo.CountMemories(ctx, it.tenantID)
}

// ForEach calls fn for every non-empty batch. Iteration stops on the first
// error from fn or when ctx is done.
func (it *MemoryIterator) ForEach(ctx context.Context, fn func([]*core.Memory) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return it.repo.IterateMemories(ctx, it.tenantID, it.batchSize, func(batch []*core.Memory) error {
		if len(batch) == 0 {
			return nil
		}
		if err := fn(batch); err != nil {
			return err
		}
		return ctx.Err()
	})
}
