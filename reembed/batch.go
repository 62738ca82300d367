package reembed

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/poiesic/brandmem/core"
	"github.com/poiesic/brandmem/storage"
)

// VectorEmbedder embeds texts in order, failing the whole call if any batch
// fails. *embedding.Pipeline satisfies it.
type VectorEmbedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// BatchProcessor embeds batches of memories with the new model and writes
// the copies to the destination store.
type BatchProcessor struct {
	dest      storage.MemoryRepository
	embedder  VectorEmbedder
	normalize bool
}

// NewBatchProcessor creates a batch processor. With normalize set, vectors
// are scaled to unit length before they are written.
func NewBatchProcessor(dest storage.MemoryRepository, embedder VectorEmbedder, normalize bool) *BatchProcessor {
	return &BatchProcessor{dest: dest, embedder: embedder, normalize: normalize}
}

// Process re-embeds memories and returns how many copies were written. A
// batch spanning several tenants is written as one call per tenant, in
// order of first appearance.
func (bp *BatchProcessor) Process(ctx context.Context, memories []*core.Memory) (int, error) {
	if len(memories) == 0 {
		return 0, nil
	}

	texts := make([]string, len(memories))
	for i, m := range memories {
		texts[i] = m.Content
	}
	vectors, err := bp.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("failed to embed batch: %w", err)
	}
	if len(vectors) != len(memories) {
		return 0, fmt.Errorf("embedding count mismatch: expected %d, got %d", len(memories), len(vectors))
	}

	var order []uuid.UUID
	byTenant := make(map[uuid.UUID][]*core.Memory)
	for i, m := range memories {
		vector := vectors[i]
		if bp.normalize {
			vector = NormalizeVector(vector)
		}
		if _, ok := byTenant[m.TenantID]; !ok {
			order = append(order, m.TenantID)
		}
		byTenant[m.TenantID] = append(byTenant[m.TenantID], &core.Memory{
			ID:         m.ID,
			TenantID:   m.TenantID,
			Content:    m.Content,
			Vector:     vector,
			SourceType: m.SourceType,
			Metadata:   m.Metadata,
			CreatedAt:  m.CreatedAt,
		})
	}

	written := 0
	for _, tenantID := range order {
		stored, err := bp.dest.AddMemories(ctx, tenantID, byTenant[tenantID]...)
		if err != nil {
			return written, fmt.Errorf("failed to write memories of tenant %s: %w", tenantID, err)
		}
		written += len(stored)
	}
	return written, nil
}
