package reembed

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/poiesic/brandmem/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryIterator_Batches(t *testing.T) {
	repo := newStore(t).Memories
	tenant := uuid.New()
	seed(t, repo, tenant, 5)
	seed(t, repo, uuid.New(), 2)

	it := NewMemoryIterator(repo, tenant, 2)
	total, err := it.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, total)

	var sizes []int
	err = it.ForEach(context.Background(), func(batch []*core.Memory) error {
		sizes = append(sizes, len(batch))
		for _, m := range batch {
			assert.Equal(t, tenant, m.TenantID)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 1}, sizes)
}

func TestMemoryIterator_AllTenantsAndDefaults(t *testing.T) {
	repo := newStore(t).Memories
	seed(t, repo, uuid.New(), 3)
	seed(t, repo, uuid.New(), 4)

	it := NewMemoryIterator(repo, uuid.Nil, 0)
	assert.Equal(t, DefaultBatchSize, it.batchSize)

	seen := 0
	require.NoError(t, it.ForEach(context.Background(), func(batch []*core.Memory) error {
		seen += len(batch)
		return nil
	}))
	assert.Equal(t, 7, seen)
}

func TestMemoryIterator_StopsOnErrorAndCancel(t *testing.T) {
	repo := newStore(t).Memories
	seed(t, repo, uuid.New(), 4)
	it := NewMemoryIterator(repo, uuid.Nil, 1)

	stop := errors.New("stop")
	calls := 0
	err := it.ForEach(context.Background(), func([]*core.Memory) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = it.ForEach(ctx, func([]*core.Memory) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
