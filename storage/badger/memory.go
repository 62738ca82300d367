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


package badger

import (
	"context"
	"encoding/binary"
	"fmt"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/poiesic/brandmem/core"
	"github.com/poiesic/brandmem/storage"
)

// MemoryRepository implements storage.MemoryRepository for BadgerDB.
type MemoryRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.MemoryRepository = (*MemoryRepository)(nil)

// newMemoryRepository is an internal constructor that returns the concrete type.
func newMemoryRepository(backend *Backend) (*MemoryRepository, error) {
	idSeq, err := backend.GetSequence(memoryIDSeq)
	if err != nil {
		return nil, err
	}
	return &MemoryRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// NewMemoryRepository creates a memory repository on backend.
//
// Returns storage.MemoryRepository interface to enforce abstraction.
func NewMemoryRepository(backend *Backend) (storage.MemoryRepository, error) {
	return newMemoryRepository(backend)
}

// Close releases the key sequence.
func (r *MemoryRepository) Close() error {
	return r.idSeq.Release()
}

// AddMemories stores memories for tenantID in a single transaction.
func (r *MemoryRepository) AddMemories(ctx context.Context, tenantID uuid.UUID, memories ...*core.Memory) ([]*core.Memory, error) {
	if len(memories) == 0 {
		return memories, nil
	}
	if err := core.ValidateTenant(tenantID); err != nil {
		return nil, err
	}

	dim := len(memories[0].Vector)
	now := time.Now().UTC()
	for _, m := range memories {
		m.TenantID = tenantID
		if m.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return nil, err
			}
			m.ID = id
		}
		if m.CreatedAt.IsZero() {
			m.CreatedAt = now
		}
		if err := core.ValidateMemory(m); err != nil {
			return nil, err
		}
		if len(m.Vector) != dim {
			return nil, fmt.Errorf("%w: memories in one write have dimensions %d and %d",
				storage.ErrDimensionMismatch, dim, len(m.Vector))
		}
	}

	// Sequence numbers are taken outside the transaction so a conflict
	// retry only wastes numbers, never reuses them.
	seqs := make([]uint64, len(memories))
	for i := range memories {
		seq, err := r.idSeq.Next()
		if err != nil {
			return nil, err
		}
		seqs[i] = seq
	}

	err := r.backend.Update(ctx, func(tx *badger.Txn) error {
		dimKey := makeMemoryDimKey(tenantID)
		val, found, err := get(tx, dimKey)
		if err != nil {
			return err
		}
		if found {
			stored := int(binary.BigEndian.Uint32(val))
			if stored != dim {
				return fmt.Errorf("%w: tenant stores %d dimensions, got %d",
					storage.ErrDimensionMismatch, stored, dim)
			}
		} else {
			var buf [4]byte
			binary.BigEndian.PutUint32(buf[:], uint32(dim))
			if err := tx.Set(dimKey, buf[:]); err != nil {
				return err
			}
		}

		for i, m := range memories {
			value, err := storage.MarshalMemory(m)
			if err != nil {
				return err
			}
			if err := tx.Set(makeMemoryKey(tenantID, seqs[i]), value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return memories, nil
}

// FindSimilar scans the tenant's memories and ranks them by cosine similarity.
func (r *MemoryRepository) FindSimilar(ctx context.Context, tenantID uuid.UUID, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: limit %d", storage.ErrInvalidQuery, limit)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", storage.ErrInvalidQuery)
	}

	var results []*core.SearchResult
	err := r.backend.View(func(tx *badger.Txn) error {
		val, found, err := get(tx, makeMemoryDimKey(tenantID))
		if err != nil || !found {
			return err
		}
		if stored := int(binary.BigEndian.Uint32(val)); stored != len(vector) {
			return fmt.Errorf("%w: tenant stores %d dimensions, query has %d",
				storage.ErrDimensionMismatch, stored, len(vector))
		}

		return scan(tx, makeMemoryTenantPrefix(tenantID), func(_, val []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			memory, err := storage.UnmarshalMemory(val)
			if err != nil {
				return err
			}

			similarity := storage.CosineSimilarity(vector, memory.Vector)
			if similarity >= minSimilarity {
				results = append(results, &core.SearchResult{
					Memory: memory,
					Score:  similarity,
				})
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	// Sort by similarity descending
	slices.SortStableFunc(results, func(a, b *core.SearchResult) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// CountMemories counts the tenant's memory keys without reading values.
// uuid.Nil counts every tenant.
func (r *MemoryRepository) CountMemories(ctx context.Context, tenantID uuid.UUID) (int, error) {
	prefix := []byte(memoryPrefix)
	if tenantID != uuid.Nil {
		prefix = makeMemoryTenantPrefix(tenantID)
	}

	count := 0
	err := r.backend.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// IterateMemories reads memories in key order and hands them to fn in batches.
// Each batch is read in its own transaction, so fn may write to the store.
func (r *MemoryRepository) IterateMemories(ctx context.Context, tenantID uuid.UUID, batchSize int, fn func([]*core.Memory) error) error {
	if batchSize < 1 {
		return fmt.Errorf("%w: batch size %d", storage.ErrInvalidQuery, batchSize)
	}

	prefix := []byte(memoryPrefix)
	if tenantID != uuid.Nil {
		prefix = makeMemoryTenantPrefix(tenantID)
	}

	var cursor []byte
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var batch []*core.Memory
		var last []byte
		err := r.backend.View(func(tx *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = prefix
			iter := tx.NewIterator(opts)
			defer iter.Close()

			start := prefix
			if cursor != nil {
				start = cursor
			}
			for iter.Seek(start); iter.Valid() && len(batch) < batchSize; iter.Next() {
				item := iter.Item()
				if cursor != nil && string(item.Key()) == string(cursor) {
					continue
				}
				val, err := item.ValueCopy(nil)
				if err != nil {
					return err
				}
				memory, err := storage.UnmarshalMemory(val)
				if err != nil {
					return err
				}
				batch = append(batch, memory)
				last = item.KeyCopy(nil)
			}
			return nil
		})
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		if err := fn(batch); err != nil {
			return err
		}
		cursor = last
	}
}
