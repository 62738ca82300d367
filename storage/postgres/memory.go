package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/poiesic/brandmem/core"
	"github.com/poiesic/brandmem/storage"
)

// MemoryRepository implements storage.MemoryRepository on Postgres.
type MemoryRepository struct {
	db *sqlx.DB
}

var _ storage.MemoryRepository = (*MemoryRepository)(nil)

// NewMemoryRepository returns a memory repository backed by db.
func NewMemoryRepository(db *sqlx.DB) storage.MemoryRepository {
	return &MemoryRepository{db: db}
}

// Close is a no-op; the Stores closer owns db.
func (r *MemoryRepository) Close() error {
	return nil
}

type memoryRow struct {
	Seq        int64     `db:"seq"`
	ID         uuid.UUID `db:"id"`
	TenantID   uuid.UUID `db:"tenant_id"`
	Content    string    `db:"content"`
	Embedding  string    `db:"embedding"`
	SourceType string    `db:"source_type"`
	URL        string    `db:"url"`
	Title      string    `db:"title"`
	CreatedAt  time.Time `db:"created_at"`
	Similarity float32   `db:"similarity"`
}

func (row *memoryRow) memory() (*core.Memory, error) {
	vector, err := parseVector(row.Embedding)
	if err != nil {
		return nil, err
	}
	return &core.Memory{
		ID:         row.ID,
		TenantID:   row.TenantID,
		Content:    row.Content,
		Vector:     vector,
		SourceType: core.SourceType(row.SourceType),
		Metadata:   core.MemoryMetadata{URL: row.URL, Title: row.Title},
		CreatedAt:  row.CreatedAt,
	}, nil
}

const memoryColumns = `seq, id, tenant_id, content, embedding::text AS embedding, source_type, url, title, created_at`

// AddMemories inserts every memory in one transaction. A transaction-scoped
// advisory lock on the tenant serializes writers so the dimension check
// cannot race.
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

	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, tenantID.String()); err != nil {
			return translate(err)
		}

		stored, err := tenantDimensions(ctx, tx, tenantID)
		if err != nil {
			return err
		}
		if stored != 0 && stored != dim {
			return fmt.Errorf("%w: tenant stores %d dimensions, got %d",
				storage.ErrDimensionMismatch, stored, dim)
		}

		for _, m := range memories {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO memories (id, tenant_id, content, embedding, dimensions, source_type, url, title, created_at)
				VALUES ($1, $2, $3, $4::vector, $5, $6, $7, $8, $9)`,
				m.ID, m.TenantID, m.Content, vectorLiteral(m.Vector), dim,
				string(m.SourceType), m.Metadata.URL, m.Metadata.Title, m.CreatedAt,
			)
			if err != nil {
				return translate(err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return memories, nil
}

// tenantDimensions returns the vector length stored for the tenant, or 0 if it has no memories.
func tenantDimensions(ctx context.Context, q sqlx.QueryerContext, tenantID uuid.UUID) (int, error) {
	var dim int
	err := sqlx.GetContext(ctx, q, &dim, `SELECT dimensions FROM memories WHERE tenant_id = $1 LIMIT 1`, tenantID)
	if err != nil {
		if errors.Is(translate(err), storage.ErrNotFound) {
			return 0, nil
		}
		return 0, translate(err)
	}
	return dim, nil
}

// FindSimilar ranks the tenant's memories with pgvector's cosine distance.
func (r *MemoryRepository) FindSimilar(ctx context.Context, tenantID uuid.UUID, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: limit %d", storage.ErrInvalidQuery, limit)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", storage.ErrInvalidQuery)
	}

	stored, err := tenantDimensions(ctx, r.db, tenantID)
	if err != nil {
		return nil, err
	}
	if stored == 0 {
		return nil, nil
	}
	if stored != len(vector) {
		return nil, fmt.Errorf("%w: tenant stores %d dimensions, query has %d",
			storage.ErrDimensionMismatch, stored, len(vector))
	}

	var rows []memoryRow
	err = r.db.SelectContext(ctx, &rows, `
		SELECT `+memoryColumns+`,
			(1 - (embedding <=> $2::vector))::real AS similarity
		FROM memories
		WHERE tenant_id = $1
			AND (1 - (embedding <=> $2::vector)) >= $3
		ORDER BY embedding <=> $2::vector, seq
		LIMIT $4`,
		tenantID, vectorLiteral(vector), minSimilarity, limit,
	)
	if err != nil {
		return nil, translate(err)
	}

	results := make([]*core.SearchResult, 0, len(rows))
	for i := range rows {
		memory, err := rows[i].memory()
		if err != nil {
			return nil, err
		}
		results = append(results, &core.SearchResult{Memory: memory, Score: rows[i].Similarity})
	}
	return results, nil
}

func (r *MemoryRepository) CountMemories(ctx context.Context, tenantID uuid.UUID) (int, error) {
	var count int
	if tenantID == uuid.Nil {
		err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM memories`)
		return count, translate(err)
	}
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM memories WHERE tenant_id = $1`, tenantID)
	return count, translate(err)
}

// IterateMemories pages through memories by sequence number.
func (r *MemoryRepository) IterateMemories(ctx context.Context, tenantID uuid.UUID, batchSize int, fn func([]*core.Memory) error) error {
	if batchSize < 1 {
		return fmt.Errorf("%w: batch size %d", storage.ErrInvalidQuery, batchSize)
	}

	var cursor int64
	for {
		var (
			query strings.Builder
			args  = []any{cursor, batchSize}
		)
		query.WriteString(`SELECT ` + memoryColumns + ` FROM memories WHERE seq > $1`)
		if tenantID != uuid.Nil {
			query.WriteString(` AND tenant_id = $3`)
			args = append(args, tenantID)
		}
		query.WriteString(` ORDER BY seq LIMIT $2`)

		var rows []memoryRow
		if err := r.db.SelectContext(ctx, &rows, query.String(), args...); err != nil {
			return translate(err)
		}
		if len(rows) == 0 {
			return nil
		}

		batch := make([]*core.Memory, 0, len(rows))
		for i := range rows {
			memory, err := rows[i].memory()
			if err != nil {
				return err
			}
			batch = append(batch, memory)
		}
		if err := fn(batch); err != nil {
			return err
		}
		if len(rows) < batchSize {
			return nil
		}
		cursor = rows[len(rows)-1].Seq
	}
}
