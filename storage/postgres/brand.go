package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/poiesic/brandmem/core"
	"github.com/poiesic/brandmem/storage"
)

// BrandRepository implements storage.BrandRepository on Postgres. The
// UNIQUE owner_id column enforces one brand per owner.
type BrandRepository struct {
	db *sqlx.DB
}

var _ storage.BrandRepository = (*BrandRepository)(nil)

// NewBrandRepository returns a brand repository backed by db.
func NewBrandRepository(db *sqlx.DB) storage.BrandRepository {
	return &BrandRepository{db: db}
}

// Close is a no-op; the Stores closer owns db.
func (r *BrandRepository) Close() error {
	return nil
}

type brandRow struct {
	ID        uuid.UUID `db:"id"`
	OwnerID   uuid.UUID `db:"owner_id"`
	Name      string    `db:"name"`
	Website   string    `db:"website"`
	Tone      []byte    `db:"tone"`
	Audience  string    `db:"audience"`
	Values    []byte    `db:"brand_values"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (row *brandRow) brand() (*core.Brand, error) {
	tone, err := core.ParseToneDescriptor(row.Tone)
	if err != nil {
		return nil, err
	}
	var values []string
	if len(row.Values) > 0 {
		if err := json.Unmarshal(row.Values, &values); err != nil {
			return nil, fmt.Errorf("%w: brand values: %w", storage.ErrSerializationFailed, err)
		}
	}
	return &core.Brand{
		ID:        row.ID,
		OwnerID:   row.OwnerID,
		Name:      row.Name,
		Website:   row.Website,
		Tone:      tone,
		Audience:  row.Audience,
		Values:    values,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}, nil
}

const brandColumns = `id, owner_id, name, website, tone, audience, brand_values, created_at, updated_at`

// brandArgs returns the insert arguments for brand, with JSON columns encoded.
func brandArgs(brand *core.Brand) ([]any, error) {
	tone, err := json.Marshal(brand.Tone)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}
	values, err := json.Marshal(brand.Values)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}
	id := brand.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	return []any{id, brand.OwnerID, brand.Name, brand.Website, tone, brand.Audience, values}, nil
}

func (r *BrandRepository) CreateProfile(ctx context.Context, ownerID uuid.UUID) (*core.Profile, error) {
	if err := core.ValidateTenant(ownerID); err != nil {
		return nil, err
	}

	var profile core.Profile
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO profiles (id, created_at) VALUES ($1, now())
		ON CONFLICT (id) DO UPDATE SET id = EXCLUDED.id
		RETURNING id, created_at`,
		ownerID,
	).Scan(&profile.ID, &profile.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &profile, nil
}

func (r *BrandRepository) GetBrandByOwner(ctx context.Context, ownerID uuid.UUID) (*core.Brand, error) {
	return r.getBrand(ctx, `SELECT `+brandColumns+` FROM brands WHERE owner_id = $1`, ownerID)
}

func (r *BrandRepository) GetBrand(ctx context.Context, id uuid.UUID) (*core.Brand, error) {
	return r.getBrand(ctx, `SELECT `+brandColumns+` FROM brands WHERE id = $1`, id)
}

func (r *BrandRepository) getBrand(ctx context.Context, query string, arg uuid.UUID) (*core.Brand, error) {
	var row brandRow
	if err := r.db.GetContext(ctx, &row, query, arg); err != nil {
		return nil, translate(err)
	}
	return row.brand()
}

// InsertBrand relies on the owner_id constraint: a conflicting insert turns
// into a no-op update that returns the existing row unchanged.
func (r *BrandRepository) InsertBrand(ctx context.Context, brand *core.Brand) (*core.Brand, error) {
	if err := core.ValidateBrand(brand); err != nil {
		return nil, err
	}
	args, err := brandArgs(brand)
	if err != nil {
		return nil, err
	}

	var row brandRow
	err = r.db.GetContext(ctx, &row, `
		INSERT INTO brands (id, owner_id, name, website, tone, audience, brand_values, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		ON CONFLICT (owner_id) DO UPDATE SET owner_id = EXCLUDED.owner_id
		RETURNING `+brandColumns,
		args...,
	)
	if err != nil {
		return nil, translate(err)
	}
	return row.brand()
}

func (r *BrandRepository) SaveBrand(ctx context.Context, brand *core.Brand) (*core.Brand, error) {
	if err := core.ValidateBrand(brand); err != nil {
		return nil, err
	}
	args, err := brandArgs(brand)
	if err != nil {
		return nil, err
	}

	var row brandRow
	err = r.db.GetContext(ctx, &row, `
		INSERT INTO brands (id, owner_id, name, website, tone, audience, brand_values, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		ON CONFLICT (owner_id) DO UPDATE SET
			name = EXCLUDED.name,
			website = EXCLUDED.website,
			tone = EXCLUDED.tone,
			audience = EXCLUDED.audience,
			brand_values = EXCLUDED.brand_values,
			updated_at = EXCLUDED.updated_at
		RETURNING `+brandColumns,
		args...,
	)
	if err != nil {
		return nil, translate(err)
	}
	return row.brand()
}

func (r *BrandRepository) UpdateTone(ctx context.Context, brandID uuid.UUID, tone core.ToneDescriptor) error {
	encoded, err := json.Marshal(tone)
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE brands SET tone = $2, updated_at = now() WHERE id = $1`,
		brandID, encoded,
	)
	if err != nil {
		return translate(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return translate(err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
