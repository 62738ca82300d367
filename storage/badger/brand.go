package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/poiesic/brandmem/core"
	"github.com/poiesic/brandmem/storage"
)

// BrandRepository implements storage.BrandRepository for BadgerDB.
// The owner index key enforces one brand per owner.
type BrandRepository struct {
	backend *Backend
}

var _ storage.BrandRepository = (*BrandRepository)(nil)

// NewBrandRepository creates a brand repository on backend.
//
// Returns storage.BrandRepository interface to enforce abstraction.
func NewBrandRepository(backend *Backend) (storage.BrandRepository, error) {
	return &BrandRepository{backend: backend}, nil
}

// Close releases resources. BrandRepository has no resources to release.
func (r *BrandRepository) Close() error {
	return nil
}

// CreateProfile inserts the profile if missing and returns the stored one.
func (r *BrandRepository) CreateProfile(ctx context.Context, ownerID uuid.UUID) (*core.Profile, error) {
	if err := core.ValidateTenant(ownerID); err != nil {
		return nil, err
	}

	var profile *core.Profile
	err := r.backend.Update(ctx, func(tx *badger.Txn) error {
		key := makeProfileKey(ownerID)
		val, found, err := get(tx, key)
		if err != nil {
			return err
		}
		if found {
			profile, err = storage.Unmarshal[core.Profile](val)
			return err
		}

		profile = &core.Profile{ID: ownerID, CreatedAt: time.Now().UTC()}
		value, err := storage.Marshal(profile)
		if err != nil {
			return err
		}
		return tx.Set(key, value)
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// GetBrandByOwner looks the brand up through the owner index.
func (r *BrandRepository) GetBrandByOwner(ctx context.Context, ownerID uuid.UUID) (*core.Brand, error) {
	var brand *core.Brand
	err := r.backend.View(func(tx *badger.Txn) error {
		var err error
		brand, err = readBrandByOwner(tx, ownerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if brand == nil {
		return nil, storage.ErrNotFound
	}
	return brand, nil
}

// GetBrand reads a brand by ID.
func (r *BrandRepository) GetBrand(ctx context.Context, id uuid.UUID) (*core.Brand, error) {
	var brand *core.Brand
	err := r.backend.View(func(tx *badger.Txn) error {
		var err error
		brand, err = readBrand(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if brand == nil {
		return nil, storage.ErrNotFound
	}
	return brand, nil
}

// InsertBrand creates the owner's brand unless one exists, in which case the
// existing brand is returned unchanged.
func (r *BrandRepository) InsertBrand(ctx context.Context, brand *core.Brand) (*core.Brand, error) {
	if err := core.ValidateBrand(brand); err != nil {
		return nil, err
	}

	var stored *core.Brand
	err := r.backend.Update(ctx, func(tx *badger.Txn) error {
		existing, err := readBrandByOwner(tx, brand.OwnerID)
		if err != nil {
			return err
		}
		if existing != nil {
			stored = existing
			return nil
		}

		if _, found, err := get(tx, makeProfileKey(brand.OwnerID)); err != nil {
			return err
		} else if !found {
			return storage.ErrForeignKeyViolation
		}

		created := *brand
		if created.ID == uuid.Nil {
			created.ID = uuid.New()
		}
		created.CreatedAt = time.Now().UTC()
		created.UpdatedAt = created.CreatedAt
		stored = &created
		return writeBrand(tx, stored)
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// SaveBrand creates the brand or overwrites the editable fields of the existing one.
func (r *BrandRepository) SaveBrand(ctx context.Context, brand *core.Brand) (*core.Brand, error) {
	if err := core.ValidateBrand(brand); err != nil {
		return nil, err
	}

	var stored *core.Brand
	err := r.backend.Update(ctx, func(tx *badger.Txn) error {
		if _, found, err := get(tx, makeProfileKey(brand.OwnerID)); err != nil {
			return err
		} else if !found {
			return storage.ErrForeignKeyViolation
		}

		existing, err := readBrandByOwner(tx, brand.OwnerID)
		if err != nil {
			return err
		}

		saved := *brand
		now := time.Now().UTC()
		if existing != nil {
			saved.ID = existing.ID
			saved.CreatedAt = existing.CreatedAt
		} else {
			if saved.ID == uuid.Nil {
				saved.ID = uuid.New()
			}
			saved.CreatedAt = now
		}
		saved.UpdatedAt = now
		stored = &saved
		return writeBrand(tx, stored)
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// UpdateTone replaces the tone of an existing brand.
func (r *BrandRepository) UpdateTone(ctx context.Context, brandID uuid.UUID, tone core.ToneDescriptor) error {
	return r.backend.Update(ctx, func(tx *badger.Txn) error {
		brand, err := readBrand(tx, brandID)
		if err != nil {
			return err
		}
		if brand == nil {
			return storage.ErrNotFound
		}
		brand.Tone = tone
		brand.UpdatedAt = time.Now().UTC()
		return writeBrand(tx, brand)
	})
}

func readBrand(tx *badger.Txn, id uuid.UUID) (*core.Brand, error) {
	val, found, err := get(tx, makeBrandKey(id))
	if err != nil || !found {
		return nil, err
	}
	return storage.Unmarshal[core.Brand](val)
}

func readBrandByOwner(tx *badger.Txn, ownerID uuid.UUID) (*core.Brand, error) {
	val, found, err := get(tx, makeBrandOwnerKey(ownerID))
	if err != nil || !found {
		return nil, err
	}
	id, err := uuid.FromBytes(val)
	if err != nil {
		return nil, err
	}
	return readBrand(tx, id)
}

func writeBrand(tx *badger.Txn, brand *core.Brand) error {
	value, err := storage.Marshal(brand)
	if err != nil {
		return err
	}
	if err := tx.Set(makeBrandKey(brand.ID), value); err != nil {
		return err
	}
	return tx.Set(makeBrandOwnerKey(brand.OwnerID), brand.ID[:])
}
