package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/poiesic/brandmem/core"
	"github.com/poiesic/brandmem/storage"
)

// ArtifactRepository implements storage.ArtifactRepository for BadgerDB.
type ArtifactRepository struct {
	backend *Backend
}

var _ storage.ArtifactRepository = (*ArtifactRepository)(nil)

// NewArtifactRepository creates an artifact repository on backend.
//
// Returns storage.ArtifactRepository interface to enforce abstraction.
func NewArtifactRepository(backend *Backend) (storage.ArtifactRepository, error) {
	return &ArtifactRepository{backend: backend}, nil
}

// Close releases resources. ArtifactRepository has no resources to release.
func (r *ArtifactRepository) Close() error {
	return nil
}

func (r *ArtifactRepository) SaveCampaign(ctx context.Context, campaign *core.Campaign) (*core.Campaign, error) {
	if err := core.ValidateTenant(campaign.TenantID); err != nil {
		return nil, err
	}
	saved := *campaign
	if err := assignIdentity(&saved.ID, &saved.CreatedAt); err != nil {
		return nil, err
	}
	if err := putArtifact(ctx, r.backend, makeArtifactKey(campaignPrefix, saved.TenantID, saved.ID), &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

func (r *ArtifactRepository) GetCampaign(ctx context.Context, tenantID, id uuid.UUID) (*core.Campaign, error) {
	var campaign *core.Campaign
	err := r.backend.View(func(tx *badger.Txn) error {
		val, found, err := get(tx, makeArtifactKey(campaignPrefix, tenantID, id))
		if err != nil {
			return err
		}
		if !found {
			return storage.ErrNotFound
		}
		campaign, err = storage.Unmarshal[core.Campaign](val)
		return err
	})
	return campaign, err
}

func (r *ArtifactRepository) ListCampaigns(ctx context.Context, tenantID uuid.UUID) ([]*core.Campaign, error) {
	return listArtifacts[core.Campaign](r.backend, join(campaignPrefix, tenantID[:]))
}

func (r *ArtifactRepository) SaveContent(ctx context.Context, piece *core.ContentPiece) (*core.ContentPiece, error) {
	if err := core.ValidateTenant(piece.TenantID); err != nil {
		return nil, err
	}
	saved := *piece
	if err := assignIdentity(&saved.ID, &saved.CreatedAt); err != nil {
		return nil, err
	}
	if err := putArtifact(ctx, r.backend, makeArtifactKey(contentPrefix, saved.TenantID, saved.ID), &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

func (r *ArtifactRepository) ListContent(ctx context.Context, tenantID uuid.UUID) ([]*core.ContentPiece, error) {
	return listArtifacts[core.ContentPiece](r.backend, join(contentPrefix, tenantID[:]))
}

func (r *ArtifactRepository) SaveToneProfile(ctx context.Context, profile *core.ToneProfile) (*core.ToneProfile, error) {
	if err := core.ValidateTenant(profile.TenantID); err != nil {
		return nil, err
	}
	saved := *profile
	if err := assignIdentity(&saved.ID, &saved.CreatedAt); err != nil {
		return nil, err
	}
	if err := putArtifact(ctx, r.backend, makeArtifactKey(tonePrefix, saved.TenantID, saved.ID), &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

// assignIdentity fills a missing ID with a version 7 UUID and a missing timestamp with now.
func assignIdentity(id *uuid.UUID, createdAt *time.Time) error {
	if *id == uuid.Nil {
		v7, err := uuid.NewV7()
		if err != nil {
			return err
		}
		*id = v7
	}
	if createdAt.IsZero() {
		*createdAt = time.Now().UTC()
	}
	return nil
}

func putArtifact[T any](ctx context.Context, backend *Backend, key []byte, v *T) error {
	value, err := storage.Marshal(v)
	if err != nil {
		return err
	}
	return backend.Update(ctx, func(tx *badger.Txn) error {
		return tx.Set(key, value)
	})
}

func listArtifacts[T any](backend *Backend, prefix []byte) ([]*T, error) {
	var out []*T
	err := backend.View(func(tx *badger.Txn) error {
		return scan(tx, prefix, func(_, val []byte) error {
			v, err := storage.Unmarshal[T](val)
			if err != nil {
				return err
			}
			out = append(out, v)
			return nil
		})
	})
	return out, err
}
