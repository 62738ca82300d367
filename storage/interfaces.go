package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/poiesic/brandmem/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// Close releases resources held by the repository. Repositories sharing a
	// backend do not close it; the backend's owner does.
	Close() error
}

// MemoryRepository stores tenant-scoped, append-only memories with their vectors.
type MemoryRepository interface {
	Repository

	// AddMemories stores memories for tenantID in a single atomic write.
	// IDs and CreatedAt are assigned when unset and TenantID is forced to
	// tenantID. Returns ErrDimensionMismatch if any vector's length differs
	// from the vectors already stored for the tenant or from the others in
	// the call; nothing is written in that case.
	AddMemories(ctx context.Context, tenantID uuid.UUID, memories ...*core.Memory) ([]*core.Memory, error)

	// FindSimilar returns the tenant's memories whose cosine similarity to
	// vector is at least minSimilarity, most similar first, at most limit.
	// An empty result is not an error.
	FindSimilar(ctx context.Context, tenantID uuid.UUID, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error)

	// CountMemories returns the number of memories stored for tenantID.
	// uuid.Nil counts every tenant.
	CountMemories(ctx context.Context, tenantID uuid.UUID) (int, error)

	// IterateMemories calls fn with batches of memories in insertion order.
	// uuid.Nil visits every tenant. Iteration stops at the first error.
	IterateMemories(ctx context.Context, tenantID uuid.UUID, batchSize int, fn func([]*core.Memory) error) error
}

// CreditRepository holds the per-tenant, per-capability credit ledger.
// Balances never go below zero.
type CreditRepository interface {
	Repository

	// GetOrProvision returns the balance, inserting allowance first if the
	// pair has never been seen.
	GetOrProvision(ctx context.Context, tenantID uuid.UUID, capability core.Capability, allowance int) (*core.CreditBalance, error)

	// Decrement atomically takes one credit, provisioning allowance first if
	// needed. Returns core.ErrInsufficientCredits, with nothing changed, when
	// the balance is zero.
	Decrement(ctx context.Context, tenantID uuid.UUID, capability core.Capability, allowance int) (*core.CreditBalance, error)

	// SetCredits overwrites the balance, for grants and top-ups.
	SetCredits(ctx context.Context, tenantID uuid.UUID, capability core.Capability, remaining int) (*core.CreditBalance, error)
}

// BrandRepository stores owner profiles and their single brand.
type BrandRepository interface {
	Repository

	// CreateProfile inserts the owner's profile if it does not exist.
	CreateProfile(ctx context.Context, ownerID uuid.UUID) (*core.Profile, error)

	// GetBrandByOwner returns ErrNotFound if the owner has no brand.
	GetBrandByOwner(ctx context.Context, ownerID uuid.UUID) (*core.Brand, error)

	// GetBrand returns ErrNotFound if no brand has the ID.
	GetBrand(ctx context.Context, id uuid.UUID) (*core.Brand, error)

	// InsertBrand creates the owner's brand, or returns the existing one
	// unchanged if the owner already has a brand. Returns
	// ErrForeignKeyViolation if the owner's profile does not exist.
	InsertBrand(ctx context.Context, brand *core.Brand) (*core.Brand, error)

	// SaveBrand creates the owner's brand or overwrites its editable fields.
	// The brand ID of an existing row never changes.
	SaveBrand(ctx context.Context, brand *core.Brand) (*core.Brand, error)

	// UpdateTone replaces the brand's tone. Returns ErrNotFound for an unknown brand.
	UpdateTone(ctx context.Context, brandID uuid.UUID, tone core.ToneDescriptor) error
}

// ArtifactRepository stores generation results.
type ArtifactRepository interface {
	Repository

	SaveCampaign(ctx context.Context, campaign *core.Campaign) (*core.Campaign, error)
	GetCampaign(ctx context.Context, tenantID, id uuid.UUID) (*core.Campaign, error)
	ListCampaigns(ctx context.Context, tenantID uuid.UUID) ([]*core.Campaign, error)

	SaveContent(ctx context.Context, piece *core.ContentPiece) (*core.ContentPiece, error)
	ListContent(ctx context.Context, tenantID uuid.UUID) ([]*core.ContentPiece, error)

	// SaveToneProfile stores a tone analysis of a tenant. Anonymous
	// analyses are not persisted.
	SaveToneProfile(ctx context.Context, profile *core.ToneProfile) (*core.ToneProfile, error)
}

// Stores bundles the repositories of one backend.
type Stores struct {
	Memories  MemoryRepository
	Credits   CreditRepository
	Brands    BrandRepository
	Artifacts ArtifactRepository

	// Closer closes the shared backend after the repositories.
	Closer func() error
}

// Close closes every repository and then the backend.
func (s *Stores) Close() error {
	var first error
	for _, r := range []Repository{s.Memories, s.Credits, s.Brands, s.Artifacts} {
		if r == nil {
			continue
		}
		if err := r.Close(); err != nil && first == nil {
			first = err
		}
	}
	if s.Closer != nil {
		if err := s.Closer(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
