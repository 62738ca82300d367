package tenant

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/poiesic/brandmem/core"
	"github.com/poiesic/brandmem/storage"
)

// BrandGetter loads a brand by its ID. storage.BrandRepository satisfies it.
type BrandGetter interface {
	GetBrand(ctx context.Context, id uuid.UUID) (*core.Brand, error)
}

// Resolve returns the bootstrapped brand behind tenantID. Tenant-scoped
// operations call it before touching credits or external services, so an
// unknown tenant is rejected without provisioning anything.
//
// A brand that does not exist wraps core.ErrUnknownTenant.
func Resolve(ctx context.Context, brands BrandGetter, tenantID uuid.UUID) (*core.Brand, error) {
	if err := core.ValidateTenant(tenantID); err != nil {
		return nil, err
	}
	brand, err := brands.GetBrand(ctx, tenantID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownTenant, tenantID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load brand %s: %w", tenantID, err)
	}
	return brand, nil
}
