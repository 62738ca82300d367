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


package tenant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/poiesic/brandmem/core"
	"github.com/poiesic/brandmem/metrics"
	"github.com/poiesic/brandmem/storage"
)

// Bootstrap outcomes, used as metric labels.
const (
	ResultExisting  = "existing"
	ResultCreated   = "created"
	ResultRecovered = "recovered"
	ResultFailed    = "failed"
)

// DefaultBrandName names brands created by Ensure.
const DefaultBrandName = "My Brand"

// Bootstrapper resolves an owner to its brand, creating one when needed.
type Bootstrapper struct {
	brands  storage.BrandRepository
	name    string
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// Option configures a Bootstrapper.
type Option func(*Bootstrapper) error

// WithDefaultName sets the name given to newly created brands.
func WithDefaultName(name string) Option {
	return func(b *Bootstrapper) error {
		b.name = name
		return nil
	}
}

// WithMetrics counts bootstrap outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Bootstrapper) error {
		b.metrics = m
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bootstrapper) error {
		if logger == nil {
			logger = slog.Default()
		}
		b.logger = logger
		return nil
	}
}

// NewBootstrapper creates a bootstrapper over brands.
func NewBootstrapper(brands storage.BrandRepository, opts ...Option) (*Bootstrapper, error) {
	if brands == nil {
		return nil, ErrRepositoryRequired
	}

	b := &Bootstrapper{
		brands: brands,
		name:   DefaultBrandName,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}
	b.logger = b.logger.With("component", "tenant")
	return b, nil
}

// Ensure returns the owner's brand, creating it if needed.
//
// Recovery steps, in order:
//  1. read the brand by owner
//  2. insert it; a concurrent insert makes the store return the existing row
//  3. if the owner's profile is missing, create it and insert once more
//  4. on any other failure, read once more before giving up
//
// Failure wraps core.ErrBootstrapFailed.
func (b *Bootstrapper) Ensure(ctx context.Context, ownerID uuid.UUID) (*core.Brand, error) {
	if err := core.ValidateTenant(ownerID); err != nil {
		return nil, err
	}

	brand, err := b.brands.GetBrandByOwner(ctx, ownerID)
	if err == nil {
		b.metrics.Bootstrapped(ResultExisting)
		return brand, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		b.logger.Warn("brand lookup failed", "owner", ownerID, "err", err)
	}

	brand, err = b.insert(ctx, ownerID)
	if errors.Is(err, storage.ErrForeignKeyViolation) {
		b.logger.Info("owner profile missing, creating", "owner", ownerID)
		if _, perr := b.brands.CreateProfile(ctx, ownerID); perr != nil {
			err = errors.Join(err, perr)
		} else {
			brand, err = b.insert(ctx, ownerID)
		}
	}
	if err == nil {
		b.metrics.Bootstrapped(ResultCreated)
		b.logger.Debug("brand ready", "owner", ownerID, "brand", brand.ID)
		return brand, nil
	}

	if existing, rerr := b.brands.GetBrandByOwner(ctx, ownerID); rerr == nil {
		b.metrics.Bootstrapped(ResultRecovered)
		b.logger.Info("brand recovered after failed insert", "owner", ownerID, "err", err)
		return existing, nil
	}

	b.metrics.Bootstrapped(ResultFailed)
	b.logger.Error("bootstrap failed", "owner", ownerID, "err", err)
	return nil, fmt.Errorf("%w: %w", core.ErrBootstrapFailed, err)
}

func (b *Bootstrapper) insert(ctx context.Context, ownerID uuid.UUID) (*core.Brand, error) {
	return b.brands.InsertBrand(ctx, &core.Brand{
		OwnerID: ownerID,
		Name:    b.name,
	})
}

// Save stores the owner's brand profile from an explicit onboarding or
// settings edit. The brand ID of an existing row is kept. A missing owner
// profile is created and the save retried once, as in Ensure.
func (b *Bootstrapper) Save(ctx context.Context, brand *core.Brand) (*core.Brand, error) {
	if err := core.ValidateBrand(brand); err != nil {
		return nil, err
	}

	saved, err := b.brands.SaveBrand(ctx, brand)
	if errors.Is(err, storage.ErrForeignKeyViolation) {
		b.logger.Info("owner profile missing, creating", "owner", brand.OwnerID)
		if _, perr := b.brands.CreateProfile(ctx, brand.OwnerID); perr != nil {
			return nil, errors.Join(err, perr)
		}
		saved, err = b.brands.SaveBrand(ctx, brand)
	}
	if err != nil {
		b.logger.Error("brand save failed", "owner", brand.OwnerID, "err", err)
		return nil, err
	}
	b.logger.Debug("brand saved", "owner", brand.OwnerID, "brand", saved.ID)
	return saved, nil
}
