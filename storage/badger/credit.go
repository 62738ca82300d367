package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/poiesic/brandmem/core"
	"github.com/poiesic/brandmem/storage"
)

// CreditRepository implements storage.CreditRepository for BadgerDB.
// Every mutation is a serializable transaction retried on conflict, so two
// concurrent decrements of the last credit cannot both succeed.
type CreditRepository struct {
	backend *Backend
}

var _ storage.CreditRepository = (*CreditRepository)(nil)

// NewCreditRepository creates a credit repository on backend.
//
// Returns storage.CreditRepository interface to enforce abstraction.
func NewCreditRepository(backend *Backend) (storage.CreditRepository, error) {
	return &CreditRepository{backend: backend}, nil
}

// Close releases resources. CreditRepository has no resources to release.
func (r *CreditRepository) Close() error {
	return nil
}

// GetOrProvision returns the balance, provisioning allowance on first read.
func (r *CreditRepository) GetOrProvision(ctx context.Context, tenantID uuid.UUID, capability core.Capability, allowance int) (*core.CreditBalance, error) {
	var balance *core.CreditBalance
	err := r.backend.Update(ctx, func(tx *badger.Txn) error {
		var err error
		balance, err = readOrProvision(tx, tenantID, capability, allowance)
		return err
	})
	return balance, err
}

// Decrement takes one credit if the balance is positive.
func (r *CreditRepository) Decrement(ctx context.Context, tenantID uuid.UUID, capability core.Capability, allowance int) (*core.CreditBalance, error) {
	var balance *core.CreditBalance
	err := r.backend.Update(ctx, func(tx *badger.Txn) error {
		current, err := readOrProvision(tx, tenantID, capability, allowance)
		if err != nil {
			return err
		}
		if current.Remaining <= 0 {
			return fmt.Errorf("%w: %s", core.ErrInsufficientCredits, capability)
		}
		current.Remaining--
		current.UpdatedAt = time.Now().UTC()
		balance = current
		return writeBalance(tx, current)
	})
	if err != nil {
		return nil, err
	}
	return balance, nil
}

// SetCredits overwrites the balance.
func (r *CreditRepository) SetCredits(ctx context.Context, tenantID uuid.UUID, capability core.Capability, remaining int) (*core.CreditBalance, error) {
	if remaining < 0 {
		return nil, fmt.Errorf("%w: negative balance %d", storage.ErrInvalidQuery, remaining)
	}
	balance := &core.CreditBalance{
		TenantID:   tenantID,
		Capability: capability,
		Remaining:  remaining,
		UpdatedAt:  time.Now().UTC(),
	}
	err := r.backend.Update(ctx, func(tx *badger.Txn) error {
		return writeBalance(tx, balance)
	})
	if err != nil {
		return nil, err
	}
	return balance, nil
}

func readOrProvision(tx *badger.Txn, tenantID uuid.UUID, capability core.Capability, allowance int) (*core.CreditBalance, error) {
	val, found, err := get(tx, makeCreditKey(tenantID, capability))
	if err != nil {
		return nil, err
	}
	if found {
		return storage.Unmarshal[core.CreditBalance](val)
	}

	balance := &core.CreditBalance{
		TenantID:   tenantID,
		Capability: capability,
		Remaining:  max(allowance, 0),
		UpdatedAt:  time.Now().UTC(),
	}
	return balance, writeBalance(tx, balance)
}

func writeBalance(tx *badger.Txn, balance *core.CreditBalance) error {
	value, err := storage.Marshal(balance)
	if err != nil {
		return err
	}
	return tx.Set(makeCreditKey(balance.TenantID, balance.Capability), value)
}
