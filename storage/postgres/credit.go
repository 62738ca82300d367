package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/poiesic/brandmem/core"
	"github.com/poiesic/brandmem/storage"
)

// CreditRepository implements storage.CreditRepository on Postgres.
type CreditRepository struct {
	db *sqlx.DB
}

var _ storage.CreditRepository = (*CreditRepository)(nil)

// NewCreditRepository returns a credit repository backed by db.
func NewCreditRepository(db *sqlx.DB) storage.CreditRepository {
	return &CreditRepository{db: db}
}

// Close is a no-op; the Stores closer owns db.
func (r *CreditRepository) Close() error {
	return nil
}

type creditRow struct {
	TenantID   uuid.UUID `db:"tenant_id"`
	Capability string    `db:"capability"`
	Remaining  int       `db:"remaining"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (row *creditRow) balance() *core.CreditBalance {
	return &core.CreditBalance{
		TenantID:   row.TenantID,
		Capability: core.Capability(row.Capability),
		Remaining:  row.Remaining,
		UpdatedAt:  row.UpdatedAt,
	}
}

const creditColumns = `tenant_id, capability, remaining, updated_at`

// GetOrProvision uses a no-op conflict update so one statement returns the
// existing row or the freshly provisioned one.
func (r *CreditRepository) GetOrProvision(ctx context.Context, tenantID uuid.UUID, capability core.Capability, allowance int) (*core.CreditBalance, error) {
	var row creditRow
	err := r.db.GetContext(ctx, &row, `
		INSERT INTO credits (tenant_id, capability, remaining, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (tenant_id, capability) DO UPDATE SET tenant_id = EXCLUDED.tenant_id
		RETURNING `+creditColumns,
		tenantID, string(capability), max(allowance, 0),
	)
	if err != nil {
		return nil, translate(err)
	}
	return row.balance(), nil
}

// Decrement provisions the row if needed, then takes one credit with a
// conditional UPDATE. Concurrent decrements queue on the row lock and
// re-check remaining > 0 after it is released.
func (r *CreditRepository) Decrement(ctx context.Context, tenantID uuid.UUID, capability core.Capability, allowance int) (*core.CreditBalance, error) {
	var row creditRow
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO credits (tenant_id, capability, remaining, updated_at)
			VALUES ($1, $2, $3, now())
			ON CONFLICT (tenant_id, capability) DO NOTHING`,
			tenantID, string(capability), max(allowance, 0),
		)
		if err != nil {
			return translate(err)
		}

		err = tx.GetContext(ctx, &row, `
			UPDATE credits SET remaining = remaining - 1, updated_at = now()
			WHERE tenant_id = $1 AND capability = $2 AND remaining > 0
			RETURNING `+creditColumns,
			tenantID, string(capability),
		)
		if err := translate(err); errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: %s", core.ErrInsufficientCredits, capability)
		} else if err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return row.balance(), nil
}

func (r *CreditRepository) SetCredits(ctx context.Context, tenantID uuid.UUID, capability core.Capability, remaining int) (*core.CreditBalance, error) {
	if remaining < 0 {
		return nil, fmt.Errorf("%w: negative balance %d", storage.ErrInvalidQuery, remaining)
	}

	var row creditRow
	err := r.db.GetContext(ctx, &row, `
		INSERT INTO credits (tenant_id, capability, remaining, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (tenant_id, capability)
		DO UPDATE SET remaining = EXCLUDED.remaining, updated_at = EXCLUDED.updated_at
		RETURNING `+creditColumns,
		tenantID, string(capability), remaining,
	)
	if err != nil {
		return nil, translate(err)
	}
	return row.balance(), nil
}
