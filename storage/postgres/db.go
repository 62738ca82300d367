package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/poiesic/brandmem/storage"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Open connects to Postgres through lib/pq and verifies the connection.
func Open(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return db, nil
}

// Migrate applies every pending schema migration.
func Migrate(db *sqlx.DB) error {
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}

	driver, err := migratepg.WithInstance(db.DB, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("failed to create postgres driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	err = migrator.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		slog.Default().With("component", "postgres").Debug("schema up to date")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migration error: %w", err)
	}
	return nil
}

// NewStores creates every repository on db. Closing the returned Stores closes db.
func NewStores(db *sqlx.DB) *storage.Stores {
	return &storage.Stores{
		Memories:  NewMemoryRepository(db),
		Credits:   NewCreditRepository(db),
		Brands:    NewBrandRepository(db),
		Artifacts: NewArtifactRepository(db),
		Closer:    db.Close,
	}
}

// OpenStores connects, migrates and creates the repositories.
func OpenStores(ctx context.Context, dsn string) (*storage.Stores, error) {
	db, err := Open(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return NewStores(db), nil
}

// withTx runs fn in a transaction, committing on success and rolling back on error.
func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return translate(err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", storage.ErrTransactionFailed, translate(err))
	}
	return nil
}

// Postgres error codes mapped onto storage errors.
const (
	codeForeignKeyViolation = "23503"
	codeUniqueViolation     = "23505"
	codeSerializationFail   = "40001"
)

// translate maps driver errors onto the storage error set.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	if errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%w: %w", storage.ErrStorageClosed, err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeForeignKeyViolation:
			return fmt.Errorf("%w: %s", storage.ErrForeignKeyViolation, pqErr.Message)
		case codeUniqueViolation:
			return fmt.Errorf("%w: %s", storage.ErrDuplicateKey, pqErr.Message)
		case codeSerializationFail:
			return fmt.Errorf("%w: %s", storage.ErrTransactionFailed, pqErr.Message)
		}
	}
	return err
}
