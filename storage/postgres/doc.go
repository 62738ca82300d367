// Package postgres implements the storage repositories on Postgres with the
// pgvector extension.
//
// Similarity search runs in the database using the cosine distance operator.
// Credit decrements are a single conditional UPDATE, so the balance can never
// drop below zero no matter how many callers race. Schema migrations are
// embedded and applied with Migrate.
//
//	db, err := postgres.Open(ctx, "postgres://localhost/brandmem?sslmode=disable")
//	if err != nil {
//	    return err
//	}
//	if err := postgres.Migrate(db); err != nil {
//	    return err
//	}
//	stores := postgres.NewStores(db)
//	defer stores.Close()
package postgres
