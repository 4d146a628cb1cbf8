package blob

import (
	"context"

	"useeio/internal/infra/blob/sqldb"
)

// NewSQLite opens a SQLite-backed blob.Store at path.
func NewSQLite(ctx context.Context, path string) (Store, error) {
	return sqldb.OpenSQLite(ctx, path)
}

// NewPostgres opens a PostgreSQL-backed blob.Store.
func NewPostgres(ctx context.Context, dsn string) (Store, error) {
	return sqldb.OpenPostgres(ctx, dsn)
}
