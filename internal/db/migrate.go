package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaMigration = `
CREATE TABLE IF NOT EXISTS user_sessions (
    user_id bigint PRIMARY KEY,
    credential bytea NOT NULL,
    updated_at timestamptz NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS entitlements (
    user_id bigint PRIMARY KEY,
    granted_at timestamptz NOT NULL DEFAULT NOW()
);
`

// Migrate applies the schema. All statements are idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schemaMigration)
	return err
}
