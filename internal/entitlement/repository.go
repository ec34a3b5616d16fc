// Package entitlement stores the admin-managed allow-list that lifts the
// size-based retrieval limit for individual users.
package entitlement

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Entitlement is a presence-only grant for one user.
type Entitlement struct {
	UserID    int64
	GrantedAt time.Time
}

// Repository persists entitlements.
type Repository interface {
	Grant(ctx context.Context, userID int64) error
	Revoke(ctx context.Context, userID int64) error
	Has(ctx context.Context, userID int64) (bool, error)
	List(ctx context.Context) ([]Entitlement, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed entitlement repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Grant records the entitlement. Granting twice is a no-op.
func (r *PostgresRepository) Grant(ctx context.Context, userID int64) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO entitlements (user_id, granted_at) VALUES ($1, $2)
         ON CONFLICT (user_id) DO NOTHING`, userID, time.Now().UTC())
	return err
}

// Revoke removes the entitlement. Revoking an absent grant is a no-op.
func (r *PostgresRepository) Revoke(ctx context.Context, userID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM entitlements WHERE user_id = $1`, userID)
	return err
}

// Has reports whether the user holds an entitlement.
func (r *PostgresRepository) Has(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM entitlements WHERE user_id = $1)`, userID).Scan(&exists)
	return exists, err
}

// List returns all entitlements ordered by grant time.
func (r *PostgresRepository) List(ctx context.Context) ([]Entitlement, error) {
	rows, err := r.db.Query(ctx,
		`SELECT user_id, granted_at FROM entitlements ORDER BY granted_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entitlement
	for rows.Next() {
		var (
			e         Entitlement
			grantedAt time.Time
		)
		if err := rows.Scan(&e.UserID, &grantedAt); err != nil {
			return nil, err
		}
		e.GrantedAt = grantedAt.UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}
