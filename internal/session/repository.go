package session

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates no stored session exists for the user.
var ErrNotFound = errors.New("session not found")

// Repository persists user sessions. One live session per user id.
type Repository interface {
	Get(ctx context.Context, userID int64) (UserSession, error)
	Put(ctx context.Context, s UserSession) error
	Delete(ctx context.Context, userID int64) error
	Count(ctx context.Context) (int, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed session repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Get fetches the stored session for a user.
func (r *PostgresRepository) Get(ctx context.Context, userID int64) (UserSession, error) {
	row := r.db.QueryRow(ctx,
		`SELECT user_id, credential, updated_at FROM user_sessions WHERE user_id = $1`, userID)
	var (
		s         UserSession
		updatedAt time.Time
	)
	if err := row.Scan(&s.UserID, &s.Credential, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserSession{}, ErrNotFound
		}
		return UserSession{}, err
	}
	s.UpdatedAt = updatedAt.UTC()
	return s, nil
}

// Put upserts the session, overwriting any previous credential for the user.
func (r *PostgresRepository) Put(ctx context.Context, s UserSession) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO user_sessions (user_id, credential, updated_at)
         VALUES ($1, $2, $3)
         ON CONFLICT (user_id) DO UPDATE SET credential = $2, updated_at = $3`,
		s.UserID, s.Credential, s.UpdatedAt.UTC())
	return err
}

// Delete removes the stored session. Deleting an absent session is not an error.
func (r *PostgresRepository) Delete(ctx context.Context, userID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM user_sessions WHERE user_id = $1`, userID)
	return err
}

// Count returns the number of stored sessions.
func (r *PostgresRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM user_sessions`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
