package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/oauth-bridge/internal/models"
)

// CodeRepository provides database access for authorization codes.
type CodeRepository struct {
	db *sqlx.DB
}

// NewCodeRepository creates a new instance of CodeRepository.
func NewCodeRepository(db *sqlx.DB) *CodeRepository {
	return &CodeRepository{db: db}
}

// Create inserts an authorization code row. A primary-key collision surfaces
// as an error; callers must retry with a fresh random code.
func (r *CodeRepository) Create(ctx context.Context, code *models.AuthorizationCode) error {
	if code.CreatedAt.IsZero() {
		code.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO authorization_codes (code, user_id, email, client_id, redirect_uri, scope, created_at, expires_at) VALUES (:code, :user_id, :email, :client_id, :redirect_uri, :scope, :created_at, :expires_at)`
	if _, err := r.db.NamedExecContext(ctx, query, code); err != nil {
		return fmt.Errorf("create authorization code: %w", err)
	}
	return nil
}

// Consume atomically deletes and returns an unexpired code in a single
// statement. Two concurrent calls for the same code cannot both succeed:
// exactly one observes the row, the other gets sql.ErrNoRows. Expired rows
// are filtered by the predicate, so correctness never depends on the sweep.
func (r *CodeRepository) Consume(ctx context.Context, code string) (*models.AuthorizationCode, error) {
	const query = `DELETE FROM authorization_codes WHERE code = $1 AND expires_at > $2 RETURNING code, user_id, email, client_id, redirect_uri, scope, created_at, expires_at`
	var row models.AuthorizationCode
	if err := r.db.GetContext(ctx, &row, query, code, time.Now().UTC()); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("consume authorization code: %w", err)
	}
	return &row, nil
}

// DeleteExpired removes codes past their expiry. Opportunistic garbage
// collection only.
func (r *CodeRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM authorization_codes WHERE expires_at <= $1`
	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired authorization codes: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count swept authorization codes: %w", err)
	}
	return n, nil
}
