package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/oauth-bridge/internal/models"
)

// TokenRepository provides database access for refresh tokens.
type TokenRepository struct {
	db *sqlx.DB
}

// NewTokenRepository creates a new instance of TokenRepository.
func NewTokenRepository(db *sqlx.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// Create persists a refresh token entry.
func (r *TokenRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	if token.IssuedAt.IsZero() {
		token.IssuedAt = time.Now().UTC()
	}
	const query = `INSERT INTO refresh_tokens (id, token, user_id, email, client_id, scope, issued_at, expires_at, last_used_at, revoked, revoked_at) VALUES (:id, :token, :user_id, :email, :client_id, :scope, :issued_at, :expires_at, :last_used_at, :revoked, :revoked_at)`
	if _, err := r.db.NamedExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

// Find returns a live refresh token by token string. Expired or revoked rows
// are treated as not found at the query level, even before the sweep removes
// them.
func (r *TokenRepository) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	const query = `SELECT id, token, user_id, email, client_id, scope, issued_at, expires_at, last_used_at, revoked, revoked_at FROM refresh_tokens WHERE token = $1 AND revoked = FALSE AND expires_at > $2 LIMIT 1`
	var rt models.RefreshToken
	if err := r.db.GetContext(ctx, &rt, query, token, time.Now().UTC()); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	return &rt, nil
}

// Touch records a use of the token.
func (r *TokenRepository) Touch(ctx context.Context, id string, usedAt time.Time) error {
	const query = `UPDATE refresh_tokens SET last_used_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, usedAt); err != nil {
		return fmt.Errorf("touch refresh token: %w", err)
	}
	return nil
}

// Revoke marks a single token as revoked.
func (r *TokenRepository) Revoke(ctx context.Context, id string, revokedAt time.Time) error {
	const query = `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, revokedAt); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// RevokeForUserClient revokes every live token the user holds for a client.
func (r *TokenRepository) RevokeForUserClient(ctx context.Context, userID, clientID string, revokedAt time.Time) error {
	const query = `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $3 WHERE user_id = $1 AND client_id = $2 AND revoked = FALSE`
	if _, err := r.db.ExecContext(ctx, query, userID, clientID, revokedAt); err != nil {
		return fmt.Errorf("revoke user refresh tokens: %w", err)
	}
	return nil
}

// DeleteExpired removes tokens past their expiry.
func (r *TokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM refresh_tokens WHERE expires_at <= $1`
	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired refresh tokens: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count swept refresh tokens: %w", err)
	}
	return n, nil
}
