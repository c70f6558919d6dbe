package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/oauth-bridge/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func TestCreateCode(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCodeRepository(db)

	mock.ExpectExec("INSERT INTO authorization_codes").WillReturnResult(sqlmock.NewResult(1, 1))

	now := time.Now().UTC()
	err := repo.Create(context.Background(), &models.AuthorizationCode{
		Code:        "abc123",
		UserID:      "u1",
		Email:       "user@example.com",
		ClientID:    "demo",
		RedirectURI: "https://client.example/cb",
		Scope:       "openid email profile",
		CreatedAt:   now,
		ExpiresAt:   now.Add(10 * time.Minute),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConsumeCode(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCodeRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"code", "user_id", "email", "client_id", "redirect_uri", "scope", "created_at", "expires_at"}).
		AddRow("abc123", "u1", "user@example.com", "demo", "https://client.example/cb", "openid email profile", now, now.Add(10*time.Minute))
	mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM authorization_codes WHERE code = $1 AND expires_at > $2 RETURNING code, user_id, email, client_id, redirect_uri, scope, created_at, expires_at")).
		WithArgs("abc123", sqlmock.AnyArg()).
		WillReturnRows(rows)

	code, err := repo.Consume(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, "u1", code.UserID)
	assert.Equal(t, "https://client.example/cb", code.RedirectURI)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConsumeCodeGone(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCodeRepository(db)

	mock.ExpectQuery("DELETE FROM authorization_codes").
		WithArgs("missing", sqlmock.AnyArg()).
		WillReturnError(sql.ErrNoRows)

	code, err := repo.Consume(context.Background(), "missing")
	require.ErrorIs(t, err, sql.ErrNoRows)
	assert.Nil(t, code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteExpiredCodes(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCodeRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM authorization_codes WHERE expires_at <= $1")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.DeleteExpired(context.Background(), time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteExpiredCodesCountFailure(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCodeRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM authorization_codes WHERE expires_at <= $1")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewErrorResult(errors.New("rows affected unsupported")))

	_, err := repo.DeleteExpired(context.Background(), time.Now().UTC())
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
