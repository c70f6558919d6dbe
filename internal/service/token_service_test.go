package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/oauth-bridge/internal/models"
	"github.com/noah-isme/oauth-bridge/internal/token"
	"github.com/noah-isme/oauth-bridge/pkg/oautherr"
)

type mockTokenCodeStore struct {
	code       *models.AuthorizationCode
	consumeErr error
	consumed   []string
}

func (m *mockTokenCodeStore) Consume(ctx context.Context, code string) (*models.AuthorizationCode, error) {
	m.consumed = append(m.consumed, code)
	if m.consumeErr != nil {
		return nil, m.consumeErr
	}
	return m.code, nil
}

type mockRefreshStore struct {
	stored  *models.RefreshToken
	findErr error

	created []*models.RefreshToken
	touched []string
	revoked []string
}

func (m *mockRefreshStore) Create(ctx context.Context, tok *models.RefreshToken) error {
	m.created = append(m.created, tok)
	return nil
}

func (m *mockRefreshStore) Find(ctx context.Context, tok string) (*models.RefreshToken, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.stored, nil
}

func (m *mockRefreshStore) Touch(ctx context.Context, id string, usedAt time.Time) error {
	m.touched = append(m.touched, id)
	return nil
}

func (m *mockRefreshStore) Revoke(ctx context.Context, id string, revokedAt time.Time) error {
	m.revoked = append(m.revoked, id)
	return nil
}

func newTokenService(codes tokenCodeStore, refresh *mockRefreshStore) *TokenService {
	registry := NewClientRegistry(models.Client{ID: "demo", Secret: "s3cret", RedirectDomains: []string{"client.example"}})
	codec := token.NewCodec(token.CodecConfig{
		Secret: "test-secret",
		KeyID:  "bridge-1",
		Issuer: "https://bridge.example",
		TTL:    time.Hour,
	})
	return NewTokenService(registry, codes, refresh, codec, nil, nil, nil, TokenConfig{
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 720 * time.Hour,
	})
}

func validCodeRow() *models.AuthorizationCode {
	now := time.Now().UTC()
	return &models.AuthorizationCode{
		Code:        "abc123",
		UserID:      "u1",
		Email:       "user@example.com",
		ClientID:    "demo",
		RedirectURI: "https://client.example/cb",
		Scope:       "openid email",
		CreatedAt:   now,
		ExpiresAt:   now.Add(10 * time.Minute),
	}
}

func TestExchangeCode(t *testing.T) {
	codes := &mockTokenCodeStore{code: validCodeRow()}
	refresh := &mockRefreshStore{}
	svc := newTokenService(codes, refresh)

	resp, err := svc.Exchange(context.Background(), models.TokenRequest{
		GrantType:    "authorization_code",
		Code:         "abc123",
		RedirectURI:  "https://client.example/cb",
		ClientID:     "demo",
		ClientSecret: "s3cret",
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, "openid email", resp.Scope)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)

	codec := token.NewCodec(token.CodecConfig{Secret: "test-secret", Issuer: "https://bridge.example", TTL: time.Hour})
	claims, err := codec.Verify(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, "openid email", claims.Scope)

	assert.Equal(t, []string{"abc123"}, codes.consumed)
	require.Len(t, refresh.created, 1)
	assert.Equal(t, resp.RefreshToken, refresh.created[0].Token)
	assert.Equal(t, "demo", refresh.created[0].ClientID)
	assert.Equal(t, "user@example.com", refresh.created[0].Email)
}

// contendedCodeStore hands the row to exactly one caller; everybody else sees
// the code as already gone, the way a DELETE ... RETURNING behaves.
type contendedCodeStore struct {
	row *models.AuthorizationCode
	won atomic.Bool
}

func (s *contendedCodeStore) Consume(ctx context.Context, code string) (*models.AuthorizationCode, error) {
	if s.won.CompareAndSwap(false, true) {
		return s.row, nil
	}
	return nil, sql.ErrNoRows
}

func TestExchangeCodeConcurrentSingleWinner(t *testing.T) {
	codes := &contendedCodeStore{row: validCodeRow()}
	refresh := &mockRefreshStore{}
	svc := newTokenService(codes, refresh)

	req := models.TokenRequest{
		GrantType:    "authorization_code",
		Code:         "abc123",
		RedirectURI:  "https://client.example/cb",
		ClientID:     "demo",
		ClientSecret: "s3cret",
	}

	const callers = 8
	var wg sync.WaitGroup
	var successes, invalidGrants atomic.Int64
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Exchange(context.Background(), req)
			if err == nil {
				successes.Add(1)
				return
			}
			if oautherr.From(err).Code == oautherr.ErrInvalidGrant.Code {
				invalidGrants.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), successes.Load(), "exactly one exchange may redeem the code")
	assert.Equal(t, int64(callers-1), invalidGrants.Load())
}

func TestExchangeUnsupportedGrant(t *testing.T) {
	svc := newTokenService(&mockTokenCodeStore{}, &mockRefreshStore{})

	_, err := svc.Exchange(context.Background(), models.TokenRequest{GrantType: "password"})
	require.Error(t, err)
	assert.Equal(t, oautherr.ErrUnsupportedGrantType.Code, oautherr.From(err).Code)
}

func TestExchangeMissingGrantType(t *testing.T) {
	svc := newTokenService(&mockTokenCodeStore{}, &mockRefreshStore{})

	_, err := svc.Exchange(context.Background(), models.TokenRequest{Code: "abc123"})
	require.Error(t, err)
	assert.Equal(t, oautherr.ErrInvalidRequest.Code, oautherr.From(err).Code)
}

func TestExchangeCodeMissingParams(t *testing.T) {
	svc := newTokenService(&mockTokenCodeStore{}, &mockRefreshStore{})

	_, err := svc.Exchange(context.Background(), models.TokenRequest{
		GrantType: "authorization_code",
		Code:      "abc123",
		ClientID:  "demo",
	})
	require.Error(t, err)
	assert.Equal(t, oautherr.ErrInvalidRequest.Code, oautherr.From(err).Code)
}

func TestExchangeCodeBadClientSecret(t *testing.T) {
	codes := &mockTokenCodeStore{code: validCodeRow()}
	svc := newTokenService(codes, &mockRefreshStore{})

	_, err := svc.Exchange(context.Background(), models.TokenRequest{
		GrantType:    "authorization_code",
		Code:         "abc123",
		RedirectURI:  "https://client.example/cb",
		ClientID:     "demo",
		ClientSecret: "wrong",
	})
	require.Error(t, err)
	assert.Equal(t, oautherr.ErrInvalidClient.Code, oautherr.From(err).Code)
	assert.Empty(t, codes.consumed, "code must not be consumed before client auth succeeds")
}

func TestExchangeCodeAlreadyUsed(t *testing.T) {
	codes := &mockTokenCodeStore{consumeErr: sql.ErrNoRows}
	svc := newTokenService(codes, &mockRefreshStore{})

	_, err := svc.Exchange(context.Background(), models.TokenRequest{
		GrantType:    "authorization_code",
		Code:         "abc123",
		RedirectURI:  "https://client.example/cb",
		ClientID:     "demo",
		ClientSecret: "s3cret",
	})
	require.Error(t, err)
	protoErr := oautherr.From(err)
	assert.Equal(t, oautherr.ErrInvalidGrant.Code, protoErr.Code)
	assert.Equal(t, "authorization code is invalid, expired, or already used", protoErr.Description)
}

func TestExchangeCodeRedirectMismatch(t *testing.T) {
	codes := &mockTokenCodeStore{code: validCodeRow()}
	svc := newTokenService(codes, &mockRefreshStore{})

	_, err := svc.Exchange(context.Background(), models.TokenRequest{
		GrantType:    "authorization_code",
		Code:         "abc123",
		RedirectURI:  "https://client.example/other",
		ClientID:     "demo",
		ClientSecret: "s3cret",
	})
	require.Error(t, err)
	protoErr := oautherr.From(err)
	assert.Equal(t, oautherr.ErrInvalidGrant.Code, protoErr.Code)
	assert.Equal(t, "Redirect URI mismatch", protoErr.Description)
}

func TestExchangeCodeClientMismatch(t *testing.T) {
	row := validCodeRow()
	row.ClientID = "other-client"
	svc := newTokenService(&mockTokenCodeStore{code: row}, &mockRefreshStore{})

	_, err := svc.Exchange(context.Background(), models.TokenRequest{
		GrantType:    "authorization_code",
		Code:         "abc123",
		RedirectURI:  "https://client.example/cb",
		ClientID:     "demo",
		ClientSecret: "s3cret",
	})
	require.Error(t, err)
	assert.Equal(t, oautherr.ErrInvalidGrant.Code, oautherr.From(err).Code)
}

func validRefreshRow() *models.RefreshToken {
	now := time.Now().UTC()
	return &models.RefreshToken{
		ID:        "rt-1",
		Token:     "stored-refresh",
		UserID:    "u1",
		Email:     "user@example.com",
		ClientID:  "demo",
		Scope:     "openid email",
		IssuedAt:  now.Add(-time.Hour),
		ExpiresAt: now.Add(24 * time.Hour),
	}
}

func TestExchangeRefreshTokenRotates(t *testing.T) {
	refresh := &mockRefreshStore{stored: validRefreshRow()}
	svc := newTokenService(&mockTokenCodeStore{}, refresh)

	resp, err := svc.Exchange(context.Background(), models.TokenRequest{
		GrantType:    "refresh_token",
		RefreshToken: "stored-refresh",
		ClientID:     "demo",
		ClientSecret: "s3cret",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEqual(t, "stored-refresh", resp.RefreshToken)
	assert.Equal(t, "openid email", resp.Scope)

	assert.Equal(t, []string{"rt-1"}, refresh.touched)
	assert.Equal(t, []string{"rt-1"}, refresh.revoked)
	require.Len(t, refresh.created, 1)
	assert.Equal(t, resp.RefreshToken, refresh.created[0].Token)
}

func TestExchangeRefreshTokenPreservesEmail(t *testing.T) {
	refresh := &mockRefreshStore{stored: validRefreshRow()}
	svc := newTokenService(&mockTokenCodeStore{}, refresh)

	resp, err := svc.Exchange(context.Background(), models.TokenRequest{
		GrantType:    "refresh_token",
		RefreshToken: "stored-refresh",
		ClientID:     "demo",
		ClientSecret: "s3cret",
	})
	require.NoError(t, err)

	codec := token.NewCodec(token.CodecConfig{Secret: "test-secret", Issuer: "https://bridge.example", TTL: time.Hour})
	claims, err := codec.Verify(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", claims.Email)

	require.Len(t, refresh.created, 1)
	assert.Equal(t, "user@example.com", refresh.created[0].Email, "rotation must carry the email onto the new row")
}

func TestExchangeRefreshTokenNarrowsScope(t *testing.T) {
	refresh := &mockRefreshStore{stored: validRefreshRow()}
	svc := newTokenService(&mockTokenCodeStore{}, refresh)

	resp, err := svc.Exchange(context.Background(), models.TokenRequest{
		GrantType:    "refresh_token",
		RefreshToken: "stored-refresh",
		ClientID:     "demo",
		ClientSecret: "s3cret",
		Scope:        "openid",
	})
	require.NoError(t, err)
	assert.Equal(t, "openid", resp.Scope)
}

func TestExchangeRefreshTokenRejectsWiderScope(t *testing.T) {
	refresh := &mockRefreshStore{stored: validRefreshRow()}
	svc := newTokenService(&mockTokenCodeStore{}, refresh)

	_, err := svc.Exchange(context.Background(), models.TokenRequest{
		GrantType:    "refresh_token",
		RefreshToken: "stored-refresh",
		ClientID:     "demo",
		ClientSecret: "s3cret",
		Scope:        "openid email admin",
	})
	require.Error(t, err)
	assert.Equal(t, oautherr.ErrInvalidGrant.Code, oautherr.From(err).Code)
	assert.Empty(t, refresh.created)
}

func TestExchangeRefreshTokenUnknown(t *testing.T) {
	refresh := &mockRefreshStore{findErr: sql.ErrNoRows}
	svc := newTokenService(&mockTokenCodeStore{}, refresh)

	_, err := svc.Exchange(context.Background(), models.TokenRequest{
		GrantType:    "refresh_token",
		RefreshToken: "gone",
		ClientID:     "demo",
		ClientSecret: "s3cret",
	})
	require.Error(t, err)
	assert.Equal(t, oautherr.ErrInvalidGrant.Code, oautherr.From(err).Code)
}

func TestExchangeRefreshTokenClientMismatch(t *testing.T) {
	row := validRefreshRow()
	row.ClientID = "other-client"
	refresh := &mockRefreshStore{stored: row}
	svc := newTokenService(&mockTokenCodeStore{}, refresh)

	_, err := svc.Exchange(context.Background(), models.TokenRequest{
		GrantType:    "refresh_token",
		RefreshToken: "stored-refresh",
		ClientID:     "demo",
		ClientSecret: "s3cret",
	})
	require.Error(t, err)
	assert.Equal(t, oautherr.ErrInvalidGrant.Code, oautherr.From(err).Code)
	assert.Empty(t, refresh.revoked, "token issued to another client must not be rotated")
}

func TestExchangeRefreshTokenStoreFailure(t *testing.T) {
	refresh := &mockRefreshStore{findErr: errors.New("connection reset")}
	svc := newTokenService(&mockTokenCodeStore{}, refresh)

	_, err := svc.Exchange(context.Background(), models.TokenRequest{
		GrantType:    "refresh_token",
		RefreshToken: "stored-refresh",
		ClientID:     "demo",
		ClientSecret: "s3cret",
	})
	require.Error(t, err)
	assert.Equal(t, oautherr.ErrServerError.Code, oautherr.From(err).Code)
}
