package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/oauth-bridge/internal/models"
	"github.com/noah-isme/oauth-bridge/internal/token"
	"github.com/noah-isme/oauth-bridge/pkg/oautherr"
)

const (
	grantAuthorizationCode = "authorization_code"
	grantRefreshToken      = "refresh_token"

	tokenTypeBearer = "Bearer"
)

type tokenCodeStore interface {
	Consume(ctx context.Context, code string) (*models.AuthorizationCode, error)
}

type refreshTokenStore interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	Find(ctx context.Context, token string) (*models.RefreshToken, error)
	Touch(ctx context.Context, id string, usedAt time.Time) error
	Revoke(ctx context.Context, id string, revokedAt time.Time) error
}

// TokenConfig defines configuration for token issuance.
type TokenConfig struct {
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// TokenService implements the token endpoint: grant dispatch, atomic code
// consumption and token issuance.
type TokenService struct {
	registry  *ClientRegistry
	codes     tokenCodeStore
	refresh   refreshTokenStore
	codec     *token.Codec
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
	config    TokenConfig
}

// NewTokenService constructs a TokenService instance.
func NewTokenService(registry *ClientRegistry, codes tokenCodeStore, refresh refreshTokenStore, codec *token.Codec, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService, config TokenConfig) *TokenService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &TokenService{
		registry:  registry,
		codes:     codes,
		refresh:   refresh,
		codec:     codec,
		validator: validate,
		logger:    logger,
		metrics:   metrics,
		config:    config,
	}
}

// Exchange dispatches on grant_type and returns a token response.
func (s *TokenService) Exchange(ctx context.Context, req models.TokenRequest) (*models.TokenResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, oautherr.Wrap(err, oautherr.ErrInvalidRequest.Code, oautherr.ErrInvalidRequest.Status, "grant_type is required")
	}

	switch req.GrantType {
	case grantAuthorizationCode:
		return s.exchangeCode(ctx, req)
	case grantRefreshToken:
		return s.exchangeRefreshToken(ctx, req)
	default:
		return nil, oautherr.WithDescription(oautherr.ErrUnsupportedGrantType, "grant_type must be authorization_code or refresh_token")
	}
}

// exchangeCode redeems an authorization code for an access + refresh token
// pair. The consume is the single source of truth: there is no separate
// lookup, so two concurrent exchanges of one code cannot both succeed.
func (s *TokenService) exchangeCode(ctx context.Context, req models.TokenRequest) (*models.TokenResponse, error) {
	if req.Code == "" || req.RedirectURI == "" || req.ClientID == "" {
		return nil, oautherr.WithDescription(oautherr.ErrInvalidRequest, "code, redirect_uri and client_id are required")
	}

	if err := s.registry.ValidateClient(req.ClientID, req.ClientSecret); err != nil {
		return nil, err
	}

	codeData, err := s.codes.Consume(ctx, req.Code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, oautherr.WithDescription(oautherr.ErrInvalidGrant, "authorization code is invalid, expired, or already used")
		}
		return nil, oautherr.Wrap(err, oautherr.ErrServerError.Code, oautherr.ErrServerError.Status, "failed to consume authorization code")
	}

	if codeData.ClientID != req.ClientID {
		return nil, oautherr.WithDescription(oautherr.ErrInvalidGrant, "authorization code was issued to a different client")
	}
	if codeData.RedirectURI != req.RedirectURI {
		return nil, oautherr.WithDescription(oautherr.ErrInvalidGrant, "Redirect URI mismatch")
	}

	return s.issueTokens(ctx, codeData.UserID, codeData.Email, req.ClientID, codeData.Scope, grantAuthorizationCode)
}

// exchangeRefreshToken rotates a refresh token: the presented token is
// revoked and a fresh pair is issued. Expired or revoked tokens surface as
// invalid_grant.
func (s *TokenService) exchangeRefreshToken(ctx context.Context, req models.TokenRequest) (*models.TokenResponse, error) {
	if req.RefreshToken == "" || req.ClientID == "" {
		return nil, oautherr.WithDescription(oautherr.ErrInvalidRequest, "refresh_token and client_id are required")
	}

	if err := s.registry.ValidateClient(req.ClientID, req.ClientSecret); err != nil {
		return nil, err
	}

	stored, err := s.refresh.Find(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, oautherr.WithDescription(oautherr.ErrInvalidGrant, "refresh token is invalid, expired, or revoked")
		}
		return nil, oautherr.Wrap(err, oautherr.ErrServerError.Code, oautherr.ErrServerError.Status, "failed to look up refresh token")
	}

	if stored.ClientID != req.ClientID {
		return nil, oautherr.WithDescription(oautherr.ErrInvalidGrant, "refresh token was issued to a different client")
	}

	scope := stored.Scope
	if req.Scope != "" {
		// Scope narrowing only; a refresh can never widen the grant.
		for _, requested := range models.SplitScope(req.Scope) {
			if !models.HasScope(stored.Scope, requested) {
				return nil, oautherr.WithDescription(oautherr.ErrInvalidGrant, "requested scope exceeds the original grant")
			}
		}
		scope = req.Scope
	}

	now := time.Now().UTC()
	if err := s.refresh.Touch(ctx, stored.ID, now); err != nil {
		s.logger.Warn("failed to record refresh token use", zap.Error(err))
	}
	if err := s.refresh.Revoke(ctx, stored.ID, now); err != nil {
		s.logger.Warn("failed to revoke rotated refresh token", zap.Error(err))
	}

	return s.issueTokens(ctx, stored.UserID, stored.Email, req.ClientID, scope, grantRefreshToken)
}

func (s *TokenService) issueTokens(ctx context.Context, userID, email, clientID, scope, grant string) (*models.TokenResponse, error) {
	now := time.Now().UTC()

	accessToken, _, err := s.codec.Sign(userID, email, clientID, scope, now)
	if err != nil {
		return nil, oautherr.Wrap(err, oautherr.ErrServerError.Code, oautherr.ErrServerError.Status, "failed to sign access token")
	}

	refreshValue, err := generateRefreshToken()
	if err != nil {
		return nil, oautherr.Wrap(err, oautherr.ErrServerError.Code, oautherr.ErrServerError.Status, "failed to generate refresh token")
	}

	// Email rides on the row so a rotated access token keeps the claim.
	if err := s.refresh.Create(ctx, &models.RefreshToken{
		Token:     refreshValue,
		UserID:    userID,
		Email:     email,
		ClientID:  clientID,
		Scope:     scope,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.config.RefreshTokenTTL),
	}); err != nil {
		return nil, oautherr.Wrap(err, oautherr.ErrServerError.Code, oautherr.ErrServerError.Status, "failed to persist refresh token")
	}

	if s.metrics != nil {
		s.metrics.TokenIssued(grant)
	}
	s.logger.Info("tokens issued",
		zap.String("client_id", clientID),
		zap.String("user_id", userID),
		zap.String("grant_type", grant),
	)

	return &models.TokenResponse{
		AccessToken:  accessToken,
		TokenType:    tokenTypeBearer,
		ExpiresIn:    int64(s.config.AccessTokenTTL.Seconds()),
		RefreshToken: refreshValue,
		Scope:        scope,
	}, nil
}

// generateRefreshToken produces a 40-byte random token, base64url encoded.
func generateRefreshToken() (string, error) {
	buf := make([]byte, 40)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
