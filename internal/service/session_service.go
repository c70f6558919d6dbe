package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/oauth-bridge/internal/models"
	"github.com/noah-isme/oauth-bridge/internal/token"
	"github.com/noah-isme/oauth-bridge/internal/upstream"
	"github.com/noah-isme/oauth-bridge/pkg/oautherr"
)

type revocationStore interface {
	Revoke(ctx context.Context, token string, ttl time.Duration) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

type refreshRevoker interface {
	RevokeForUserClient(ctx context.Context, userID, clientID string, revokedAt time.Time) error
}

// SessionService verifies presented access tokens for the userinfo endpoint
// and handles explicit revocation.
type SessionService struct {
	codec    *token.Codec
	revoked  revocationStore
	refresh  refreshRevoker
	resolver upstream.SessionResolver
	logger   *zap.Logger
	metrics  *MetricsService
}

// NewSessionService constructs a SessionService instance. The resolver is
// optional; when present it enriches userinfo responses from the provider.
func NewSessionService(codec *token.Codec, revoked revocationStore, refresh refreshRevoker, resolver upstream.SessionResolver, logger *zap.Logger, metrics *MetricsService) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{codec: codec, revoked: revoked, refresh: refresh, resolver: resolver, logger: logger, metrics: metrics}
}

// UserInfo validates a bearer token and returns claims about its subject.
// The revocation check runs first and fails closed: an unreachable revoked
// set yields server_error, never a silently accepted token.
func (s *SessionService) UserInfo(ctx context.Context, rawToken string, artifact upstream.SessionArtifact) (*models.UserInfoResponse, error) {
	revoked, err := s.revoked.IsRevoked(ctx, rawToken)
	if err != nil {
		return nil, oautherr.Wrap(err, oautherr.ErrServerError.Code, oautherr.ErrServerError.Status, "revocation check unavailable")
	}
	if revoked {
		return nil, oautherr.WithDescription(oautherr.ErrInvalidToken, "token has been revoked")
	}

	claims, err := s.codec.Verify(rawToken)
	if err != nil {
		return nil, err
	}

	info := &models.UserInfoResponse{
		Sub:           claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.Email != "",
		Scope:         claims.Scope,
	}
	s.enrich(ctx, info, artifact)
	return info, nil
}

// enrich fills in provider-held claims when the request also carried a live
// session. Best effort: any failure leaves the token-derived claims as-is.
func (s *SessionService) enrich(ctx context.Context, info *models.UserInfoResponse, artifact upstream.SessionArtifact) {
	if s.resolver == nil || artifact.Empty() {
		return
	}
	session, err := s.resolver.Resolve(ctx, artifact)
	if err != nil {
		s.logger.Debug("userinfo enrichment skipped", zap.Error(err), zap.String("sub", info.Sub))
		return
	}
	if session == nil || session.UserID != info.Sub {
		return
	}
	info.Name = session.Name
	info.EmailVerified = session.EmailVerified
	if session.Email != "" {
		info.Email = session.Email
	}
}

// Revoke invalidates an access token ahead of its natural expiry and revokes
// the subject's refresh tokens for the audience client. Tokens that no
// longer verify have nothing left to revoke, so they succeed trivially
// (RFC 7009 §2.2).
func (s *SessionService) Revoke(ctx context.Context, rawToken string) error {
	claims, err := s.codec.Verify(rawToken)
	if err != nil {
		return nil
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if err := s.revoked.Revoke(ctx, rawToken, ttl); err != nil {
		return oautherr.Wrap(err, oautherr.ErrServerError.Code, oautherr.ErrServerError.Status, "failed to record revocation")
	}

	clientID := ""
	if len(claims.Audience) > 0 {
		clientID = claims.Audience[0]
	}
	if clientID != "" {
		if err := s.refresh.RevokeForUserClient(ctx, claims.Subject, clientID, time.Now().UTC()); err != nil {
			s.logger.Warn("failed to revoke refresh tokens", zap.Error(err), zap.String("user_id", claims.Subject))
		}
	}

	if s.metrics != nil {
		s.metrics.TokenRevoked()
	}
	s.logger.Info("access token revoked", zap.String("user_id", claims.Subject), zap.String("client_id", clientID))
	return nil
}
