package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/url"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/oauth-bridge/internal/models"
	"github.com/noah-isme/oauth-bridge/internal/upstream"
	"github.com/noah-isme/oauth-bridge/pkg/jobs"
	"github.com/noah-isme/oauth-bridge/pkg/oautherr"
)

const responseTypeCode = "code"

// codeCreationAttempts bounds retries on the (vanishingly unlikely) random
// code collision before giving up.
const codeCreationAttempts = 3

type authorizeCodeStore interface {
	Create(ctx context.Context, code *models.AuthorizationCode) error
}

// LoginRedirect tells the user agent to authenticate at the login surface
// and come back.
type LoginRedirect struct {
	URL string
}

// AuthorizeConfig defines configuration for the authorization flow.
type AuthorizeConfig struct {
	LoginURL     string
	DefaultScope string
	CodeTTL      time.Duration
}

// AuthorizeService orchestrates the authorization endpoint: request
// validation, session resolution, best-effort identity sync, code issuance.
type AuthorizeService struct {
	registry  *ClientRegistry
	codes     authorizeCodeStore
	resolver  upstream.SessionResolver
	syncQueue *jobs.Queue
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
	config    AuthorizeConfig
}

// NewAuthorizeService constructs an AuthorizeService instance. The sync queue
// and metrics are optional.
func NewAuthorizeService(registry *ClientRegistry, codes authorizeCodeStore, resolver upstream.SessionResolver, syncQueue *jobs.Queue, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService, config AuthorizeConfig) *AuthorizeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AuthorizeService{
		registry:  registry,
		codes:     codes,
		resolver:  resolver,
		syncQueue: syncQueue,
		validator: validate,
		logger:    logger,
		metrics:   metrics,
		config:    config,
	}
}

// Authorize runs the authorization state machine. It returns exactly one of:
// an AuthorizeResult (redirect back to the client with a code), a
// LoginRedirect (no session yet), or an error. Validation failures are
// returned as errors and never redirected, because the redirect target is
// unverified until validation passes.
func (s *AuthorizeService) Authorize(ctx context.Context, req models.AuthorizeRequest, artifact upstream.SessionArtifact, originalURL string) (*models.AuthorizeResult, *LoginRedirect, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, oautherr.Wrap(err, oautherr.ErrInvalidRequest.Code, oautherr.ErrInvalidRequest.Status, "client_id, redirect_uri and response_type are required")
	}
	if req.ResponseType != responseTypeCode {
		return nil, nil, oautherr.WithDescription(oautherr.ErrInvalidRequest, "response_type must be \"code\"")
	}
	// The authorize leg authenticates the user, not the client; only the
	// client id is checked here. The secret is verified at the token endpoint.
	if _, known := s.registry.Lookup(req.ClientID); !known {
		return nil, nil, oautherr.WithDescription(oautherr.ErrInvalidClient, "unknown client")
	}
	if err := s.registry.ValidateRedirectURI(req.ClientID, req.RedirectURI); err != nil {
		return nil, nil, err
	}

	session, err := s.resolver.Resolve(ctx, artifact)
	if err != nil {
		return nil, nil, oautherr.Wrap(err, oautherr.ErrServerError.Code, oautherr.ErrServerError.Status, "session resolution failed")
	}
	if session == nil {
		if req.Prompted {
			// Already went through the login surface once; do not loop.
			return nil, nil, oautherr.WithDescription(oautherr.ErrAccessDenied, "no authenticated session after login")
		}
		return nil, &LoginRedirect{URL: s.loginRedirectURL(originalURL)}, nil
	}

	s.enqueueIdentitySync(session)

	scope := req.Scope
	if scope == "" {
		scope = s.config.DefaultScope
	}

	code, err := s.issueCode(ctx, session, req.ClientID, req.RedirectURI, scope)
	if err != nil {
		return nil, nil, oautherr.Wrap(err, oautherr.ErrServerError.Code, oautherr.ErrServerError.Status, "failed to issue authorization code")
	}

	if s.metrics != nil {
		s.metrics.CodeIssued()
	}
	s.logger.Info("authorization code issued",
		zap.String("client_id", req.ClientID),
		zap.String("user_id", session.UserID),
	)

	return &models.AuthorizeResult{
		RedirectURI: req.RedirectURI,
		Code:        code,
		State:       req.State,
	}, nil, nil
}

func (s *AuthorizeService) issueCode(ctx context.Context, session *models.Session, clientID, redirectURI, scope string) (string, error) {
	now := time.Now().UTC()

	var lastErr error
	for attempt := 0; attempt < codeCreationAttempts; attempt++ {
		code, err := generateCode()
		if err != nil {
			return "", err
		}

		row := &models.AuthorizationCode{
			Code:        code,
			UserID:      session.UserID,
			Email:       session.Email,
			ClientID:    clientID,
			RedirectURI: redirectURI,
			Scope:       scope,
			CreatedAt:   now,
			ExpiresAt:   now.Add(s.config.CodeTTL),
		}
		if err := s.codes.Create(ctx, row); err != nil {
			lastErr = err
			continue
		}
		return code, nil
	}
	return "", fmt.Errorf("authorization code creation failed after %d attempts: %w", codeCreationAttempts, lastErr)
}

// enqueueIdentitySync fires the downstream identity notification without
// blocking or failing the flow.
func (s *AuthorizeService) enqueueIdentitySync(session *models.Session) {
	if s.syncQueue == nil {
		return
	}
	job := jobs.Job{
		ID:      uuid.NewString(),
		Type:    "identity-sync",
		Payload: models.Session{UserID: session.UserID, Email: session.Email},
	}
	if err := s.syncQueue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue identity sync", zap.Error(err), zap.String("user_id", session.UserID))
	}
}

func (s *AuthorizeService) loginRedirectURL(originalURL string) string {
	// The return target carries the full authorization URL plus a marker so
	// the retry is terminal rather than another login bounce.
	target := originalURL
	if u, err := url.Parse(originalURL); err == nil {
		q := u.Query()
		q.Set("prompted", "1")
		u.RawQuery = q.Encode()
		target = u.String()
	}

	login, err := url.Parse(s.config.LoginURL)
	if err != nil {
		return s.config.LoginURL
	}
	q := login.Query()
	q.Set("return_to", target)
	login.RawQuery = q.Encode()
	return login.String()
}

// generateCode produces a 32-byte random code, hex encoded (64 chars).
func generateCode() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// IdentitySyncHandler adapts an IdentityNotifier to the jobs queue.
func IdentitySyncHandler(notifier upstream.IdentityNotifier, logger *zap.Logger, metrics *MetricsService) jobs.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, job jobs.Job) error {
		session, ok := job.Payload.(models.Session)
		if !ok {
			logger.Warn("identity sync job with unexpected payload", zap.String("job_id", job.ID))
			return nil
		}
		if err := notifier.EnsureIdentity(ctx, session.UserID, session.Email); err != nil {
			if metrics != nil {
				metrics.SyncFailed()
			}
			logger.Warn("identity sync failed", zap.Error(err), zap.String("user_id", session.UserID))
			return err
		}
		return nil
	}
}
