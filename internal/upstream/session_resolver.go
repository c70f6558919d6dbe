package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/noah-isme/oauth-bridge/internal/models"
)

// SessionCookieName is the identity provider's session cookie.
const SessionCookieName = "bridge_session"

// SessionArtifact carries whatever session credential arrived on the inbound
// request: a cookie value, a bearer token, or neither.
type SessionArtifact struct {
	Cookie string
	Bearer string
}

// Empty reports whether the request carried no session credential at all.
func (a SessionArtifact) Empty() bool {
	return a.Cookie == "" && a.Bearer == ""
}

// SessionResolver resolves an inbound session artifact to an authenticated
// identity. A nil session with a nil error means "no live session".
type SessionResolver interface {
	Resolve(ctx context.Context, artifact SessionArtifact) (*models.Session, error)
}

// HTTPSessionResolver asks the identity provider's session endpoint.
type HTTPSessionResolver struct {
	url    string
	client *http.Client
}

// NewHTTPSessionResolver builds a resolver with a short timeout; session
// lookups sit on the authorize hot path.
func NewHTTPSessionResolver(url string, timeout time.Duration) *HTTPSessionResolver {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPSessionResolver{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Resolve forwards the session artifact to the provider. The bearer header is
// preferred when both are present.
func (r *HTTPSessionResolver) Resolve(ctx context.Context, artifact SessionArtifact) (*models.Session, error) {
	if artifact.Empty() {
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build session request: %w", err)
	}
	if artifact.Bearer != "" {
		req.Header.Set("Authorization", "Bearer "+artifact.Bearer)
	} else {
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: artifact.Cookie})
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("resolve session: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusNotFound:
		return nil, nil
	default:
		return nil, fmt.Errorf("resolve session: unexpected status %d", resp.StatusCode)
	}

	var session models.Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("decode session payload: %w", err)
	}
	if session.UserID == "" {
		return nil, nil
	}
	return &session, nil
}

// ArtifactFromRequest extracts the session artifact from an inbound request.
func ArtifactFromRequest(req *http.Request) SessionArtifact {
	artifact := SessionArtifact{}
	if cookie, err := req.Cookie(SessionCookieName); err == nil {
		artifact.Cookie = cookie.Value
	}
	if auth := req.Header.Get("Authorization"); auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			artifact.Bearer = parts[1]
		}
	}
	return artifact
}
