package models

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthorizeRequest carries the query parameters of an authorization request.
// It is ephemeral and never persisted.
type AuthorizeRequest struct {
	ClientID     string `form:"client_id" validate:"required"`
	RedirectURI  string `form:"redirect_uri" validate:"required,url"`
	ResponseType string `form:"response_type" validate:"required"`
	Scope        string `form:"scope"`
	State        string `form:"state"`
	// Prompted marks the return leg of a login round trip so a missing
	// session becomes terminal instead of looping.
	Prompted bool `form:"prompted"`
}

// AuthorizeResult is the terminal state of a successful authorization:
// a redirect back to the client carrying the code.
type AuthorizeResult struct {
	RedirectURI string
	Code        string
	State       string
}

// TokenRequest carries the form-encoded body of a token exchange.
type TokenRequest struct {
	GrantType    string `form:"grant_type" validate:"required"`
	Code         string `form:"code"`
	RedirectURI  string `form:"redirect_uri"`
	RefreshToken string `form:"refresh_token"`
	Scope        string `form:"scope"`
	ClientID     string `form:"client_id"`
	ClientSecret string `form:"client_secret"`
}

// TokenResponse is the successful token endpoint payload, RFC 6749 §5.1.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// AuthorizationCode is a single-use credential exchanged for tokens.
// Consumption is a read-and-delete so a code can never be redeemed twice.
type AuthorizationCode struct {
	Code        string    `db:"code"`
	UserID      string    `db:"user_id"`
	Email       string    `db:"email"`
	ClientID    string    `db:"client_id"`
	RedirectURI string    `db:"redirect_uri"`
	Scope       string    `db:"scope"`
	CreatedAt   time.Time `db:"created_at"`
	ExpiresAt   time.Time `db:"expires_at"`
}

// RefreshToken is a persisted long-lived credential. A user+client pair may
// hold several at once; rotation revokes the used one and issues a fresh one.
type RefreshToken struct {
	ID         string     `db:"id"`
	Token      string     `db:"token"`
	UserID     string     `db:"user_id"`
	Email      string     `db:"email"`
	ClientID   string     `db:"client_id"`
	Scope      string     `db:"scope"`
	IssuedAt   time.Time  `db:"issued_at"`
	ExpiresAt  time.Time  `db:"expires_at"`
	LastUsedAt *time.Time `db:"last_used_at"`
	Revoked    bool       `db:"revoked"`
	RevokedAt  *time.Time `db:"revoked_at"`
}

// Client is immutable reference data describing a registered OAuth client.
type Client struct {
	ID              string
	Secret          string
	RedirectDomains []string
}

// Session is the identity resolved from the provider's session artifact.
type Session struct {
	UserID        string `json:"user_id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name,omitempty"`
}

// AccessClaims is the signed access token payload.
type AccessClaims struct {
	Scope string `json:"scope,omitempty"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// UserInfoResponse is the /userinfo payload.
type UserInfoResponse struct {
	Sub           string `json:"sub"`
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name,omitempty"`
	Scope         string `json:"scope,omitempty"`
}

// ProviderMetadata is the static discovery document.
type ProviderMetadata struct {
	Issuer                        string   `json:"issuer"`
	AuthorizationEndpoint         string   `json:"authorization_endpoint"`
	TokenEndpoint                 string   `json:"token_endpoint"`
	UserInfoEndpoint              string   `json:"userinfo_endpoint"`
	RevocationEndpoint            string   `json:"revocation_endpoint"`
	JWKSURI                       string   `json:"jwks_uri"`
	ResponseTypesSupported        []string `json:"response_types_supported"`
	GrantTypesSupported           []string `json:"grant_types_supported"`
	ScopesSupported               []string `json:"scopes_supported"`
	IDTokenSigningAlgsSupported   []string `json:"id_token_signing_alg_values_supported"`
	TokenEndpointAuthMethods      []string `json:"token_endpoint_auth_methods_supported"`
	CodeChallengeMethodsSupported []string `json:"code_challenge_methods_supported,omitempty"`
}

// SplitScope parses a space-delimited scope string.
func SplitScope(scope string) []string {
	return strings.Fields(scope)
}

// HasScope reports whether the space-delimited scope string contains s.
func HasScope(scope, s string) bool {
	for _, part := range strings.Fields(scope) {
		if part == s {
			return true
		}
	}
	return false
}
