package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/oauth-bridge/internal/models"
	"github.com/noah-isme/oauth-bridge/pkg/oautherr"
)

// CodecConfig configures access token signing and verification.
type CodecConfig struct {
	Secret   string
	KeyID    string
	Issuer   string
	Audience string
	TTL      time.Duration
	Leeway   time.Duration
}

// Codec signs and verifies compact access tokens with a shared HS256 secret.
// It is pure: validity is determined entirely by signature and claims.
type Codec struct {
	config CodecConfig
}

// NewCodec constructs a Codec. Leeway defaults to a few seconds of clock skew.
func NewCodec(config CodecConfig) *Codec {
	if config.Leeway <= 0 {
		config.Leeway = 5 * time.Second
	}
	return &Codec{config: config}
}

// Sign mints an access token for the given subject, audience and scope.
func (c *Codec) Sign(userID, email, audience, scope string, issuedAt time.Time) (string, time.Time, error) {
	expiresAt := issuedAt.Add(c.config.TTL)
	claims := &models.AccessClaims{
		Scope: scope,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.config.Issuer,
			Subject:   userID,
			Audience:  jwt.ClaimStrings{audience},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tok.Header["kid"] = c.config.KeyID

	signed, err := tok.SignedString([]byte(c.config.Secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify parses and validates an access token, returning its claims.
// Signature, issuer, expiry and (when configured) audience all fail closed.
func (c *Codec) Verify(raw string) (*models.AccessClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithLeeway(c.config.Leeway),
		jwt.WithIssuer(c.config.Issuer),
		jwt.WithExpirationRequired(),
	}
	if c.config.Audience != "" {
		opts = append(opts, jwt.WithAudience(c.config.Audience))
	}

	tok, err := jwt.ParseWithClaims(raw, &models.AccessClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(c.config.Secret), nil
	}, opts...)
	if err != nil {
		return nil, oautherr.Wrap(err, oautherr.ErrInvalidToken.Code, oautherr.ErrInvalidToken.Status, "token verification failed")
	}

	claims, ok := tok.Claims.(*models.AccessClaims)
	if !ok || !tok.Valid {
		return nil, oautherr.WithDescription(oautherr.ErrInvalidToken, "invalid token claims")
	}

	return claims, nil
}
