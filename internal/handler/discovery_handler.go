package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/oauth-bridge/internal/models"
)

// DiscoveryHandler serves the static provider metadata and signing-key
// descriptions. No business logic: everything is derived from configuration.
type DiscoveryHandler struct {
	metadata models.ProviderMetadata
	keyID    string
}

// NewDiscoveryHandler builds the metadata document once at startup.
func NewDiscoveryHandler(issuer, keyID, defaultScope string) *DiscoveryHandler {
	issuer = strings.TrimRight(issuer, "/")
	return &DiscoveryHandler{
		keyID: keyID,
		metadata: models.ProviderMetadata{
			Issuer:                      issuer,
			AuthorizationEndpoint:       issuer + "/authorize",
			TokenEndpoint:               issuer + "/token",
			UserInfoEndpoint:            issuer + "/userinfo",
			RevocationEndpoint:          issuer + "/revoke",
			JWKSURI:                     issuer + "/jwks",
			ResponseTypesSupported:      []string{"code"},
			GrantTypesSupported:         []string{"authorization_code", "refresh_token"},
			ScopesSupported:             models.SplitScope(defaultScope),
			IDTokenSigningAlgsSupported: []string{"HS256"},
			TokenEndpointAuthMethods:    []string{"client_secret_post", "client_secret_basic"},
		},
	}
}

// Configuration godoc
// @Summary OpenID Connect discovery document
// @Tags Discovery
// @Produce json
// @Success 200 {object} models.ProviderMetadata
// @Router /.well-known/openid-configuration [get]
func (h *DiscoveryHandler) Configuration(c *gin.Context) {
	c.JSON(http.StatusOK, h.metadata)
}

// JWKS godoc
// @Summary Signing key metadata
// @Description Describes the signing key. The key is symmetric (HS256), so no key material is published.
// @Tags Discovery
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /jwks [get]
func (h *DiscoveryHandler) JWKS(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"keys": []gin.H{
			{
				"kid": h.keyID,
				"alg": "HS256",
				"kty": "oct",
				"use": "sig",
			},
		},
	})
}
