package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/oauth-bridge/internal/models"
	"github.com/noah-isme/oauth-bridge/pkg/oautherr"
)

func TestValidateClientPlainSecret(t *testing.T) {
	registry := NewClientRegistry(models.Client{ID: "demo", Secret: "s3cret"})

	require.NoError(t, registry.ValidateClient("demo", "s3cret"))

	err := registry.ValidateClient("demo", "wrong")
	require.Error(t, err)
	assert.Equal(t, oautherr.ErrInvalidClient.Code, oautherr.From(err).Code)
}

func TestValidateClientBcryptSecret(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	registry := NewClientRegistry(models.Client{ID: "demo", Secret: string(hash)})

	require.NoError(t, registry.ValidateClient("demo", "s3cret"))
	require.Error(t, registry.ValidateClient("demo", "wrong"))
}

func TestValidateClientNoSecretConfigured(t *testing.T) {
	registry := NewClientRegistry(models.Client{ID: "demo"})

	// No registered secret means the check is skipped entirely.
	require.NoError(t, registry.ValidateClient("demo", ""))
	require.NoError(t, registry.ValidateClient("demo", "anything"))
}

func TestValidateClientUnknown(t *testing.T) {
	registry := NewClientRegistry(models.Client{ID: "demo"})

	err := registry.ValidateClient("ghost", "")
	require.Error(t, err)
	assert.Equal(t, oautherr.ErrInvalidClient.Code, oautherr.From(err).Code)
}

func TestValidateRedirectURI(t *testing.T) {
	registry := NewClientRegistry(models.Client{
		ID:              "demo",
		RedirectDomains: []string{"client.example", "localhost:3000"},
	})

	require.NoError(t, registry.ValidateRedirectURI("demo", "https://client.example/cb"))
	require.NoError(t, registry.ValidateRedirectURI("demo", "https://client.example:8443/cb"))
	require.NoError(t, registry.ValidateRedirectURI("demo", "http://localhost:3000/cb"))

	cases := map[string]string{
		"unlisted host":      "https://evil.example/cb",
		"subdomain trick":    "https://client.example.evil.example/cb",
		"wrong port for pin": "http://localhost:9999/cb",
		"bad scheme":         "javascript:alert(1)",
		"no host":            "https:///cb",
	}
	for name, uri := range cases {
		err := registry.ValidateRedirectURI("demo", uri)
		require.Error(t, err, name)
		assert.Equal(t, oautherr.ErrInvalidRequest.Code, oautherr.From(err).Code, name)
	}
}
