package service

import (
	"crypto/subtle"
	"net/url"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/oauth-bridge/internal/models"
	"github.com/noah-isme/oauth-bridge/pkg/oautherr"
)

// ClientRegistry validates client credentials and redirect URIs against the
// configured registration. Clients are immutable reference data loaded at
// startup.
type ClientRegistry struct {
	clients map[string]models.Client
}

// NewClientRegistry builds a registry from the configured clients.
func NewClientRegistry(clients ...models.Client) *ClientRegistry {
	index := make(map[string]models.Client, len(clients))
	for _, c := range clients {
		index[c.ID] = c
	}
	return &ClientRegistry{clients: index}
}

// ValidateClient checks the client id and, when one is registered, the
// secret. A client registered without a secret skips the secret check; that
// is a deliberate escape hatch for integrations that cannot hold one.
// Secrets stored as bcrypt hashes (prefix "$2") are compared as hashes,
// anything else in constant time.
func (r *ClientRegistry) ValidateClient(clientID, clientSecret string) error {
	client, ok := r.clients[clientID]
	if !ok || clientID == "" {
		return oautherr.WithDescription(oautherr.ErrInvalidClient, "unknown client")
	}

	if client.Secret == "" {
		return nil
	}

	if strings.HasPrefix(client.Secret, "$2") {
		if err := bcrypt.CompareHashAndPassword([]byte(client.Secret), []byte(clientSecret)); err != nil {
			return oautherr.WithDescription(oautherr.ErrInvalidClient, "client secret mismatch")
		}
		return nil
	}

	if subtle.ConstantTimeCompare([]byte(client.Secret), []byte(clientSecret)) != 1 {
		return oautherr.WithDescription(oautherr.ErrInvalidClient, "client secret mismatch")
	}
	return nil
}

// ValidateRedirectURI checks that the redirect target's host belongs to the
// client's domain allow-list. An attacker who can register an arbitrary
// redirect URI can exfiltrate codes, so unknown hosts are rejected outright.
func (r *ClientRegistry) ValidateRedirectURI(clientID, rawURI string) error {
	client, ok := r.clients[clientID]
	if !ok {
		return oautherr.WithDescription(oautherr.ErrInvalidClient, "unknown client")
	}

	parsed, err := url.Parse(rawURI)
	if err != nil {
		return oautherr.WithDescription(oautherr.ErrInvalidRequest, "redirect_uri is not a valid URL")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return oautherr.WithDescription(oautherr.ErrInvalidRequest, "redirect_uri must be http or https")
	}
	if parsed.Host == "" {
		return oautherr.WithDescription(oautherr.ErrInvalidRequest, "redirect_uri has no host")
	}

	host := parsed.Hostname()
	for _, domain := range client.RedirectDomains {
		if allowed := strings.ToLower(strings.TrimSpace(domain)); allowed != "" {
			// Allow-list entries with a port must match host:port exactly.
			if strings.Contains(allowed, ":") {
				if strings.EqualFold(parsed.Host, allowed) {
					return nil
				}
				continue
			}
			if strings.EqualFold(host, allowed) {
				return nil
			}
		}
	}

	return oautherr.WithDescription(oautherr.ErrInvalidRequest, "redirect_uri domain is not allowed")
}

// Lookup returns the registered client, if any.
func (r *ClientRegistry) Lookup(clientID string) (models.Client, bool) {
	c, ok := r.clients[clientID]
	return c, ok
}
