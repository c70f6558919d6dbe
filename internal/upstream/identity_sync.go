package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// IdentityNotifier tells the downstream customer-identity service about a
// user so later business-data calls succeed. Best effort only: callers must
// never fail an authorization flow on a notifier error.
type IdentityNotifier interface {
	EnsureIdentity(ctx context.Context, userID, email string) error
}

// HTTPIdentityNotifier posts identities to the sync endpoint.
type HTTPIdentityNotifier struct {
	url    string
	client *http.Client
}

// NewHTTPIdentityNotifier builds a notifier with a short timeout. An empty
// URL disables the notifier.
func NewHTTPIdentityNotifier(url string, timeout time.Duration) *HTTPIdentityNotifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPIdentityNotifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// EnsureIdentity notifies the identity-sync service of the user.
func (n *HTTPIdentityNotifier) EnsureIdentity(ctx context.Context, userID, email string) error {
	if n.url == "" {
		return nil
	}

	payload, err := json.Marshal(map[string]string{"user_id": userID, "email": email})
	if err != nil {
		return fmt.Errorf("marshal identity payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build identity sync request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("identity sync: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("identity sync: unexpected status %d", resp.StatusCode)
	}
	return nil
}
