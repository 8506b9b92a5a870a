package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/supabase-community/auth-go/types"
)

// AuthorizeURL starts a PKCE sign-in with an external identity provider
// (e.g. "google"). The verifier stays with the client until ExchangeCode
// or SignOut; starting a new flow replaces it.
func (c *Client) AuthorizeURL(ctx context.Context, provider, redirectTo string) (string, error) {
	provider = strings.TrimSpace(provider)
	if provider == "" {
		return "", fmt.Errorf("%w: provider required", ErrProvider)
	}

	res, err := c.api(ctx, "", nil).Authorize(types.AuthorizeRequest{
		Provider:   types.Provider(provider),
		RedirectTo: redirectTo,
		FlowType:   types.FlowPKCE,
	})
	if err != nil {
		return "", providerError(err)
	}

	c.mu.Lock()
	c.pending = res.Verifier
	c.mu.Unlock()

	c.logger.Info("oauth sign-in started", "provider", provider)
	return res.AuthorizationURL, nil
}
