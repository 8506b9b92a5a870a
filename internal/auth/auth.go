// Package auth is a client for a GoTrue-compatible authentication API:
// password and OAuth (PKCE) sign-in, token refresh, sign-out, and the
// change events the session gate subscribes to.
package auth

import (
	"context"
	"strings"
	"time"
)

// User is the identity attached to a session.
type User struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
}

// FullName returns user_metadata.full_name (or name) when present.
func (u User) FullName() string {
	for _, key := range []string{"full_name", "name"} {
		if s, ok := u.UserMetadata[key].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// Session is the token set issued by the provider.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

// Expiry returns when the access token stops being accepted.
func (s *Session) Expiry() time.Time {
	return time.Unix(s.ExpiresAt, 0)
}

// ExpiresWithin reports whether the token expires before now+margin.
func (s *Session) ExpiresWithin(now time.Time, margin time.Duration) bool {
	return s.ExpiresAt == 0 || !now.Add(margin).Before(s.Expiry())
}

func (s *Session) clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// EventType names a session change.
type EventType string

const (
	EventInitialSession EventType = "INITIAL_SESSION"
	EventSignedIn       EventType = "SIGNED_IN"
	EventSignedOut      EventType = "SIGNED_OUT"
	EventTokenRefreshed EventType = "TOKEN_REFRESHED"
)

// Event carries the session after the change; nil after sign-out.
type Event struct {
	Type    EventType
	Session *Session
}

// Listener receives session changes. Listeners run synchronously on the
// goroutine that caused the change and must not call back into Subscribe.
type Listener func(Event)

// Provider is the contract the session gate relies on.
type Provider interface {
	// Session returns the current session, restoring it from the store on
	// first use. It returns nil without error when signed out.
	Session(ctx context.Context) (*Session, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	// SignUp returns a nil session when the provider requires email
	// confirmation before the first sign-in.
	SignUp(ctx context.Context, email, password string, metadata map[string]any) (*Session, error)
	// AuthorizeURL starts a PKCE OAuth flow and returns the provider URL
	// the user must visit.
	AuthorizeURL(ctx context.Context, provider, redirectTo string) (string, error)
	// ExchangeCode completes the pending OAuth flow.
	ExchangeCode(ctx context.Context, code string) (*Session, error)
	Refresh(ctx context.Context) (*Session, error)
	ResetPassword(ctx context.Context, email, redirectTo string) error
	SignOut(ctx context.Context) error
	// Subscribe registers fn and immediately delivers EventInitialSession
	// with the cached session. The returned func unsubscribes.
	Subscribe(fn Listener) (unsubscribe func())
}
