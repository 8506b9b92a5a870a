// Package session caches the authenticated session for the process and
// answers "who is signed in" without touching the network.
package session

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/JaimeStill/microfinder/internal/auth"
	"github.com/JaimeStill/microfinder/pkg/lifecycle"
)

// DefaultRedirect is where OAuth providers send the user back when the
// caller names no redirect target.
const DefaultRedirect = "acme://login"

// Gate mirrors the provider session. The provider's change events are the
// only writer besides SignOut and Close.
type Gate struct {
	provider auth.Provider
	logger   *slog.Logger

	mu      sync.RWMutex
	session *auth.Session
	closed  bool

	initOnce    sync.Once
	initErr     error
	closeOnce   sync.Once
	unsubscribe func()
}

func New(provider auth.Provider, logger *slog.Logger) *Gate {
	return &Gate{
		provider: provider,
		logger:   logger.With("system", "session"),
	}
}

// Start initializes the gate during startup and releases it on shutdown.
func (g *Gate) Start(lc *lifecycle.Coordinator) {
	lc.OnStartup(func() {
		if err := g.Initialize(lc.Context()); err != nil {
			g.logger.Error("session restore failed", "error", err)
		}
	})
	lc.OnShutdown(func() {
		<-lc.Context().Done()
		g.Close()
	})
}

// Initialize loads the provider's current session and subscribes to its
// change events. Only the first call does any work; later calls return
// the first call's error. A failed load leaves the gate signed out but
// still subscribed.
func (g *Gate) Initialize(ctx context.Context) error {
	g.initOnce.Do(func() {
		sess, err := g.provider.Session(ctx)
		if err != nil {
			g.initErr = err
			sess = nil
		}
		g.set(sess)

		unsubscribe := g.provider.Subscribe(g.handle)

		g.mu.Lock()
		if g.closed {
			g.mu.Unlock()
			unsubscribe()
			return
		}
		g.unsubscribe = unsubscribe
		g.mu.Unlock()

		if sess != nil {
			g.logger.Info("session restored", "user_id", sess.User.ID)
		}
	})
	return g.initErr
}

// CurrentUser returns the signed-in user id.
func (g *Gate) CurrentUser() (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.session == nil || g.session.User.ID == "" {
		return "", false
	}
	return g.session.User.ID, true
}

func (g *Gate) IsAuthenticated() bool {
	_, ok := g.CurrentUser()
	return ok
}

func (g *Gate) User() (auth.User, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.session == nil {
		return auth.User{}, false
	}
	return g.session.User, true
}

// Session returns a copy of the cached session.
func (g *Gate) Session() (*auth.Session, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.session == nil {
		return nil, false
	}
	s := *g.session
	return &s, true
}

func (g *Gate) SignIn(ctx context.Context, email, password string) (*auth.Session, error) {
	return g.provider.SignIn(ctx, email, password)
}

// Registration is a new account request. FullName and Username are stored
// as user metadata.
type Registration struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Username string `json:"username"`
}

// SignUp returns a nil session when the account awaits email confirmation.
func (g *Gate) SignUp(ctx context.Context, reg Registration) (*auth.Session, error) {
	metadata := map[string]any{}
	if name := strings.TrimSpace(reg.FullName); name != "" {
		metadata["full_name"] = name
	}
	if username := strings.TrimSpace(reg.Username); username != "" {
		metadata["username"] = username
	}
	return g.provider.SignUp(ctx, reg.Email, reg.Password, metadata)
}

// SignInWithOAuth returns the URL that starts the provider's consent flow.
func (g *Gate) SignInWithOAuth(ctx context.Context, provider, redirectTo string) (string, error) {
	if redirectTo == "" {
		redirectTo = DefaultRedirect
	}
	return g.provider.AuthorizeURL(ctx, provider, redirectTo)
}

func (g *Gate) CompleteOAuth(ctx context.Context, code string) (*auth.Session, error) {
	return g.provider.ExchangeCode(ctx, code)
}

func (g *Gate) Refresh(ctx context.Context) (*auth.Session, error) {
	return g.provider.Refresh(ctx)
}

func (g *Gate) ResetPassword(ctx context.Context, email, redirectTo string) error {
	return g.provider.ResetPassword(ctx, email, redirectTo)
}

// SignOut ends the provider session and clears the cache even when the
// provider call fails.
func (g *Gate) SignOut(ctx context.Context) error {
	err := g.provider.SignOut(ctx)
	g.set(nil)
	if err != nil {
		g.logger.Warn("provider sign-out failed", "error", err)
	}
	return err
}

// Close releases the provider subscription. Events delivered afterwards
// are ignored.
func (g *Gate) Close() {
	g.closeOnce.Do(func() {
		g.mu.Lock()
		g.closed = true
		unsubscribe := g.unsubscribe
		g.unsubscribe = nil
		g.session = nil
		g.mu.Unlock()

		if unsubscribe != nil {
			unsubscribe()
		}
		g.logger.Info("session gate closed")
	})
}

func (g *Gate) handle(e auth.Event) {
	g.logger.Debug("auth event", "event", e.Type)
	g.set(e.Session)
}

func (g *Gate) set(sess *auth.Session) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}
	if sess == nil {
		g.session = nil
		return
	}
	s := *sess
	g.session = &s
}
