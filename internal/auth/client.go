package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	gotrue "github.com/supabase-community/auth-go"
	"github.com/supabase-community/auth-go/types"

	"github.com/JaimeStill/microfinder/pkg/lifecycle"
)

// Client talks to the auth API through the Supabase auth SDK and owns the
// single cached session.
type Client struct {
	gotrue   gotrue.Client
	margin   time.Duration
	retry    time.Duration
	http     *http.Client
	verifier Verifier
	store    Store
	logger   *slog.Logger
	now      func() time.Time

	mu        sync.Mutex
	session   *Session
	restored  bool
	pending   string
	listeners map[int]Listener
	nextID    int
	wake      chan struct{}
}

// New builds a Client. The store is owned by the client and closed on
// shutdown when Start registers the client with a lifecycle.
func New(cfg *Config, httpClient *http.Client, verifier Verifier, store Store, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.RequestTimeoutDuration()}
	}
	return &Client{
		gotrue:    gotrue.New("", cfg.AnonKey).WithCustomAuthURL(cfg.Issuer()),
		margin:    cfg.RefreshMarginDuration(),
		retry:     cfg.RetryIntervalDuration(),
		http:      httpClient,
		verifier:  verifier,
		store:     store,
		logger:    logger.With("system", "auth"),
		now:       time.Now,
		listeners: make(map[int]Listener),
		wake:      make(chan struct{}, 1),
	}
}

// Start runs the refresh loop in the background and closes the store on
// shutdown.
func (c *Client) Start(lc *lifecycle.Coordinator) {
	lc.Background(c.Run)
	lc.OnShutdown(func() {
		<-lc.Context().Done()
		if err := c.store.Close(); err != nil {
			c.logger.Warn("session store close failed", "error", err)
		}
	})
}

func (c *Client) Session(ctx context.Context) (*Session, error) {
	c.mu.Lock()
	if c.restored {
		s := c.session.clone()
		c.mu.Unlock()
		return s, nil
	}
	c.mu.Unlock()

	stored, err := c.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if !c.restored {
		c.restored = true
		c.session = stored
	}
	current := c.session.clone()
	c.mu.Unlock()

	if current == nil || !current.ExpiresWithin(c.now(), c.margin) {
		c.signal()
		return current, nil
	}

	refreshed, err := c.Refresh(ctx)
	if err != nil {
		c.logger.Warn("stored session could not be refreshed", "error", err)
		if errors.Is(err, ErrNoSession) {
			return nil, nil
		}
		return nil, err
	}
	return refreshed, nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrMissingField
	}

	res, err := c.api(ctx, "", nil).SignInWithEmailPassword(email, password)
	if err != nil {
		err = providerError(err)
		var pe *ProviderError
		if errors.As(err, &pe) && pe.rejected() {
			return nil, fmt.Errorf("%w: %s", ErrInvalidCredentials, pe.Message)
		}
		return nil, err
	}

	return c.establish(ctx, fromSession(res.Session), EventSignedIn)
}

func (c *Client) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrMissingField
	}

	res, err := c.api(ctx, "", nil).Signup(types.SignupRequest{
		Email:    email,
		Password: password,
		Data:     metadata,
	})
	if err != nil {
		return nil, providerError(err)
	}

	// Without auto-confirm the provider replies with the bare user.
	if res.Session.AccessToken == "" {
		c.logger.Info("sign-up pending email confirmation")
		return nil, nil
	}

	return c.establish(ctx, fromSession(res.Session), EventSignedIn)
}

func (c *Client) ExchangeCode(ctx context.Context, code string) (*Session, error) {
	c.mu.Lock()
	verifier := c.pending
	c.mu.Unlock()

	if verifier == "" {
		return nil, ErrNoPendingOAuth
	}
	if strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("%w: missing authorization code", ErrProvider)
	}

	res, err := c.api(ctx, "", nil).Token(types.TokenRequest{
		GrantType:    "pkce",
		Code:         code,
		CodeVerifier: verifier,
	})
	if err != nil {
		return nil, providerError(err)
	}

	c.mu.Lock()
	c.pending = ""
	c.mu.Unlock()

	return c.establish(ctx, fromSession(res.Session), EventSignedIn)
}

// Refresh exchanges the refresh token for a new session. A refresh token
// the provider rejects ends the session locally and yields ErrNoSession.
func (c *Client) Refresh(ctx context.Context) (*Session, error) {
	c.mu.Lock()
	current := c.session.clone()
	c.mu.Unlock()

	if current == nil || current.RefreshToken == "" {
		return nil, ErrNoSession
	}

	res, err := c.api(ctx, "", nil).RefreshToken(current.RefreshToken)
	if err != nil {
		err = providerError(err)
		var pe *ProviderError
		if errors.As(err, &pe) && pe.rejected() {
			c.clear(ctx)
			return nil, fmt.Errorf("%w: %s", ErrNoSession, pe.Message)
		}
		return nil, err
	}

	return c.establish(ctx, fromSession(res.Session), EventTokenRefreshed)
}

// ResetPassword asks the provider to email a recovery link. redirectTo
// travels as a query parameter since the recover body has no field for it.
func (c *Client) ResetPassword(ctx context.Context, email, redirectTo string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrMissingField
	}

	var query url.Values
	if redirectTo != "" {
		query = url.Values{"redirect_to": {redirectTo}}
	}

	if err := c.api(ctx, "", query).Recover(types.RecoverRequest{Email: email}); err != nil {
		return providerError(err)
	}
	return nil
}

// SignOut revokes the session at the provider and always clears it
// locally. A provider rejection means the session was already invalid
// and is not reported.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	current := c.session.clone()
	c.pending = ""
	c.mu.Unlock()

	var err error
	if current != nil {
		if err = c.api(ctx, current.AccessToken, nil).Logout(); err != nil {
			err = providerError(err)
			var pe *ProviderError
			if errors.As(err, &pe) && pe.rejected() {
				err = nil
			}
		}
	}

	c.clear(ctx)
	return err
}

func (c *Client) Subscribe(fn Listener) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	current := c.session.clone()
	c.mu.Unlock()

	fn(Event{Type: EventInitialSession, Session: current})

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

// establish verifies a freshly issued session, caches and persists it,
// and notifies listeners.
func (c *Client) establish(ctx context.Context, sess *Session, event EventType) (*Session, error) {
	if sess.AccessToken == "" {
		return nil, fmt.Errorf("%w: response carried no access token", ErrProvider)
	}

	claims, err := c.verifier.Verify(ctx, sess.AccessToken)
	if err != nil {
		return nil, err
	}
	if sess.User.ID != "" && claims.Subject != sess.User.ID {
		return nil, fmt.Errorf("%w: subject does not match user", ErrInvalidToken)
	}
	if sess.User.ID == "" {
		sess.User.ID = claims.Subject
		sess.User.Email = claims.Email
	}
	if sess.ExpiresAt == 0 {
		switch {
		case !claims.Expiry.IsZero():
			sess.ExpiresAt = claims.Expiry.Unix()
		case sess.ExpiresIn > 0:
			sess.ExpiresAt = c.now().Add(time.Duration(sess.ExpiresIn) * time.Second).Unix()
		}
	}

	if err := c.store.Save(ctx, sess); err != nil {
		c.logger.Warn("session not persisted", "error", err)
	}

	c.mu.Lock()
	c.session = sess.clone()
	c.restored = true
	c.mu.Unlock()

	c.logger.Info("session established", "event", event, "user_id", sess.User.ID)
	c.emit(Event{Type: event, Session: sess.clone()})
	c.signal()

	return sess.clone(), nil
}

func (c *Client) clear(ctx context.Context) {
	if err := c.store.Clear(ctx); err != nil {
		c.logger.Warn("session not cleared from store", "error", err)
	}

	c.mu.Lock()
	had := c.session != nil
	c.session = nil
	c.restored = true
	c.mu.Unlock()

	if had {
		c.logger.Info("session ended")
		c.emit(Event{Type: EventSignedOut})
	}
	c.signal()
}

func (c *Client) emit(e Event) {
	c.mu.Lock()
	fns := make([]Listener, 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(e)
	}
}

func (c *Client) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// api scopes a provider call to ctx. token authenticates as the user;
// query is appended to the request URL.
func (c *Client) api(ctx context.Context, token string, query url.Values) gotrue.Client {
	next := c.http.Transport
	if next == nil {
		next = http.DefaultTransport
	}

	hc := *c.http
	hc.Transport = callTransport{ctx: ctx, query: query, next: next}

	api := c.gotrue.WithClient(hc)
	if token != "" {
		api = api.WithToken(token)
	}
	return api
}

// callTransport binds requests made by the provider SDK, which takes no
// context, to the caller's context.
type callTransport struct {
	ctx   context.Context
	query url.Values
	next  http.RoundTripper
}

func (t callTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(t.ctx)
	if len(t.query) > 0 {
		q := req.URL.Query()
		for k, vs := range t.query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		req.URL.RawQuery = q.Encode()
	}
	return t.next.RoundTrip(req)
}

func fromSession(s types.Session) *Session {
	return &Session{
		AccessToken:  s.AccessToken,
		TokenType:    s.TokenType,
		ExpiresIn:    int64(s.ExpiresIn),
		ExpiresAt:    s.ExpiresAt,
		RefreshToken: s.RefreshToken,
		User:         fromUser(s.User),
	}
}

func fromUser(u types.User) User {
	user := User{Email: u.Email, UserMetadata: u.UserMetadata}
	if u.ID != uuid.Nil {
		user.ID = u.ID.String()
	}
	return user
}

type errorBody struct {
	ErrorCode   string `json:"error_code"`
	Error       string `json:"error"`
	Description string `json:"error_description"`
	Msg         string `json:"msg"`
	Message     string `json:"message"`
}

func (b errorBody) text() string {
	for _, s := range []string{b.Msg, b.Description, b.Message, b.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

// providerError converts an SDK failure. Non-2xx replies arrive as
// "response status code <n>: <body>" and become a *ProviderError; anything
// else is a transport failure wrapped in ErrProvider.
func providerError(err error) error {
	msg := err.Error()

	var status int
	if _, scanErr := fmt.Sscanf(msg, "response status code %d", &status); scanErr != nil || status == 0 {
		return fmt.Errorf("%w: %v", ErrProvider, err)
	}

	pe := &ProviderError{StatusCode: status}
	_, body, _ := strings.Cut(msg, ": ")
	body = strings.TrimSpace(body)

	var eb errorBody
	if json.Unmarshal([]byte(body), &eb) == nil {
		pe.Code = eb.ErrorCode
		if pe.Code == "" {
			pe.Code = eb.Error
		}
		pe.Message = eb.text()
	} else {
		pe.Message = body
	}
	return pe
}
