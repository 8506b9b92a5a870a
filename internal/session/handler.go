package session

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/JaimeStill/microfinder/internal/auth"
	"github.com/JaimeStill/microfinder/pkg/handlers"
	"github.com/JaimeStill/microfinder/pkg/routes"
)

// State is the session as reported to the UI. Tokens stay in the process.
type State struct {
	Authenticated bool       `json:"authenticated"`
	User          *auth.User `json:"user,omitempty"`
	ExpiresAt     int64      `json:"expires_at,omitempty"`
	// ConfirmationRequired is set after a sign-up that awaits email
	// confirmation.
	ConfirmationRequired bool `json:"confirmation_required,omitempty"`
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type oauthRequest struct {
	Provider   string `json:"provider"`
	RedirectTo string `json:"redirect_to"`
}

type recoverRequest struct {
	Email      string `json:"email"`
	RedirectTo string `json:"redirect_to"`
}

type Handler struct {
	gate   *Gate
	logger *slog.Logger
}

func NewHandler(gate *Gate, logger *slog.Logger) *Handler {
	return &Handler{gate: gate, logger: logger.With("handler", "auth")}
}

func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/auth",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/session", Handler: h.State},
			{Method: "POST", Pattern: "/signin", Handler: h.SignIn},
			{Method: "POST", Pattern: "/signup", Handler: h.SignUp},
			{Method: "POST", Pattern: "/oauth", Handler: h.OAuth},
			{Method: "GET", Pattern: "/callback", Handler: h.Callback},
			{Method: "POST", Pattern: "/refresh", Handler: h.Refresh},
			{Method: "POST", Pattern: "/signout", Handler: h.SignOut},
			{Method: "POST", Pattern: "/recover", Handler: h.Recover},
		},
	}
}

// RequireSession rejects requests with 401 while nobody is signed in.
func (h *Handler) RequireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.gate.IsAuthenticated() {
			handlers.RespondError(w, h.logger, http.StatusUnauthorized, auth.ErrNoSession)
			return
		}
		next(w, r)
	}
}

func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	handlers.RespondJSON(w, http.StatusOK, h.state())
}

func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var body credentials
	if !h.decode(w, r, &body) {
		return
	}

	if _, err := h.gate.SignIn(r.Context(), body.Email, body.Password); err != nil {
		handlers.RespondError(w, h.logger, auth.MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, h.state())
}

func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	var body Registration
	if !h.decode(w, r, &body) {
		return
	}

	sess, err := h.gate.SignUp(r.Context(), body)
	if err != nil {
		handlers.RespondError(w, h.logger, auth.MapHTTPStatus(err), err)
		return
	}
	if sess == nil {
		handlers.RespondJSON(w, http.StatusAccepted, State{ConfirmationRequired: true})
		return
	}
	handlers.RespondJSON(w, http.StatusCreated, h.state())
}

func (h *Handler) OAuth(w http.ResponseWriter, r *http.Request) {
	var body oauthRequest
	if !h.decode(w, r, &body) {
		return
	}

	url, err := h.gate.SignInWithOAuth(r.Context(), body.Provider, body.RedirectTo)
	if err != nil {
		handlers.RespondError(w, h.logger, auth.MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if msg := q.Get("error_description"); msg != "" {
		err := &auth.ProviderError{StatusCode: http.StatusBadRequest, Code: q.Get("error"), Message: msg}
		handlers.RespondError(w, h.logger, auth.MapHTTPStatus(err), err)
		return
	}

	code := q.Get("code")
	if code == "" {
		err := fmt.Errorf("%w: code", auth.ErrMissingField)
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	if _, err := h.gate.CompleteOAuth(r.Context(), code); err != nil {
		handlers.RespondError(w, h.logger, auth.MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, h.state())
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	if _, err := h.gate.Refresh(r.Context()); err != nil {
		handlers.RespondError(w, h.logger, auth.MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, h.state())
}

// SignOut always answers 204: the local session is gone even when the
// provider could not be reached.
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	h.gate.SignOut(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Recover(w http.ResponseWriter, r *http.Request) {
	var body recoverRequest
	if !h.decode(w, r, &body) {
		return
	}

	if err := h.gate.ResetPassword(r.Context(), body.Email, body.RedirectTo); err != nil {
		handlers.RespondError(w, h.logger, auth.MapHTTPStatus(err), err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) state() State {
	sess, ok := h.gate.Session()
	if !ok {
		return State{}
	}
	user := sess.User
	return State{Authenticated: true, User: &user, ExpiresAt: sess.ExpiresAt}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}
