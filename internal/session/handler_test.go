package session_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/JaimeStill/microfinder/internal/auth"
	"github.com/JaimeStill/microfinder/internal/session"
	"github.com/JaimeStill/microfinder/pkg/routes"
)

func newMux(t *testing.T, p *fakeProvider) (*http.ServeMux, *session.Gate) {
	t.Helper()
	g := session.New(p, discard())
	if err := g.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	t.Cleanup(g.Close)

	h := session.NewHandler(g, discard())
	mux := http.NewServeMux()
	routes.Register(mux, h.Routes(), routes.Group{
		Prefix: "/profile",
		Wrap:   h.RequireSession,
		Routes: []routes.Route{{Method: "GET", Pattern: "", Handler: func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}}},
	})
	return mux, g
}

func serve(mux http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeState(t *testing.T, rec *httptest.ResponseRecorder) session.State {
	t.Helper()
	var s session.State
	if err := json.NewDecoder(rec.Body).Decode(&s); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	return s
}

func TestHandlerSignInFlow(t *testing.T) {
	mux, _ := newMux(t, &fakeProvider{})

	rec := serve(mux, "GET", "/profile", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("profile before sign-in: got %d, want 401", rec.Code)
	}

	rec = serve(mux, "POST", "/auth/signin", `{"email":"a@example.com","password":"pw"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("signin: got %d, want 200", rec.Code)
	}
	s := decodeState(t, rec)
	if !s.Authenticated || s.User == nil || s.User.ID != "user-a@example.com" {
		t.Errorf("unexpected state: %+v", s)
	}
	if strings.Contains(rec.Body.String(), "tok") {
		t.Error("state must not expose tokens")
	}

	rec = serve(mux, "GET", "/profile", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("profile after sign-in: got %d, want 200", rec.Code)
	}

	rec = serve(mux, "POST", "/auth/signout", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("signout: got %d, want 204", rec.Code)
	}

	rec = serve(mux, "GET", "/auth/session", "")
	if s := decodeState(t, rec); s.Authenticated {
		t.Error("expected signed-out state")
	}
}

func TestHandlerSignOutProviderDown(t *testing.T) {
	mux, g := newMux(t, &fakeProvider{current: signedIn("u1"), signOutErr: auth.ErrProvider})

	rec := serve(mux, "POST", "/auth/signout", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("got %d, want 204", rec.Code)
	}
	if g.IsAuthenticated() {
		t.Error("session should be cleared locally")
	}
}

func TestHandlerStatus(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
		body   string
		want   int
	}{
		{"malformed signin", "POST", "/auth/signin", `{`, http.StatusBadRequest},
		{"signup awaiting confirmation", "POST", "/auth/signup", `{"email":"a@example.com","password":"pw"}`, http.StatusAccepted},
		{"oauth url", "POST", "/auth/oauth", `{"provider":"google"}`, http.StatusOK},
		{"callback without code", "GET", "/auth/callback", "", http.StatusBadRequest},
		{"callback provider error", "GET", "/auth/callback?error=access_denied&error_description=denied", "", http.StatusBadRequest},
		{"callback without pending flow", "GET", "/auth/callback?code=abc", "", http.StatusBadRequest},
		{"refresh without session", "POST", "/auth/refresh", "", http.StatusUnauthorized},
		{"recover", "POST", "/auth/recover", `{"email":"a@example.com"}`, http.StatusAccepted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux, _ := newMux(t, &fakeProvider{})
			rec := serve(mux, tt.method, tt.target, tt.body)
			if rec.Code != tt.want {
				t.Errorf("got %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestHandlerOAuthDefaultRedirect(t *testing.T) {
	p := &fakeProvider{}
	mux, _ := newMux(t, p)

	rec := serve(mux, "POST", "/auth/oauth", `{"provider":"github"}`)
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasSuffix(body["url"], "provider=github") {
		t.Errorf("unexpected url %q", body["url"])
	}
	if p.redirect != session.DefaultRedirect {
		t.Errorf("redirect = %q, want %q", p.redirect, session.DefaultRedirect)
	}
}
