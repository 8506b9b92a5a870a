package auth_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/microfinder/internal/auth"
)

func TestDecodingVerifier(t *testing.T) {
	cfg := &auth.Config{URL: "https://project.example.com", AnonKey: "anon"}
	require.NoError(t, cfg.Finalize(nil))
	v := auth.NewVerifier(context.Background(), cfg, nil)

	claims, err := v.Verify(context.Background(), signToken(t, userID, time.Now().Add(time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, userID, claims.Subject)
	assert.Equal(t, "ada@example.com", claims.Email)

	_, err = v.Verify(context.Background(), signToken(t, userID, time.Now().Add(-time.Minute)))
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	_, err = v.Verify(context.Background(), signToken(t, "", time.Now().Add(time.Hour)))
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	_, err = v.Verify(context.Background(), "not-a-jwt")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestJWKSVerifier(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	b64 := base64.RawURLEncoding.EncodeToString
	mux := http.NewServeMux()
	mux.HandleFunc("GET /auth/v1/.well-known/jwks.json", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"keys": []map[string]any{{
				"kty": "RSA",
				"kid": "test-key",
				"alg": "RS256",
				"use": "sig",
				"n":   b64(key.N.Bytes()),
				"e":   b64(big.NewInt(int64(key.E)).Bytes()),
			}},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	issuer := srv.URL + "/auth/v1"
	sign := func(claims jwt.MapClaims) string {
		tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
		tok.Header["kid"] = "test-key"
		s, err := tok.SignedString(key)
		require.NoError(t, err)
		return s
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	v := auth.NewJWKSVerifier(ctx, issuer, "authenticated", srv.Client())

	claims, err := v.Verify(context.Background(), sign(jwt.MapClaims{
		"iss":   issuer,
		"aud":   "authenticated",
		"sub":   userID,
		"email": "ada@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}))
	require.NoError(t, err)
	assert.Equal(t, userID, claims.Subject)
	assert.Equal(t, "ada@example.com", claims.Email)

	_, err = v.Verify(context.Background(), sign(jwt.MapClaims{
		"iss": "https://elsewhere.example.com/auth/v1",
		"aud": "authenticated",
		"sub": userID,
		"exp": time.Now().Add(time.Hour).Unix(),
	}))
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	_, err = v.Verify(context.Background(), sign(jwt.MapClaims{
		"iss": issuer,
		"aud": "anon",
		"sub": userID,
		"exp": time.Now().Add(time.Hour).Unix(),
	}))
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	_, err = v.Verify(context.Background(), signToken(t, userID, time.Now().Add(time.Hour)))
	assert.ErrorIs(t, err, auth.ErrInvalidToken, "HS256 tokens are rejected")
}
