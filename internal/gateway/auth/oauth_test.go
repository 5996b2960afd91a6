package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenServer(t *testing.T, body map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOAuth_AuthorizeURL(t *testing.T) {
	o := NewOAuth(OAuthConfig{
		ClientID:    "client-1",
		RedirectURL: "http://localhost:3000/api/auth/github/callback",
		Scopes:      []string{"repo", "read:user"},
	})
	u, err := url.Parse(o.AuthorizeURL("st4te"))
	require.NoError(t, err)
	assert.Equal(t, "github.com", u.Host)
	assert.Equal(t, "/login/oauth/authorize", u.Path)
	q := u.Query()
	assert.Equal(t, "client-1", q.Get("client_id"))
	assert.Equal(t, "st4te", q.Get("state"))
	assert.Equal(t, "http://localhost:3000/api/auth/github/callback", q.Get("redirect_uri"))
	assert.Equal(t, "repo read:user", q.Get("scope"))
}

func TestOAuth_ExchangeSuccess(t *testing.T) {
	srv := tokenServer(t, map[string]any{"access_token": "gho_123", "token_type": "bearer"})
	o := NewOAuth(OAuthConfig{ClientID: "id", ClientSecret: "secret", TokenURL: srv.URL})

	tok, err := o.Exchange(context.Background(), "code")
	require.NoError(t, err)
	assert.Equal(t, "gho_123", tok)
}

func TestOAuth_ExchangeProviderError(t *testing.T) {
	srv := tokenServer(t, map[string]any{
		"error":             "bad_verification_code",
		"error_description": "The code passed is incorrect or expired.",
	})
	o := NewOAuth(OAuthConfig{ClientID: "id", ClientSecret: "secret", TokenURL: srv.URL})

	_, err := o.Exchange(context.Background(), "code")
	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "bad_verification_code", pe.Code)
}

func TestOAuth_ExchangeMissingToken(t *testing.T) {
	srv := tokenServer(t, map[string]any{"token_type": "bearer"})
	o := NewOAuth(OAuthConfig{ClientID: "id", ClientSecret: "secret", TokenURL: srv.URL})

	_, err := o.Exchange(context.Background(), "code")
	assert.ErrorIs(t, err, ErrNoAccessToken)
}

func TestNewState(t *testing.T) {
	a, err := NewState()
	require.NoError(t, err)
	b, err := NewState()
	require.NoError(t, err)
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}
