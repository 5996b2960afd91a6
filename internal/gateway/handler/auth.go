package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"ghimport/internal/gateway/auth"
)

const (
	signInPath   = "/auth/signin"
	afterSignIn  = "/github-import?authenticated=true"
	callbackPath = "/api/auth/github/callback"
)

// CallbackURL is the OAuth redirect_uri registered with GitHub.
func CallbackURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + callbackPath
}

func (h *Handler) signInError(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, h.baseURL+signInPath+"?error="+url.QueryEscape(code), http.StatusFound)
}

// Login starts the OAuth flow.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	state, err := auth.NewState()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to start sign-in", err)
		return
	}
	h.sessions.SetOAuthState(w, state)
	http.Redirect(w, r, h.oauth.AuthorizeURL(state), http.StatusFound)
}

// Callback finishes the OAuth flow. Every outcome is a redirect.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	code := strings.TrimSpace(q.Get("code"))
	expected := h.sessions.OAuthState(r)
	h.sessions.ClearOAuthState(w)

	if code == "" {
		h.signInError(w, r, "no_code")
		return
	}
	if state := q.Get("state"); expected == "" || state != expected {
		h.signInError(w, r, "invalid_state")
		return
	}

	token, err := h.oauth.Exchange(r.Context(), code)
	if err != nil {
		var pe *auth.ProviderError
		if errors.As(err, &pe) {
			h.log.Warn("github oauth error", zap.String("error", pe.Code), zap.String("description", pe.Description))
			h.signInError(w, r, pe.Code)
			return
		}
		h.log.Error("github token exchange failed", zap.Error(err))
		h.signInError(w, r, "token_exchange_failed")
		return
	}

	var login string
	if me, err := h.gh.Me(r.Context(), token); err == nil {
		login = me.Login
	} else {
		h.log.Warn("resolve github user after sign-in", zap.Error(err))
	}
	if err := h.sessions.Set(w, token, login); err != nil {
		h.log.Error("set session cookie", zap.Error(err))
		h.signInError(w, r, "token_exchange_failed")
		return
	}
	http.Redirect(w, r, h.baseURL+afterSignIn, http.StatusFound)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Clear(w)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Logged out successfully",
	})
}

type StatusResponse struct {
	Authenticated bool `json:"authenticated"`
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	_, ok := h.sessions.Get(r)
	writeJSON(w, http.StatusOK, StatusResponse{Authenticated: ok})
}

// Profile returns the GitHub /user document, optionally narrowed to the
// comma-separated keys in ?fields=.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.gh.Profile(r.Context(), session(r).Token)
	if err != nil {
		h.log.Warn("fetch github profile", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch GitHub profile", nil)
		return
	}
	raw := strings.TrimSpace(r.URL.Query().Get("fields"))
	if raw == "" {
		writeJSON(w, http.StatusOK, profile)
		return
	}
	filtered := make(map[string]any)
	for _, f := range strings.Split(raw, ",") {
		f = strings.TrimSpace(f)
		if v, ok := profile[f]; ok {
			filtered[f] = v
		}
	}
	writeJSON(w, http.StatusOK, filtered)
}
