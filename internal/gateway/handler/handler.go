// Package handler serves the gateway's JSON API: GitHub sign-in, the
// GitHub pass-through endpoints, derived statistics and imported projects.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"ghimport/internal/gateway/auth"
	"ghimport/internal/gateway/middleware"
	projectsvc "ghimport/internal/gateway/service/project"
	"ghimport/internal/github"
	"ghimport/internal/logging"
)

// Deps are the collaborators a Handler needs.
type Deps struct {
	// BaseURL is where the web app is served; OAuth redirects go there.
	BaseURL  string
	Sessions *auth.Sessions
	OAuth    *auth.OAuth
	GitHub   github.API
	Projects *projectsvc.Service
	Logger   *zap.Logger
	Now      func() time.Time
}

type Handler struct {
	baseURL  string
	sessions *auth.Sessions
	oauth    *auth.OAuth
	gh       github.API
	projects *projectsvc.Service
	log      *zap.Logger
	now      func() time.Time
}

func New(d Deps) *Handler {
	d.Logger = logging.OrNop(d.Logger)
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Handler{
		baseURL:  strings.TrimRight(d.BaseURL, "/"),
		sessions: d.Sessions,
		oauth:    d.OAuth,
		gh:       d.GitHub,
		projects: d.Projects,
		log:      d.Logger,
		now:      d.Now,
	}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	resp := ErrorResponse{Error: msg}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeUpstream reports a failed GitHub call with the mapped status.
func (h *Handler) writeUpstream(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status := github.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.log.Warn("github request failed",
			zap.String("request_id", middleware.RequestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	writeError(w, status, msg, err)
}

func session(r *http.Request) auth.Session {
	sess, _ := middleware.SessionFromContext(r.Context())
	return sess
}

// userID is the GitHub login of the caller. Cookie sessions carry it;
// bearer-token callers are looked up.
func (h *Handler) userID(ctx context.Context, sess auth.Session) (string, error) {
	if sess.Login != "" {
		return sess.Login, nil
	}
	me, err := h.gh.Me(ctx, sess.Token)
	if err != nil {
		return "", err
	}
	if me.Login == "" {
		return "", errors.New("github user has no login")
	}
	return me.Login, nil
}

func repoParams(r *http.Request) (owner, repo string) {
	return r.PathValue("owner"), r.PathValue("repo")
}
