package server

import (
	"net/http"

	"go.uber.org/zap"

	"ghimport/internal/gateway/handler"
	"ghimport/internal/gateway/middleware"
)

type RouteOptions struct {
	// AllowedOrigins are echoed back by CORS; empty echoes any origin.
	AllowedOrigins []string
	// WebRoot, when set, is served as static files behind the page guard.
	WebRoot string
}

func NewMux(h *handler.Handler, sessions middleware.SessionReader, log *zap.Logger, opts RouteOptions) http.Handler {
	mux := http.NewServeMux()
	authed := middleware.RequireSession(sessions)
	protect := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, authed(fn))
	}

	// Auth
	mux.HandleFunc("GET /api/auth/github/login", h.Login)
	mux.HandleFunc("GET /api/auth/github/callback", h.Callback)
	mux.HandleFunc("POST /api/auth/logout", h.Logout)
	mux.HandleFunc("GET /api/status", h.Status)
	protect("GET /api/auth/github/profile", h.Profile)

	// GitHub pass-through
	protect("GET /api/github/repos", h.Repos)
	protect("GET /api/github/repos/{owner}/{repo}/branches", h.Branches)
	protect("GET /api/github/repos/{owner}/{repo}/contents", h.Contents)
	protect("GET /api/github/repos/{owner}/{repo}/contributors", h.Contributors)
	protect("GET /api/github/repos/{owner}/{repo}/languages", h.Languages)
	protect("GET /api/github/repos/{owner}/{repo}/stats/commit_activity", h.CommitActivity)
	protect("GET /api/github/repos/{owner}/{repo}/stats/contributors", h.ContributorStats)

	// Derived views
	protect("GET /api/github/repos/{owner}/{repo}/stats/heatmap", h.Heatmap)
	protect("GET /api/github/repos/{owner}/{repo}/stats/monthly_density", h.MonthlyDensity)
	protect("GET /api/github/repos/{owner}/{repo}/contributors/top", h.TopContributors)
	protect("GET /api/github/repos/{owner}/{repo}/languages/composition", h.LanguageComposition)
	protect("GET /api/github/repos/{owner}/{repo}/tree", h.Tree)
	protect("GET /api/github/repos/{owner}/{repo}/file", h.File)

	// Imported projects
	protect("GET /api/projects", h.ListProjects)
	protect("POST /api/projects", h.ImportProject)
	protect("GET /api/projects/{id}", h.GetProject)
	protect("DELETE /api/projects/{id}", h.RemoveProject)
	protect("GET /api/projects/{id}/snapshot", h.ProjectSnapshot)
	protect("GET /api/projects/{id}/events", h.ProjectEvents)

	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not found"}` + "\n"))
	})

	if opts.WebRoot != "" {
		mux.Handle("/", middleware.Guard(sessions)(spa(opts.WebRoot)))
	}

	return middleware.Chain(mux,
		middleware.Logger(log),
		middleware.CORS(opts.AllowedOrigins...),
	)
}
