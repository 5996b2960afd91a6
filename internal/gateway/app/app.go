package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"ghimport/internal/gateway/auth"
	"ghimport/internal/gateway/config"
	"ghimport/internal/gateway/handler"
	"ghimport/internal/gateway/server"
	projectsvc "ghimport/internal/gateway/service/project"
	"ghimport/internal/github"
	"ghimport/internal/logging"
)

type App struct {
	server   *server.Server
	handler  http.Handler
	stores   *gatewayStores
	projects *projectsvc.Service
	log      *zap.Logger
}

// New wires the gateway from cfg. A nil logger is built from the config.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		l, err := logging.New(cfg.Env, cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		log = l
	}

	ghClient, err := github.New(github.Options{BaseURL: cfg.GitHub.APIURL})
	if err != nil {
		return nil, fmt.Errorf("failed to init github client: %w", err)
	}
	gh := github.NewCached(ghClient, cfg.GitHub.CacheSize, cfg.GitHub.CacheTTL)

	stores, err := initStores(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	// Dependencies
	projects := projectsvc.New(stores.projects, stores.snapshots, gh, projectsvc.Options{Logger: log})
	sessions := auth.NewSessions(cfg.Session.Secret, auth.CookieConfig{
		Secure: cfg.Session.Secure,
		MaxAge: cfg.Session.MaxAge,
	})
	sessions.VerifyBearer(auth.BearerVerifierFunc(func(ctx context.Context, token string) (string, error) {
		me, err := gh.Me(ctx, token)
		return me.Login, err
	}), cfg.GitHub.CacheTTL)
	oauth := auth.NewOAuth(auth.OAuthConfig{
		ClientID:     cfg.GitHub.ClientID,
		ClientSecret: cfg.GitHub.ClientSecret,
		RedirectURL:  handler.CallbackURL(cfg.BaseURL),
		Scopes:       cfg.GitHub.Scopes,
		AuthURL:      cfg.GitHub.AuthURL,
		TokenURL:     cfg.GitHub.TokenURL,
	})
	h := handler.New(handler.Deps{
		BaseURL:  cfg.BaseURL,
		Sessions: sessions,
		OAuth:    oauth,
		GitHub:   gh,
		Projects: projects,
		Logger:   log,
	})

	// Routing & Server
	mux := server.NewMux(h, sessions, log, server.RouteOptions{
		AllowedOrigins: []string{cfg.BaseURL},
		WebRoot:        cfg.WebRoot,
	})
	srv := server.New(cfg.Port, mux, log)

	return &App{
		server:   srv,
		handler:  mux,
		stores:   stores,
		projects: projects,
		log:      log,
	}, nil
}

// Handler is the routed API without the listener.
func (a *App) Handler() http.Handler { return a.handler }

func (a *App) Start() error {
	return a.server.Start()
}

// Shutdown stops accepting requests, cancels running imports and closes
// the stores.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	a.projects.Close()
	return errors.Join(err, a.stores.projects.Close())
}
