// Package auth holds the gateway's GitHub sign-in: the OAuth code exchange
// and the signed cookie that carries the user's access token afterwards.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	SessionCookie = "github_token"
	StateCookie   = "oauth_state"
	DefaultMaxAge = 24 * time.Hour
	stateMaxAge   = 10 * time.Minute
	sessionIssuer = "ghimport"
	bearerPrefix  = "bearer "

	verifiedBearerSize = 1024
)

var (
	ErrInvalidSession = errors.New("invalid session")
	ErrSessionExpired = errors.New("session expired")
)

// Session is an authenticated caller. Login is empty for a bearer token
// accepted without a verifier.
type Session struct {
	Token     string
	Login     string
	ExpiresAt time.Time
}

type sessionClaims struct {
	jwt.RegisteredClaims
	Token string `json:"gh"`
	Login string `json:"login,omitempty"`
}

type CookieConfig struct {
	Secure   bool
	SameSite http.SameSite
	Path     string
	MaxAge   time.Duration
}

// BearerVerifier resolves a raw GitHub token to the login it belongs to.
type BearerVerifier interface {
	Login(ctx context.Context, token string) (string, error)
}

type BearerVerifierFunc func(ctx context.Context, token string) (string, error)

func (f BearerVerifierFunc) Login(ctx context.Context, token string) (string, error) {
	return f(ctx, token)
}

// Sessions reads and writes the session and OAuth state cookies.
type Sessions struct {
	secret []byte
	cfg    CookieConfig
	now    func() time.Time

	verifier BearerVerifier
	verified *expirable.LRU[string, string]
}

func NewSessions(secret string, cfg CookieConfig) *Sessions {
	if cfg.Path == "" {
		cfg.Path = "/"
	}
	if cfg.SameSite == 0 {
		cfg.SameSite = http.SameSiteLaxMode
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultMaxAge
	}
	return &Sessions{secret: []byte(secret), cfg: cfg, now: time.Now}
}

// Encode signs token and login into a cookie value.
func (s *Sessions) Encode(token, login string) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.cfg.MaxAge)
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			Subject:   login,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Token: token,
		Login: login,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Decode validates a cookie value.
func (s *Sessions) Decode(value string) (Session, error) {
	parsed, err := jwt.ParseWithClaims(value, &sessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Session{}, ErrSessionExpired
		}
		return Session{}, ErrInvalidSession
	}
	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok || !parsed.Valid || claims.Token == "" {
		return Session{}, ErrInvalidSession
	}
	out := Session{Token: claims.Token, Login: claims.Login}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

// Set stores a new session cookie.
func (s *Sessions) Set(w http.ResponseWriter, token, login string) error {
	value, _, err := s.Encode(token, login)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    value,
		Path:     s.cfg.Path,
		MaxAge:   int(s.cfg.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   s.cfg.Secure,
		SameSite: s.cfg.SameSite,
	})
	return nil
}

// VerifyBearer makes Get accept a bearer token only once v resolved it.
// Successful lookups are remembered for ttl; failures are not.
func (s *Sessions) VerifyBearer(v BearerVerifier, ttl time.Duration) {
	s.verifier = v
	s.verified = expirable.NewLRU[string, string](verifiedBearerSize, nil, ttl)
}

func (s *Sessions) bearerLogin(ctx context.Context, token string) (string, bool) {
	if s.verifier == nil {
		return "", true
	}
	sum := sha256.Sum256([]byte(token))
	key := hex.EncodeToString(sum[:])
	if login, ok := s.verified.Get(key); ok {
		return login, true
	}
	login, err := s.verifier.Login(ctx, token)
	if err != nil || login == "" {
		return "", false
	}
	s.verified.Add(key, login)
	return login, true
}

// Get returns the caller's session. A bearer token in the Authorization
// header wins over the cookie.
func (s *Sessions) Get(r *http.Request) (Session, bool) {
	if token := BearerToken(r.Header.Get("Authorization")); token != "" {
		login, ok := s.bearerLogin(r.Context(), token)
		if !ok {
			return Session{}, false
		}
		return Session{Token: token, Login: login}, true
	}
	c, err := r.Cookie(SessionCookie)
	if err != nil || c.Value == "" {
		return Session{}, false
	}
	sess, err := s.Decode(c.Value)
	if err != nil {
		return Session{}, false
	}
	return sess, true
}

// Clear expires the session cookie immediately.
func (s *Sessions) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     s.cfg.Path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.Secure,
		SameSite: s.cfg.SameSite,
	})
}

func (s *Sessions) SetOAuthState(w http.ResponseWriter, state string) {
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int(stateMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   s.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Sessions) OAuthState(r *http.Request) string {
	c, err := r.Cookie(StateCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

func (s *Sessions) ClearOAuthState(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:   StateCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(header[len(bearerPrefix):])
}
