package middleware

import (
	"net/http"
	"path"
)

const (
	SignInPath   = "/auth/signin"
	CallbackPage = "/auth/github/callback"
)

var publicPages = map[string]bool{
	SignInPath:   true,
	CallbackPage: true,
}

// IsPublicPage reports whether path can be viewed without signing in.
func IsPublicPage(path string) bool {
	return publicPages[path]
}

// Guard redirects page navigations: signed-in users away from the sign-in
// pages, everyone else to the sign-in page. Requests for static assets
// (anything with a file extension) pass through untouched.
func Guard(sessions SessionReader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if path.Ext(r.URL.Path) != "" {
				next.ServeHTTP(w, r)
				return
			}
			_, authed := sessions.Get(r)
			public := IsPublicPage(r.URL.Path)
			switch {
			case authed && public:
				http.Redirect(w, r, "/", http.StatusFound)
				return
			case !authed && !public:
				http.Redirect(w, r, SignInPath, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
