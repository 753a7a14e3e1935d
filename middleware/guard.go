// Package middleware provides the access-control chain for routes served
// by the Natours API: Protect authenticates the caller and RestrictTo
// authorizes by role. The chain is sequential and short-circuiting — the
// first failure terminates the request and nothing downstream runs.
package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	natours "github.com/kmieshkov/Natours"
)

type userContextKey struct{}

// UserFromContext returns the identity attached by Protect. It is set
// exactly once per request and only after authentication succeeded.
func UserFromContext(ctx context.Context) (*natours.User, bool) {
	user, ok := ctx.Value(userContextKey{}).(*natours.User)
	return user, ok
}

// Protect authenticates the caller before the wrapped handler runs.
//
// The bearer token is read from the Authorization header, falling back to
// the engine's named cookie; the header takes precedence. On success the
// resolved user is attached to the request context for downstream
// middleware and handlers.
func Protect(engine *natours.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := natours.WithClientIP(r.Context(), clientIP(r))

			user, err := engine.Authenticate(ctx, TokenFromRequest(r, engine.CookieName()))
			if err != nil {
				WriteError(w, engine.Env(), err)
				return
			}

			ctx = context.WithValue(ctx, userContextKey{}, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TokenFromRequest extracts the bearer token from the Authorization header
// or, failing that, from the named cookie.
func TokenFromRequest(r *http.Request, cookieName string) string {
	if token, ok := bearerToken(r.Header.Get("Authorization")); ok {
		return token
	}
	if cookie, err := r.Cookie(cookieName); err == nil {
		return cookie.Value
	}
	return ""
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}
	token := value[len(bearer):]
	if token == "" {
		return "", false
	}
	return token, true
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
