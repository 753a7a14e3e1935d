package middleware

import (
	"net/http"

	natours "github.com/kmieshkov/Natours"
)

// RestrictTo authorizes the already-authenticated caller by role. It must
// run after Protect in the chain; without an authenticated identity it
// rejects with an authentication error rather than a role error.
func RestrictTo(engine *natours.Engine, roles ...natours.Role) func(http.Handler) http.Handler {
	allowed := make(map[natours.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				WriteError(w, engine.Env(), authRequiredError())
				return
			}

			if _, ok := allowed[user.Role]; !ok {
				WriteError(w, engine.Env(), forbiddenError())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func authRequiredError() error {
	return &natours.Error{
		Kind:        natours.KindAuthentication,
		Message:     "you are not logged in, please log in to get access",
		Operational: true,
	}
}

func forbiddenError() error {
	return &natours.Error{
		Kind:        natours.KindAuthorization,
		Message:     "you do not have permission to perform this action",
		Operational: true,
	}
}
