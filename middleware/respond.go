package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	natours "github.com/kmieshkov/Natours"
)

// ErrorResponse is the JSON body written for a failed request.
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	// Error carries the internal cause. Development only.
	Error string `json:"error,omitempty"`
}

// WriteJSON writes body with the given status code.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteError renders err according to the environment's disclosure policy:
// development exposes the full error chain; production reveals the message
// of operational errors only and hides everything else behind a generic
// response.
func WriteError(w http.ResponseWriter, env natours.Env, err error) {
	e, ok := natours.AsError(err)
	if !ok {
		e = &natours.Error{Kind: natours.KindService, Message: "something went wrong", Err: err}
	}

	status := e.HTTPStatus()
	resp := ErrorResponse{Status: statusWord(status), Message: e.Message}

	if env == natours.EnvDevelopment {
		resp.Error = e.Error()
	} else if !e.Operational {
		resp.Message = "something went wrong"
	}

	WriteJSON(w, status, resp)
}

func statusWord(status int) string {
	if status >= 500 {
		return "error"
	}
	return "fail"
}

// SetTokenCookie stores the signed token in the engine's named cookie.
// The cookie is HttpOnly and, in production, Secure.
func SetTokenCookie(w http.ResponseWriter, engine *natours.Engine, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     engine.CookieName(),
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(engine.TokenTTL()),
		HttpOnly: true,
		Secure:   engine.Env() == natours.EnvProduction,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearTokenCookie expires the token cookie. Header-based clients simply
// discard their token; there is no server-side invalidation.
func ClearTokenCookie(w http.ResponseWriter, engine *natours.Engine) {
	http.SetCookie(w, &http.Cookie{
		Name:     engine.CookieName(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   engine.Env() == natours.EnvProduction,
		SameSite: http.SameSiteLaxMode,
	})
}
