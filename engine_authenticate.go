package natours

import (
	"context"
	"errors"

	"github.com/kmieshkov/Natours/token"
)

// Authenticate resolves a bearer token to the current user record. It backs
// the middleware package's Protect guard.
//
// The token must verify against the signing secret, the subject must still
// exist in the directory, and the token must have been issued after the
// user's most recent password change. That last check is what makes a
// password change revoke every previously issued token without a
// revocation list.
//
// All failure modes collapse to an authentication error; expired and
// malformed tokens are distinguished in the logs only.
func (e *Engine) Authenticate(ctx context.Context, tokenStr string) (*User, error) {
	if tokenStr == "" {
		return nil, errAuthentication("you are not logged in, please log in to get access")
	}

	claims, err := e.tokens.Verify(tokenStr)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			e.log.Debug("expired token presented", "error", err)
		} else {
			e.log.Debug("invalid token presented", "error", err)
		}
		e.emitAudit(ctx, auditEventAuthenticate, false, "", "", err, nil)
		return nil, errAuthentication("invalid token, please log in again")
	}

	user, err := e.directory.FindByID(ctx, claims.SubjectID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.emitAudit(ctx, auditEventAuthenticate, false, claims.SubjectID, "", err, nil)
			return nil, errAuthentication("the user belonging to this token no longer exists")
		}
		return nil, errInternal(err)
	}

	if user.PasswordChangedAfter(claims.IssuedAt) {
		e.emitAudit(ctx, auditEventAuthenticate, false, user.ID, user.Email, nil, map[string]string{
			"reason": "stale_password_token",
		})
		return nil, errAuthentication("password changed recently, please log in again")
	}

	return user, nil
}
