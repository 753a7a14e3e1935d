package natours

import (
	"context"
	"errors"
)

// UpdatePassword changes the password of an already-authenticated caller.
// The flow sits behind the Protect middleware; userID is the authenticated
// identity, not caller input.
//
// The mutation stamps PasswordChangedAt, which invalidates every token
// issued before it, and returns a fresh token for the caller to keep.
func (e *Engine) UpdatePassword(ctx context.Context, userID, currentPassword, newPassword, newPasswordConfirm string) (*AuthResult, error) {
	user, err := e.directory.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, errAuthentication("the user belonging to this token no longer exists")
		}
		return nil, errInternal(err)
	}

	ok, err := e.hasher.Verify(currentPassword, user.PasswordHash)
	if err != nil {
		return nil, errInternal(err)
	}
	if !ok {
		e.emitAudit(ctx, auditEventPasswordChange, false, user.ID, user.Email, nil, map[string]string{
			"reason": "wrong_current_password",
		})
		return nil, errAuthentication("your current password is wrong")
	}

	if err := e.validateNewPassword(newPassword, newPasswordConfirm); err != nil {
		return nil, err
	}

	if err := e.setPassword(user, newPassword); err != nil {
		return nil, err
	}
	if err := e.directory.Save(ctx, user, SaveOptions{}); err != nil {
		return nil, errInternal(err)
	}

	e.clearSigninThrottle(ctx, user.Email)

	signed, err := e.issueToken(user.ID)
	if err != nil {
		return nil, err
	}

	e.emitAudit(ctx, auditEventPasswordChange, true, user.ID, user.Email, nil, nil)

	return &AuthResult{Token: signed}, nil
}
