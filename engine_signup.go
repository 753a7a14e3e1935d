package natours

import (
	"context"
	"errors"
	"fmt"
)

// Signup registers a new account with the default role, signs the caller
// in, and returns the fresh token together with the sanitized user record.
//
// The welcome email is best-effort: delivery failure is logged and audited
// but never fails the signup itself.
func (e *Engine) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	email := normalizeEmail(in.Email)

	if in.Name == "" {
		return nil, errValidation("please provide a name")
	}
	if !validEmail(email) {
		return nil, errValidation("please provide a valid email")
	}
	if err := e.validateNewPassword(in.Password, in.PasswordConfirm); err != nil {
		return nil, err
	}

	hash, err := e.hasher.Hash(in.Password)
	if err != nil {
		return nil, errInternal(err)
	}

	user, err := e.directory.Create(ctx, CreateUserInput{
		Name:         in.Name,
		Email:        email,
		PasswordHash: hash,
		Role:         RoleStandard,
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			e.emitAudit(ctx, auditEventSignup, false, "", email, err, nil)
			return nil, errValidation("email already in use")
		}
		return nil, errInternal(err)
	}

	signed, err := e.issueToken(user.ID)
	if err != nil {
		return nil, err
	}

	if err := e.mailer.Send(ctx, user.Email, "Welcome to the Natours family!",
		fmt.Sprintf("Hi %s, welcome aboard! We are glad to have you.", user.Name)); err != nil {
		e.log.Warn("welcome email delivery failed", "user_id", user.ID, "error", err)
	}

	e.emitAudit(ctx, auditEventSignup, true, user.ID, user.Email, nil, nil)

	return &AuthResult{Token: signed, User: user.Sanitized()}, nil
}
