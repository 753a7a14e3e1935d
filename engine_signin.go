package natours

import (
	"context"
	"errors"
)

// Signin failures never reveal whether the email or the password was wrong.
const msgIncorrectCredentials = "incorrect email or password"

// Signin verifies the credentials and returns a fresh token.
//
// An unknown email and a wrong password produce the identical error message
// and status, so the endpoint cannot be used for account enumeration.
func (e *Engine) Signin(ctx context.Context, email, plaintext string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || plaintext == "" {
		return nil, errValidation("please provide email and password")
	}

	ip := clientIPFromContext(ctx)
	if e.throttleSignin() {
		if err := e.limiter.CheckSignin(ctx, email, ip); err != nil {
			e.emitAudit(ctx, auditEventSignin, false, "", email, err, nil)
			return nil, throttleError(err, "too many signin attempts, please try again later")
		}
	}

	user, err := e.directory.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.recordSigninFailure(ctx, email, ip)
			return nil, errAuthentication(msgIncorrectCredentials)
		}
		return nil, errInternal(err)
	}

	ok, err := e.hasher.Verify(plaintext, user.PasswordHash)
	if err != nil {
		return nil, errInternal(err)
	}
	if !ok {
		e.recordSigninFailure(ctx, email, ip)
		return nil, errAuthentication(msgIncorrectCredentials)
	}

	if e.throttleSignin() {
		if err := e.limiter.ResetSignin(ctx, email, ip); err != nil {
			e.log.Warn("failed to clear signin throttle", "email", email, "error", err)
		}
	}

	signed, err := e.issueToken(user.ID)
	if err != nil {
		return nil, err
	}

	e.emitAudit(ctx, auditEventSignin, true, user.ID, user.Email, nil, nil)

	return &AuthResult{Token: signed}, nil
}

func (e *Engine) throttleSignin() bool {
	return e.limiter != nil && e.config.Security.EnableLoginThrottle
}

func (e *Engine) recordSigninFailure(ctx context.Context, email, ip string) {
	e.emitAudit(ctx, auditEventSignin, false, "", email, errAuthentication(msgIncorrectCredentials), nil)
	if !e.throttleSignin() {
		return
	}
	if err := e.limiter.IncrementSignin(ctx, email, ip); err != nil {
		// The failure is already being rejected; the counter outcome only
		// affects future attempts.
		e.log.Warn("failed to record signin attempt", "email", email, "error", err)
	}
}
