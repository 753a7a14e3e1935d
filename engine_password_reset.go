package natours

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kmieshkov/Natours/internal/resettoken"
)

// ForgotPassword issues a one-time reset secret for the account with the
// given email and mails it embedded in a reset URL. Only a hash of the
// secret is persisted, together with a 10-minute expiry.
//
// An unknown email fails with a distinct not-found error. That mirrors the
// documented API behavior even though it is an enumeration side channel;
// see the package documentation before changing it.
//
// If email delivery fails, the persisted reset fields are rolled back so no
// valid secret dangles for a user who never received it.
func (e *Engine) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return errValidation("please provide an email address")
	}

	if e.limiter != nil {
		if err := e.limiter.CheckResetRequest(ctx, email, clientIPFromContext(ctx)); err != nil {
			e.emitAudit(ctx, auditEventPasswordResetRequest, false, "", email, err, nil)
			return throttleError(err, "too many password reset requests, please try again later")
		}
	}

	user, err := e.directory.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.emitAudit(ctx, auditEventPasswordResetRequest, false, "", email, err, nil)
			return errNotFound("there is no user with that email address")
		}
		return errInternal(err)
	}

	secret, digest, err := resettoken.Generate()
	if err != nil {
		return errInternal(err)
	}

	expiresAt := e.now().Add(e.config.PasswordReset.TTL)
	user.PasswordResetTokenHash = digest
	user.PasswordResetExpiresAt = &expiresAt
	if err := e.directory.Save(ctx, user, SaveOptions{SkipValidation: true}); err != nil {
		return errInternal(err)
	}

	subject := fmt.Sprintf("Your password reset token (valid for %d minutes)", int(e.config.PasswordReset.TTL.Minutes()))
	body := fmt.Sprintf(
		"Forgot your password? Submit a request with your new password and password confirmation to: %s\nIf you didn't forget your password, please ignore this email.",
		e.resetURL(secret),
	)

	if err := e.mailer.Send(ctx, user.Email, subject, body); err != nil {
		// Roll back: a secret the user never received must not stay valid.
		user.PasswordResetTokenHash = ""
		user.PasswordResetExpiresAt = nil
		if saveErr := e.directory.Save(ctx, user, SaveOptions{SkipValidation: true}); saveErr != nil {
			e.log.Error("failed to roll back reset token after email failure", "user_id", user.ID, "error", saveErr)
		}
		e.emitAudit(ctx, auditEventPasswordResetRequest, false, user.ID, user.Email, err, nil)
		return errService("there was an error sending the email, try again later", err)
	}

	e.emitAudit(ctx, auditEventPasswordResetRequest, true, user.ID, user.Email, nil, nil)
	return nil
}

// ResetPassword redeems a plaintext reset secret from the reset URL. The
// secret must hash to an outstanding, unexpired reset digest; it is
// consumed on success. The password mutation also invalidates every token
// issued before it, and the caller is signed in with a fresh one.
func (e *Engine) ResetPassword(ctx context.Context, rawSecret, newPassword, newPasswordConfirm string) (*AuthResult, error) {
	if err := e.validateNewPassword(newPassword, newPasswordConfirm); err != nil {
		return nil, err
	}

	user, err := e.directory.FindByResetTokenHash(ctx, resettoken.Hash(rawSecret), e.now())
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.emitAudit(ctx, auditEventPasswordResetConfirm, false, "", "", err, nil)
			return nil, errValidation("token is invalid or has expired")
		}
		return nil, errInternal(err)
	}

	if err := e.setPassword(user, newPassword); err != nil {
		return nil, err
	}
	user.PasswordResetTokenHash = ""
	user.PasswordResetExpiresAt = nil
	if err := e.directory.Save(ctx, user, SaveOptions{}); err != nil {
		return nil, errInternal(err)
	}

	e.clearSigninThrottle(ctx, user.Email)

	signed, err := e.issueToken(user.ID)
	if err != nil {
		return nil, err
	}

	e.emitAudit(ctx, auditEventPasswordResetConfirm, true, user.ID, user.Email, nil, nil)

	return &AuthResult{Token: signed}, nil
}

func (e *Engine) resetURL(secret string) string {
	base := e.config.PasswordReset.URLBase
	if base == "" {
		return secret
	}
	return strings.TrimRight(base, "/") + "/" + secret
}

func (e *Engine) clearSigninThrottle(ctx context.Context, email string) {
	if !e.throttleSignin() {
		return
	}
	if err := e.limiter.ResetSignin(ctx, email, clientIPFromContext(ctx)); err != nil {
		e.log.Warn("failed to clear signin throttle", "email", email, "error", err)
	}
}
