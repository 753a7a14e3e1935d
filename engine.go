package natours

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	internalaudit "github.com/kmieshkov/Natours/internal/audit"
	"github.com/kmieshkov/Natours/internal/rate"
	"github.com/kmieshkov/Natours/password"
	"github.com/kmieshkov/Natours/token"
)

const (
	auditEventSignup               = "signup"
	auditEventSignin               = "signin"
	auditEventAuthenticate         = "authenticate"
	auditEventPasswordResetRequest = "password_reset_request"
	auditEventPasswordResetConfirm = "password_reset_confirm"
	auditEventPasswordChange       = "password_change"
)

// Engine composes the credential hasher, token service, reset-token
// generator, and the external collaborators into the authentication flows.
// Build one through [New]; a built Engine is immutable and safe for
// concurrent use.
type Engine struct {
	config    Config
	directory UserDirectory
	mailer    Mailer
	hasher    *password.Hasher
	tokens    *token.Manager
	limiter   *rate.Limiter
	audit     *internalaudit.Dispatcher
	log       *slog.Logger
	now       func() time.Time
}

// Close flushes and stops the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// Env returns the configured runtime environment.
func (e *Engine) Env() Env {
	return e.config.Env
}

// CookieName returns the cookie the middleware reads the token from when
// no Authorization header is present.
func (e *Engine) CookieName() string {
	return e.config.Token.CookieName
}

// TokenTTL returns the validity window of issued tokens.
func (e *Engine) TokenTTL() time.Duration {
	return e.config.Token.TTL
}

// AuditDropped returns how many audit events were discarded because the
// dispatch buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) issueToken(userID string) (string, error) {
	signed, err := e.tokens.Issue(userID)
	if err != nil {
		return "", errInternal(err)
	}
	return signed, nil
}

func (e *Engine) emitAudit(ctx context.Context, eventType string, success bool, userID, email string, cause error, metadata map[string]string) {
	if e.audit == nil {
		return
	}
	event := internalaudit.Event{
		Timestamp: e.now(),
		EventType: eventType,
		UserID:    userID,
		Email:     email,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if cause != nil {
		event.Error = cause.Error()
	}
	e.audit.Emit(ctx, event)
}

// throttleError maps limiter failures onto the flow error taxonomy. A Redis
// outage degrades to a service error rather than denying all signins.
func throttleError(err error, message string) *Error {
	if errors.Is(err, rate.ErrRateLimited) {
		return errRateLimited(message)
	}
	return errInternal(err)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// validateNewPassword enforces the shared password rules for signup, reset,
// and change flows.
func (e *Engine) validateNewPassword(plaintext, confirm string) error {
	if len(plaintext) < e.config.Password.MinLength {
		return errValidation("password must be at least 8 characters")
	}
	if plaintext != confirm {
		return errValidation("passwords are not the same")
	}
	return nil
}

// setPassword hashes plaintext onto user and stamps PasswordChangedAt one
// second in the past, so the token issued right after the mutation is not
// spuriously rejected by the stale check.
func (e *Engine) setPassword(user *User, plaintext string) error {
	hash, err := e.hasher.Hash(plaintext)
	if err != nil {
		return errInternal(err)
	}
	changedAt := e.now().Add(-time.Second)
	user.PasswordHash = hash
	user.PasswordChangedAt = &changedAt
	return nil
}
