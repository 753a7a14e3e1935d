package natours

import (
	"context"
	"io"
	"time"

	internalaudit "github.com/kmieshkov/Natours/internal/audit"
)

// Role is the closed set of access roles a user can hold.
type Role string

const (
	// RoleStandard is the default role assigned at signup.
	RoleStandard Role = "standard"
	// RoleGuide is an exported role constant.
	RoleGuide Role = "guide"
	// RoleLeadGuide is an exported role constant.
	RoleLeadGuide Role = "lead-guide"
	// RoleAdmin is an exported role constant.
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStandard, RoleGuide, RoleLeadGuide, RoleAdmin:
		return true
	}
	return false
}

// User is the account record owned by the [UserDirectory] and referenced by
// this core. The password hash and reset fields never serialize outward and
// are stripped by [User.Sanitized] before a user is returned from a flow.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`

	PasswordHash string `json:"-"`

	// PasswordChangedAt is nil for accounts whose password never changed.
	// When set, it is recorded one second earlier than the true mutation
	// instant so that a token issued immediately after the change passes
	// the stale check while every earlier token fails it.
	PasswordChangedAt *time.Time `json:"-"`

	// PasswordResetTokenHash and PasswordResetExpiresAt hold the at-rest
	// digest and expiry of an outstanding reset secret. They are set
	// together and cleared together.
	PasswordResetTokenHash string     `json:"-"`
	PasswordResetExpiresAt *time.Time `json:"-"`
}

// Sanitized returns a copy of u with every credential field cleared.
func (u *User) Sanitized() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.PasswordHash = ""
	c.PasswordChangedAt = nil
	c.PasswordResetTokenHash = ""
	c.PasswordResetExpiresAt = nil
	return &c
}

// PasswordChangedAfter reports whether the password was mutated after the
// given token issue instant. Comparison is at second precision to match the
// token's issued-at resolution.
func (u *User) PasswordChangedAfter(issuedAt time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return issuedAt.Unix() < u.PasswordChangedAt.Unix()
}

// CreateUserInput is the input for [UserDirectory.Create]. The directory
// assigns the record's ID.
type CreateUserInput struct {
	Name         string
	Email        string
	PasswordHash string
	Role         Role
}

// SaveOptions controls a [UserDirectory.Save] call. SkipValidation persists
// a partial mutation (reset fields only) without re-validating the full
// record, mirroring a save that touches no credential-bearing field.
type SaveOptions struct {
	SkipValidation bool
}

// UserDirectory is the persistent user-record store, an external
// collaborator of this core. Implementations must provide atomic
// per-record read/update; the engine performs no cross-request locking.
//
// Lookups that match nothing return [ErrUserNotFound]. Any other failure is
// treated as a store outage and surfaces to callers as a service error.
type UserDirectory interface {
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	// FindByResetTokenHash matches a user whose reset-token digest equals
	// hash AND whose reset expiry is strictly after now.
	FindByResetTokenHash(ctx context.Context, hash string, now time.Time) (*User, error)
	Create(ctx context.Context, input CreateUserInput) (*User, error)
	Save(ctx context.Context, user *User, opts SaveOptions) error
}

// Mailer delivers outbound email, an external collaborator of this core.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// AuthResult is returned by flows that end with a signed-in caller.
// User is nil for flows that only issue a token.
type AuthResult struct {
	Token string `json:"token"`
	User  *User  `json:"user,omitempty"`
}

// SignupInput is the input for [Engine.Signup].
type SignupInput struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer], one object per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}
