package natours

import (
	"context"
	"testing"
	"time"
)

func TestAuthenticateMissingToken(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.engine.Authenticate(context.Background(), "")
	e := assertKind(t, err, KindAuthentication)
	if e.Message != "you are not logged in, please log in to get access" {
		t.Fatalf("message = %q", e.Message)
	}
}

func TestAuthenticateMalformedToken(t *testing.T) {
	env := newTestEnv(t)

	for _, in := range []string{"garbage", "a.b.c"} {
		_, err := env.engine.Authenticate(context.Background(), in)
		assertKind(t, err, KindAuthentication)
	}
}

func TestAuthenticateTamperedToken(t *testing.T) {
	env := newTestEnv(t)
	result := env.signup(t, "Ann", "ann@example.com", "password1")

	tampered := result.Token[:len(result.Token)-2] + "xx"
	_, err := env.engine.Authenticate(context.Background(), tampered)
	assertKind(t, err, KindAuthentication)
}

func TestAuthenticateExpiredToken(t *testing.T) {
	env := newTestEnvWith(t, func(cfg *Config, _ *Builder) {
		cfg.Token.TTL = time.Nanosecond
	})
	result := env.signup(t, "Ann", "ann@example.com", "password1")

	time.Sleep(50 * time.Millisecond)

	_, err := env.engine.Authenticate(context.Background(), result.Token)
	e := assertKind(t, err, KindAuthentication)
	if e.Message != "invalid token, please log in again" {
		t.Fatalf("message = %q", e.Message)
	}
}

func TestAuthenticateDeletedUser(t *testing.T) {
	env := newTestEnv(t)
	result := env.signup(t, "Ann", "ann@example.com", "password1")

	env.dir.remove(result.User.ID)

	_, err := env.engine.Authenticate(context.Background(), result.Token)
	e := assertKind(t, err, KindAuthentication)
	if e.Message != "the user belonging to this token no longer exists" {
		t.Fatalf("message = %q", e.Message)
	}
}

func TestAuthenticateStalePasswordToken(t *testing.T) {
	env := newTestEnv(t)
	result := env.signup(t, "Ann", "ann@example.com", "password1")

	// A password change recorded after the token was issued revokes it.
	changed := time.Now().Add(time.Minute)
	env.dir.update(t, result.User.ID, func(u *User) {
		u.PasswordChangedAt = &changed
	})

	_, err := env.engine.Authenticate(context.Background(), result.Token)
	e := assertKind(t, err, KindAuthentication)
	if e.Message != "password changed recently, please log in again" {
		t.Fatalf("message = %q", e.Message)
	}

	// A change that predates the token leaves it valid.
	earlier := time.Now().Add(-time.Minute)
	env.dir.update(t, result.User.ID, func(u *User) {
		u.PasswordChangedAt = &earlier
	})

	if _, err := env.engine.Authenticate(context.Background(), result.Token); err != nil {
		t.Fatalf("token issued after the change must authenticate: %v", err)
	}
}

func TestAuthenticateReturnsCurrentRecord(t *testing.T) {
	env := newTestEnv(t)
	result := env.signup(t, "Ann", "ann@example.com", "password1")

	// Role is re-read from the directory on every call, never embedded in
	// the token.
	env.dir.update(t, result.User.ID, func(u *User) {
		u.Role = RoleAdmin
	})

	user, err := env.engine.Authenticate(context.Background(), result.Token)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if user.Role != RoleAdmin {
		t.Fatalf("role = %q, want the updated %q", user.Role, RoleAdmin)
	}
}
