package natours

import (
	"context"
	"testing"
	"time"
)

func TestBuildRequiresDirectoryAndMailer(t *testing.T) {
	cfg := testConfig()

	if _, err := New().WithConfig(cfg).WithMailer(&mockMailer{}).Build(); err == nil {
		t.Fatal("expected error without a user directory")
	}
	if _, err := New().WithConfig(cfg).WithUserDirectory(newMemDirectory()).Build(); err == nil {
		t.Fatal("expected error without a mailer")
	}
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Token.Secret = []byte("too short")

	_, err := New().
		WithConfig(cfg).
		WithUserDirectory(newMemDirectory()).
		WithMailer(&mockMailer{}).
		Build()
	if err == nil {
		t.Fatal("expected error for short signing secret")
	}
}

func TestBuildProductionRequiresRedisForThrottle(t *testing.T) {
	cfg := testConfig()
	cfg.Env = EnvProduction
	cfg.Password.Cost = 10

	_, err := New().
		WithConfig(cfg).
		WithUserDirectory(newMemDirectory()).
		WithMailer(&mockMailer{}).
		Build()
	if err == nil {
		t.Fatal("expected error: production login throttle needs redis")
	}
}

func TestBuildProductionRejectsLowCost(t *testing.T) {
	cfg := testConfig()
	cfg.Env = EnvProduction
	cfg.Security.EnableLoginThrottle = false

	_, err := New().
		WithConfig(cfg).
		WithUserDirectory(newMemDirectory()).
		WithMailer(&mockMailer{}).
		Build()
	if err == nil {
		t.Fatal("expected error: minimum bcrypt cost is below the production floor")
	}
}

func TestBuilderIsSingleUse(t *testing.T) {
	b := New().
		WithConfig(testConfig()).
		WithUserDirectory(newMemDirectory()).
		WithMailer(&mockMailer{}).
		WithLogger(discardLogger())

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("first Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	if _, err := b.Build(); err == nil {
		t.Fatal("expected error on second Build")
	}
}

func TestBuildClonesConfig(t *testing.T) {
	cfg := testConfig()

	env := newTestEnvWith(t, func(c *Config, _ *Builder) { *c = cfg })

	// Mutating the caller's secret after Build must not reach the engine.
	cfg.Token.Secret[0] ^= 0xff

	result := env.signup(t, "Ann", "ann@example.com", "password1")
	if _, err := env.engine.Authenticate(context.Background(), result.Token); err != nil {
		t.Fatalf("engine must hold its own copy of the secret: %v", err)
	}
}

func TestAuditEventsReachSink(t *testing.T) {
	sink := NewChannelSink(32)
	env := newTestEnvWith(t, func(cfg *Config, b *Builder) {
		cfg.Audit.Enabled = true
		b.WithAuditSink(sink)
	})

	ctx := WithClientIP(context.Background(), "203.0.113.9")

	result, err := env.engine.Signup(ctx, SignupInput{
		Name:            "Ann",
		Email:           "ann@example.com",
		Password:        "password1",
		PasswordConfirm: "password1",
	})
	if err != nil {
		t.Fatalf("Signup failed: %v", err)
	}
	if _, err := env.engine.Signin(ctx, "ann@example.com", "wrong-password"); err == nil {
		t.Fatal("expected signin failure")
	}

	env.engine.Close()

	events := map[string]AuditEvent{}
	for {
		drained := false
		select {
		case ev := <-sink.Events():
			events[ev.EventType] = ev
		default:
			drained = true
		}
		if drained {
			break
		}
	}

	signup, ok := events["signup"]
	if !ok {
		t.Fatal("no signup audit event")
	}
	if !signup.Success || signup.UserID != result.User.ID || signup.IP != "203.0.113.9" {
		t.Fatalf("unexpected signup event: %+v", signup)
	}

	signin, ok := events["signin"]
	if !ok {
		t.Fatal("no signin audit event")
	}
	if signin.Success || signin.Email != "ann@example.com" {
		t.Fatalf("unexpected signin event: %+v", signin)
	}

	if got := env.engine.AuditDropped(); got != 0 {
		t.Fatalf("dropped = %d, want 0", got)
	}
}

func TestEngineAccessors(t *testing.T) {
	env := newTestEnvWith(t, func(cfg *Config, _ *Builder) {
		cfg.Token.TTL = time.Hour
		cfg.Token.CookieName = "session"
	})

	if env.engine.Env() != EnvDevelopment {
		t.Fatalf("Env = %q", env.engine.Env())
	}
	if env.engine.CookieName() != "session" {
		t.Fatalf("CookieName = %q", env.engine.CookieName())
	}
	if env.engine.TokenTTL() != time.Hour {
		t.Fatalf("TokenTTL = %v", env.engine.TokenTTL())
	}
}
