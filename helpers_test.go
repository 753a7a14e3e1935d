package natours

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

var testSigningSecret = []byte("0123456789abcdef0123456789abcdef")

// testConfig is the development baseline used by the engine tests: minimum
// bcrypt cost to keep hashing fast, zero leeway for deterministic token
// windows, audit off unless a test wires a sink.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Token.Secret = cloneBytes(testSigningSecret)
	cfg.Token.Leeway = 0
	cfg.Password.Cost = bcrypt.MinCost
	cfg.PasswordReset.URLBase = "https://example.com/reset-password"
	cfg.Audit.Enabled = false
	return cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testEnv struct {
	engine *Engine
	dir    *memDirectory
	mailer *mockMailer
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWith(t, nil)
}

// newTestEnvWith builds an engine over fresh in-memory collaborators.
// mutate, when non-nil, adjusts the config and builder before Build.
func newTestEnvWith(t *testing.T, mutate func(cfg *Config, b *Builder)) *testEnv {
	t.Helper()

	cfg := testConfig()
	dir := newMemDirectory()
	mailer := &mockMailer{}

	b := New().
		WithUserDirectory(dir).
		WithMailer(mailer).
		WithLogger(discardLogger())
	if mutate != nil {
		mutate(&cfg, b)
	}

	engine, err := b.WithConfig(cfg).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testEnv{engine: engine, dir: dir, mailer: mailer}
}

// newThrottledEnv is newTestEnvWith plus a miniredis-backed limiter.
func newThrottledEnv(t *testing.T, mutate func(cfg *Config)) (*testEnv, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	env := newTestEnvWith(t, func(cfg *Config, b *Builder) {
		if mutate != nil {
			mutate(cfg)
		}
		b.WithRedis(rdb)
	})
	return env, mr
}

func (env *testEnv) signup(t *testing.T, name, email, password string) *AuthResult {
	t.Helper()

	result, err := env.engine.Signup(context.Background(), SignupInput{
		Name:            name,
		Email:           email,
		Password:        password,
		PasswordConfirm: password,
	})
	if err != nil {
		t.Fatalf("Signup failed: %v", err)
	}
	return result
}

func (env *testEnv) user(t *testing.T, email string) *User {
	t.Helper()

	user, err := env.dir.FindByEmail(context.Background(), email)
	if err != nil {
		t.Fatalf("FindByEmail(%q) failed: %v", email, err)
	}
	return user
}

// resetSecretFrom pulls the plaintext reset secret out of an emailed reset
// URL.
func resetSecretFrom(t *testing.T, body string) string {
	t.Helper()

	const marker = "reset-password/"
	i := strings.Index(body, marker)
	if i < 0 {
		t.Fatalf("no reset URL in email body: %q", body)
	}
	secret := body[i+len(marker):]
	if j := strings.IndexAny(secret, " \n"); j >= 0 {
		secret = secret[:j]
	}
	return secret
}

func assertKind(t *testing.T, err error, kind Kind) *Error {
	t.Helper()

	e, ok := AsError(err)
	if !ok {
		t.Fatalf("expected a flow error, got %v", err)
	}
	if e.Kind != kind {
		t.Fatalf("error kind = %d (%q), want %d", e.Kind, e.Message, kind)
	}
	return e
}

// memDirectory is the in-memory UserDirectory backing the engine tests.
type memDirectory struct {
	mu      sync.RWMutex
	users   map[string]User
	byEmail map[string]string
}

func newMemDirectory() *memDirectory {
	return &memDirectory{
		users:   make(map[string]User),
		byEmail: make(map[string]string),
	}
}

func (d *memDirectory) FindByID(_ context.Context, id string) (*User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	user, ok := d.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &user, nil
}

func (d *memDirectory) FindByEmail(_ context.Context, email string) (*User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	id, ok := d.byEmail[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	user := d.users[id]
	return &user, nil
}

func (d *memDirectory) FindByResetTokenHash(_ context.Context, hash string, now time.Time) (*User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, user := range d.users {
		if user.PasswordResetTokenHash == hash &&
			user.PasswordResetExpiresAt != nil &&
			user.PasswordResetExpiresAt.After(now) {
			u := user
			return &u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (d *memDirectory) Create(_ context.Context, input CreateUserInput) (*User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.byEmail[input.Email]; exists {
		return nil, ErrDuplicateEmail
	}

	user := User{
		ID:           uuid.NewString(),
		Name:         input.Name,
		Email:        input.Email,
		Role:         input.Role,
		PasswordHash: input.PasswordHash,
	}
	d.users[user.ID] = user
	d.byEmail[user.Email] = user.ID
	return &user, nil
}

func (d *memDirectory) Save(_ context.Context, user *User, _ SaveOptions) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.users[user.ID]; !ok {
		return ErrUserNotFound
	}
	d.users[user.ID] = *user
	return nil
}

// update applies fn to the stored record, bypassing the engine.
func (d *memDirectory) update(t *testing.T, id string, fn func(*User)) {
	t.Helper()

	d.mu.Lock()
	defer d.mu.Unlock()

	user, ok := d.users[id]
	if !ok {
		t.Fatalf("no stored user %q", id)
	}
	fn(&user)
	d.users[id] = user
}

func (d *memDirectory) remove(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if user, ok := d.users[id]; ok {
		delete(d.byEmail, user.Email)
		delete(d.users, id)
	}
}

type sentMail struct {
	to      string
	subject string
	body    string
}

// mockMailer records outbound mail; failWith makes every Send fail.
type mockMailer struct {
	mu       sync.Mutex
	sent     []sentMail
	failWith error
}

func (m *mockMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return m.failWith
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

func (m *mockMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *mockMailer) last(t *testing.T) sentMail {
	t.Helper()

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sent) == 0 {
		t.Fatal("no mail was sent")
	}
	return m.sent[len(m.sent)-1]
}

func (m *mockMailer) setFailure(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}
