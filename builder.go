package natours

import (
	"errors"
	"log/slog"
	"time"

	internalaudit "github.com/kmieshkov/Natours/internal/audit"
	"github.com/kmieshkov/Natours/internal/rate"
	"github.com/kmieshkov/Natours/password"
	"github.com/kmieshkov/Natours/token"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. A builder is single-use.
type Builder struct {
	config    Config
	redis     redis.UniversalClient
	directory UserDirectory
	mailer    Mailer
	auditSink AuditSink
	logger    *slog.Logger

	built bool
}

// New returns a builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

// WithConfig replaces the builder's configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithUserDirectory injects the persistent user-record store.
func (b *Builder) WithUserDirectory(d UserDirectory) *Builder {
	b.directory = d
	return b
}

// WithMailer injects the outbound email collaborator.
func (b *Builder) WithMailer(m Mailer) *Builder {
	b.mailer = m
	return b
}

// WithRedis injects the Redis client backing the signin and reset-request
// throttles. Without it, throttling is disabled.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAuditSink injects the sink receiving audit events.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger injects the structured logger. Defaults to slog.Default.
func (b *Builder) WithLogger(log *slog.Logger) *Builder {
	b.logger = log
	return b
}

// Build validates the configuration, wires the subsystems, and returns the
// engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.directory == nil {
		return nil, errors.New("user directory required")
	}
	if b.mailer == nil {
		return nil, errors.New("mailer required")
	}
	if b.redis == nil && cfg.Security.EnableLoginThrottle && cfg.Env == EnvProduction {
		return nil, errors.New("login throttle requires redis client in production")
	}

	hasher, err := password.NewHasher(password.Config{Cost: cfg.Password.Cost})
	if err != nil {
		return nil, err
	}
	if cfg.Env == EnvProduction && !hasher.MeetsProductionCost() {
		return nil, errors.New("password cost too low for production")
	}

	tokens, err := token.NewManager(token.Config{
		Secret: cloneBytes(cfg.Token.Secret),
		TTL:    cfg.Token.TTL,
		Issuer: cfg.Token.Issuer,
		Leeway: cfg.Token.Leeway,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:    cfg,
		directory: b.directory,
		mailer:    b.mailer,
		hasher:    hasher,
		tokens:    tokens,
		now:       time.Now,
	}

	if b.redis != nil {
		engine.limiter = rate.New(b.redis, rate.Config{
			EnableIPThrottle: cfg.Security.EnableIPThrottle,
			MaxLoginAttempts: cfg.Security.MaxLoginAttempts,
			LoginCooldown:    cfg.Security.LoginCooldown,
			MaxResetRequests: cfg.Security.MaxResetRequests,
			ResetCooldown:    cfg.Security.ResetCooldown,
		})
	}

	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)

	engine.log = b.logger
	if engine.log == nil {
		engine.log = slog.Default()
	}

	b.built = true

	return engine, nil
}
