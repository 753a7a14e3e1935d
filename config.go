package natours

import (
	"errors"
	"strings"
	"time"
)

// Env selects the runtime environment. It controls cookie security flags
// and how much error detail is rendered at the HTTP boundary.
type Env string

const (
	// EnvDevelopment renders full error detail and allows insecure cookies.
	EnvDevelopment Env = "development"
	// EnvProduction hides internal error detail and marks cookies Secure.
	EnvProduction Env = "production"
)

// Config holds every tunable consumed by the engine. Instances are cloned
// on injection and treated as immutable afterwards; there is no ambient or
// static configuration state.
type Config struct {
	Env           Env
	Token         TokenConfig
	Password      PasswordConfig
	PasswordReset PasswordResetConfig
	Security      SecurityConfig
	Email         EmailConfig
	Audit         AuditConfig
}

// TokenConfig tunes the token service.
type TokenConfig struct {
	// Secret is the single process-wide signing secret. Rotating it
	// invalidates all outstanding tokens.
	Secret []byte
	// TTL is the fixed validity window enforced at verify time.
	TTL time.Duration
	// Issuer, when set, is embedded and required on verify.
	Issuer string
	// Leeway tolerates small clock skew between issuer and verifier.
	Leeway time.Duration
	// CookieName is the cookie the middleware falls back to when no
	// Authorization header is present.
	CookieName string
}

// PasswordConfig tunes the credential hasher.
type PasswordConfig struct {
	// Cost is the bcrypt work factor. Production requires >= 10.
	Cost int
	// MinLength is the minimum accepted plaintext length.
	MinLength int
}

// PasswordResetConfig tunes reset-secret issuance.
type PasswordResetConfig struct {
	// TTL is the reset-secret lifetime.
	TTL time.Duration
	// URLBase is prepended to the plaintext secret to form the reset URL
	// sent by email, e.g. "https://host/api/v1/users/reset-password/".
	URLBase string
}

// SecurityConfig tunes the Redis-backed request throttles. Throttling is
// active only when a Redis client is injected through the builder.
type SecurityConfig struct {
	EnableLoginThrottle bool
	EnableIPThrottle    bool
	MaxLoginAttempts    int
	LoginCooldown       time.Duration
	MaxResetRequests    int
	ResetCooldown       time.Duration
}

// EmailConfig holds sender identity for outbound mail.
type EmailConfig struct {
	From string
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// DefaultConfig returns the baseline configuration: development environment,
// 90-day tokens, bcrypt cost 12, 10-minute reset secrets, and throttling
// tuned to 10 attempts per 15 minutes.
func DefaultConfig() Config {
	return Config{
		Env: EnvDevelopment,
		Token: TokenConfig{
			TTL:        90 * 24 * time.Hour,
			Leeway:     30 * time.Second,
			CookieName: "jwt",
		},
		Password: PasswordConfig{
			Cost:      12,
			MinLength: 8,
		},
		PasswordReset: PasswordResetConfig{
			TTL: 10 * time.Minute,
		},
		Security: SecurityConfig{
			EnableLoginThrottle: true,
			EnableIPThrottle:    true,
			MaxLoginAttempts:    10,
			LoginCooldown:       15 * time.Minute,
			MaxResetRequests:    5,
			ResetCooldown:       time.Hour,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 64,
			DropIfFull: true,
		},
	}
}

// Validate checks the configuration for internal consistency. It is called
// by [Builder.Build]; direct use is only needed when configs are assembled
// from external sources ahead of time.
func (c Config) Validate() error {
	switch c.Env {
	case EnvDevelopment, EnvProduction:
	default:
		return errors.New("env must be development or production")
	}
	if len(c.Token.Secret) < 32 {
		return errors.New("token secret must be at least 32 bytes")
	}
	if c.Token.TTL <= 0 {
		return errors.New("token TTL must be positive")
	}
	if c.Token.Leeway < 0 || c.Token.Leeway > 2*time.Minute {
		return errors.New("token leeway out of range")
	}
	if strings.TrimSpace(c.Token.CookieName) == "" {
		return errors.New("token cookie name required")
	}
	if c.Env == EnvProduction && c.Password.Cost < 10 {
		return errors.New("password cost must be >= 10 in production")
	}
	if c.Password.Cost < 4 || c.Password.Cost > 31 {
		return errors.New("password cost out of range")
	}
	if c.Password.MinLength < 8 {
		return errors.New("password minimum length must be >= 8")
	}
	if c.PasswordReset.TTL <= 0 {
		return errors.New("password reset TTL must be positive")
	}
	if c.Security.EnableLoginThrottle {
		if c.Security.MaxLoginAttempts <= 0 || c.Security.LoginCooldown <= 0 {
			return errors.New("login throttle requires attempts and cooldown")
		}
	}
	if c.Security.MaxResetRequests < 0 {
		return errors.New("reset throttle attempts must not be negative")
	}
	if c.Audit.Enabled && c.Audit.BufferSize < 0 {
		return errors.New("audit buffer size must not be negative")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.Secret = cloneBytes(cfg.Token.Secret)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
