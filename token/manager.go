// Package token issues and verifies the signed, time-limited identity
// tokens used as bearer credentials by the Natours API.
//
// Tokens are self-contained JWTs signed with HS256 under a single
// process-wide secret. They bind the subject identity and the issue
// instant; the validity window is fixed at manager construction and
// enforced at verify time. No role or other mutable claim is embedded —
// the caller re-reads the user record on every protected request.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrExpired marks a token whose validity window has elapsed. Callers
	// may distinguish it from ErrInvalid for logging only; both must map to
	// the same caller-visible authentication failure.
	ErrExpired = errors.New("token expired")
	// ErrInvalid marks a malformed token or a bad signature.
	ErrInvalid = errors.New("token invalid")
)

// Config holds the signing parameters. Instances are validated by
// [NewManager] and treated as immutable afterwards.
type Config struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
	Leeway time.Duration
}

// Manager signs and verifies identity tokens. Safe for concurrent use.
type Manager struct {
	config Config
	now    func() time.Time
}

// Claims is the verified content of a token.
type Claims struct {
	SubjectID string
	IssuedAt  time.Time
}

// NewManager validates cfg and returns a token manager.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) < 32 {
		return nil, errors.New("signing secret must be at least 32 bytes")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	return &Manager{config: cfg, now: time.Now}, nil
}

// Issue produces a signed token binding subjectID and the current instant.
// Expiry is implicit: issue time plus the configured TTL.
func (m *Manager) Issue(subjectID string) (string, error) {
	if subjectID == "" {
		return "", errors.New("empty subject id")
	}

	now := m.now()
	claims := jwt.RegisteredClaims{
		Subject:   subjectID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.config.TTL)),
	}
	if m.config.Issuer != "" {
		claims.Issuer = m.config.Issuer
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.config.Secret)
}

// Verify checks the signature and validity window of tokenStr and returns
// its claims. Failures are [ErrExpired] or [ErrInvalid].
func (m *Manager) Verify(tokenStr string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	parsed, err := parser.ParseWithClaims(tokenStr, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		return m.config.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalid
	}
	if claims.Subject == "" || claims.IssuedAt == nil {
		return nil, ErrInvalid
	}

	return &Claims{
		SubjectID: claims.Subject,
		IssuedAt:  claims.IssuedAt.Time,
	}, nil
}
