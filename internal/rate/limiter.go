// Package rate enforces fixed-window request throttles for signin attempts
// and password-reset requests, backed by Redis counters.
package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds throttle tuning parameters.
type Config struct {
	EnableIPThrottle bool
	MaxLoginAttempts int
	LoginCooldown    time.Duration
	MaxResetRequests int
	ResetCooldown    time.Duration
}

// Limiter tracks failed signins per email (and optionally per IP) and
// reset requests per email. Counters use fixed-window semantics: the TTL is
// set on the first hit of a window and the window expires as a whole.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{redis: redisClient, config: cfg}
}

// CheckSignin reports whether the email+IP pair is still within the failed
// signin budget.
func (l *Limiter) CheckSignin(ctx context.Context, email, ip string) error {
	if err := l.checkCounter(ctx, signinEmailKey(email), l.config.MaxLoginAttempts); err != nil {
		return err
	}
	if l.config.EnableIPThrottle && ip != "" {
		if err := l.checkCounter(ctx, signinIPKey(ip), l.config.MaxLoginAttempts); err != nil {
			return err
		}
	}
	return nil
}

// IncrementSignin records a failed signin for the email+IP pair.
func (l *Limiter) IncrementSignin(ctx context.Context, email, ip string) error {
	count, err := l.incrementWithTTL(ctx, signinEmailKey(email), l.config.LoginCooldown)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxLoginAttempts) {
		return ErrRateLimited
	}

	if l.config.EnableIPThrottle && ip != "" {
		count, err = l.incrementWithTTL(ctx, signinIPKey(ip), l.config.LoginCooldown)
		if err != nil {
			return err
		}
		if count > int64(l.config.MaxLoginAttempts) {
			return ErrRateLimited
		}
	}
	return nil
}

// ResetSignin clears the failed-signin counters after a successful signin
// or a completed password change.
func (l *Limiter) ResetSignin(ctx context.Context, email, ip string) error {
	keys := []string{signinEmailKey(email)}
	if l.config.EnableIPThrottle && ip != "" {
		keys = append(keys, signinIPKey(ip))
	}
	if err := l.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// CheckResetRequest counts a password-reset request for the email and
// reports whether the budget is exceeded. Requests are counted up front so
// repeated probing is throttled regardless of outcome.
func (l *Limiter) CheckResetRequest(ctx context.Context, email, ip string) error {
	if l.config.MaxResetRequests <= 0 {
		return nil
	}

	count, err := l.incrementWithTTL(ctx, resetEmailKey(email), l.config.ResetCooldown)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxResetRequests) {
		return ErrRateLimited
	}

	if l.config.EnableIPThrottle && ip != "" {
		count, err = l.incrementWithTTL(ctx, resetIPKey(ip), l.config.ResetCooldown)
		if err != nil {
			return err
		}
		if count > int64(l.config.MaxResetRequests) {
			return ErrRateLimited
		}
	}
	return nil
}

func (l *Limiter) checkCounter(ctx context.Context, key string, maxAttempts int) error {
	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count > int64(maxAttempts) {
		return ErrRateLimited
	}
	return nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}

func signinEmailKey(email string) string {
	return "natours:rl:signin:e:" + email
}

func signinIPKey(ip string) string {
	return "natours:rl:signin:ip:" + ip
}

func resetEmailKey(email string) string {
	return "natours:rl:reset:e:" + email
}

func resetIPKey(ip string) string {
	return "natours:rl:reset:ip:" + ip
}
