package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// LoginLimiter counts failed logins per (kind, email) over a fixed window.
type LoginLimiter interface {
	Allow(ctx context.Context, kind domain.PrincipalKind, email string) (bool, error)
	Fail(ctx context.Context, kind domain.PrincipalKind, email string) error
	Reset(ctx context.Context, kind domain.PrincipalKind, email string) error
}

// RedisLoginLimiter keeps counters in Redis so every API instance shares them.
type RedisLoginLimiter struct {
	client      redis.UniversalClient
	maxAttempts int64
	window      time.Duration
}

// NewRedisLoginLimiter returns a limiter. A non-positive maxAttempts disables throttling.
func NewRedisLoginLimiter(client redis.UniversalClient, maxAttempts int, window time.Duration) *RedisLoginLimiter {
	return &RedisLoginLimiter{client: client, maxAttempts: int64(maxAttempts), window: window}
}

func loginKey(kind domain.PrincipalKind, email string) string {
	return fmt.Sprintf("helpdesk:login:%s:%s", kind, email)
}

// Allow reports whether another attempt may be made.
func (l *RedisLoginLimiter) Allow(ctx context.Context, kind domain.PrincipalKind, email string) (bool, error) {
	if l.maxAttempts <= 0 {
		return true, nil
	}
	count, err := l.client.Get(ctx, loginKey(kind, email)).Int64()
	if errors.Is(err, redis.Nil) {
		return true, nil
	}
	if err != nil {
		return true, err
	}
	return count < l.maxAttempts, nil
}

// Fail records a failed attempt. The window starts at the first failure.
func (l *RedisLoginLimiter) Fail(ctx context.Context, kind domain.PrincipalKind, email string) error {
	if l.maxAttempts <= 0 {
		return nil
	}
	key := loginKey(kind, email)
	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return err
	}
	if count == 1 {
		return l.client.Expire(ctx, key, l.window).Err()
	}
	return nil
}

// Reset clears the counter after a successful login.
func (l *RedisLoginLimiter) Reset(ctx context.Context, kind domain.PrincipalKind, email string) error {
	return l.client.Del(ctx, loginKey(kind, email)).Err()
}

// NopLimiter never throttles.
type NopLimiter struct{}

func (NopLimiter) Allow(context.Context, domain.PrincipalKind, string) (bool, error) { return true, nil }
func (NopLimiter) Fail(context.Context, domain.PrincipalKind, string) error          { return nil }
func (NopLimiter) Reset(context.Context, domain.PrincipalKind, string) error         { return nil }
