package cache

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/projex/core"
)

const (
	revokedPrefix  = "auth:revoked:"
	attemptsPrefix = "auth:login:attempts:"
	lockPrefix     = "auth:login:lock:"
)

// store is what the auth caches need from a key-value backend.
type store interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	Increment(ctx context.Context, key string, expiration time.Duration) (int64, error)
	TTL(ctx context.Context, key string) (time.Duration, error)
}

var (
	_ store = (*RedisCache)(nil)
	_ store = (*MemoryCache)(nil)
)

type revocations struct {
	store store
	now   func() time.Time
}

var _ core.TokenRevoker = (*revocations)(nil)

func NewTokenRevoker(s store) core.TokenRevoker {
	return &revocations{store: s, now: time.Now}
}

func (r *revocations) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil // already expired
	}
	return errors.Wrap(r.store.Set(ctx, revokedPrefix+jti, "1", ttl), "revoking token")
}

func (r *revocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	return r.store.Exists(ctx, revokedPrefix+jti)
}

type loginLimiter struct {
	store       store
	maxAttempts int64
	lockout     time.Duration
}

var _ core.LoginLimiter = (*loginLimiter)(nil)

// NewLoginLimiter locks a key for lockout after maxAttempts failures within lockout.
func NewLoginLimiter(s store, maxAttempts int64, lockout time.Duration) core.LoginLimiter {
	return &loginLimiter{store: s, maxAttempts: maxAttempts, lockout: lockout}
}

func (l *loginLimiter) Locked(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := l.store.TTL(ctx, lockPrefix+key)
	if err != nil {
		return 0, errors.Wrap(err, "checking login lock")
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

func (l *loginLimiter) Fail(ctx context.Context, key string) (bool, error) {
	n, err := l.store.Increment(ctx, attemptsPrefix+key, l.lockout)
	if err != nil {
		return false, errors.Wrap(err, "counting login attempts")
	}
	if n < l.maxAttempts {
		return false, nil
	}
	if err := l.store.Set(ctx, lockPrefix+key, "1", l.lockout); err != nil {
		return false, errors.Wrap(err, "locking login")
	}
	return true, errors.Wrap(l.store.Delete(ctx, attemptsPrefix+key), "clearing login attempts")
}

func (l *loginLimiter) Reset(ctx context.Context, key string) error {
	return l.store.Delete(ctx, attemptsPrefix+key, lockPrefix+key)
}
