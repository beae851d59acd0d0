package core

import (
	"context"
	"time"
)

type (
	// TokenRevoker keeps the ids of revoked tokens until they would have expired anyway.
	TokenRevoker interface {
		Revoke(ctx context.Context, jti string, expiresAt time.Time) error
		IsRevoked(ctx context.Context, jti string) (bool, error)
	}

	// LoginLimiter locks a login key (e.g. client IP) after too many failed attempts.
	LoginLimiter interface {
		// Locked returns for how long key is still locked; 0 when it is not.
		Locked(ctx context.Context, key string) (time.Duration, error)
		// Fail records a failed attempt and reports whether key is now locked.
		Fail(ctx context.Context, key string) (bool, error)
		Reset(ctx context.Context, key string) error
	}
)
