package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClockCache() (*MemoryCache, *clock) {
	c := &clock{t: time.Date(2021, 3, 1, 12, 0, 0, 0, time.UTC)}
	m := NewMemoryCache()
	m.now = c.now
	return m, c
}

func TestTokenRevoker(t *testing.T) {
	ctx := context.Background()
	m, c := newClockCache()
	r := &revocations{store: m, now: c.now}

	revoked, err := r.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, r.Revoke(ctx, "jti-1", c.t.Add(time.Hour)))
	revoked, err = r.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	// kept only as long as the token lives
	c.advance(time.Hour)
	revoked, err = r.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, r.Revoke(ctx, "jti-2", c.t.Add(-time.Minute)))
	revoked, _ = r.IsRevoked(ctx, "jti-2")
	assert.False(t, revoked)
}

func TestLoginLimiter(t *testing.T) {
	ctx := context.Background()
	m, c := newClockCache()
	l := NewLoginLimiter(m, 3, time.Minute)

	for i := 1; i < 3; i++ {
		locked, err := l.Fail(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.False(t, locked, "attempt %d", i)
	}
	wait, err := l.Locked(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.Zero(t, wait)

	locked, err := l.Fail(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, locked)

	wait, err = l.Locked(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, wait)

	other, err := l.Locked(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.Zero(t, other)

	c.advance(40 * time.Second)
	wait, _ = l.Locked(ctx, "10.0.0.1")
	assert.Equal(t, 20*time.Second, wait)

	c.advance(20 * time.Second)
	wait, _ = l.Locked(ctx, "10.0.0.1")
	assert.Zero(t, wait)

	t.Run("reset clears attempts", func(t *testing.T) {
		_, _ = l.Fail(ctx, "10.0.0.3")
		_, _ = l.Fail(ctx, "10.0.0.3")
		require.NoError(t, l.Reset(ctx, "10.0.0.3"))
		locked, err := l.Fail(ctx, "10.0.0.3")
		require.NoError(t, err)
		assert.False(t, locked)
	})
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	m, c := newClockCache()

	_, err := m.Get(ctx, "missing")
	assert.Equal(t, ErrNotFound, err)

	require.NoError(t, m.Set(ctx, "k", 42, 0))
	v, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "42", v)
	ttl, _ := m.TTL(ctx, "k")
	assert.Equal(t, -time.Second, ttl)
	ttl, _ = m.TTL(ctx, "missing")
	assert.Equal(t, -2*time.Second, ttl)

	n, err := m.Increment(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(43), n)

	n, _ = m.Increment(ctx, "counter", time.Second)
	assert.Equal(t, int64(1), n)
	c.advance(time.Second)
	n, _ = m.Increment(ctx, "counter", time.Second)
	assert.Equal(t, int64(1), n)

	require.NoError(t, m.Delete(ctx, "k", "counter"))
	ok, _ := m.Exists(ctx, "k")
	assert.False(t, ok)
}
