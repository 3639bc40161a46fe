package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/paas-platform/services/auth-service/internal/domain"
)

func TestFixedWindowLimiter_RedisNil_Allows(t *testing.T) {
	l := NewFixedWindowLimiter(nil)

	d, err := l.Allow(context.Background(), "k", 10, time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Allowed || d.Remaining != 10 {
		t.Fatalf("expected fail-open decision, got %+v", d)
	}
}

func TestFixedWindowLimiter_LimitZero_Allows(t *testing.T) {
	c, _ := newTestClient(t)
	l := NewFixedWindowLimiter(c)

	d, err := l.Allow(context.Background(), "k", 0, time.Minute)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestFixedWindowLimiter_BlocksAfterLimit(t *testing.T) {
	c, mr := newTestClient(t)
	l := NewFixedWindowLimiter(c)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		d, err := l.Allow(ctx, "rl:auth.begin:ip:1.2.3.4:1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, d.Allowed, "hit %d", i)
		assert.Equal(t, 3-i, d.Remaining)
	}

	d, err := l.Allow(ctx, "rl:auth.begin:ip:1.2.3.4:1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Greater(t, d.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, d.RetryAfter, time.Minute)

	// the window expires with the key
	mr.FastForward(61 * time.Second)
	d, err = l.Allow(ctx, "rl:auth.begin:ip:1.2.3.4:1", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestFixedWindowLimiter_KeysAreIndependent(t *testing.T) {
	c, _ := newTestClient(t)
	l := NewFixedWindowLimiter(c)
	ctx := context.Background()

	_, _ = l.Allow(ctx, "a", 1, time.Minute)
	d, err := l.Allow(ctx, "b", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestFixedWindowLimiter_RedisDown(t *testing.T) {
	c, mr := newTestClient(t)
	l := NewFixedWindowLimiter(c)
	mr.Close()

	_, err := l.Allow(context.Background(), "k", 5, time.Minute)
	assert.True(t, domain.Is(err, "redis_unavailable"))
}
