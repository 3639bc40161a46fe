package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/paas-platform/services/auth-service/internal/domain"
)

func TestSessionStore_SaveLoadDelete(t *testing.T) {
	c, mr := newTestClient(t)
	s := NewSessionStore(c)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "sid", []byte("sealed"), time.Hour))
	assert.True(t, mr.Exists("session:sid"))

	got, err := s.Load(ctx, "sid", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []byte("sealed"), got)

	require.NoError(t, s.Delete(ctx, "sid"))
	require.NoError(t, s.Delete(ctx, "sid"))

	got, err = s.Load(ctx, "sid", time.Hour)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSessionStore_LoadMissing(t *testing.T) {
	c, mr := newTestClient(t)
	s := NewSessionStore(c)

	got, err := s.Load(context.Background(), "nope", time.Hour)
	require.NoError(t, err)
	assert.Nil(t, got)
	// a miss must not create the key
	assert.False(t, mr.Exists("session:nope"))
}

func TestSessionStore_LoadExtendsTTL(t *testing.T) {
	c, mr := newTestClient(t)
	s := NewSessionStore(c)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "sid", []byte("p"), time.Hour))
	mr.FastForward(50 * time.Minute)

	_, err := s.Load(ctx, "sid", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, mr.TTL("session:sid"))

	mr.FastForward(50 * time.Minute)
	got, err := s.Load(ctx, "sid", time.Hour)
	require.NoError(t, err)
	assert.NotNil(t, got, "rolling ttl keeps an active session alive")
}

func TestSessionStore_Expires(t *testing.T) {
	c, mr := newTestClient(t)
	s := NewSessionStore(c)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "sid", []byte("p"), time.Minute))
	mr.FastForward(2 * time.Minute)

	got, err := s.Load(ctx, "sid", time.Minute)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSessionStore_RedisDown(t *testing.T) {
	c, mr := newTestClient(t)
	s := NewSessionStore(c)
	mr.Close()
	ctx := context.Background()

	assert.True(t, domain.Is(s.Save(ctx, "sid", []byte("p"), time.Minute), "redis_unavailable"))
	_, err := s.Load(ctx, "sid", time.Minute)
	assert.True(t, domain.Is(err, "redis_unavailable"))
	assert.True(t, domain.Is(s.Delete(ctx, "sid"), "redis_unavailable"))
}

func TestSessionStore_EmptyID(t *testing.T) {
	c, _ := newTestClient(t)
	s := NewSessionStore(c)

	assert.True(t, domain.Is(s.Save(context.Background(), "", nil, time.Minute), "missing_field"))
	got, err := s.Load(context.Background(), "", time.Minute)
	assert.NoError(t, err)
	assert.Nil(t, got)
}
