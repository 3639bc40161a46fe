package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/baechuer/paas-platform/services/auth-service/internal/domain"
)

// SessionStore implements auth.SessionStore:
// - session:<id> -> sealed payload, with TTL
// - every Load re-arms the TTL (rolling sessions)
type SessionStore struct {
	rdb    *goredis.Client
	prefix string
}

func NewSessionStore(c *Client) *SessionStore {
	return &SessionStore{rdb: c.rdb, prefix: "session:"}
}

func (s *SessionStore) key(id string) string { return s.prefix + id }

func (s *SessionStore) Save(ctx context.Context, id string, payload []byte, ttl time.Duration) error {
	if id == "" {
		return domain.ErrMissingField("session_id")
	}
	if err := s.rdb.Set(ctx, s.key(id), payload, ttl).Err(); err != nil {
		return domain.ErrRedisUnavailable(err)
	}
	return nil
}

func (s *SessionStore) Load(ctx context.Context, id string, ttl time.Duration) ([]byte, error) {
	if id == "" {
		return nil, nil
	}

	var get *goredis.StringCmd
	_, err := s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		get = pipe.Get(ctx, s.key(id))
		pipe.Expire(ctx, s.key(id), ttl)
		return nil
	})
	if err != nil && !errors.Is(err, goredis.Nil) {
		return nil, domain.ErrRedisUnavailable(err)
	}

	b, err := get.Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, domain.ErrRedisUnavailable(err)
	}
	return b, nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := s.rdb.Del(ctx, s.key(id)).Err(); err != nil {
		return domain.ErrRedisUnavailable(err)
	}
	return nil
}
