package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/baechuer/paas-platform/services/auth-service/internal/application/auth"
	"github.com/baechuer/paas-platform/services/auth-service/internal/domain"
)

var errCorruptState = errors.New("corrupt oauth state")

// OAuthStateStore keeps pending authorization requests under oauth:state:<state>.
type OAuthStateStore struct {
	client *Client
	prefix string
}

func NewOAuthStateStore(client *Client) *OAuthStateStore {
	return &OAuthStateStore{client: client, prefix: "oauth:state:"}
}

func (s *OAuthStateStore) Save(ctx context.Context, state string, data auth.OAuthStateData, ttl time.Duration) error {
	if state == "" {
		return domain.ErrMissingField("state")
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return domain.ErrInternal(fmt.Errorf("marshal oauth state: %w", err))
	}
	if err := s.client.rdb.Set(ctx, s.prefix+state, raw, ttl).Err(); err != nil {
		return domain.ErrRedisUnavailable(err)
	}
	return nil
}

// Consume reads and deletes the state atomically (one-time use).
// If another request consumes it concurrently, this one loses the WATCH and
// sees invalid_oauth_state.
func (s *OAuthStateStore) Consume(ctx context.Context, state string) (auth.OAuthStateData, error) {
	if state == "" {
		return auth.OAuthStateData{}, domain.ErrInvalidState()
	}
	key := s.prefix + state

	var data auth.OAuthStateData
	err := s.client.rdb.Watch(ctx, func(tx *goredis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			return err
		}
		if err := json.Unmarshal(raw, &data); err != nil {
			return errCorruptState
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		return data, nil
	case errors.Is(err, goredis.Nil), errors.Is(err, goredis.TxFailedErr), errors.Is(err, errCorruptState):
		return auth.OAuthStateData{}, domain.ErrInvalidState()
	default:
		return auth.OAuthStateData{}, domain.ErrRedisUnavailable(err)
	}
}
