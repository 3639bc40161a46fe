package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/baechuer/paas-platform/services/auth-service/internal/domain"
)

// FixedWindowLimiter counts hits per key with INCR and arms the expiry on the
// first hit. Callers put the window bucket into the key.
type FixedWindowLimiter struct {
	rdb *goredis.Client
}

// NewFixedWindowLimiter returns a limiter that fails open when c is nil.
func NewFixedWindowLimiter(c *Client) *FixedWindowLimiter {
	if c == nil {
		return &FixedWindowLimiter{}
	}
	return &FixedWindowLimiter{rdb: c.rdb}
}

type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration // 0 if allowed
}

// returns {count, pttl}
var fixedWindowScript = goredis.NewScript(`
local c = redis.call("INCR", KEYS[1])
if c == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {c, redis.call("PTTL", KEYS[1])}
`)

func (l *FixedWindowLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error) {
	if limit <= 0 || l.rdb == nil {
		return Decision{Allowed: true, Limit: limit, Remaining: limit}, nil
	}
	if window < time.Second {
		window = time.Minute
	}

	res, err := fixedWindowScript.Run(ctx, l.rdb, []string{key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{}, domain.ErrRedisUnavailable(fmt.Errorf("ratelimit eval: %w", err))
	}
	if len(res) != 2 {
		return Decision{}, domain.ErrInternal(fmt.Errorf("ratelimit eval: unexpected reply %v", res))
	}

	count, pttl := int(res[0]), time.Duration(res[1])*time.Millisecond

	d := Decision{
		Allowed:   count <= limit,
		Limit:     limit,
		Remaining: max(0, limit-count),
	}
	if !d.Allowed {
		d.RetryAfter = window
		if pttl > 0 {
			d.RetryAfter = pttl
		}
	}
	return d, nil
}
