// Command rediskeys lists the auth-service keys in Redis with their TTLs and
// optionally deletes them. Session payloads are sealed, so only their size is shown.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

var patterns = map[string]string{
	"session":   "session:*",
	"state":     "oauth:state:*",
	"ratelimit": "rl:*",
}

type scanOpts struct {
	pattern string
	count   int64
	del     bool
	timeout time.Duration
}

func main() {
	var (
		addr    = flag.String("addr", "127.0.0.1:6379", "redis address host:port")
		pass    = flag.String("pass", "", "redis password")
		db      = flag.Int("db", 0, "redis db")
		kind    = flag.String("kind", "session", "session | state | ratelimit")
		doDel   = flag.Bool("del", false, "delete matched keys")
		limit   = flag.Int64("count", 200, "SCAN COUNT hint")
		timeout = flag.Duration("timeout", 2*time.Second, "per-command timeout")
	)
	flag.Parse()

	pattern, ok := patterns[*kind]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown kind %q\n", *kind)
		os.Exit(2)
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:     *addr,
		Password: *pass,
		DB:       *db,
	})
	defer rdb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		fmt.Fprintf(os.Stderr, "redis ping failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Connected: addr=%s db=%d pattern=%q\n", *addr, *db, pattern)

	total, err := scanKeys(rdb, scanOpts{pattern: pattern, count: *limit, del: *doDel, timeout: *timeout}, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if total == 0 {
		fmt.Println("No keys matched.")
	}
}

func scanKeys(rdb *goredis.Client, o scanOpts, out io.Writer) (int, error) {
	var cursor uint64
	total := 0

	for {
		ctxScan, cancelScan := context.WithTimeout(context.Background(), o.timeout)
		keys, next, err := rdb.Scan(ctxScan, cursor, o.pattern, o.count).Result()
		cancelScan()
		if err != nil {
			return total, fmt.Errorf("SCAN error: %w", err)
		}

		for _, k := range keys {
			total++
			ctxCmd, cancelCmd := context.WithTimeout(context.Background(), o.timeout)
			val, err := rdb.Get(ctxCmd, k).Result()
			ttl, _ := rdb.TTL(ctxCmd, k).Result()
			cancelCmd()
			if err != nil && !errors.Is(err, goredis.Nil) {
				return total, fmt.Errorf("GET %s: %w", k, err)
			}

			fmt.Fprintf(out, "%d) %s\n   ttl=%s\n   %s\n", total, k, ttl, describe(k, val))

			if o.del {
				ctxDel, cancelDel := context.WithTimeout(context.Background(), o.timeout)
				n, err := rdb.Del(ctxDel, k).Result()
				cancelDel()
				if err != nil {
					fmt.Fprintf(out, "   DEL error: %v\n", err)
				} else {
					fmt.Fprintf(out, "   DEL ok: %d\n", n)
				}
			}
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}
	return total, nil
}

func describe(key, val string) string {
	if strings.HasPrefix(key, "session:") {
		return fmt.Sprintf("sealed=%dB", len(val))
	}
	return fmt.Sprintf("val=%q", val)
}
