//go:build integration

package infra

import (
	"context"
	"database/sql"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

// servicePrefixes are the key spaces auth-service writes to.
var servicePrefixes = []string{"session:*", "oauth:state:*", "rl:*"}

func ResetPostgres(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `TRUNCATE TABLE users RESTART IDENTITY CASCADE;`); err != nil {
		return fmt.Errorf("reset postgres: %w", err)
	}
	return nil
}

// ResetRedis deletes only this service's keys, so a shared compose Redis
// keeps whatever other suites put there.
func ResetRedis(ctx context.Context, rdb *goredis.Client) error {
	for _, pattern := range servicePrefixes {
		iter := rdb.Scan(ctx, 0, pattern, 200).Iterator()
		for iter.Next(ctx) {
			if err := rdb.Del(ctx, iter.Val()).Err(); err != nil {
				return fmt.Errorf("reset redis %s: %w", iter.Val(), err)
			}
		}
		if err := iter.Err(); err != nil {
			return fmt.Errorf("reset redis scan %s: %w", pattern, err)
		}
	}
	return nil
}
