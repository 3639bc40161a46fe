//go:build integration

package infra

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/baechuer/paas-platform/services/auth-service/internal/config"
	"github.com/baechuer/paas-platform/services/auth-service/internal/infrastructure/db/postgres"
)

// OpenPostgres returns a migrated, empty database. It uses env.PostgresDSN
// when set and starts a postgres:17 container otherwise.
func OpenPostgres(t *testing.T, env Env) *sql.DB {
	t.Helper()
	ctx := context.Background()

	dsn := env.PostgresDSN
	if dsn == "" {
		if testing.Short() {
			t.Skip("skipping container-backed test in short mode")
		}
		ctr, err := tcpostgres.Run(ctx, "postgres:17",
			tcpostgres.WithDatabase("auth_db"),
			tcpostgres.WithUsername("auth"),
			tcpostgres.WithPassword("auth"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second),
			),
		)
		require.NoError(t, err, "start postgres container")
		t.Cleanup(func() {
			if err := ctr.Terminate(ctx); err != nil {
				t.Logf("terminate postgres container: %v", err)
			}
		})

		dsn, err = ctr.ConnectionString(ctx, "sslmode=disable")
		require.NoError(t, err)
	} else {
		wctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		require.NoError(t, WaitPostgres(wctx, dsn))
	}

	db, err := config.NewDB(dsn, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, postgres.EnsureSchema(ctx, db))
	require.NoError(t, ResetPostgres(ctx, db))
	return db
}
