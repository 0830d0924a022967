//go:build integration

package sqlstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/cloudvault/vaultd/internal/store/metadata/storetest"
)

// TestSQLStorePostgresConformance runs the same conformance suite used for
// the in-memory sqlite path against a real postgres container, exercising
// the golang-migrate schema path in Open rather than AutoMigrate. Grounded
// on the teacher's test/e2e/framework.PostgresHelper and
// pkg/metadata/store/postgres/test_helpers_test.go.
//
// Run with: go test -tags=integration ./internal/store/metadata/sqlstore/...
func TestSQLStorePostgresConformance(t *testing.T) {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("vaultd_test"),
		tcpostgres.WithUsername("vaultd_test"),
		tcpostgres.WithPassword("vaultd_test"),
		testcontainers.WithWaitStrategyAndDeadline(2*time.Minute,
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, container.Terminate(ctx))
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	storetest.Run(t, func(t *testing.T) storetest.Backend {
		s, err := Open(dsn)
		require.NoError(t, err)
		return storetest.Backend{Files: s, Dirs: s}
	})
}
