package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupPostgres(t *testing.T) *SQLStorage {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("testuser"),
		tcpostgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)

	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	s, err := OpenPostgres(&Credentials{
		Host:     host,
		Port:     port.Int(),
		User:     "testuser",
		Password: "testpass",
		DBName:   "testdb",
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.RunMigrations())
	return s
}

func TestPostgres_RoundTrip(t *testing.T) {
	s := setupPostgres(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "sess-1:beautivra-pending-order")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "sess-1:beautivra-pending-order", []byte(`{"order_id":"o1"}`)))
	require.NoError(t, s.Set(ctx, "sess-1:beautivra-pending-order", []byte(`{"order_id":"o2"}`)))

	got, err := s.Get(ctx, "sess-1:beautivra-pending-order")
	require.NoError(t, err)
	assert.JSONEq(t, `{"order_id":"o2"}`, string(got))

	require.NoError(t, s.Delete(ctx, "sess-1:beautivra-pending-order"))
	_, err = s.Get(ctx, "sess-1:beautivra-pending-order")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgres_MigrationsAreIdempotent(t *testing.T) {
	s := setupPostgres(t)

	assert.NoError(t, s.RunMigrations())
}
