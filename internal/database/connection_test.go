package database

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/crishurazvi/avis-diabeto/internal/config"
	"github.com/crishurazvi/avis-diabeto/internal/domain"
)

func startPostgres(t *testing.T) domain.DatabaseConfig {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping PostgreSQL container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate PostgreSQL container: %v", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return domain.DatabaseConfig{
		Host:            host,
		Port:            port.Int(),
		Database:        "testdb",
		Username:        "testuser",
		Password:        "testpass",
		SSLMode:         "disable",
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Hour,
	}
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return logger
}

func TestNewConnectionRequiresHost(t *testing.T) {
	_, err := NewConnection(context.Background(), domain.DatabaseConfig{}, quietLogger())
	assert.Error(t, err)
}

func TestDatabaseConnection(t *testing.T) {
	cfg := startPostgres(t)
	ctx := context.Background()

	db, err := NewConnection(ctx, cfg, quietLogger())
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Health(ctx))

	stats := db.Stats()
	assert.Equal(t, int32(10), stats.MaxConns())
	assert.NotZero(t, stats.TotalConns(), "Expected at least one connection in pool")
}

func TestMigrationRunner(t *testing.T) {
	cfg := startPostgres(t)
	ctx := context.Background()

	runner, err := NewMigrationRunner(config.DatabaseURL(cfg), "../../migrations", quietLogger())
	require.NoError(t, err)
	defer runner.Close()

	version, _, err := runner.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)

	require.NoError(t, runner.Up(ctx))
	version, dirty, err := runner.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	// A second run is a no-op
	require.NoError(t, runner.Up(ctx))

	require.NoError(t, runner.Down(ctx))
	version, _, err = runner.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	db, err := NewConnection(ctx, cfg, quietLogger())
	require.NoError(t, err)
	defer db.Close()

	var exists bool
	err = db.Pool.QueryRow(ctx, `SELECT to_regclass('public.rule_feedback') IS NOT NULL`).Scan(&exists)
	require.NoError(t, err)
	assert.True(t, exists)
}
