package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/Tubbz-alt/skara/config"

	_ "github.com/lib/pq"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func TestLockIntegration(t *testing.T) {
	ctx := context.Background()

	cfg, cleanup := setupPostgres(t)
	t.Cleanup(cleanup)

	repo := New(ctx, testLogger(t), cfg)
	require.NoError(t, repo.OnStart(ctx))
	t.Cleanup(func() { _ = repo.OnStop(ctx) })

	now := time.Now()
	ttl := 10 * time.Minute

	ok, err := repo.TryAcquireLock(ctx, "openjdk/jdk#1", "h1", now.Add(ttl), now)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.TryAcquireLock(ctx, "openjdk/jdk#1", "h2", now.Add(ttl), now.Add(time.Minute))
	require.NoError(t, err)
	require.False(t, ok)

	// no re-entrancy
	ok, err = repo.TryAcquireLock(ctx, "openjdk/jdk#1", "h1", now.Add(ttl), now.Add(time.Minute))
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = repo.TryAcquireLock(ctx, "openjdk/jdk#2", "h2", now.Add(ttl), now)
	require.NoError(t, err)
	require.True(t, ok)

	// expired entries are taken over
	later := now.Add(ttl + time.Second)
	ok, err = repo.TryAcquireLock(ctx, "openjdk/jdk#1", "h3", later.Add(ttl), later)
	require.NoError(t, err)
	require.True(t, ok)

	// a stale holder cannot release the new owner's lock
	require.NoError(t, repo.ReleaseLock(ctx, "openjdk/jdk#1", "h1"))
	ok, err = repo.TryAcquireLock(ctx, "openjdk/jdk#1", "h4", later.Add(ttl), later)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, repo.ReleaseLock(ctx, "openjdk/jdk#1", "h3"))
	ok, err = repo.TryAcquireLock(ctx, "openjdk/jdk#1", "h4", later.Add(ttl), later)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestLockIntegrationConcurrent(t *testing.T) {
	ctx := context.Background()

	cfg, cleanup := setupPostgres(t)
	t.Cleanup(cleanup)

	repo := New(ctx, testLogger(t), cfg)
	require.NoError(t, repo.OnStart(ctx))
	t.Cleanup(func() { _ = repo.OnStop(ctx) })

	now := time.Now()
	const attempts = 16
	won := make([]bool, attempts)
	var g errgroup.Group
	for i := 0; i < attempts; i++ {
		g.Go(func() error {
			ok, err := repo.TryAcquireLock(ctx, "openjdk/jdk#9", fmt.Sprintf("h%d", i), now.Add(time.Minute), now)
			won[i] = ok
			return err
		})
	}
	require.NoError(t, g.Wait())

	winners := 0
	for _, ok := range won {
		if ok {
			winners++
		}
	}
	require.Equal(t, 1, winners)
}

func setupPostgres(t *testing.T) (*config.Config, func()) {
	t.Helper()

	pool, err := dockertest.NewPool("")
	require.NoError(t, err)

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16-alpine",
		Env: []string{
			"POSTGRES_PASSWORD=postgres",
			"POSTGRES_USER=postgres",
			"POSTGRES_DB=prbot",
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
	})
	require.NoError(t, err)

	hostPort := resource.GetPort("5432/tcp")

	port, err := strconv.Atoi(hostPort)
	require.NoError(t, err)
	migrationsDir, err := filepath.Abs(filepath.Join("..", "..", "..", "db", "migrations"))
	require.NoError(t, err)
	require.DirExists(t, migrationsDir)

	cfg := &config.Config{
		Server: config.ServerConfig{Host: "0.0.0.0", Port: 8080, ShutdownTimeout: 5 * time.Second},
		Store:  config.StoreConfig{Backend: config.StorePostgres},
		Postgres: config.PostgresConfig{
			Host:           "localhost",
			Port:           port,
			User:           "postgres",
			Password:       "postgres",
			DBName:         "prbot",
			SSLMode:        "disable",
			MigrationsDir:  migrationsDir,
			QueryTimeout:   10 * time.Second,
			MigrateTimeout: 20 * time.Second,
			MaxConns:       4,
			MinConns:       1,
		},
	}

	require.NoError(t, pool.Retry(func() error {
		db, err := sql.Open("postgres", "host=localhost port="+hostPort+" user=postgres password=postgres dbname=prbot sslmode=disable")
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		return db.Ping()
	}))

	cleanup := func() {
		_ = pool.Purge(resource)
	}

	return cfg, cleanup
}

func testLogger(t *testing.T) *zap.SugaredLogger {
	t.Helper()

	l, _ := zap.NewDevelopment()
	t.Cleanup(func() { _ = l.Sync() })
	return l.Sugar()
}
