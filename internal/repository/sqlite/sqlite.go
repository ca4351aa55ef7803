// Package sqlite implements the lock store on a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const (
	schema = `CREATE TABLE IF NOT EXISTS integration_locks (
	lock_key    TEXT PRIMARY KEY,
	holder      TEXT NOT NULL,
	acquired_at INTEGER NOT NULL,
	expires_at  INTEGER NOT NULL
)`
	acquireLockQuery = `INSERT INTO integration_locks (lock_key, holder, acquired_at, expires_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(lock_key) DO UPDATE
SET holder = excluded.holder, acquired_at = excluded.acquired_at, expires_at = excluded.expires_at
WHERE integration_locks.expires_at <= excluded.acquired_at
RETURNING holder`
	releaseLockQuery = `DELETE FROM integration_locks WHERE lock_key = ? AND holder = ?`
)

// SQLite is a single node lock store.
type SQLite struct {
	log  *zap.SugaredLogger
	path string
	db   *sql.DB
}

// New creates the store; the file is opened by OnStart.
func New(log *zap.SugaredLogger, path string) *SQLite {
	return &SQLite{log: log.Named("repo.sqlite"), path: path}
}

// OnStart opens the database and creates the schema.
func (s *SQLite) OnStart(ctx context.Context) error {
	dsn := s.path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(60000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	// Writers serialize on one connection.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return fmt.Errorf("migrate: %w", err)
	}
	s.db = db
	s.log.Infow("sqlite ready", "path", s.path)
	return nil
}

// OnStop closes the database.
func (s *SQLite) OnStop(_ context.Context) error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// TryAcquireLock implements repository.LockInterface.
func (s *SQLite) TryAcquireLock(ctx context.Context, key, holder string, expiresAt, now time.Time) (bool, error) {
	var owner string
	err := s.db.QueryRowContext(ctx, acquireLockQuery, key, holder, now.UnixNano(), expiresAt.UnixNano()).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		s.log.Errorw("failed to acquire lock", "key", key, "error", err)
		return false, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	return owner == holder, nil
}

// ReleaseLock implements repository.LockInterface.
func (s *SQLite) ReleaseLock(ctx context.Context, key, holder string) error {
	if _, err := s.db.ExecContext(ctx, releaseLockQuery, key, holder); err != nil {
		s.log.Errorw("failed to release lock", "key", key, "error", err)
		return fmt.Errorf("release lock %s: %w", key, err)
	}
	return nil
}
