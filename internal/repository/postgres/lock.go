package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

const (
	// The conflicting row is only replaced once it has expired; otherwise
	// nothing is returned.
	acquireLockQuery = `INSERT INTO integration_locks (lock_key, holder, acquired_at, expires_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (lock_key) DO UPDATE
SET holder = EXCLUDED.holder, acquired_at = EXCLUDED.acquired_at, expires_at = EXCLUDED.expires_at
WHERE integration_locks.expires_at <= EXCLUDED.acquired_at
RETURNING holder`
	releaseLockQuery = `DELETE FROM integration_locks WHERE lock_key=$1 AND holder=$2`
)

// TryAcquireLock implements repository.LockInterface.
func (p *Postgres) TryAcquireLock(ctx context.Context, key, holder string, expiresAt, now time.Time) (bool, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	var owner string
	err := p.db.QueryRow(ctx, acquireLockQuery, key, holder, now.UTC(), expiresAt.UTC()).Scan(&owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		p.log.Errorw("failed to acquire lock", "key", key, "error", err)
		return false, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	return owner == holder, nil
}

// ReleaseLock implements repository.LockInterface.
func (p *Postgres) ReleaseLock(ctx context.Context, key, holder string) error {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	tag, err := p.db.Exec(ctx, releaseLockQuery, key, holder)
	if err != nil {
		p.log.Errorw("failed to release lock", "key", key, "error", err)
		return fmt.Errorf("release lock %s: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		p.log.Warnw("lock already gone on release", "key", key, "holder", holder)
	}
	return nil
}
