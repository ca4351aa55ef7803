// Package repository contains repository interfaces for persistence layers.
package repository

import (
	"context"
	"time"
)

// LifecycleInterface describes storage startup/shutdown hooks.
type LifecycleInterface interface {
	OnStart(_ context.Context) error
	OnStop(_ context.Context) error
}

// LockInterface is the atomic test-and-set store behind the integration lock.
type LockInterface interface {
	// TryAcquireLock records holder as owner of key until expiresAt, unless
	// another holder owns an entry that has not expired at now. It reports
	// whether the caller became the owner. Re-acquiring a live entry fails
	// even for the same holder.
	TryAcquireLock(ctx context.Context, key, holder string, expiresAt, now time.Time) (bool, error)
	// ReleaseLock deletes key if it is still owned by holder.
	ReleaseLock(ctx context.Context, key, holder string) error
}
