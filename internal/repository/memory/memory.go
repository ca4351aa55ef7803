// Package memory is a process-local lock store for single instance deployments and tests.
package memory

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	holder    string
	expiresAt time.Time
}

// Memory keeps lock entries in a map.
type Memory struct {
	mu    sync.Mutex
	locks map[string]entry
}

// New constructs an empty store.
func New() *Memory {
	return &Memory{locks: make(map[string]entry)}
}

// OnStart is a no-op.
func (m *Memory) OnStart(_ context.Context) error { return nil }

// OnStop is a no-op.
func (m *Memory) OnStop(_ context.Context) error { return nil }

// TryAcquireLock implements repository.LockInterface.
func (m *Memory) TryAcquireLock(_ context.Context, key, holder string, expiresAt, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cur, ok := m.locks[key]; ok && cur.expiresAt.After(now) {
		return false, nil
	}
	m.locks[key] = entry{holder: holder, expiresAt: expiresAt}
	return true, nil
}

// ReleaseLock implements repository.LockInterface.
func (m *Memory) ReleaseLock(_ context.Context, key, holder string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cur, ok := m.locks[key]; ok && cur.holder == holder {
		delete(m.locks, key)
	}
	return nil
}
