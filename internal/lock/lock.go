// Package lock provides the per review request integration lock.
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/Tubbz-alt/skara/internal/entities"
	"github.com/Tubbz-alt/skara/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Lock is a held integration lock.
type Lock struct {
	Key       string
	Holder    string
	ExpiresAt time.Time
}

// Manager hands out time-boxed locks backed by a lock store.
type Manager struct {
	store     repository.LockInterface
	log       *zap.SugaredLogger
	now       func() time.Time
	newHolder func() string
}

// Option customizes a Manager.
type Option func(*Manager)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager constructs a Manager.
func NewManager(store repository.LockInterface, log *zap.SugaredLogger, opts ...Option) *Manager {
	m := &Manager{
		store:     store,
		log:       log.Named("lock"),
		now:       time.Now,
		newHolder: uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// KeyFor scopes a lock to one review request.
func KeyFor(repository, pullRequestID string) string {
	return repository + "#" + pullRequestID
}

// Acquire makes a single test-and-set attempt. It returns ErrLockHeld when
// an unexpired lock exists, whoever holds it.
func (m *Manager) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lock, error) {
	now := m.now()
	l := &Lock{Key: key, Holder: m.newHolder(), ExpiresAt: now.Add(ttl)}
	ok, err := m.store.TryAcquireLock(ctx, key, l.Holder, l.ExpiresAt, now)
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", entities.ErrLockHeld, key)
	}
	m.log.Debugw("lock acquired", "key", key, "holder", l.Holder, "expires_at", l.ExpiresAt)
	return l, nil
}

// Release gives the lock up. Releasing after expiry is harmless.
func (m *Manager) Release(ctx context.Context, l *Lock) error {
	if l == nil {
		return nil
	}
	if err := m.store.ReleaseLock(ctx, l.Key, l.Holder); err != nil {
		return fmt.Errorf("release %s: %w", l.Key, err)
	}
	m.log.Debugw("lock released", "key", l.Key, "holder", l.Holder)
	return nil
}
