// Package repository provides factory for repositories.
package repository

import (
	"context"
	"fmt"

	"github.com/Tubbz-alt/skara/config"
	"github.com/Tubbz-alt/skara/internal/repository/memory"
	"github.com/Tubbz-alt/skara/internal/repository/postgres"
	"github.com/Tubbz-alt/skara/internal/repository/sqlite"

	"go.uber.org/zap"
)

// Repository aggregates all persistence interfaces.
type Repository interface {
	LifecycleInterface
	LockInterface
}

// New constructs repository backend by name.
func New(ctx context.Context, name string, log *zap.SugaredLogger, cfg *config.Config) (Repository, error) {
	switch name {
	case config.StorePostgres:
		return postgres.New(ctx, log, cfg), nil
	case config.StoreSQLite:
		return sqlite.New(log, cfg.SQLite.Path), nil
	case config.StoreMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown repo backend: %s", name)
	}
}
