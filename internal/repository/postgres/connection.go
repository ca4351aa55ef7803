// Package postgres implements the integration lock store on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Tubbz-alt/skara/config"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

const connectMaxElapsed = 30 * time.Second

// Postgres holds the pool serving lock queries.
type Postgres struct {
	baseCtx context.Context
	log     *zap.SugaredLogger
	db      *pgxpool.Pool
	cfg     config.PostgresConfig
}

// New creates a Postgres lock store. Nothing is opened until OnStart.
func New(ctx context.Context, log *zap.SugaredLogger, cfg *config.Config) *Postgres {
	return &Postgres{
		baseCtx: ctx,
		log:     log.Named("repo.postgres"),
		cfg:     cfg.Postgres,
	}
}

// OnStart migrates the lock table and opens the pool.
func (p *Postgres) OnStart(ctx context.Context) error {
	if err := p.migrate(ctx); err != nil {
		return err
	}

	poolCfg, err := pgxpool.ParseConfig(p.cfg.DSN())
	if err != nil {
		return fmt.Errorf("parse pool config: %w", err)
	}
	poolCfg.MaxConns = p.cfg.MaxConns
	poolCfg.MinConns = p.cfg.MinConns

	pool, err := pgxpool.NewWithConfig(p.baseCtx, poolCfg)
	if err != nil {
		return fmt.Errorf("open pool: %w", err)
	}
	if err := p.ping(ctx, pool); err != nil {
		pool.Close()
		return err
	}

	p.db = pool
	p.log.Infow("lock store ready", "host", p.cfg.Host, "port", p.cfg.Port, "db", p.cfg.DBName)
	return nil
}

// ping waits for the server, which may still be starting next to the bot.
func (p *Postgres) ping(ctx context.Context, pool *pgxpool.Pool) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = connectMaxElapsed

	attempt := 0
	op := func() error {
		attempt++
		pingCtx, cancel := p.withTimeout(ctx)
		defer cancel()
		err := pool.Ping(pingCtx)
		if err != nil {
			p.log.Debugw("postgres not ready", "attempt", attempt, "error", err)
		}
		return err
	}
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return fmt.Errorf("ping pool: %w", err)
	}
	return nil
}

func (p *Postgres) migrate(ctx context.Context) error {
	sqlDB, err := sql.Open("postgres", p.cfg.DSN())
	if err != nil {
		return fmt.Errorf("open sql: %w", err)
	}
	defer func() { _ = sqlDB.Close() }()

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("migrate dialect: %w", err)
	}

	migrateCtx, cancel := context.WithTimeout(ctx, p.cfg.MigrateTimeout)
	defer cancel()

	if err := goose.UpContext(migrateCtx, sqlDB, p.cfg.MigrationsDir); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	version, err := goose.GetDBVersionContext(migrateCtx, sqlDB)
	if err != nil {
		return fmt.Errorf("migrate version: %w", err)
	}
	p.log.Infow("lock table migrated", "version", version, "dir", p.cfg.MigrationsDir)
	return nil
}

// OnStop closes the pool.
func (p *Postgres) OnStop(_ context.Context) error {
	if p.db != nil {
		p.db.Close()
		p.db = nil
	}
	return nil
}

func (p *Postgres) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.cfg.QueryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.cfg.QueryTimeout)
}
