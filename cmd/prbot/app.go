package main

import (
	"context"
	"fmt"

	"github.com/Tubbz-alt/skara/config"
	"github.com/Tubbz-alt/skara/internal/census"
	"github.com/Tubbz-alt/skara/internal/entities"
	"github.com/Tubbz-alt/skara/internal/forge/github"
	"github.com/Tubbz-alt/skara/internal/jcheck"
	"github.com/Tubbz-alt/skara/internal/lock"
	"github.com/Tubbz-alt/skara/internal/repository"
	"github.com/Tubbz-alt/skara/internal/telemetry"
	"github.com/Tubbz-alt/skara/internal/usecase"
	"github.com/Tubbz-alt/skara/internal/usecase/domain"
	"github.com/Tubbz-alt/skara/internal/vcs/git"
	"github.com/Tubbz-alt/skara/pkg/logger"

	"go.uber.org/zap"
)

// app holds the wired dependencies shared by all subcommands.
type app struct {
	cfg  *config.Config
	log  *zap.SugaredLogger
	repo repository.Repository
	uc   usecase.InterfaceUsecase
}

func loadConfig() (*config.Config, *zap.SugaredLogger, error) {
	cfg, err := config.NewConfig(configFile)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.Logging.Level)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func openStore(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) (repository.Repository, error) {
	repo, err := repository.New(ctx, cfg.Store.Backend, log, cfg)
	if err != nil {
		return nil, fmt.Errorf("repository initialization: %w", err)
	}
	if err := repo.OnStart(ctx); err != nil {
		return nil, fmt.Errorf("repository start: %w", err)
	}
	return repo, nil
}

// bootstrap wires the workflow engine. close must be called once done.
func bootstrap(ctx context.Context) (*app, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}

	if err := telemetry.Init(ctx, cfg.Telemetry, "prbot", version); err != nil {
		return nil, err
	}

	repo, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	snapshot, err := census.Load(cfg.Census.Path)
	if err != nil {
		_ = repo.OnStop(context.Background())
		return nil, err
	}
	directory := census.NewInstance(log, snapshot)
	if cfg.Census.Watch {
		if err := directory.Watch(ctx, cfg.Census.Path); err != nil {
			log.Warnw("census hot reload disabled", "path", cfg.Census.Path, "error", err)
		}
	}

	client, err := github.New(log, github.Options{
		Token:    cfg.Forge.Token,
		BaseURL:  cfg.Forge.BaseURL,
		Hostname: cfg.Forge.Hostname,
	})
	if err != nil {
		_ = repo.OnStop(context.Background())
		return nil, err
	}

	uc, err := usecase.New(log, domain.Dependencies{
		Forge:   client,
		VCS:     git.NewMaterializer(log),
		Census:  directory,
		Checker: jcheck.Default(cfg.Integration.MinReviewers),
		Locks:   lock.NewManager(repo, log),
	}, domain.Settings{
		CheckName:          cfg.Integration.CheckName,
		LockTTL:            cfg.Integration.LockTTL,
		IgnoreStaleReviews: cfg.Integration.IgnoreStaleReviews,
		Trunk:              cfg.Backport.Trunk,
		BranchPrefix:       cfg.Backport.BranchPrefix,
		BranchPolicy:       cfg.Backport.ExistingBranchPolicy,
		ScratchDir:         cfg.Scratch.Dir,
		Bot: entities.User{
			Login: cfg.Bot.Login,
			Name:  cfg.Bot.Name,
			Email: cfg.Bot.Email,
		},
	}, cfg.HTTP.RequestTimeout)
	if err != nil {
		_ = repo.OnStop(context.Background())
		return nil, err
	}

	return &app{cfg: cfg, log: log, repo: repo, uc: uc}, nil
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.repo.OnStop(ctx); err != nil {
		a.log.Warnw("repository stop error", "error", err)
	}
	telemetry.Shutdown(ctx)
	_ = a.log.Sync()
}
