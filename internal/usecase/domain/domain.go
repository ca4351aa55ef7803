// Package domain implements the integrate and backport workflows.
package domain

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/Tubbz-alt/skara/internal/census"
	"github.com/Tubbz-alt/skara/internal/entities"
	"github.com/Tubbz-alt/skara/internal/forge"
	"github.com/Tubbz-alt/skara/internal/jcheck"
	"github.com/Tubbz-alt/skara/internal/lock"
	"github.com/Tubbz-alt/skara/internal/telemetry"
	"github.com/Tubbz-alt/skara/internal/vcs"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Locker hands out integration locks.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (*lock.Lock, error)
	Release(ctx context.Context, l *lock.Lock) error
}

var _ Locker = (*lock.Manager)(nil)

// Dependencies are the external collaborators of the workflows.
type Dependencies struct {
	Forge   forge.Forge
	VCS     vcs.Materializer
	Census  census.Directory
	Checker jcheck.Checker
	Locks   Locker
}

// Settings tune the workflows.
type Settings struct {
	// CheckName is the status check that must pass before integration.
	CheckName          string
	LockTTL            time.Duration
	IgnoreStaleReviews bool
	// Trunk is the default backport target branch.
	Trunk        string
	BranchPrefix string
	// BranchPolicy decides what happens when the backport branch already
	// exists in the fork: "suffix" or "fail".
	BranchPolicy string
	ScratchDir   string
	// Bot is the account the workflows act as and author commits with.
	Bot entities.User
}

// Usecase struct implements all usecase interfaces.
type Usecase struct {
	log      *zap.SugaredLogger
	deps     Dependencies
	settings Settings
	timeout  time.Duration

	tracer   trace.Tracer
	commands metric.Int64Counter
}

// New constructs a new usecase layer with its dependencies.
func New(
	log *zap.SugaredLogger,
	deps Dependencies,
	settings Settings,
	timeout time.Duration,
) (*Usecase, error) {
	commands, err := telemetry.Meter("").Int64Counter("prbot.commands",
		metric.WithDescription("Handled chat commands by outcome"))
	if err != nil {
		return nil, fmt.Errorf("commands counter: %w", err)
	}
	return &Usecase{
		log:      log,
		deps:     deps,
		settings: settings,
		timeout:  timeout,
		tracer:   telemetry.Tracer(""),
		commands: commands,
	}, nil
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func (u *Usecase) botIdent() entities.Ident {
	name := u.settings.Bot.Name
	if name == "" {
		name = u.settings.Bot.Login
	}
	return entities.Ident{Name: name, Email: u.settings.Bot.Email}
}

// removeScratch deletes a per-invocation working copy.
func (u *Usecase) removeScratch(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		u.log.Warnw("failed to remove scratch dir", "dir", dir, "error", err)
	}
}
