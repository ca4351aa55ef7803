package census

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"github.com/Tubbz-alt/skara/internal/entities"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Instance is a Directory whose snapshot can be swapped while workflows run.
// Each call reads whichever snapshot is current.
type Instance struct {
	log     *zap.SugaredLogger
	current atomic.Pointer[Census]
}

var _ Directory = (*Instance)(nil)

// NewInstance wraps an initial snapshot.
func NewInstance(log *zap.SugaredLogger, c *Census) *Instance {
	i := &Instance{log: log.Named("census")}
	i.current.Store(c)
	return i
}

// Current returns the active snapshot.
func (i *Instance) Current() *Census { return i.current.Load() }

// Watch reloads the census whenever path is written or replaced, until ctx
// is done. A file that fails to parse leaves the previous snapshot active.
func (i *Instance) Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("census watcher: %w", err)
	}
	// Editors replace files by rename, so watch the directory.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch census dir: %w", err)
	}

	go func() {
		defer func() { _ = watcher.Close() }()
		target := filepath.Clean(path)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				i.reload(path)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				i.log.Warnw("census watcher error", "error", err)
			}
		}
	}()
	return nil
}

func (i *Instance) reload(path string) {
	c, err := Load(path)
	if err != nil {
		i.log.Warnw("census reload failed, keeping previous snapshot", "path", path, "error", err)
		return
	}
	i.current.Store(c)
	i.log.Infow("census reloaded", "path", path, "contributors", len(c.people))
}

// Domain implements Directory.
func (i *Instance) Domain() string { return i.Current().Domain() }

// Contributor implements Directory.
func (i *Instance) Contributor(username string) (entities.Contributor, bool) {
	return i.Current().Contributor(username)
}

// Resolve implements Directory.
func (i *Instance) Resolve(user entities.User) (entities.Contributor, bool) {
	return i.Current().Resolve(user)
}

// IsCommitter implements Directory.
func (i *Instance) IsCommitter(user entities.User) bool { return i.Current().IsCommitter(user) }

// ProfileURL implements Directory.
func (i *Instance) ProfileURL(username string) string { return i.Current().ProfileURL(username) }

// BylawsURL implements Directory.
func (i *Instance) BylawsURL() string { return i.Current().BylawsURL() }
