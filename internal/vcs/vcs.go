// Package vcs defines the version-control backend the workflows drive.
package vcs

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/Tubbz-alt/skara/internal/entities"
	"github.com/google/uuid"
)

// PushOptions tunes a push.
type PushOptions struct {
	// Force allows a non fast-forward update.
	Force bool
	// ExpectedTip, when set, makes the push succeed only if the remote
	// branch still points at this revision.
	ExpectedTip entities.Hash
}

// Repository is a private local working copy.
type Repository interface {
	// Fetch retrieves ref (a branch ref or a revision id) from remoteURL and
	// returns the fetched revision.
	Fetch(ctx context.Context, remoteURL, ref string) (entities.Hash, error)
	// Checkout switches the working copy to a branch or revision.
	Checkout(ctx context.Context, ref string) error
	// Head returns the checked out revision.
	Head(ctx context.Context) (entities.Hash, error)
	// Tree returns the tree id of a revision.
	Tree(ctx context.Context, rev entities.Hash) (entities.Hash, error)
	// CreateBranch creates a local branch at the given revision.
	CreateBranch(ctx context.Context, name string, at entities.Hash) error
	// IsAncestor reports whether ancestor is reachable from descendant.
	IsAncestor(ctx context.Context, ancestor, descendant entities.Hash) (bool, error)
	// Merge merges rev into the checked out revision and commits the result.
	// It returns false and leaves an aborted merge when rev conflicts.
	Merge(ctx context.Context, rev entities.Hash, message string, ident entities.Ident) (bool, error)
	// CherryPick applies rev's change set to the index without committing.
	// It returns false when the change set conflicts.
	CherryPick(ctx context.Context, rev entities.Hash) (bool, error)
	// Commit records the index on top of the checked out revision.
	Commit(ctx context.Context, message string, author, committer entities.Ident) (entities.Hash, error)
	// CommitTree creates a revision with rev's tree and the given parents
	// without touching the working copy.
	CommitTree(ctx context.Context, rev entities.Hash, parents []entities.Hash, message string, author, committer entities.Ident) (entities.Hash, error)
	// Push updates branch on remoteURL to rev. A started push always runs to
	// completion; it is not interrupted by ctx cancellation.
	Push(ctx context.Context, rev entities.Hash, remoteURL, branch string, opts PushOptions) error
	// Status enumerates working-copy changes.
	Status(ctx context.Context) ([]entities.FileState, error)
	// Reset moves the checked out branch to rev, discarding index and
	// working copy changes when hard is set.
	Reset(ctx context.Context, rev entities.Hash, hard bool) error
	// Lookup reads a revision's metadata.
	Lookup(ctx context.Context, rev entities.Hash) (*entities.Commit, error)
}

// Materializer provisions working copies.
type Materializer interface {
	// Materialize makes a working copy of remoteURL available in dir.
	Materialize(ctx context.Context, remoteURL, dir string) (Repository, error)
}

// ScratchDir returns a directory private to one invocation of workflow on
// repository. Concurrent invocations never share it.
func ScratchDir(base, workflow, repository string) string {
	safe := strings.NewReplacer("/", "_", ":", "_", "\\", "_").Replace(repository)
	return filepath.Join(base, workflow, safe, uuid.NewString())
}
