// Package git implements the vcs contracts on top of the git command line.
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/Tubbz-alt/skara/internal/entities"
	"github.com/Tubbz-alt/skara/internal/vcs"
	"go.uber.org/zap"
)

// CommandError is a failed git invocation.
type CommandError struct {
	Args     []string
	Stderr   string
	ExitCode int
	Err      error
}

func (e *CommandError) Error() string {
	// Remote arguments may carry credentials; only the subcommand is shown.
	sub := ""
	if len(e.Args) > 0 {
		sub = e.Args[0]
	}
	return fmt.Sprintf("git %s: exit %d: %s", sub, e.ExitCode, strings.TrimSpace(e.Stderr))
}

func (e *CommandError) Unwrap() error { return e.Err }

// Materializer clones remotes into scratch directories.
type Materializer struct {
	log *zap.SugaredLogger
}

var _ vcs.Materializer = (*Materializer)(nil)

// NewMaterializer constructs a Materializer.
func NewMaterializer(log *zap.SugaredLogger) *Materializer {
	return &Materializer{log: log.Named("git")}
}

// Materialize clones remoteURL into dir, or refreshes an existing clone.
func (m *Materializer) Materialize(ctx context.Context, remoteURL, dir string) (vcs.Repository, error) {
	if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
		r := Open(m.log, dir)
		if _, err := r.run(ctx, nil, "fetch", "--quiet", "--prune", "origin"); err != nil {
			return nil, fmt.Errorf("refresh %s: %w", dir, err)
		}
		return r, nil
	}
	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	r := Open(m.log, filepath.Dir(dir))
	if _, err := r.run(ctx, nil, "clone", "--quiet", remoteURL, dir); err != nil {
		return nil, fmt.Errorf("clone into %s: %w", dir, err)
	}
	m.log.Debugw("materialized", "dir", dir)
	return Open(m.log, dir), nil
}

// Repo is a working copy driven through the git binary.
type Repo struct {
	log *zap.SugaredLogger
	dir string
}

var _ vcs.Repository = (*Repo)(nil)

// Open wraps an existing working copy.
func Open(log *zap.SugaredLogger, dir string) *Repo {
	return &Repo{log: log, dir: dir}
}

func (r *Repo) run(ctx context.Context, env []string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.dir
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	cmd.Env = append(cmd.Env, env...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		return stdout.String(), &CommandError{Args: args, Stderr: stderr.String(), ExitCode: code, Err: err}
	}
	return stdout.String(), nil
}

func (r *Repo) revParse(ctx context.Context, rev string) (entities.Hash, error) {
	out, err := r.run(ctx, nil, "rev-parse", "--verify", "--quiet", rev)
	if err != nil {
		return "", fmt.Errorf("%w: %s", entities.ErrCommitNotFound, rev)
	}
	return entities.ParseHash(out)
}

func identEnv(author, committer entities.Ident) []string {
	return []string{
		"GIT_AUTHOR_NAME=" + author.Name,
		"GIT_AUTHOR_EMAIL=" + author.Email,
		"GIT_COMMITTER_NAME=" + committer.Name,
		"GIT_COMMITTER_EMAIL=" + committer.Email,
	}
}

// Fetch implements vcs.Repository.
func (r *Repo) Fetch(ctx context.Context, remoteURL, ref string) (entities.Hash, error) {
	if _, err := r.run(ctx, nil, "fetch", "--quiet", "--no-tags", remoteURL, ref); err != nil {
		return "", fmt.Errorf("fetch %s: %w", ref, err)
	}
	return r.revParse(ctx, "FETCH_HEAD^{commit}")
}

// Checkout implements vcs.Repository.
func (r *Repo) Checkout(ctx context.Context, ref string) error {
	if _, err := r.run(ctx, nil, "checkout", "--quiet", ref); err != nil {
		return fmt.Errorf("checkout %s: %w", ref, err)
	}
	return nil
}

// Head implements vcs.Repository.
func (r *Repo) Head(ctx context.Context) (entities.Hash, error) {
	return r.revParse(ctx, "HEAD^{commit}")
}

// Tree implements vcs.Repository.
func (r *Repo) Tree(ctx context.Context, rev entities.Hash) (entities.Hash, error) {
	return r.revParse(ctx, rev.Hex()+"^{tree}")
}

// CreateBranch implements vcs.Repository.
func (r *Repo) CreateBranch(ctx context.Context, name string, at entities.Hash) error {
	if _, err := r.run(ctx, nil, "branch", name, at.Hex()); err != nil {
		return fmt.Errorf("create branch %s: %w", name, err)
	}
	return nil
}

// IsAncestor implements vcs.Repository.
func (r *Repo) IsAncestor(ctx context.Context, ancestor, descendant entities.Hash) (bool, error) {
	_, err := r.run(ctx, nil, "merge-base", "--is-ancestor", ancestor.Hex(), descendant.Hex())
	if err == nil {
		return true, nil
	}
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) && cmdErr.ExitCode == 1 {
		return false, nil
	}
	return false, err
}

func (r *Repo) hasConflicts(ctx context.Context) (bool, error) {
	states, err := r.Status(ctx)
	if err != nil {
		return false, err
	}
	for _, s := range states {
		if s.IsUnmerged() {
			return true, nil
		}
	}
	return false, nil
}

// Merge implements vcs.Repository.
func (r *Repo) Merge(ctx context.Context, rev entities.Hash, message string, ident entities.Ident) (bool, error) {
	_, err := r.run(ctx, identEnv(ident, ident), "merge", "--quiet", "--no-ff", "--no-edit", "-m", message, rev.Hex())
	if err == nil {
		return true, nil
	}
	conflicted, statusErr := r.hasConflicts(ctx)
	if statusErr != nil || !conflicted {
		return false, fmt.Errorf("merge %s: %w", rev, err)
	}
	if _, abortErr := r.run(ctx, nil, "merge", "--abort"); abortErr != nil {
		return false, fmt.Errorf("abort merge of %s: %w", rev, abortErr)
	}
	return false, nil
}

// CherryPick implements vcs.Repository.
func (r *Repo) CherryPick(ctx context.Context, rev entities.Hash) (bool, error) {
	_, err := r.run(ctx, nil, "cherry-pick", "--no-commit", rev.Hex())
	if err == nil {
		return true, nil
	}
	conflicted, statusErr := r.hasConflicts(ctx)
	if statusErr != nil || !conflicted {
		return false, fmt.Errorf("cherry-pick %s: %w", rev, err)
	}
	return false, nil
}

// Commit implements vcs.Repository.
func (r *Repo) Commit(ctx context.Context, message string, author, committer entities.Ident) (entities.Hash, error) {
	if _, err := r.run(ctx, identEnv(author, committer), "commit", "--quiet", "--no-verify", "-m", message); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return r.Head(ctx)
}

// CommitTree implements vcs.Repository.
func (r *Repo) CommitTree(ctx context.Context, rev entities.Hash, parents []entities.Hash, message string, author, committer entities.Ident) (entities.Hash, error) {
	args := []string{"commit-tree", rev.Hex() + "^{tree}"}
	for _, p := range parents {
		args = append(args, "-p", p.Hex())
	}
	args = append(args, "-m", message)
	out, err := r.run(ctx, identEnv(author, committer), args...)
	if err != nil {
		return "", fmt.Errorf("commit-tree: %w", err)
	}
	return entities.ParseHash(out)
}

// Push implements vcs.Repository.
func (r *Repo) Push(ctx context.Context, rev entities.Hash, remoteURL, branch string, opts vcs.PushOptions) error {
	ref := "refs/heads/" + branch
	args := []string{"push", "--quiet"}
	if opts.Force {
		args = append(args, "--force")
	}
	if !opts.ExpectedTip.IsZero() {
		args = append(args, "--force-with-lease="+ref+":"+opts.ExpectedTip.Hex())
	}
	args = append(args, remoteURL, rev.Hex()+":"+ref)

	// Once started a push runs to completion.
	if _, err := r.run(context.WithoutCancel(ctx), nil, args...); err != nil {
		return fmt.Errorf("push %s to %s: %w", rev, branch, err)
	}
	r.log.Infow("pushed", "revision", rev, "branch", branch)
	return nil
}

// Status implements vcs.Repository.
func (r *Repo) Status(ctx context.Context) ([]entities.FileState, error) {
	out, err := r.run(ctx, nil, "status", "--porcelain=v1", "-z", "--untracked-files=no")
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	return parseStatus(out), nil
}

// Reset implements vcs.Repository.
func (r *Repo) Reset(ctx context.Context, rev entities.Hash, hard bool) error {
	mode := "--mixed"
	if hard {
		mode = "--hard"
	}
	if _, err := r.run(ctx, nil, "reset", "--quiet", mode, rev.Hex()); err != nil {
		return fmt.Errorf("reset to %s: %w", rev, err)
	}
	return nil
}

const lookupFormat = "%H%x00%P%x00%an%x00%ae%x00%cn%x00%ce%x00%cI%x00%B"

// Lookup implements vcs.Repository.
func (r *Repo) Lookup(ctx context.Context, rev entities.Hash) (*entities.Commit, error) {
	out, err := r.run(ctx, nil, "show", "-s", "--format="+lookupFormat, rev.Hex())
	if err != nil {
		return nil, fmt.Errorf("%w: %s", entities.ErrCommitNotFound, rev)
	}
	parts := strings.SplitN(out, "\x00", 8)
	if len(parts) != 8 {
		return nil, fmt.Errorf("unexpected show output for %s", rev)
	}
	hash, err := entities.ParseHash(parts[0])
	if err != nil {
		return nil, err
	}
	var parents []entities.Hash
	for _, p := range strings.Fields(parts[1]) {
		ph, err := entities.ParseHash(p)
		if err != nil {
			return nil, err
		}
		parents = append(parents, ph)
	}
	committed, err := time.Parse(time.RFC3339, strings.TrimSpace(parts[6]))
	if err != nil {
		return nil, fmt.Errorf("parse commit date of %s: %w", rev, err)
	}
	return &entities.Commit{
		Hash:      hash,
		Parents:   parents,
		Author:    entities.Ident{Name: parts[2], Email: parts[3]},
		Committer: entities.Ident{Name: parts[4], Email: parts[5]},
		Committed: committed,
		Message:   strings.TrimRight(parts[7], "\n"),
	}, nil
}

// parseStatus reads `git status --porcelain=v1 -z` output. Renames and
// copies carry the pre-image path as the following NUL separated field.
func parseStatus(out string) []entities.FileState {
	fields := strings.Split(out, "\x00")
	var res []entities.FileState
	for i := 0; i < len(fields); i++ {
		f := fields[i]
		if len(f) < 4 {
			continue
		}
		xy, path := f[:2], f[3:]
		var st entities.FileState
		switch {
		case isUnmerged(xy):
			st.Status = entities.FileUnmerged
			if strings.Contains(xy, "D") {
				st.SourcePath = path
			} else {
				st.SourcePath, st.TargetPath = path, path
			}
		case xy[0] == 'R' || xy[0] == 'C':
			st.Status = entities.FileStatus(xy[:1])
			st.TargetPath = path
			if i+1 < len(fields) {
				st.SourcePath = fields[i+1]
				i++
			}
		case strings.Contains(xy, "D"):
			st.Status = entities.FileDeleted
			st.SourcePath = path
		case strings.Contains(xy, "A"):
			st.Status = entities.FileAdded
			st.TargetPath = path
		default:
			st.Status = entities.FileModified
			st.SourcePath, st.TargetPath = path, path
		}
		res = append(res, st)
	}
	return res
}

func isUnmerged(xy string) bool {
	switch xy {
	case "DD", "AU", "UD", "UA", "DU", "AA", "UU":
		return true
	}
	return false
}
