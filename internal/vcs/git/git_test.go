package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Tubbz-alt/skara/internal/entities"
	"github.com/Tubbz-alt/skara/internal/vcs"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseStatus(t *testing.T) {
	out := "UU src/a.c\x00M  src/b.c\x00R  new.txt\x00old.txt\x00D  gone.txt\x00A  added.txt\x00UD removed.c\x00"

	states := parseStatus(out)

	require.Equal(t, []entities.FileState{
		{Status: entities.FileUnmerged, SourcePath: "src/a.c", TargetPath: "src/a.c"},
		{Status: entities.FileModified, SourcePath: "src/b.c", TargetPath: "src/b.c"},
		{Status: entities.FileRenamed, SourcePath: "old.txt", TargetPath: "new.txt"},
		{Status: entities.FileDeleted, SourcePath: "gone.txt"},
		{Status: entities.FileAdded, TargetPath: "added.txt"},
		{Status: entities.FileUnmerged, SourcePath: "removed.c"},
	}, states)
	require.Equal(t, "removed.c", states[5].Path())
}

func TestParseStatusEmpty(t *testing.T) {
	require.Empty(t, parseStatus(""))
}

// upstream builds a repository with a master branch and a side branch that
// conflicts with master on a.c and b.c, plus a clean branch touching c.c.
type upstream struct {
	dir    string
	base   entities.Hash
	master entities.Hash
	side   entities.Hash
	clean  entities.Hash
}

func gitCmd(t *testing.T, dir string, args ...string) string {
	t.Helper()
	full := append([]string{"-c", "user.name=Test", "-c", "user.email=test@example.org", "-c", "commit.gpgsign=false"}, args...)
	cmd := exec.Command("git", full...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
	return strings.TrimSpace(string(out))
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func commitAll(t *testing.T, dir, msg string) entities.Hash {
	t.Helper()
	gitCmd(t, dir, "add", "-A")
	gitCmd(t, dir, "commit", "--quiet", "-m", msg)
	h, err := entities.ParseHash(gitCmd(t, dir, "rev-parse", "HEAD"))
	require.NoError(t, err)
	return h
}

func newUpstream(t *testing.T) upstream {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	dir := t.TempDir()
	gitCmd(t, dir, "init", "--quiet")
	gitCmd(t, dir, "symbolic-ref", "HEAD", "refs/heads/master")

	var u upstream
	u.dir = dir
	writeFile(t, dir, "a.c", "base\n")
	writeFile(t, dir, "b.c", "base\n")
	writeFile(t, dir, "c.c", "base\n")
	u.base = commitAll(t, dir, "base")

	gitCmd(t, dir, "checkout", "--quiet", "-b", "side")
	writeFile(t, dir, "a.c", "side\n")
	writeFile(t, dir, "b.c", "side\n")
	u.side = commitAll(t, dir, "side")

	gitCmd(t, dir, "checkout", "--quiet", "-b", "clean", string(u.base))
	writeFile(t, dir, "c.c", "clean\n")
	u.clean = commitAll(t, dir, "clean")

	gitCmd(t, dir, "checkout", "--quiet", "master")
	writeFile(t, dir, "a.c", "master\n")
	writeFile(t, dir, "b.c", "master\n")
	u.master = commitAll(t, dir, "master")
	return u
}

func materialize(t *testing.T, u upstream) vcs.Repository {
	t.Helper()
	m := NewMaterializer(zap.NewNop().Sugar())
	repo, err := m.Materialize(context.Background(), u.dir, filepath.Join(t.TempDir(), "work", "clone"))
	require.NoError(t, err)
	return repo
}

func TestCherryPickConflictAndReset(t *testing.T) {
	u := newUpstream(t)
	repo := materialize(t, u)
	ctx := context.Background()

	side, err := repo.Fetch(ctx, u.dir, "refs/heads/side")
	require.NoError(t, err)
	require.Equal(t, u.side, side)

	tip, err := repo.Fetch(ctx, u.dir, "refs/heads/master")
	require.NoError(t, err)
	require.Equal(t, u.master, tip)

	require.NoError(t, repo.CreateBranch(ctx, "backport-test", tip))
	require.NoError(t, repo.Checkout(ctx, "backport-test"))

	ok, err := repo.CherryPick(ctx, side)
	require.NoError(t, err)
	require.False(t, ok)

	states, err := repo.Status(ctx)
	require.NoError(t, err)
	var conflicted []string
	for _, s := range states {
		if s.IsUnmerged() {
			conflicted = append(conflicted, s.Path())
		}
	}
	require.ElementsMatch(t, []string{"a.c", "b.c"}, conflicted)

	require.NoError(t, repo.Reset(ctx, tip, true))
	states, err = repo.Status(ctx)
	require.NoError(t, err)
	require.Empty(t, states)

	head, err := repo.Head(ctx)
	require.NoError(t, err)
	require.Equal(t, tip, head)
}

func TestCherryPickCleanAndCommit(t *testing.T) {
	u := newUpstream(t)
	repo := materialize(t, u)
	ctx := context.Background()

	clean, err := repo.Fetch(ctx, u.dir, "refs/heads/clean")
	require.NoError(t, err)
	tip, err := repo.Fetch(ctx, u.dir, "refs/heads/master")
	require.NoError(t, err)
	require.NoError(t, repo.CreateBranch(ctx, "backport-clean", tip))
	require.NoError(t, repo.Checkout(ctx, "backport-clean"))

	ok, err := repo.CherryPick(ctx, clean)
	require.NoError(t, err)
	require.True(t, ok)

	bot := entities.Ident{Name: "bot", Email: "bot@example.org"}
	h, err := repo.Commit(ctx, "Backport "+clean.Hex(), bot, bot)
	require.NoError(t, err)

	c, err := repo.Lookup(ctx, h)
	require.NoError(t, err)
	require.Equal(t, []entities.Hash{tip}, c.Parents)
	require.Equal(t, bot, c.Author)
	require.Equal(t, "Backport "+clean.Hex(), c.Message)
}

func TestMergeAndAncestry(t *testing.T) {
	u := newUpstream(t)
	repo := materialize(t, u)
	ctx := context.Background()

	tip, err := repo.Fetch(ctx, u.dir, "refs/heads/master")
	require.NoError(t, err)
	clean, err := repo.Fetch(ctx, u.dir, "refs/heads/clean")
	require.NoError(t, err)
	side, err := repo.Fetch(ctx, u.dir, "refs/heads/side")
	require.NoError(t, err)

	isAncestor, err := repo.IsAncestor(ctx, u.base, tip)
	require.NoError(t, err)
	require.True(t, isAncestor)
	isAncestor, err = repo.IsAncestor(ctx, tip, clean)
	require.NoError(t, err)
	require.False(t, isAncestor)

	ident := entities.Ident{Name: "bot", Email: "bot@example.org"}

	require.NoError(t, repo.Checkout(ctx, side.Hex()))
	merged, err := repo.Merge(ctx, tip, "Merge master", ident)
	require.NoError(t, err)
	require.False(t, merged)
	states, err := repo.Status(ctx)
	require.NoError(t, err)
	require.Empty(t, states)

	require.NoError(t, repo.Checkout(ctx, clean.Hex()))
	merged, err = repo.Merge(ctx, tip, "Merge master", ident)
	require.NoError(t, err)
	require.True(t, merged)

	head, err := repo.Head(ctx)
	require.NoError(t, err)
	squashed, err := repo.CommitTree(ctx, head, []entities.Hash{tip}, "1: squashed", ident, ident)
	require.NoError(t, err)

	c, err := repo.Lookup(ctx, squashed)
	require.NoError(t, err)
	require.Equal(t, []entities.Hash{tip}, c.Parents)

	headTree, err := repo.Tree(ctx, head)
	require.NoError(t, err)
	squashedTree, err := repo.Tree(ctx, squashed)
	require.NoError(t, err)
	require.Equal(t, headTree, squashedTree)
}

func TestPushWithLease(t *testing.T) {
	u := newUpstream(t)
	repo := materialize(t, u)
	ctx := context.Background()

	// a non-bare remote refuses pushes to its checked out branch
	gitCmd(t, u.dir, "checkout", "--quiet", "--detach")

	clean, err := repo.Fetch(ctx, u.dir, "refs/heads/clean")
	require.NoError(t, err)

	err = repo.Push(ctx, clean, u.dir, "side", vcs.PushOptions{ExpectedTip: u.master})
	require.Error(t, err)

	require.NoError(t, repo.Push(ctx, clean, u.dir, "side", vcs.PushOptions{Force: true, ExpectedTip: u.side}))
	require.Equal(t, clean.Hex(), gitCmd(t, u.dir, "rev-parse", "refs/heads/side"))
}
