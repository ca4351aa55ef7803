package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Tubbz-alt/skara/config"
	"github.com/Tubbz-alt/skara/internal/entities"
	"github.com/Tubbz-alt/skara/internal/forge"
	"github.com/Tubbz-alt/skara/internal/marker"
	"github.com/Tubbz-alt/skara/internal/vcs"
)

const backportUsage = "Usage: `/backport <repository> [<branch>]`"

// backportState is a step of the backport workflow.
type backportState int

const (
	statePermissionCheck backportState = iota
	stateArgsParse
	stateRepoResolve
	stateBranchResolve
	stateForkMaterialize
	stateFetch
	stateBranchCreate
	stateCherryPick
	stateConflictReport
	stateFinalize
	stateDone
)

func (s backportState) String() string {
	switch s {
	case statePermissionCheck:
		return "PERMISSION_CHECK"
	case stateArgsParse:
		return "ARGS_PARSE"
	case stateRepoResolve:
		return "REPO_RESOLVE"
	case stateBranchResolve:
		return "BRANCH_RESOLVE"
	case stateForkMaterialize:
		return "FORK_MATERIALIZE"
	case stateFetch:
		return "FETCH"
	case stateBranchCreate:
		return "BRANCH_CREATE"
	case stateCherryPick:
		return "CHERRY_PICK"
	case stateConflictReport:
		return "CONFLICT_REPORT"
	case stateFinalize:
		return "FINALIZE"
	default:
		return "DONE"
	}
}

// backportRun carries the state of one backport invocation between steps.
type backportRun struct {
	inv    entities.CommandInvocation
	source forge.HostedRepository
	commit *entities.Commit

	repoName   string
	branchName string
	target     forge.HostedRepository
	fork       forge.HostedRepository

	dir     string
	local   vcs.Repository
	fetched entities.Hash
	tip     entities.Hash
	branch  string

	result entities.Result
}

// end records a terminal result.
func (r *backportRun) end(res entities.Result) backportState {
	r.result = res
	return stateDone
}

// Backport runs `/backport <repository> [<branch>]` on a commit.
func (u *Usecase) Backport(ctx context.Context, inv entities.CommandInvocation) entities.Result {
	ctx, span := u.begin(ctx, inv)
	return u.finish(ctx, span, inv, inv.Repository+"@"+inv.Commit.Abbreviate(), u.backport(ctx, inv))
}

func (u *Usecase) backport(ctx context.Context, inv entities.CommandInvocation) entities.Result {
	source, err := u.deps.Forge.Repository(ctx, inv.Repository)
	if errors.Is(err, entities.ErrRepositoryNotFound) {
		return inputRejected(entities.ReasonUnknownRepo,
			mention(inv.User, "the repository `%s` does not exist", inv.Repository))
	}
	if err != nil {
		return fault(err)
	}
	commit, err := source.Commit(ctx, inv.Commit)
	if errors.Is(err, entities.ErrCommitNotFound) {
		return inputRejected(entities.ReasonBadHash,
			mention(inv.User, "the commit `%s` does not exist", inv.Commit))
	}
	if err != nil {
		return fault(err)
	}

	run := &backportRun{inv: inv, source: source, commit: commit}
	defer func() {
		if run.dir != "" {
			u.removeScratch(run.dir)
		}
	}()

	steps := map[backportState]func(context.Context, *backportRun) backportState{
		statePermissionCheck: u.checkPermission,
		stateArgsParse:       u.parseArgs,
		stateRepoResolve:     u.resolveRepository,
		stateBranchResolve:   u.resolveBranch,
		stateForkMaterialize: u.materializeFork,
		stateFetch:           u.fetchBackport,
		stateBranchCreate:    u.createBackportBranch,
		stateCherryPick:      u.cherryPick,
		stateConflictReport:  u.reportConflict,
		stateFinalize:        u.finalizeBackport,
	}
	for state := statePermissionCheck; state != stateDone; {
		next := steps[state](ctx, run)
		u.log.Debugw("backport transition", "commit", inv.Commit, "from", state, "to", next)
		state = next
	}
	return run.result
}

func (u *Usecase) checkPermission(_ context.Context, r *backportRun) backportState {
	if _, ok := u.deps.Census.Resolve(r.inv.User); !ok {
		return r.end(inputRejected(entities.ReasonNotContributor, mention(r.inv.User,
			"only [contributors](%s) can use the `/backport` command", u.deps.Census.BylawsURL())))
	}
	return stateArgsParse
}

func (u *Usecase) parseArgs(_ context.Context, r *backportRun) backportState {
	fields := strings.Fields(r.inv.Args)
	if len(fields) == 0 || len(fields) > 2 {
		return r.end(inputRejected(entities.ReasonUsage, mention(r.inv.User, "%s", backportUsage)))
	}
	r.repoName = fields[0]
	r.branchName = u.settings.Trunk
	if len(fields) == 2 {
		r.branchName = fields[1]
	}
	return stateRepoResolve
}

// qualifyRepository strips scheme and host and assumes the source group
// for bare names.
func (u *Usecase) qualifyRepository(name string, source forge.HostedRepository) string {
	for _, scheme := range []string{"https://", "http://"} {
		name = strings.TrimPrefix(name, scheme)
	}
	name = strings.TrimPrefix(name, u.deps.Forge.Hostname()+"/")
	name = strings.TrimSuffix(name, "/")
	if !strings.Contains(name, "/") {
		name = source.Group() + "/" + name
	}
	return name
}

func (u *Usecase) resolveRepository(ctx context.Context, r *backportRun) backportState {
	requested := r.repoName
	r.repoName = u.qualifyRepository(requested, r.source)
	target, err := u.deps.Forge.Repository(ctx, r.repoName)
	if errors.Is(err, entities.ErrRepositoryNotFound) {
		return r.end(inputRejected(entities.ReasonUnknownRepo,
			mention(r.inv.User, "the target repository `%s` does not exist", requested)))
	}
	if err != nil {
		return r.end(fault(err))
	}
	r.target = target
	return stateBranchResolve
}

func (u *Usecase) resolveBranch(ctx context.Context, r *backportRun) backportState {
	_, err := forge.FindBranch(ctx, r.target, r.branchName)
	if errors.Is(err, entities.ErrBranchNotFound) {
		return r.end(inputRejected(entities.ReasonUnknownBranch,
			mention(r.inv.User, "the target branch `%s` does not exist", r.branchName)))
	}
	if err != nil {
		return r.end(fault(err))
	}
	return stateForkMaterialize
}

func (u *Usecase) materializeFork(ctx context.Context, r *backportRun) backportState {
	fork, err := r.target.Fork(ctx)
	if err != nil {
		return r.end(fault(err))
	}
	r.fork = fork
	r.dir = vcs.ScratchDir(u.settings.ScratchDir, "backport", r.target.Name())
	local, err := u.deps.VCS.Materialize(ctx, fork.URL(), r.dir)
	if err != nil {
		return r.end(fault(err))
	}
	r.local = local
	return stateFetch
}

func (u *Usecase) fetchBackport(ctx context.Context, r *backportRun) backportState {
	fetched, err := r.local.Fetch(ctx, r.source.URL(), r.commit.Hash.Hex())
	if err != nil {
		return r.end(fault(err))
	}
	tip, err := r.local.Fetch(ctx, r.target.URL(), "refs/heads/"+r.branchName)
	if err != nil {
		return r.end(fault(err))
	}
	r.fetched, r.tip = fetched, tip
	return stateBranchCreate
}

func (u *Usecase) createBackportBranch(ctx context.Context, r *backportRun) backportState {
	existing, err := r.fork.Branches(ctx)
	if err != nil {
		return r.end(fault(err))
	}
	taken := make(map[string]bool, len(existing))
	for _, b := range existing {
		taken[b.Name] = true
	}

	name := u.settings.BranchPrefix + r.commit.Hash.Abbreviate()
	if taken[name] {
		if u.settings.BranchPolicy == config.BranchPolicyFail {
			return r.end(businessRejected(entities.ReasonBranchExists, mention(r.inv.User,
				"the branch `%s` already exists in [%s](%s); a backport of `%s` may already be in progress",
				name, r.fork.Name(), r.fork.WebURL(), r.commit.Hash.Abbreviate())))
		}
		base := name
		for n := 2; taken[name]; n++ {
			name = fmt.Sprintf("%s-%d", base, n)
		}
	}

	if err := r.local.CreateBranch(ctx, name, r.tip); err != nil {
		return r.end(fault(err))
	}
	if err := r.local.Checkout(ctx, name); err != nil {
		return r.end(fault(err))
	}
	r.branch = name
	return stateCherryPick
}

func (u *Usecase) cherryPick(ctx context.Context, r *backportRun) backportState {
	applied, err := r.local.CherryPick(ctx, r.fetched)
	if err != nil {
		return r.end(fault(err))
	}
	if !applied {
		return stateConflictReport
	}
	return stateFinalize
}

func (u *Usecase) reportConflict(ctx context.Context, r *backportRun) backportState {
	status, err := r.local.Status(ctx)
	if err != nil {
		return r.end(fault(err))
	}
	var unmerged []string
	for _, f := range status {
		if f.IsUnmerged() {
			unmerged = append(unmerged, f.Path())
		}
	}
	reply := conflictReport(r, unmerged)
	if err := r.local.Reset(ctx, r.tip, true); err != nil {
		return r.end(fault(err))
	}
	return r.end(businessRejected(entities.ReasonConflict, reply))
}

func (u *Usecase) finalizeBackport(ctx context.Context, r *backportRun) backportState {
	hash := r.commit.Hash
	// A clean pick that stages nothing means the change is already there.
	staged, err := r.local.Status(ctx)
	if err != nil {
		return r.end(fault(err))
	}
	if len(staged) == 0 {
		return r.end(businessRejected(entities.ReasonAlreadyPresent, mention(r.inv.User,
			"the commit `%s` is already present on branch `%s` of [%s](%s); there is nothing to backport",
			hash.Abbreviate(), r.branchName, r.target.Name(), r.target.WebURL())))
	}

	bot := u.botIdent()
	backported, err := r.local.Commit(ctx, "Backport "+hash.Hex(), bot, bot)
	if err != nil {
		return r.end(fault(err))
	}
	if err := r.local.Push(ctx, backported, r.fork.URL(), r.branch, vcs.PushOptions{}); err != nil {
		return r.end(fault(err))
	}

	body := u.backportDescription(r)
	pr, err := r.fork.CreatePullRequest(ctx, r.target, r.branchName, r.branch, "Backport "+hash.Hex(), body)
	if err != nil {
		return r.end(fault(err))
	}
	if _, err := r.target.PostComment(ctx, pr.ID, marker.Backport(hash)); err != nil {
		u.log.Warnw("failed to post backport marker", "repository", r.target.Name(), "pull_request", pr.ID, "error", err)
	}

	return r.end(succeeded(entities.ReasonRequestOpened, mention(r.inv.User,
		"backport pull request [#%s](%s) targeting repository [%s](%s) created successfully.",
		pr.ID, pr.WebURL, r.target.Name(), r.target.WebURL())))
}
