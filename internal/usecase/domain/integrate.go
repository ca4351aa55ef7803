package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Tubbz-alt/skara/internal/checks"
	"github.com/Tubbz-alt/skara/internal/entities"
	"github.com/Tubbz-alt/skara/internal/forge"
	"github.com/Tubbz-alt/skara/internal/lock"
	"github.com/Tubbz-alt/skara/internal/marker"
	"github.com/Tubbz-alt/skara/internal/vcs"
)

const sponsorSuggestion = " As this PR is ready to be sponsored, and you are an eligible sponsor, did you mean to issue the `/sponsor` command?"

// Integrate runs `/integrate [<hash>]` on a review request.
func (u *Usecase) Integrate(ctx context.Context, inv entities.CommandInvocation) entities.Result {
	ctx, span := u.begin(ctx, inv)
	return u.finish(ctx, span, inv, inv.Repository+"#"+inv.PullRequestID, u.integrate(ctx, inv))
}

func (u *Usecase) integrate(ctx context.Context, inv entities.CommandInvocation) entities.Result {
	repo, err := u.deps.Forge.Repository(ctx, inv.Repository)
	if errors.Is(err, entities.ErrRepositoryNotFound) {
		return inputRejected(entities.ReasonUnknownRepo,
			mention(inv.User, "the repository `%s` does not exist.", inv.Repository))
	}
	if err != nil {
		return fault(err)
	}

	pr, err := repo.PullRequest(ctx, inv.PullRequestID)
	if errors.Is(err, entities.ErrPullRequestNotFound) {
		return inputRejected(entities.ReasonUnknownRequest,
			mention(inv.User, "the pull request `%s` does not exist.", inv.PullRequestID))
	}
	if err != nil {
		return fault(err)
	}
	comments, err := repo.Comments(ctx, pr.ID)
	if err != nil {
		return fault(err)
	}

	if !inv.User.Is(pr.Author) {
		return u.denyNonAuthor(inv, pr, comments)
	}

	var pinned entities.Hash
	if args := strings.TrimSpace(inv.Args); args != "" {
		h, err := entities.ParseHash(args)
		if err != nil {
			return inputRejected(entities.ReasonBadHash,
				mention(inv.User, "The given argument `%s` is not a valid commit hash.", args))
		}
		pinned = h
	}

	if res, ok := u.gate(ctx, inv, repo, pr); !ok {
		return res
	}

	l, err := u.deps.Locks.Acquire(ctx, lock.KeyFor(repo.Name(), pr.ID), u.settings.LockTTL)
	if err != nil {
		res := fault(err)
		res.Reason = entities.ReasonLockUnavailable
		res.Reply = mention(inv.User, "Unable to acquire the integration lock; aborting integration. "+
			"The error has been logged and will be investigated.")
		return res
	}

	res, pushed := u.integrateLocked(ctx, inv, repo, pr.ID, pinned, l)
	if pushed != nil {
		u.retargetDependents(ctx, repo, pushed)
	}
	return res
}

func (u *Usecase) denyNonAuthor(inv entities.CommandInvocation, pr *entities.ReviewRequest, comments []entities.Comment) entities.Result {
	text := fmt.Sprintf("Only the author (@%s) is allowed to issue the `integrate` command.", pr.Author.Login)
	if _, ok := marker.LatestReadyForSponsor(comments, u.settings.Bot); ok && u.deps.Census.IsCommitter(inv.User) {
		text += sponsorSuggestion
	}
	return inputRejected(entities.ReasonNotAuthor, mention(inv.User, "%s", text))
}

// gate checks the required status check and the ready label on the
// current head.
func (u *Usecase) gate(ctx context.Context, inv entities.CommandInvocation, repo forge.HostedRepository, pr *entities.ReviewRequest) (entities.Result, bool) {
	performed, err := repo.Checks(ctx, pr.HeadHash)
	if err != nil {
		return fault(err), false
	}
	eval := checks.Evaluate(performed, u.settings.CheckName, pr.HeadHash)
	if eval.Verdict != checks.Pass {
		return businessRejected(eval.Reason(), mention(inv.User,
			"Your integration request cannot be fulfilled at this time, as %s.", eval.Problem())), false
	}
	if !pr.HasLabel(entities.LabelReady) {
		return businessRejected(entities.ReasonNotReady,
			mention(inv.User, "This PR has not yet been marked as ready for integration.")), false
	}
	return entities.Result{}, true
}

// integrateLocked is the critical section. The lock is released on every
// exit path, panics included. The returned request is non-nil only when a
// revision was pushed.
func (u *Usecase) integrateLocked(
	ctx context.Context,
	inv entities.CommandInvocation,
	repo forge.HostedRepository,
	id string,
	pinned entities.Hash,
	l *lock.Lock,
) (entities.Result, *entities.ReviewRequest) {
	defer func() {
		if err := u.deps.Locks.Release(context.WithoutCancel(ctx), l); err != nil {
			u.log.Errorw("failed to release integration lock", "key", l.Key, "error", err)
		}
	}()

	pr, err := repo.PullRequest(ctx, id)
	if err != nil {
		return fault(err), nil
	}
	if res, ok := u.gate(ctx, inv, repo, pr); !ok {
		return res, nil
	}
	comments, err := repo.Comments(ctx, pr.ID)
	if err != nil {
		return fault(err), nil
	}
	reviews, err := repo.Reviews(ctx, pr.ID)
	if err != nil {
		return fault(err), nil
	}

	dir := vcs.ScratchDir(u.settings.ScratchDir, "integrate", repo.Name())
	defer u.removeScratch(dir)
	local, err := u.deps.VCS.Materialize(ctx, repo.URL(), dir)
	if err != nil {
		return fault(err), nil
	}
	head, err := local.Fetch(ctx, repo.URL(), pr.HeadHash.Hex())
	if err != nil {
		return fault(err), nil
	}
	tip, err := local.Fetch(ctx, repo.URL(), "refs/heads/"+pr.TargetRef)
	if err != nil {
		return fault(err), nil
	}

	if !pinned.IsZero() && pinned != tip {
		return businessRejected(entities.ReasonTargetMoved, mention(inv.User,
			"The head of the target branch is no longer at the requested hash %s - it has moved to %s. Aborting integration.",
			pinned, tip)), nil
	}

	var rebaseMsg strings.Builder
	rebased, ok, err := u.mergeTarget(ctx, local, pr, head, tip, &rebaseMsg)
	if err != nil {
		return fault(err), nil
	}
	if !ok {
		return businessRejected(entities.ReasonConflict, mention(inv.User, "%s", rebaseMsg.String())), nil
	}

	original, _ := marker.FirstBackport(comments, u.settings.Bot)
	final, err := u.compose(ctx, local, rebased, tip, pr, reviews, original)
	if err != nil {
		return fault(err), nil
	}

	// Reviewers credited by comment count towards the final check.
	var problems []string
	if final != tip {
		final, err = u.amendManualReviewers(ctx, local, final, comments, original)
		if err != nil {
			return fault(err), nil
		}
		problems, err = u.deps.Checker.Check(ctx, local, final, u.deps.Census)
		if err != nil {
			return fault(err), nil
		}
	}
	if len(problems) > 0 {
		lines := []string{mention(inv.User,
			"Your integration request cannot be fulfilled at this time, as your changes failed the final jcheck:")}
		for _, p := range problems {
			lines = append(lines, " * "+p)
		}
		return businessRejected(entities.ReasonFinalCheck, strings.Join(lines, "\n")), nil
	}

	return u.pushOrHandOff(ctx, inv, repo, local, pr, final, tip, pinned, rebaseMsg.String())
}
