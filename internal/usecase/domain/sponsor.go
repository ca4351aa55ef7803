package domain

import (
	"context"
	"strings"

	"github.com/Tubbz-alt/skara/internal/entities"
	"github.com/Tubbz-alt/skara/internal/forge"
	"github.com/Tubbz-alt/skara/internal/marker"
	"github.com/Tubbz-alt/skara/internal/vcs"
)

const unmergedCommitsHint = ":bulb: You may see a message that your pull request was closed with unmerged commits. " +
	"This can be safely ignored."

// pushOrHandOff either pushes final to the target branch or, for requesters
// without push privilege, records the approved head for a sponsor.
func (u *Usecase) pushOrHandOff(
	ctx context.Context,
	inv entities.CommandInvocation,
	repo forge.HostedRepository,
	local vcs.Repository,
	pr *entities.ReviewRequest,
	final, tip, pinned entities.Hash,
	rebaseMsg string,
) (entities.Result, *entities.ReviewRequest) {
	if !u.deps.Census.IsCommitter(pr.Author) {
		return u.handOff(ctx, inv, repo, pr, pinned), nil
	}

	if final == tip {
		return businessRejected(entities.ReasonNoChanges, mention(inv.User,
			"Warning! Your commit did not result in any changes! No push attempt will be made.")), nil
	}

	if err := local.Push(ctx, final, repo.URL(), pr.TargetRef, vcs.PushOptions{ExpectedTip: tip}); err != nil {
		return fault(err), nil
	}
	u.log.Infow("pushed integration", "repository", repo.Name(), "pull_request", pr.ID, "commit", final)

	// The push is done; label and state failures no longer change the outcome.
	if err := repo.SetState(ctx, pr.ID, entities.StateClosed); err != nil {
		u.log.Warnw("failed to close pull request", "pull_request", pr.ID, "error", err)
	}
	if err := repo.AddLabel(ctx, pr.ID, entities.LabelIntegrated); err != nil {
		u.log.Warnw("failed to add label", "pull_request", pr.ID, "label", entities.LabelIntegrated, "error", err)
	}
	for _, label := range []string{entities.LabelReady, entities.LabelRFR} {
		if err := repo.RemoveLabel(ctx, pr.ID, label); err != nil {
			u.log.Warnw("failed to remove label", "pull_request", pr.ID, "label", label, "error", err)
		}
	}

	var reply strings.Builder
	reply.WriteString("@" + inv.User.Login)
	if rebaseMsg != "" {
		reply.WriteString(" " + rebaseMsg + "\n")
	} else {
		reply.WriteString(" ")
	}
	reply.WriteString("Pushed as commit " + final.Hex() + ".\n\n" + unmergedCommitsHint)
	return succeeded(entities.ReasonIntegrated, reply.String()), pr
}

// handOff records the approved head for a sponsor. A request labelled for
// sponsoring always carries the marker.
func (u *Usecase) handOff(
	ctx context.Context,
	inv entities.CommandInvocation,
	repo forge.HostedRepository,
	pr *entities.ReviewRequest,
	pinned entities.Hash,
) entities.Result {
	if _, err := repo.PostComment(ctx, pr.ID, marker.ReadyForSponsor(pr.HeadHash)); err != nil {
		return fault(err)
	}
	if err := repo.AddLabel(ctx, pr.ID, entities.LabelSponsor); err != nil {
		return fault(err)
	}

	lines := []string{
		mention(inv.User, "Your change (at version %s) is now ready to be sponsored by a Committer.", pr.HeadHash),
	}
	if !pinned.IsZero() {
		lines = append(lines, "Note that your sponsor will make the final decision onto which target hash to integrate.")
	}
	return awaitingSponsor(strings.Join(lines, "\n"))
}

// retargetDependents points open requests stacked on pr at pr's own target.
func (u *Usecase) retargetDependents(ctx context.Context, repo forge.HostedRepository, pr *entities.ReviewRequest) {
	dependents, err := repo.PullRequests(ctx, pr.PreIntegrationRef())
	if err != nil {
		u.log.Warnw("failed to list dependent pull requests", "pull_request", pr.ID, "error", err)
		return
	}
	for _, d := range dependents {
		if err := repo.SetTargetRef(ctx, d.ID, pr.TargetRef); err != nil {
			u.log.Warnw("failed to retarget pull request", "pull_request", d.ID, "target", pr.TargetRef, "error", err)
			continue
		}
		u.log.Infow("retargeted pull request", "pull_request", d.ID, "target", pr.TargetRef)
	}
}
