package domain

import (
	"context"
	"fmt"
	"io"

	"github.com/Tubbz-alt/skara/internal/entities"
	"github.com/Tubbz-alt/skara/internal/vcs"
)

// mergeTarget brings head up to date with tip and returns the revision to
// compose from. When the target cannot be merged cleanly it writes the
// explanation to w and returns ok == false with the working copy back at head.
func (u *Usecase) mergeTarget(
	ctx context.Context,
	local vcs.Repository,
	pr *entities.ReviewRequest,
	head, tip entities.Hash,
	w io.Writer,
) (entities.Hash, bool, error) {
	descends, err := local.IsAncestor(ctx, tip, head)
	if err != nil {
		return "", false, err
	}
	if descends {
		return head, true, nil
	}

	if err := local.Checkout(ctx, head.Hex()); err != nil {
		return "", false, err
	}
	message := fmt.Sprintf("Automatic merge of %s into %s", pr.TargetRef, pr.SourceRef)
	merged, err := local.Merge(ctx, tip, message, u.botIdent())
	if err != nil {
		return "", false, err
	}
	if !merged {
		if err := local.Reset(ctx, head, true); err != nil {
			return "", false, err
		}
		fmt.Fprintf(w, "It was not possible to rebase your changes automatically. "+
			"Please merge `%s` into your branch and try again.", pr.TargetRef)
		return "", false, nil
	}

	rebased, err := local.Head(ctx)
	if err != nil {
		return "", false, err
	}
	fmt.Fprint(w, "Your commit was automatically rebased without conflicts.")
	return rebased, true, nil
}
