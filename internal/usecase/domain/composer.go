package domain

import (
	"context"
	"fmt"

	"github.com/Tubbz-alt/skara/internal/commitmsg"
	"github.com/Tubbz-alt/skara/internal/entities"
	"github.com/Tubbz-alt/skara/internal/marker"
	"github.com/Tubbz-alt/skara/internal/vcs"
)

// compose squashes rebased into a single revision on top of tip. When the
// result would not change the tree, tip itself is returned.
func (u *Usecase) compose(
	ctx context.Context,
	local vcs.Repository,
	rebased, tip entities.Hash,
	pr *entities.ReviewRequest,
	reviews []entities.Review,
	original entities.Hash,
) (entities.Hash, error) {
	rebasedTree, err := local.Tree(ctx, rebased)
	if err != nil {
		return "", err
	}
	tipTree, err := local.Tree(ctx, tip)
	if err != nil {
		return "", err
	}
	if rebasedTree == tipTree {
		return tip, nil
	}

	msg := commitmsg.Message{
		Title:     pr.Title,
		CoAuthors: commitmsg.CoAuthors(pr.Body),
		Original:  original,
	}
	for _, r := range u.reviewers(pr, reviews) {
		msg.AddReviewer(r)
	}
	author := u.authorIdent(pr.Author)
	return local.CommitTree(ctx, rebased, []entities.Hash{tip}, msg.Format(), author, author)
}

// authorIdent resolves a forge account to the identity recorded on commits.
func (u *Usecase) authorIdent(user entities.User) entities.Ident {
	if c, ok := u.deps.Census.Resolve(user); ok {
		return entities.Ident{Name: c.DisplayName(), Email: c.Username + "@" + u.deps.Census.Domain()}
	}
	id := entities.Ident{Name: user.Name, Email: user.Email}
	if id.Name == "" {
		id.Name = user.Login
	}
	if id.Email == "" {
		id.Email = fmt.Sprintf("%s@users.noreply.%s", user.Login, u.deps.Forge.Hostname())
	}
	return id
}

// reviewers returns the census usernames of everyone whose latest verdict
// is an approval, in order of first review. Self-reviews and accounts
// unknown to the census do not count.
func (u *Usecase) reviewers(pr *entities.ReviewRequest, reviews []entities.Review) []string {
	var order []string
	latest := make(map[string]entities.Review)
	for _, r := range reviews {
		if r.Verdict == entities.VerdictNone || r.Reviewer.Is(pr.Author) {
			continue
		}
		if _, seen := latest[r.Reviewer.Login]; !seen {
			order = append(order, r.Reviewer.Login)
		}
		latest[r.Reviewer.Login] = r
	}

	var res []string
	for _, login := range order {
		r := latest[login]
		if r.Verdict != entities.VerdictApproved {
			continue
		}
		if u.settings.IgnoreStaleReviews && r.Hash != pr.HeadHash {
			continue
		}
		if c, ok := u.deps.Census.Resolve(r.Reviewer); ok {
			res = append(res, c.Username)
		}
	}
	return res
}

// amendManualReviewers folds reviewers credited by comment into the message
// of rev. A new revision with the same parents is created when anything was
// added; otherwise rev is returned as is.
func (u *Usecase) amendManualReviewers(
	ctx context.Context,
	local vcs.Repository,
	rev entities.Hash,
	comments []entities.Comment,
	original entities.Hash,
) (entities.Hash, error) {
	manual := marker.ManualReviewers(comments, u.settings.Bot)
	if len(manual) == 0 {
		return rev, nil
	}
	c, err := local.Lookup(ctx, rev)
	if err != nil {
		return "", err
	}
	msg := commitmsg.Parse(c.Message)
	before := len(msg.Reviewers)
	for _, username := range manual {
		msg.AddReviewer(username)
	}
	if len(msg.Reviewers) == before {
		return rev, nil
	}
	if !original.IsZero() {
		msg.Original = original
	}
	return local.CommitTree(ctx, rev, c.Parents, msg.Format(), c.Author, c.Committer)
}
