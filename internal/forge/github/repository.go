package github

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Tubbz-alt/skara/internal/entities"
	"github.com/Tubbz-alt/skara/internal/forge"
	"github.com/cenkalti/backoff/v4"
	gh "github.com/google/go-github/v68/github"
)

type hostedRepository struct {
	client *Client
	owner  string
	name   string
	clone  string
	web    string
}

var _ forge.HostedRepository = (*hostedRepository)(nil)

func (r *hostedRepository) Name() string  { return r.owner + "/" + r.name }
func (r *hostedRepository) Group() string { return r.owner }
func (r *hostedRepository) URL() string   { return r.client.authenticated(r.clone) }
func (r *hostedRepository) WebURL() string {
	return r.web
}

func (r *hostedRepository) CommitURL(h entities.Hash) string {
	return r.web + "/commit/" + h.Hex()
}

func parseNumber(id string) (int, error) {
	n, err := strconv.Atoi(id)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: pull request id %q", entities.ErrInvalidArgument, id)
	}
	return n, nil
}

func (r *hostedRepository) Branches(ctx context.Context) ([]entities.Branch, error) {
	var res []entities.Branch
	opts := &gh.BranchListOptions{ListOptions: gh.ListOptions{PerPage: perPage}}
	for {
		var page []*gh.Branch
		var resp *gh.Response
		err := r.client.read(ctx, func() (*gh.Response, error) {
			var err error
			page, resp, err = r.client.api.Repositories.ListBranches(ctx, r.owner, r.name, opts)
			return resp, err
		})
		if err != nil {
			return nil, fmt.Errorf("list branches of %s: %w", r.Name(), err)
		}
		for _, b := range page {
			res = append(res, entities.Branch{Name: b.GetName(), Hash: entities.Hash(b.GetCommit().GetSHA())})
		}
		if resp.NextPage == 0 {
			return res, nil
		}
		opts.Page = resp.NextPage
	}
}

func (r *hostedRepository) Commit(ctx context.Context, h entities.Hash) (*entities.Commit, error) {
	var rc *gh.RepositoryCommit
	err := r.client.read(ctx, func() (*gh.Response, error) {
		var resp *gh.Response
		var err error
		rc, resp, err = r.client.api.Repositories.GetCommit(ctx, r.owner, r.name, h.Hex(), nil)
		return resp, err
	})
	if isNotFound(err) {
		return nil, fmt.Errorf("%w: %s", entities.ErrCommitNotFound, h)
	}
	if err != nil {
		return nil, fmt.Errorf("get commit %s: %w", h, err)
	}
	c := rc.GetCommit()
	commit := &entities.Commit{
		Hash:      entities.Hash(rc.GetSHA()),
		Author:    entities.Ident{Name: c.GetAuthor().GetName(), Email: c.GetAuthor().GetEmail()},
		Committer: entities.Ident{Name: c.GetCommitter().GetName(), Email: c.GetCommitter().GetEmail()},
		Committed: c.GetCommitter().GetDate().Time,
		Message:   c.GetMessage(),
		WebURL:    rc.GetHTMLURL(),
	}
	for _, p := range rc.Parents {
		commit.Parents = append(commit.Parents, entities.Hash(p.GetSHA()))
	}
	return commit, nil
}

func (r *hostedRepository) PostCommitComment(ctx context.Context, h entities.Hash, body string) error {
	_, _, err := r.client.api.Repositories.CreateComment(ctx, r.owner, r.name, h.Hex(), &gh.RepositoryComment{Body: gh.Ptr(body)})
	if err != nil {
		return fmt.Errorf("comment on commit %s: %w", h, err)
	}
	return nil
}

func (r *hostedRepository) toReviewRequest(pr *gh.PullRequest) *entities.ReviewRequest {
	rr := &entities.ReviewRequest{
		ID:         strconv.Itoa(pr.GetNumber()),
		Repository: r.Name(),
		Title:      pr.GetTitle(),
		Body:       pr.GetBody(),
		Author:     toUser(pr.GetUser()),
		HeadHash:   entities.Hash(pr.GetHead().GetSHA()),
		SourceRef:  pr.GetHead().GetRef(),
		TargetRef:  pr.GetBase().GetRef(),
		State:      entities.StateOpen,
		WebURL:     pr.GetHTMLURL(),
	}
	if pr.GetState() == "closed" {
		rr.State = entities.StateClosed
	}
	for _, l := range pr.Labels {
		rr.Labels = append(rr.Labels, l.GetName())
	}
	return rr
}

func (r *hostedRepository) PullRequest(ctx context.Context, id string) (*entities.ReviewRequest, error) {
	n, err := parseNumber(id)
	if err != nil {
		return nil, err
	}
	var pr *gh.PullRequest
	err = r.client.read(ctx, func() (*gh.Response, error) {
		var resp *gh.Response
		var err error
		pr, resp, err = r.client.api.PullRequests.Get(ctx, r.owner, r.name, n)
		return resp, err
	})
	if isNotFound(err) {
		return nil, fmt.Errorf("%w: %s#%s", entities.ErrPullRequestNotFound, r.Name(), id)
	}
	if err != nil {
		return nil, fmt.Errorf("get pull request %s: %w", id, err)
	}
	return r.toReviewRequest(pr), nil
}

func (r *hostedRepository) PullRequests(ctx context.Context, targetRef string) ([]*entities.ReviewRequest, error) {
	var res []*entities.ReviewRequest
	opts := &gh.PullRequestListOptions{State: "open", Base: targetRef, ListOptions: gh.ListOptions{PerPage: perPage}}
	for {
		var page []*gh.PullRequest
		var resp *gh.Response
		err := r.client.read(ctx, func() (*gh.Response, error) {
			var err error
			page, resp, err = r.client.api.PullRequests.List(ctx, r.owner, r.name, opts)
			return resp, err
		})
		if err != nil {
			return nil, fmt.Errorf("list pull requests targeting %s: %w", targetRef, err)
		}
		for _, pr := range page {
			res = append(res, r.toReviewRequest(pr))
		}
		if resp.NextPage == 0 {
			return res, nil
		}
		opts.Page = resp.NextPage
	}
}

func (r *hostedRepository) Comments(ctx context.Context, id string) ([]entities.Comment, error) {
	n, err := parseNumber(id)
	if err != nil {
		return nil, err
	}
	var res []entities.Comment
	opts := &gh.IssueListCommentsOptions{ListOptions: gh.ListOptions{PerPage: perPage}}
	for {
		var page []*gh.IssueComment
		var resp *gh.Response
		err := r.client.read(ctx, func() (*gh.Response, error) {
			var err error
			page, resp, err = r.client.api.Issues.ListComments(ctx, r.owner, r.name, n, opts)
			return resp, err
		})
		if err != nil {
			return nil, fmt.Errorf("list comments of %s: %w", id, err)
		}
		for _, c := range page {
			res = append(res, toComment(c))
		}
		if resp.NextPage == 0 {
			return res, nil
		}
		opts.Page = resp.NextPage
	}
}

func toComment(c *gh.IssueComment) entities.Comment {
	return entities.Comment{
		ID:        strconv.FormatInt(c.GetID(), 10),
		Author:    toUser(c.GetUser()),
		Body:      c.GetBody(),
		CreatedAt: c.GetCreatedAt().Time,
	}
}

func (r *hostedRepository) Reviews(ctx context.Context, id string) ([]entities.Review, error) {
	n, err := parseNumber(id)
	if err != nil {
		return nil, err
	}
	var res []entities.Review
	opts := &gh.ListOptions{PerPage: perPage}
	for {
		var page []*gh.PullRequestReview
		var resp *gh.Response
		err := r.client.read(ctx, func() (*gh.Response, error) {
			var err error
			page, resp, err = r.client.api.PullRequests.ListReviews(ctx, r.owner, r.name, n, opts)
			return resp, err
		})
		if err != nil {
			return nil, fmt.Errorf("list reviews of %s: %w", id, err)
		}
		for _, rv := range page {
			verdict := entities.VerdictNone
			switch rv.GetState() {
			case "APPROVED":
				verdict = entities.VerdictApproved
			case "CHANGES_REQUESTED":
				verdict = entities.VerdictRejected
			}
			res = append(res, entities.Review{
				Reviewer:    toUser(rv.GetUser()),
				Verdict:     verdict,
				Hash:        entities.Hash(rv.GetCommitID()),
				SubmittedAt: rv.GetSubmittedAt().Time,
			})
		}
		if resp.NextPage == 0 {
			return res, nil
		}
		opts.Page = resp.NextPage
	}
}

func (r *hostedRepository) Checks(ctx context.Context, h entities.Hash) (map[string]entities.Check, error) {
	res := make(map[string]entities.Check)
	opts := &gh.ListCheckRunsOptions{ListOptions: gh.ListOptions{PerPage: perPage}}
	for {
		var page *gh.ListCheckRunsResults
		var resp *gh.Response
		err := r.client.read(ctx, func() (*gh.Response, error) {
			var err error
			page, resp, err = r.client.api.Checks.ListCheckRunsForRef(ctx, r.owner, r.name, h.Hex(), opts)
			return resp, err
		})
		if err != nil {
			return nil, fmt.Errorf("list checks of %s: %w", h, err)
		}
		for _, run := range page.CheckRuns {
			if _, seen := res[run.GetName()]; seen {
				continue
			}
			status := entities.CheckInProgress
			if run.GetStatus() == "completed" {
				status = entities.CheckFailure
				if run.GetConclusion() == "success" {
					status = entities.CheckSuccess
				}
			}
			res[run.GetName()] = entities.Check{
				Name:   run.GetName(),
				Hash:   entities.Hash(run.GetHeadSHA()),
				Status: status,
			}
		}
		if resp.NextPage == 0 {
			return res, nil
		}
		opts.Page = resp.NextPage
	}
}

func (r *hostedRepository) AddLabel(ctx context.Context, id, label string) error {
	n, err := parseNumber(id)
	if err != nil {
		return err
	}
	if _, _, err := r.client.api.Issues.AddLabelsToIssue(ctx, r.owner, r.name, n, []string{label}); err != nil {
		return fmt.Errorf("add label %s to %s: %w", label, id, err)
	}
	return nil
}

func (r *hostedRepository) RemoveLabel(ctx context.Context, id, label string) error {
	n, err := parseNumber(id)
	if err != nil {
		return err
	}
	_, err = r.client.api.Issues.RemoveLabelForIssue(ctx, r.owner, r.name, n, label)
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("remove label %s from %s: %w", label, id, err)
	}
	return nil
}

func (r *hostedRepository) SetState(ctx context.Context, id string, state entities.ReviewState) error {
	n, err := parseNumber(id)
	if err != nil {
		return err
	}
	s := "open"
	if state == entities.StateClosed {
		s = "closed"
	}
	if _, _, err := r.client.api.PullRequests.Edit(ctx, r.owner, r.name, n, &gh.PullRequest{State: gh.Ptr(s)}); err != nil {
		return fmt.Errorf("set state of %s: %w", id, err)
	}
	return nil
}

func (r *hostedRepository) SetTargetRef(ctx context.Context, id, ref string) error {
	n, err := parseNumber(id)
	if err != nil {
		return err
	}
	edit := &gh.PullRequest{Base: &gh.PullRequestBranch{Ref: gh.Ptr(ref)}}
	if _, _, err := r.client.api.PullRequests.Edit(ctx, r.owner, r.name, n, edit); err != nil {
		return fmt.Errorf("retarget %s to %s: %w", id, ref, err)
	}
	return nil
}

func (r *hostedRepository) PostComment(ctx context.Context, id, body string) (entities.Comment, error) {
	n, err := parseNumber(id)
	if err != nil {
		return entities.Comment{}, err
	}
	c, _, err := r.client.api.Issues.CreateComment(ctx, r.owner, r.name, n, &gh.IssueComment{Body: gh.Ptr(body)})
	if err != nil {
		return entities.Comment{}, fmt.Errorf("comment on %s: %w", id, err)
	}
	return toComment(c), nil
}

func (r *hostedRepository) CreatePullRequest(ctx context.Context, target forge.HostedRepository, targetRef, sourceRef, title, body string) (*entities.ReviewRequest, error) {
	t, ok := target.(*hostedRepository)
	if !ok {
		return nil, fmt.Errorf("%w: target %s is not a github repository", entities.ErrInvalidArgument, target.Name())
	}
	head := sourceRef
	if t.owner != r.owner {
		head = r.owner + ":" + sourceRef
	}
	pr, _, err := r.client.api.PullRequests.Create(ctx, t.owner, t.name, &gh.NewPullRequest{
		Title: gh.Ptr(title),
		Head:  gh.Ptr(head),
		Base:  gh.Ptr(targetRef),
		Body:  gh.Ptr(body),
	})
	if err != nil {
		return nil, fmt.Errorf("create pull request in %s: %w", t.Name(), err)
	}
	return t.toReviewRequest(pr), nil
}

// Fork creates the fork and waits until GitHub has finished provisioning it.
func (r *hostedRepository) Fork(ctx context.Context) (forge.HostedRepository, error) {
	fork, _, err := r.client.api.Repositories.CreateFork(ctx, r.owner, r.name, &gh.RepositoryCreateForkOptions{})
	var accepted *gh.AcceptedError
	if err != nil && !errors.As(err, &accepted) {
		return nil, fmt.Errorf("fork %s: %w", r.Name(), err)
	}
	owner, name := fork.GetOwner().GetLogin(), fork.GetName()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxElapsedTime = forkMaxElapsed
	err = backoff.Retry(func() error {
		var err error
		fork, _, err = r.client.api.Repositories.Get(ctx, owner, name)
		return err
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		return nil, fmt.Errorf("wait for fork %s/%s: %w", owner, name, err)
	}
	return r.client.wrap(fork), nil
}
