// Package forge defines the code-forge contract the workflows consume.
package forge

import (
	"context"
	"fmt"

	"github.com/Tubbz-alt/skara/internal/entities"
)

// Forge is a code hosting service.
type Forge interface {
	// Hostname is the host part used in qualified repository names.
	Hostname() string
	// CurrentUser is the identity the bot acts as.
	CurrentUser(ctx context.Context) (entities.User, error)
	// Repository looks up "group/name". It returns ErrRepositoryNotFound
	// when the repository does not exist.
	Repository(ctx context.Context, name string) (HostedRepository, error)
}

// HostedRepository is a repository on the forge.
type HostedRepository interface {
	// Name is the group-qualified name.
	Name() string
	// Group is the owning namespace.
	Group() string
	// URL is the clone URL.
	URL() string
	WebURL() string
	// CommitURL is the web page of a revision.
	CommitURL(h entities.Hash) string

	Branches(ctx context.Context) ([]entities.Branch, error)
	Commit(ctx context.Context, h entities.Hash) (*entities.Commit, error)
	PostCommitComment(ctx context.Context, h entities.Hash, body string) error

	PullRequest(ctx context.Context, id string) (*entities.ReviewRequest, error)
	// PullRequests lists the open review requests targeting targetRef.
	PullRequests(ctx context.Context, targetRef string) ([]*entities.ReviewRequest, error)
	Comments(ctx context.Context, id string) ([]entities.Comment, error)
	Reviews(ctx context.Context, id string) ([]entities.Review, error)
	// Checks returns the checks performed on h keyed by name.
	Checks(ctx context.Context, h entities.Hash) (map[string]entities.Check, error)

	AddLabel(ctx context.Context, id, label string) error
	RemoveLabel(ctx context.Context, id, label string) error
	SetState(ctx context.Context, id string, state entities.ReviewState) error
	SetTargetRef(ctx context.Context, id, ref string) error
	PostComment(ctx context.Context, id, body string) (entities.Comment, error)

	// CreatePullRequest opens a request from sourceRef of this repository
	// into targetRef of target.
	CreatePullRequest(ctx context.Context, target HostedRepository, targetRef, sourceRef, title, body string) (*entities.ReviewRequest, error)
	// Fork returns a fork of this repository writeable by the bot,
	// creating it when necessary.
	Fork(ctx context.Context) (HostedRepository, error)
}

// FindBranch looks up a branch of repo by name. It returns ErrBranchNotFound
// when there is none.
func FindBranch(ctx context.Context, repo HostedRepository, name string) (entities.Branch, error) {
	branches, err := repo.Branches(ctx)
	if err != nil {
		return entities.Branch{}, err
	}
	for _, b := range branches {
		if b.Name == name {
			return b, nil
		}
	}
	return entities.Branch{}, fmt.Errorf("%w: %s in %s", entities.ErrBranchNotFound, name, repo.Name())
}
