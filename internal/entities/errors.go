// Package entities contains core business entities and errors.
package entities

import "errors"

var (
	// ErrInvalidArgument signals failed input validation.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrRepositoryNotFound is returned when a hosted repository does not exist.
	ErrRepositoryNotFound = errors.New("repository not found")
	// ErrBranchNotFound is returned when a branch is absent from a repository.
	ErrBranchNotFound = errors.New("branch not found")
	// ErrPullRequestNotFound signals a missing review request.
	ErrPullRequestNotFound = errors.New("pull request not found")
	// ErrCommitNotFound signals a missing revision.
	ErrCommitNotFound = errors.New("commit not found")
	// ErrLockHeld signals that a valid lock is already held for the key.
	ErrLockHeld = errors.New("lock held")
)
