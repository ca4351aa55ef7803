package forge

import (
	"context"
	"errors"
	"testing"

	"github.com/Tubbz-alt/skara/internal/entities"
	"github.com/stretchr/testify/require"
)

type branchRepo struct {
	HostedRepository
	branches []entities.Branch
	err      error
}

func (r branchRepo) Name() string { return "openjdk/jdk17u" }

func (r branchRepo) Branches(_ context.Context) ([]entities.Branch, error) {
	return r.branches, r.err
}

func TestFindBranch(t *testing.T) {
	repo := branchRepo{branches: []entities.Branch{
		{Name: "master", Hash: entities.Hash("1111111111111111111111111111111111111111")},
		{Name: "jdk17.0.2", Hash: entities.Hash("2222222222222222222222222222222222222222")},
	}}

	b, err := FindBranch(context.Background(), repo, "jdk17.0.2")
	require.NoError(t, err)
	require.Equal(t, repo.branches[1], b)

	_, err = FindBranch(context.Background(), repo, "jdk99")
	require.ErrorIs(t, err, entities.ErrBranchNotFound)
	require.Contains(t, err.Error(), "jdk99 in openjdk/jdk17u")
}

func TestFindBranchPropagatesListingErrors(t *testing.T) {
	boom := errors.New("rate limited")
	_, err := FindBranch(context.Background(), branchRepo{err: boom}, "master")
	require.ErrorIs(t, err, boom)
	require.NotErrorIs(t, err, entities.ErrBranchNotFound)
}
