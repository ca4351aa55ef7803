package domain

import (
	"context"
	"strings"
	"testing"

	"github.com/Tubbz-alt/skara/internal/entities"
	"github.com/stretchr/testify/require"
)

func TestDispatchValidation(t *testing.T) {
	tests := []struct {
		name string
		inv  entities.CommandInvocation
	}{
		{name: "no_user", inv: entities.CommandInvocation{Kind: entities.CommandIntegrate, Repository: "openjdk/jdk", PullRequestID: "42"}},
		{name: "no_repository", inv: entities.CommandInvocation{Kind: entities.CommandIntegrate, User: alice, PullRequestID: "42"}},
		{name: "no_pull_request", inv: entities.CommandInvocation{Kind: entities.CommandIntegrate, User: alice, Repository: "openjdk/jdk"}},
		{name: "short_commit", inv: entities.CommandInvocation{Kind: entities.CommandBackport, User: alice, Repository: "openjdk/jdk", Commit: "abc1234"}},
		{name: "unknown_command", inv: entities.CommandInvocation{Kind: "sponsor", User: alice, Repository: "openjdk/jdk"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.uc.Dispatch(context.Background(), tt.inv)
			require.ErrorIs(t, err, entities.ErrInvalidArgument)
			require.Empty(t, f.repo.posted)
			require.Empty(t, f.repo.commitComments)
		})
	}
}

func TestDispatchRepliesOnPullRequest(t *testing.T) {
	f := newFixture(t)
	f.openPR(alice, entities.LabelReady)

	res, err := f.uc.Dispatch(context.Background(), integrateBy(eve, ""))
	require.NoError(t, err)
	require.Equal(t, entities.ReasonNotAuthor, res.Reason)
	require.Equal(t, []prComment{{id: "42", body: res.Reply}}, f.repo.posted)
}

func TestDispatchRepliesOnCommit(t *testing.T) {
	f := newBackportFixture(t)

	res, err := f.uc.Dispatch(context.Background(), backportBy(alice, ""))
	require.NoError(t, err)
	require.Equal(t, entities.ReasonUsage, res.Reason)
	require.Equal(t, []string{res.Reply}, f.repo.commitComments[source])
}

func TestDispatchHidesInfrastructureFaults(t *testing.T) {
	f := newBackportFixture(t)
	f.target.fork = nil

	res, err := f.uc.Dispatch(context.Background(), backportBy(alice, "jdk17u"))
	require.NoError(t, err)
	require.Equal(t, entities.ResultInfraFault, res.Kind)
	require.Error(t, res.Err)
	require.True(t, strings.HasPrefix(res.Reply, "@gh-alice An unexpected error occurred during backport."))
	require.NotContains(t, res.Reply, "duke/jdk17u")
	require.Equal(t, []string{res.Reply}, f.repo.commitComments[source])
}
