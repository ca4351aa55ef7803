// Package mapper converts between domain models and transport DTOs.
package mapper

import (
	"strings"

	"github.com/Tubbz-alt/skara/internal/entities"
	"github.com/Tubbz-alt/skara/internal/transport/http/api"
)

// FromAPIIntegrate builds an integrate invocation from the transport body.
func FromAPIIntegrate(src api.PostIntegrateJSONRequestBody) entities.CommandInvocation {
	return entities.CommandInvocation{
		Kind:          entities.CommandIntegrate,
		User:          entities.User{Login: strings.TrimSpace(src.User)},
		Args:          src.Args,
		Repository:    strings.TrimSpace(src.Repository),
		PullRequestID: strings.TrimSpace(src.PullRequest),
	}
}

// FromAPIBackport builds a backport invocation from the transport body. The
// commit is validated when the command is dispatched.
func FromAPIBackport(src api.PostBackportJSONRequestBody) entities.CommandInvocation {
	return entities.CommandInvocation{
		Kind:       entities.CommandBackport,
		User:       entities.User{Login: strings.TrimSpace(src.User)},
		Args:       src.Args,
		Repository: strings.TrimSpace(src.Repository),
		Commit:     entities.Hash(strings.ToLower(strings.TrimSpace(src.Commit))),
	}
}

// ToAPIResult maps a workflow result to the transport model.
func ToAPIResult(res entities.Result) api.CommandResult {
	return api.CommandResult{
		Outcome: string(res.Kind),
		Reason:  string(res.Reason),
		Reply:   res.Reply,
	}
}
