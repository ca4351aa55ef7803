package domain

import (
	"context"
	"fmt"
	"strings"

	"github.com/Tubbz-alt/skara/internal/entities"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Dispatch validates an invocation, runs the matching workflow and posts the
// reply on the review request or commit the command was issued on.
func (u *Usecase) Dispatch(ctx context.Context, inv entities.CommandInvocation) (entities.Result, error) {
	ctx, cancel := withTimeout(ctx, u.timeout)
	defer cancel()

	if err := validate(inv); err != nil {
		return entities.Result{}, err
	}

	var res entities.Result
	switch inv.Kind {
	case entities.CommandIntegrate:
		res = u.Integrate(ctx, inv)
	case entities.CommandBackport:
		res = u.Backport(ctx, inv)
	}
	u.deliver(ctx, inv, res.Reply)
	return res, nil
}

func validate(inv entities.CommandInvocation) error {
	if inv.User.Login == "" {
		return fmt.Errorf("%w: user is required", entities.ErrInvalidArgument)
	}
	if inv.Repository == "" {
		return fmt.Errorf("%w: repository is required", entities.ErrInvalidArgument)
	}
	switch inv.Kind {
	case entities.CommandIntegrate:
		if inv.PullRequestID == "" {
			return fmt.Errorf("%w: pull_request is required", entities.ErrInvalidArgument)
		}
	case entities.CommandBackport:
		if _, err := entities.ParseHash(inv.Commit.Hex()); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: unknown command %q", entities.ErrInvalidArgument, inv.Kind)
	}
	return nil
}

func (u *Usecase) deliver(ctx context.Context, inv entities.CommandInvocation, reply string) {
	if strings.TrimSpace(reply) == "" {
		return
	}
	repo, err := u.deps.Forge.Repository(ctx, inv.Repository)
	if err == nil {
		switch inv.Kind {
		case entities.CommandIntegrate:
			_, err = repo.PostComment(ctx, inv.PullRequestID, reply)
		case entities.CommandBackport:
			err = repo.PostCommitComment(ctx, inv.Commit, reply)
		}
	}
	if err != nil {
		u.log.Errorw("failed to post reply", "command", inv.Kind, "repository", inv.Repository, "error", err)
	}
}

// begin opens the span covering one workflow run.
func (u *Usecase) begin(ctx context.Context, inv entities.CommandInvocation) (context.Context, trace.Span) {
	return u.tracer.Start(ctx, "prbot."+string(inv.Kind), trace.WithAttributes(
		attribute.String("command", string(inv.Kind)),
		attribute.String("repository", inv.Repository),
		attribute.String("user", inv.User.Login),
	))
}

// finish is the workflow boundary: infrastructure faults are logged with
// full context and answered with the generic retry message.
func (u *Usecase) finish(ctx context.Context, span trace.Span, inv entities.CommandInvocation, subject string, res entities.Result) entities.Result {
	defer span.End()

	if res.Kind == entities.ResultInfraFault {
		u.log.Errorw("command failed",
			"command", inv.Kind,
			"repository", inv.Repository,
			"subject", subject,
			"user", inv.User.Login,
			"reason", res.Reason,
			"error", res.Err,
		)
		if res.Reply == "" {
			noun := "backport"
			if inv.Kind == entities.CommandIntegrate {
				noun = "integration"
			}
			res.Reply = mention(inv.User, "%s", genericFaultReply(noun))
		}
		if res.Err != nil {
			span.RecordError(res.Err)
		}
		span.SetStatus(codes.Error, string(res.Reason))
	} else {
		u.log.Infow("command handled",
			"command", inv.Kind,
			"repository", inv.Repository,
			"subject", subject,
			"outcome", res.Kind,
			"reason", res.Reason,
		)
	}

	attrs := metric.WithAttributes(
		attribute.String("command", string(inv.Kind)),
		attribute.String("outcome", string(res.Kind)),
		attribute.String("reason", string(res.Reason)),
	)
	u.commands.Add(ctx, 1, attrs)
	span.SetAttributes(attribute.String("outcome", string(res.Kind)))
	return res
}
