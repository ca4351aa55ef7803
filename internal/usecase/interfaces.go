package usecase

import (
	"context"

	"github.com/Tubbz-alt/skara/internal/entities"
)

// IntegrateUsecaseInterface runs the integration workflow.
type IntegrateUsecaseInterface interface {
	Integrate(ctx context.Context, inv entities.CommandInvocation) entities.Result
}

// BackportUsecaseInterface runs the backport workflow.
type BackportUsecaseInterface interface {
	Backport(ctx context.Context, inv entities.CommandInvocation) entities.Result
}

// DispatchUsecaseInterface validates and routes incoming commands and posts
// their replies.
type DispatchUsecaseInterface interface {
	Dispatch(ctx context.Context, inv entities.CommandInvocation) (entities.Result, error)
}
