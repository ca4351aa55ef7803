// Package handlers_fiber wires HTTP delivery components.
package handlers_fiber

import (
	"github.com/Tubbz-alt/skara/internal/transport/http/api"
	"github.com/Tubbz-alt/skara/internal/usecase"
	"go.uber.org/zap"
)

// Handler implements api.ServerInterface using service layer interfaces.
type Handler struct {
	log *zap.SugaredLogger
	uc  usecase.DispatchUsecaseInterface
}

var _ api.ServerInterface = (*Handler)(nil)

// NewHandler constructs an HTTP server with service dependencies.
func NewHandler(log *zap.SugaredLogger, usecase usecase.DispatchUsecaseInterface) *Handler {
	return &Handler{
		log: log,
		uc:  usecase,
	}
}
