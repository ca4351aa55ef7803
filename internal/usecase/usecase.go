package usecase

import (
	"time"

	"github.com/Tubbz-alt/skara/internal/usecase/domain"

	"go.uber.org/zap"
)

// InterfaceUsecase aggregates all usecase interfaces.
type InterfaceUsecase interface {
	IntegrateUsecaseInterface
	BackportUsecaseInterface
	DispatchUsecaseInterface
}

// New constructs a new usecase layer with its dependencies.
func New(log *zap.SugaredLogger, deps domain.Dependencies, settings domain.Settings, timeout time.Duration) (InterfaceUsecase, error) {
	uc, err := domain.New(log, deps, settings, timeout)
	if err != nil {
		return nil, err
	}
	return uc, nil
}
