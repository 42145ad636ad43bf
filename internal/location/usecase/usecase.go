package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/fekuna/ronary-inventory-service/internal/apperror"
	"github.com/fekuna/ronary-inventory-service/internal/location"
	"github.com/fekuna/ronary-inventory-service/internal/location/dto"
	"github.com/fekuna/ronary-inventory-service/internal/model"
	"github.com/fekuna/ronary-inventory-service/pkg/logger"
)

type locationUseCase struct {
	repo            location.Repository
	defaultLocation string
	logger          logger.ZapLogger
}

// NewLocationUseCase returns the location use case. defaultLocation can never
// be deleted.
func NewLocationUseCase(repo location.Repository, defaultLocation string, log logger.ZapLogger) location.UseCase {
	return &locationUseCase{
		repo:            repo,
		defaultLocation: model.NormalizeLocation(defaultLocation),
		logger:          log,
	}
}

func (uc *locationUseCase) AddLocation(ctx context.Context, name string) (*model.Location, bool, error) {
	loc := model.NormalizeLocation(name)
	if loc == "" {
		return nil, false, apperror.InvalidArgument("location", "cannot be empty")
	}

	created, err := uc.repo.Create(ctx, loc)
	if err != nil {
		return nil, false, err
	}
	if created {
		uc.logger.Info("location added", zap.String("location", loc))
	}
	return &model.Location{Location: loc}, created, nil
}

func (uc *locationUseCase) ListLocations(ctx context.Context) ([]dto.LocationSummary, error) {
	return uc.repo.FindAll(ctx)
}

func (uc *locationUseCase) DeleteLocation(ctx context.Context, name string) error {
	loc := model.NormalizeLocation(name)
	if loc == uc.defaultLocation {
		return apperror.InvalidArgument("location", "the default location cannot be deleted")
	}

	deleted, err := uc.repo.Delete(ctx, loc)
	if err != nil {
		return err
	}
	if !deleted {
		return apperror.NotFound("Location", loc)
	}
	uc.logger.Info("location deleted", zap.String("location", loc))
	return nil
}

// EnsureLocations creates every missing location, including the default one.
func (uc *locationUseCase) EnsureLocations(ctx context.Context, names ...string) error {
	for _, name := range append([]string{uc.defaultLocation}, names...) {
		if model.NormalizeLocation(name) == "" {
			continue
		}
		if _, _, err := uc.AddLocation(ctx, name); err != nil {
			return err
		}
	}
	return nil
}
