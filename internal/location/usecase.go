package location

import (
	"context"

	"github.com/fekuna/ronary-inventory-service/internal/location/dto"
	"github.com/fekuna/ronary-inventory-service/internal/model"
)

type UseCase interface {
	AddLocation(ctx context.Context, name string) (*model.Location, bool, error)
	ListLocations(ctx context.Context) ([]dto.LocationSummary, error)
	DeleteLocation(ctx context.Context, name string) error
	EnsureLocations(ctx context.Context, names ...string) error
}
