package location

import (
	"context"

	"github.com/fekuna/ronary-inventory-service/internal/location/dto"
)

type Repository interface {
	// Create inserts the location if absent and backfills zero stock rows for
	// every product. It reports whether the location is new.
	Create(ctx context.Context, location string) (bool, error)
	Exists(ctx context.Context, location string) (bool, error)
	FindAll(ctx context.Context) ([]dto.LocationSummary, error)
	Delete(ctx context.Context, location string) (bool, error)
}
