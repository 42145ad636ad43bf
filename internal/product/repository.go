package product

import (
	"context"

	"github.com/fekuna/ronary-inventory-service/internal/model"
	"github.com/fekuna/ronary-inventory-service/internal/product/dto"
)

type Repository interface {
	// Create inserts the product together with a zero stock row at every
	// location.
	Create(ctx context.Context, product *model.Product) error
	FindBySKU(ctx context.Context, sku string) (*model.Product, error)
	FindAll(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, int, error)
	// Update replaces the mutable attributes. created_at is never written.
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, sku string) (bool, error)
}
