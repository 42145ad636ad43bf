package product

import (
	"context"

	"github.com/fekuna/ronary-inventory-service/internal/model"
	"github.com/fekuna/ronary-inventory-service/internal/product/dto"
)

type UseCase interface {
	AddProduct(ctx context.Context, input *dto.ProductInput) (*model.Product, error)
	UpdateProduct(ctx context.Context, input *dto.ProductInput) (*model.Product, error)
	// UpsertProduct adds or replaces by sku and reports whether it inserted.
	UpsertProduct(ctx context.Context, input *dto.ProductInput) (*model.Product, bool, error)
	GetProduct(ctx context.Context, sku string) (*model.Product, error)
	ListProducts(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, int, error)
	DeleteProduct(ctx context.Context, sku string) error

	// InvalidateCache drops cached listings after out-of-band writes.
	InvalidateCache(ctx context.Context)
}
