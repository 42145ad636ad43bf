package inventory

import (
	"context"

	"github.com/fekuna/ronary-inventory-service/internal/inventory/dto"
	"github.com/fekuna/ronary-inventory-service/internal/model"
)

type UseCase interface {
	EnsureStockRow(ctx context.Context, sku, location string) error
	ApplyIn(ctx context.Context, input *dto.MovementInput) (*model.Stock, error)
	ApplyOut(ctx context.Context, input *dto.MovementInput) (*model.Stock, error)
	ApplyAdjust(ctx context.Context, input *dto.AdjustInput) (*model.Stock, error)
	ApplyTransfer(ctx context.Context, input *dto.TransferInput) (*dto.TransferResult, error)
	SetLowStockThreshold(ctx context.Context, sku, location string, threshold int64) (*model.Stock, error)

	GetStock(ctx context.Context, sku, location string) (*model.Stock, error)
	ListStock(ctx context.Context, filters *dto.StockFilters) ([]model.StockView, error)
	ListLowStock(ctx context.Context, location string) ([]model.StockView, error)
	ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.Movement, error)
}
