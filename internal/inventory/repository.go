package inventory

import (
	"context"
	"time"

	"github.com/fekuna/ronary-inventory-service/internal/inventory/dto"
	"github.com/fekuna/ronary-inventory-service/internal/model"
)

type Repository interface {
	// RunInTx runs fn in one transaction. Every write fn makes through tx
	// commits together or not at all.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error

	GetStock(ctx context.Context, sku, location string) (*model.Stock, error)
	ListStock(ctx context.Context, filters *dto.StockFilters) ([]model.StockView, error)
	ListLowStock(ctx context.Context, location string) ([]model.StockView, error)
	ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.Movement, error)
}

// TxRepository is the write side of the ledger, bound to one transaction.
type TxRepository interface {
	ProductExists(ctx context.Context, sku string) (bool, error)
	LocationExists(ctx context.Context, location string) (bool, error)
	EnsureStock(ctx context.Context, sku, location string, now time.Time) error
	// GetStockForUpdate reads the row and, where the store supports it,
	// locks it until the transaction ends.
	GetStockForUpdate(ctx context.Context, sku, location string) (*model.Stock, error)
	UpdateQuantity(ctx context.Context, sku, location string, qty int64, now time.Time) error
	SetThreshold(ctx context.Context, sku, location string, threshold int64, now time.Time) error
	InsertMovement(ctx context.Context, m *model.Movement) (int64, error)
}
