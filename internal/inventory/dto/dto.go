package dto

import (
	"time"

	"github.com/fekuna/ronary-inventory-service/internal/model"
)

type StockFilters struct {
	SKU      string
	Location string
	Search   string // sku or product name
}

type MovementFilters struct {
	SKU          string
	Location     string // matches either side of the movement
	MovementType model.MovementType
	StartDate    *time.Time
	EndDate      *time.Time
	Limit        int // 0 means DefaultMovementLimit
}

const DefaultMovementLimit = 500

// TransferResult holds both sides of a committed transfer.
type TransferResult struct {
	From       *model.Stock
	To         *model.Stock
	MovementID int64
}
