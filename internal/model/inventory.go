package model

import "time"

type MovementType string

const (
	MovementIn       MovementType = "IN"
	MovementOut      MovementType = "OUT"
	MovementAdjust   MovementType = "ADJUST"
	MovementTransfer MovementType = "TRANSFER"
)

func (t MovementType) Valid() bool {
	switch t {
	case MovementIn, MovementOut, MovementAdjust, MovementTransfer:
		return true
	}
	return false
}

type Location struct {
	Location string `db:"location" json:"location"`
}

// Stock is the current quantity of one SKU at one location.
type Stock struct {
	SKU               string    `db:"sku"`
	Location          string    `db:"location"`
	Qty               int64     `db:"qty"`
	LowStockThreshold int64     `db:"low_stock_threshold"`
	UpdatedAt         time.Time `db:"updated_at"`
}

// IsLow reports whether an enabled threshold has been reached.
func (s *Stock) IsLow() bool {
	return s.LowStockThreshold > 0 && s.Qty <= s.LowStockThreshold
}

// StockView is a stock row joined with its product's descriptive columns.
type StockView struct {
	Stock
	ProductName string `db:"product_name"`
	Category    string `db:"category"`
	Color       string `db:"color"`
	Size        string `db:"size"`
}

// Movement is an append-only ledger entry. Qty is always the magnitude.
type Movement struct {
	ID           int64        `db:"id"`
	Ts           time.Time    `db:"ts"`
	SKU          string       `db:"sku"`
	MovementType MovementType `db:"movement_type"`
	LocationFrom *string      `db:"location_from"`
	LocationTo   *string      `db:"location_to"`
	Qty          int64        `db:"qty"`
	Reason       string       `db:"reason"`
	Notes        string       `db:"notes"`
}
