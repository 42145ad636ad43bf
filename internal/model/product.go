package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	SKU         string          `db:"sku" json:"sku"`
	BaseSKU     string          `db:"base_sku" json:"base_sku"` // style without size/color
	ProductName string          `db:"product_name" json:"product_name"`
	ItemName    string          `db:"item_name" json:"item_name"`
	Category    string          `db:"category" json:"category"`
	Color       string          `db:"color" json:"color"`
	Size        string          `db:"size" json:"size"`
	Vendor      string          `db:"vendor" json:"vendor"`
	Cost        decimal.Decimal `db:"cost" json:"cost"`
	Price       decimal.Decimal `db:"price" json:"price"`
	IsActive    bool            `db:"is_active" json:"is_active"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

func (p *Product) Profit() decimal.Decimal {
	return p.Price.Sub(p.Cost)
}

// SameAttributes reports whether o carries the same mutable attributes as p.
// Timestamps are ignored.
func (p *Product) SameAttributes(o *Product) bool {
	return p.BaseSKU == o.BaseSKU &&
		p.ProductName == o.ProductName &&
		p.ItemName == o.ItemName &&
		p.Category == o.Category &&
		p.Color == o.Color &&
		p.Size == o.Size &&
		p.Vendor == o.Vendor &&
		p.Cost.Equal(o.Cost) &&
		p.Price.Equal(o.Price) &&
		p.IsActive == o.IsActive
}
