package dto

import "github.com/shopspring/decimal"

// ProductInput carries the full attribute set of a product. Upserts replace
// every attribute; IsActive nil means active.
type ProductInput struct {
	SKU         string
	BaseSKU     string
	ProductName string
	ItemName    string
	Category    string
	Color       string
	Size        string
	Vendor      string
	Cost        decimal.Decimal
	Price       decimal.Decimal
	IsActive    *bool
}
