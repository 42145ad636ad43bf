package dto

type ProductFilters struct {
	ActiveOnly bool
	Category   string
	Search     string // matched against sku, name and category
	Page       int
	PageSize   int
}
