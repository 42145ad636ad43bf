package dto

// LocationSummary is a location with the stock it currently holds.
type LocationSummary struct {
	Location string `db:"location"`
	SKUs     int    `db:"skus"`
	TotalQty int64  `db:"total_qty"`
}
