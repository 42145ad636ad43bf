package dto

// MovementInput describes a relative IN or OUT change. An empty Location
// means the default location.
type MovementInput struct {
	SKU      string
	Location string
	Qty      int64
	Reason   string
	Notes    string
}

type AdjustInput struct {
	SKU      string
	Location string
	NewQty   int64
	Reason   string
	Notes    string
}

type TransferInput struct {
	SKU    string
	From   string
	To     string
	Qty    int64
	Reason string
	Notes  string
}
