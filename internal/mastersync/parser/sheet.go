package parser

import (
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fekuna/ronary-inventory-service/internal/apperror"
	"github.com/fekuna/ronary-inventory-service/internal/model"
)

const (
	SheetMaster = "master"
	SheetCost   = "cost"
)

// SheetRow is one product line from the master sheet. Optional text columns
// default to "", numeric ones to zero.
type SheetRow struct {
	ItemSKU     string
	BaseSKU     string
	ProductName string
	ItemName    string
	Size        string
	Color       string
	Vendor      string
	Stock       int64
	Cost        decimal.Decimal
	Price       decimal.Decimal
	HasCost     bool // cost came from a sheet column rather than a default
	HasPrice    bool
	Line        int  // 1-based line in the CSV export
}

type Sheet struct {
	Rows      []SheetRow
	Columns   []string // normalized header cells, diagnostics only
	HeaderRow int
	Skipped   int
	Errors    []string
}

// SchemaError reports required columns missing from a sheet. It unwraps to
// an apperror carrying apperror.ErrSchemaMismatch.
type SchemaError struct {
	Sheet    string
	Missing  []string
	Detected []string
}

func (e *SchemaError) Error() string {
	return e.Unwrap().Error()
}

func (e *SchemaError) Unwrap() error {
	return apperror.SchemaMismatch(e.Sheet, e.Missing, e.Detected)
}

// CostEntry is one base_sku line of the cost sheet.
type CostEntry struct {
	Cost  decimal.Decimal
	Price decimal.Decimal
}

// ReadCSV splits an export into records. Ragged rows are allowed.
func ReadCSV(text string) ([][]string, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return records, nil
}

func locateHeader(sheet, text string, required []Field) ([][]string, int, Columns, []string, error) {
	records, err := ReadCSV(text)
	if err != nil {
		return nil, 0, nil, nil, err
	}
	if len(records) == 0 {
		return nil, 0, nil, nil, &SchemaError{Sheet: sheet, Missing: fieldNames(required)}
	}

	hdr := DetectHeaderRow(records)
	cols := ResolveColumns(records[hdr])

	var detected []string
	for _, h := range records[hdr] {
		if n := NormalizeHeader(h); n != "" {
			detected = append(detected, n)
		}
	}

	if missing := cols.missing(required); len(missing) > 0 {
		return nil, 0, nil, detected, &SchemaError{Sheet: sheet, Missing: fieldNames(missing), Detected: detected}
	}
	return records, hdr, cols, detected, nil
}

// ParseMaster parses the master sheet. item_sku and stock are always
// required; base_sku only when a cost sheet will be joined.
func ParseMaster(text string, requireBaseSKU bool) (*Sheet, error) {
	required := []Field{FieldItemSKU, FieldStock}
	if requireBaseSKU {
		required = append(required, FieldBaseSKU)
	}

	records, hdr, cols, detected, err := locateHeader(SheetMaster, text, required)
	if err != nil {
		return nil, err
	}

	sheet := &Sheet{Columns: detected, HeaderRow: hdr}
	hasCost, hasPrice := cols.Has(FieldCost), cols.Has(FieldPrice)
	seen := make(map[string]bool)

	for i := hdr + 1; i < len(records); i++ {
		rec := records[i]
		line := i + 1

		sku := model.NormalizeSKU(cols.Value(rec, FieldItemSKU))
		if sku == "" || seen[sku] {
			sheet.Skipped++
			continue
		}
		seen[sku] = true

		stock, ok := ParseQuantity(cols.Value(rec, FieldStock))
		if !ok {
			sheet.Errors = append(sheet.Errors, fmt.Sprintf("line %d (%s): invalid stock %q", line, sku, cols.Value(rec, FieldStock)))
			continue
		}

		row := SheetRow{
			ItemSKU:  sku,
			BaseSKU:  model.NormalizeSKU(cols.Value(rec, FieldBaseSKU)),
			ItemName: cols.Value(rec, FieldItemName),
			Size:     cols.Value(rec, FieldSize),
			Color:    cols.Value(rec, FieldColor),
			Vendor:   cols.Value(rec, FieldVendor),
			Stock:    stock,
			Cost:     ParseAmount(cols.Value(rec, FieldCost)),
			Price:    ParseAmount(cols.Value(rec, FieldPrice)),
			HasCost:  hasCost,
			HasPrice: hasPrice,
			Line:     line,
		}
		row.ProductName = firstNonEmpty(cols.Value(rec, FieldProductName), row.ItemName, sku)
		sheet.Rows = append(sheet.Rows, row)
	}
	return sheet, nil
}

// ParseCost parses the cost sheet into entries keyed by normalized base_sku.
// Repeated base SKUs keep their first line.
func ParseCost(text string) (map[string]CostEntry, error) {
	records, hdr, cols, _, err := locateHeader(SheetCost, text, []Field{FieldBaseSKU, FieldCost, FieldPrice})
	if err != nil {
		return nil, err
	}

	out := make(map[string]CostEntry)
	for _, rec := range records[hdr+1:] {
		base := model.NormalizeSKU(cols.Value(rec, FieldBaseSKU))
		if base == "" {
			continue
		}
		if _, ok := out[base]; ok {
			continue
		}
		out[base] = CostEntry{
			Cost:  ParseAmount(cols.Value(rec, FieldCost)),
			Price: ParseAmount(cols.Value(rec, FieldPrice)),
		}
	}
	return out, nil
}

// JoinCost left joins costs onto the master rows by base_sku. Unmatched rows
// carry zero cost and price with HasCost and HasPrice false so existing
// prices are not wiped.
func JoinCost(sheet *Sheet, costs map[string]CostEntry) {
	for i := range sheet.Rows {
		row := &sheet.Rows[i]
		if c, ok := costs[row.BaseSKU]; ok && row.BaseSKU != "" {
			row.Cost, row.Price, row.HasCost, row.HasPrice = c.Cost, c.Price, true, true
			continue
		}
		row.Cost, row.Price, row.HasCost, row.HasPrice = decimal.Zero, decimal.Zero, false, false
	}
}

func fieldNames(fields []Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = string(f)
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
