// Package parser turns the CSV export of the master spreadsheet into typed
// rows. Header matching tolerates case, spacing, punctuation and invisible
// character drift in the upstream sheet.
package parser

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

type Field string

const (
	FieldProductName Field = "product_name"
	FieldItemName    Field = "item_name"
	FieldSize        Field = "size"
	FieldColor       Field = "color"
	FieldVendor      Field = "vendor"
	FieldBaseSKU     Field = "base_sku"
	FieldItemSKU     Field = "item_sku"
	FieldStock       Field = "stock"
	FieldCost        Field = "cost"
	FieldPrice       Field = "price"
)

// Fields lists every logical column in sheet order.
var Fields = []Field{
	FieldProductName, FieldItemName, FieldSize, FieldColor, FieldVendor,
	FieldBaseSKU, FieldItemSKU, FieldStock, FieldCost, FieldPrice,
}

// synonyms are header spellings seen in the English and Indonesian sheets.
var synonyms = map[Field][]string{
	FieldProductName: {"product_name", "Product Name", "Product", "Nama Produk", "Produk", "Name", "Nama"},
	FieldItemName:    {"item_name", "Item Name", "Item", "Nama Item", "Nama Barang", "Category", "Kategori"},
	FieldSize:        {"size", "Ukuran"},
	FieldColor:       {"color", "Colour", "Warna"},
	FieldVendor:      {"vendor", "Supplier", "Pemasok"},
	FieldBaseSKU:     {"base_sku", "Base SKU", "SKU Induk", "Parent SKU", "Style"},
	FieldItemSKU:     {"item_sku", "Item SKU", "SKU", "SKU Item", "Variant SKU", "Kode Barang"},
	FieldStock:       {"stock", "Stok", "Qty", "Quantity", "Jumlah"},
	FieldCost:        {"cost", "Cost Price", "HPP", "Modal", "Harga Modal"},
	FieldPrice:       {"price", "Selling Price", "Harga", "Harga Jual"},
}

var byKey = func() map[string]Field {
	m := make(map[string]Field)
	for f, names := range synonyms {
		for _, n := range names {
			m[CanonicalKey(n)] = f
		}
	}
	return m
}()

// NormalizeHeader applies NFKC, drops byte-order marks and zero-width
// spaces, lower-cases and collapses whitespace.
func NormalizeHeader(s string) string {
	s = norm.NFKC.String(s)
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\uFEFF', '\u200B', '\u200C', '\u200D', '\u2060':
			return -1
		case '\u00A0':
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// CanonicalKey is NormalizeHeader with every non alphanumeric rune removed.
// "Item SKU", "item_sku" and " ITEM  SKU " share the key "itemsku".
func CanonicalKey(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, NormalizeHeader(s))
}

// Resolve maps one header cell to its logical field.
func Resolve(header string) (Field, bool) {
	f, ok := byKey[CanonicalKey(header)]
	return f, ok
}

// Columns maps each resolved field to its index in a record.
type Columns map[Field]int

// ResolveColumns resolves a header row. When two cells resolve to the same
// field the first one wins.
func ResolveColumns(header []string) Columns {
	cols := make(Columns)
	for i, h := range header {
		f, ok := Resolve(h)
		if !ok {
			continue
		}
		if _, dup := cols[f]; !dup {
			cols[f] = i
		}
	}
	return cols
}

func (c Columns) Has(f Field) bool {
	_, ok := c[f]
	return ok
}

// Value returns the trimmed cell for f, or "" when the column is absent or
// the record is short.
func (c Columns) Value(record []string, f Field) string {
	i, ok := c[f]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func (c Columns) missing(required []Field) []Field {
	var out []Field
	for _, f := range required {
		if !c.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

const maxHeaderScan = 30

// DetectHeaderRow picks the row among the first 30 with the most cells that
// name a known column. Ties go to the earliest row; when no row has at least
// two matches row 0 is assumed.
func DetectHeaderRow(rows [][]string) int {
	best, bestScore := 0, -1
	for i := 0; i < len(rows) && i < maxHeaderScan; i++ {
		score := 0
		for _, cell := range rows[i] {
			if _, ok := Resolve(cell); ok {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	if bestScore < 2 {
		return 0
	}
	return best
}
