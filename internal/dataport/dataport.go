// Package dataport moves products, stock and the movement log in and out of
// the store as CSV.
package dataport

import (
	"context"
	"io"
	"strings"

	"github.com/fekuna/ronary-inventory-service/internal/apperror"
)

type Kind string

const (
	KindProducts  Kind = "products"
	KindStock     Kind = "stock"
	KindMovements Kind = "movements"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindProducts, KindStock, KindMovements:
		return k, nil
	default:
		return "", apperror.InvalidArgument("kind", "must be products, stock or movements")
	}
}

// ImportResult summarizes a batch import. Errors holds one entry per
// rejected row; the rest of the batch is still applied.
type ImportResult struct {
	Inserted int
	Updated  int
	Applied  int
	Errors   []string
}

type UseCase interface {
	ExportCSV(ctx context.Context, kind Kind, w io.Writer) error
	ImportProducts(ctx context.Context, r io.Reader) (*ImportResult, error)
	ImportStock(ctx context.Context, r io.Reader) (*ImportResult, error)
}
