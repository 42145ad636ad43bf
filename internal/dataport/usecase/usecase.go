package usecase

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/fekuna/ronary-inventory-service/internal/apperror"
	"github.com/fekuna/ronary-inventory-service/internal/dataport"
	"github.com/fekuna/ronary-inventory-service/internal/inventory"
	invdto "github.com/fekuna/ronary-inventory-service/internal/inventory/dto"
	"github.com/fekuna/ronary-inventory-service/internal/location"
	"github.com/fekuna/ronary-inventory-service/internal/model"
	"github.com/fekuna/ronary-inventory-service/internal/product"
	proddto "github.com/fekuna/ronary-inventory-service/internal/product/dto"
	"github.com/fekuna/ronary-inventory-service/pkg/logger"
)

const (
	ReasonImport = "IMPORT"

	exportMovementLimit = 1000000
)

var (
	productHeader  = []string{"sku", "base_sku", "product_name", "item_name", "category", "color", "size", "vendor", "cost", "price", "is_active", "created_at", "updated_at"}
	stockHeader    = []string{"sku", "location", "product_name", "qty", "low_stock_threshold", "updated_at"}
	movementHeader = []string{"id", "ts", "sku", "movement_type", "location_from", "location_to", "qty", "reason", "notes"}
)

type dataPortUseCase struct {
	products  product.UseCase
	inventory inventory.UseCase
	locations location.UseCase
	logger    logger.ZapLogger
}

func NewDataPortUseCase(products product.UseCase, inv inventory.UseCase, locations location.UseCase, log logger.ZapLogger) dataport.UseCase {
	return &dataPortUseCase{
		products:  products,
		inventory: inv,
		locations: locations,
		logger:    log,
	}
}

func (uc *dataPortUseCase) ExportCSV(ctx context.Context, kind dataport.Kind, w io.Writer) error {
	cw := csv.NewWriter(w)

	var err error
	switch kind {
	case dataport.KindProducts:
		err = uc.exportProducts(ctx, cw)
	case dataport.KindStock:
		err = uc.exportStock(ctx, cw)
	case dataport.KindMovements:
		err = uc.exportMovements(ctx, cw)
	default:
		_, err = dataport.ParseKind(string(kind))
	}
	if err != nil {
		return err
	}

	cw.Flush()
	return cw.Error()
}

func (uc *dataPortUseCase) exportProducts(ctx context.Context, cw *csv.Writer) error {
	items, _, err := uc.products.ListProducts(ctx, &proddto.ProductFilters{})
	if err != nil {
		return err
	}
	if err := cw.Write(productHeader); err != nil {
		return err
	}
	for _, p := range items {
		err := cw.Write([]string{
			p.SKU, p.BaseSKU, p.ProductName, p.ItemName, p.Category, p.Color, p.Size, p.Vendor,
			p.Cost.String(), p.Price.String(), strconv.FormatBool(p.IsActive),
			p.CreatedAt.UTC().Format(time.RFC3339), p.UpdatedAt.UTC().Format(time.RFC3339),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (uc *dataPortUseCase) exportStock(ctx context.Context, cw *csv.Writer) error {
	items, err := uc.inventory.ListStock(ctx, &invdto.StockFilters{})
	if err != nil {
		return err
	}
	if err := cw.Write(stockHeader); err != nil {
		return err
	}
	for _, s := range items {
		err := cw.Write([]string{
			s.SKU, s.Location, s.ProductName,
			strconv.FormatInt(s.Qty, 10), strconv.FormatInt(s.LowStockThreshold, 10),
			s.UpdatedAt.UTC().Format(time.RFC3339),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// exportMovements writes the log oldest first.
func (uc *dataPortUseCase) exportMovements(ctx context.Context, cw *csv.Writer) error {
	items, err := uc.inventory.ListMovements(ctx, &invdto.MovementFilters{Limit: exportMovementLimit})
	if err != nil {
		return err
	}
	if err := cw.Write(movementHeader); err != nil {
		return err
	}
	for i := len(items) - 1; i >= 0; i-- {
		m := items[i]
		err := cw.Write([]string{
			strconv.FormatInt(m.ID, 10), m.Ts.UTC().Format(time.RFC3339), m.SKU, string(m.MovementType),
			deref(m.LocationFrom), deref(m.LocationTo), strconv.FormatInt(m.Qty, 10), m.Reason, m.Notes,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (uc *dataPortUseCase) ImportProducts(ctx context.Context, r io.Reader) (*dataport.ImportResult, error) {
	t, err := readTable(r, "sku", "product_name")
	if err != nil {
		return nil, err
	}

	res := &dataport.ImportResult{}
	var errs error
	for i, row := range t.rows {
		line := i + 2
		if blank(row) {
			continue
		}

		input, err := productInput(t, row)
		if err == nil {
			var inserted bool
			_, inserted, err = uc.products.UpsertProduct(ctx, input)
			if err == nil && inserted {
				res.Inserted++
			} else if err == nil {
				res.Updated++
			}
		}
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("line %d: %w", line, err))
		}
	}

	res.Errors = messages(errs)
	uc.logger.Info("products imported",
		zap.Int("inserted", res.Inserted),
		zap.Int("updated", res.Updated),
		zap.Int("errors", len(res.Errors)))
	return res, nil
}

func productInput(t *table, row []string) (*proddto.ProductInput, error) {
	cost, err := amount(t.get(row, "cost"), "cost")
	if err != nil {
		return nil, err
	}
	price, err := amount(t.get(row, "price"), "price")
	if err != nil {
		return nil, err
	}

	input := &proddto.ProductInput{
		SKU:         t.get(row, "sku"),
		BaseSKU:     t.get(row, "base_sku"),
		ProductName: t.get(row, "product_name"),
		ItemName:    t.get(row, "item_name"),
		Category:    t.get(row, "category"),
		Color:       t.get(row, "color"),
		Size:        t.get(row, "size"),
		Vendor:      t.get(row, "vendor"),
		Cost:        cost,
		Price:       price,
	}
	if v := t.get(row, "is_active"); v != "" {
		active := parseBool(v)
		input.IsActive = &active
	}
	return input, nil
}

func (uc *dataPortUseCase) ImportStock(ctx context.Context, r io.Reader) (*dataport.ImportResult, error) {
	t, err := readTable(r, "sku", "location", "qty")
	if err != nil {
		return nil, err
	}

	res := &dataport.ImportResult{}
	var errs error
	for i, row := range t.rows {
		line := i + 2
		if blank(row) {
			continue
		}
		if err := uc.importStockRow(ctx, t, row); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("line %d: %w", line, err))
			continue
		}
		res.Applied++
	}

	res.Errors = messages(errs)
	uc.logger.Info("stock imported",
		zap.Int("applied", res.Applied),
		zap.Int("errors", len(res.Errors)))
	return res, nil
}

func (uc *dataPortUseCase) importStockRow(ctx context.Context, t *table, row []string) error {
	sku := model.NormalizeSKU(t.get(row, "sku"))
	loc := model.NormalizeLocation(t.get(row, "location"))
	if loc == "" {
		return apperror.InvalidArgument("location", "is required")
	}

	qty, err := whole(t.get(row, "qty"), "qty")
	if err != nil {
		return err
	}
	if qty < 0 {
		return apperror.NegativeQuantity(qty)
	}

	var threshold int64 = -1
	if v := t.get(row, "low_stock_threshold"); v != "" {
		if threshold, err = whole(v, "low_stock_threshold"); err != nil {
			return err
		}
		if threshold < 0 {
			return apperror.NegativeThreshold(threshold)
		}
	}

	if _, err := uc.products.GetProduct(ctx, sku); err != nil {
		return err
	}
	if _, _, err := uc.locations.AddLocation(ctx, loc); err != nil {
		return err
	}

	if _, err := uc.inventory.ApplyAdjust(ctx, &invdto.AdjustInput{
		SKU:      sku,
		Location: loc,
		NewQty:   qty,
		Reason:   ReasonImport,
		Notes:    "csv import",
	}); err != nil {
		return err
	}
	if threshold >= 0 {
		if _, err := uc.inventory.SetLowStockThreshold(ctx, sku, loc, threshold); err != nil {
			return err
		}
	}
	return nil
}

func amount(s, field string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, apperror.InvalidArgument(field, "must be a decimal")
	}
	return d, nil
}

func whole(s, field string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, apperror.InvalidArgument(field, "must be a whole number")
	}
	return n, nil
}

func messages(err error) []string {
	errs := multierr.Errors(err)
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Error()
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
