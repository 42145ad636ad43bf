package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/fekuna/ronary-inventory-service/internal/mastersync"
	"github.com/fekuna/ronary-inventory-service/internal/mastersync/parser"
	"github.com/fekuna/ronary-inventory-service/internal/model"
	"github.com/fekuna/ronary-inventory-service/pkg/database"
)

const productColumns = `sku, base_sku, product_name, item_name, category, color, size, vendor,
	cost, price, is_active, created_at, updated_at`

const runColumns = `id, started_at, finished_at, ok, phase, message,
	inserted, updated, unchanged, skipped, detected_columns`

type SQLRepository struct {
	DB *sqlx.DB
}

func NewSQLRepository(db *sqlx.DB) *SQLRepository {
	return &SQLRepository{DB: db}
}

var _ mastersync.Repository = (*SQLRepository)(nil)

func (r *SQLRepository) ReconcileRow(ctx context.Context, row *parser.SheetRow, policy mastersync.QuantityPolicy, location string, now time.Time) (mastersync.Outcome, error) {
	outcome := mastersync.Unchanged
	err := database.WithTx(ctx, r.DB, func(tx *sqlx.Tx) error {
		suffix := ""
		if database.IsPostgres(tx.DriverName()) {
			suffix = " FOR UPDATE"
		}

		var existing model.Product
		err := tx.GetContext(ctx, &existing, tx.Rebind(`SELECT `+productColumns+` FROM products WHERE sku = ?`+suffix), row.ItemSKU)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			outcome = mastersync.Inserted
			return insertProduct(ctx, tx, row, location, now)
		case err != nil:
			return fmt.Errorf("find product %s: %w", row.ItemSKU, err)
		}

		next := apply(&existing, row)
		if !existing.SameAttributes(next) {
			next.UpdatedAt = now
			_, err := tx.NamedExecContext(ctx, `
				UPDATE products SET
					base_sku = :base_sku, product_name = :product_name, item_name = :item_name,
					color = :color, size = :size, vendor = :vendor,
					cost = :cost, price = :price, updated_at = :updated_at
				WHERE sku = :sku
			`, next)
			if err != nil {
				return fmt.Errorf("update product %s: %w", row.ItemSKU, err)
			}
			outcome = mastersync.Updated
		}

		if policy != mastersync.PolicySheet {
			return nil
		}
		changed, err := overwriteQty(ctx, tx, row.ItemSKU, location, row.Stock, now, suffix)
		if err != nil {
			return err
		}
		if changed {
			outcome = mastersync.Updated
		}
		return nil
	})
	if err != nil {
		return mastersync.Unchanged, err
	}
	return outcome, nil
}

// apply returns existing with the sheet's attributes laid over it. Category
// and activity stay local; cost and price only move when the sheet has them.
func apply(existing *model.Product, row *parser.SheetRow) *model.Product {
	next := *existing
	next.BaseSKU = row.BaseSKU
	next.ProductName = row.ProductName
	next.ItemName = row.ItemName
	next.Color = row.Color
	next.Size = row.Size
	next.Vendor = row.Vendor
	if row.HasCost {
		next.Cost = row.Cost
	}
	if row.HasPrice {
		next.Price = row.Price
	}
	return &next
}

func insertProduct(ctx context.Context, tx *sqlx.Tx, row *parser.SheetRow, location string, now time.Time) error {
	p := &model.Product{
		SKU:         row.ItemSKU,
		BaseSKU:     row.BaseSKU,
		ProductName: row.ProductName,
		ItemName:    row.ItemName,
		Category:    row.ItemName,
		Color:       row.Color,
		Size:        row.Size,
		Vendor:      row.Vendor,
		Cost:        row.Cost,
		Price:       row.Price,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err := tx.NamedExecContext(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES (:sku, :base_sku, :product_name, :item_name, :category, :color, :size, :vendor,
			:cost, :price, :is_active, :created_at, :updated_at)
	`, p)
	if err != nil {
		return fmt.Errorf("insert product %s: %w", row.ItemSKU, err)
	}

	_, err = tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO stock (sku, location, qty, low_stock_threshold, updated_at)
		SELECT ?, location, CASE WHEN location = ? THEN ? ELSE 0 END, 0, ? FROM locations WHERE true
		ON CONFLICT (sku, location) DO NOTHING
	`), row.ItemSKU, location, row.Stock, now)
	if err != nil {
		return fmt.Errorf("create stock rows %s: %w", row.ItemSKU, err)
	}
	return nil
}

func overwriteQty(ctx context.Context, tx *sqlx.Tx, sku, location string, qty int64, now time.Time, suffix string) (bool, error) {
	var current int64
	err := tx.GetContext(ctx, &current, tx.Rebind(`SELECT qty FROM stock WHERE sku = ? AND location = ?`+suffix), sku, location)
	if errors.Is(err, sql.ErrNoRows) {
		_, err = tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO stock (sku, location, qty, low_stock_threshold, updated_at)
			VALUES (?, ?, ?, 0, ?)
		`), sku, location, qty, now)
		if err != nil {
			return false, fmt.Errorf("create stock row %s@%s: %w", sku, location, err)
		}
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("read stock %s@%s: %w", sku, location, err)
	}
	if current == qty {
		return false, nil
	}

	_, err = tx.ExecContext(ctx, tx.Rebind(`UPDATE stock SET qty = ?, updated_at = ? WHERE sku = ? AND location = ?`), qty, now, sku, location)
	if err != nil {
		return false, fmt.Errorf("overwrite stock %s@%s: %w", sku, location, err)
	}
	return true, nil
}

func (r *SQLRepository) SaveRun(ctx context.Context, run *model.SyncRun) error {
	query := `
		INSERT INTO sync_runs (` + runColumns + `)
		VALUES (:id, :started_at, :finished_at, :ok, :phase, :message,
			:inserted, :updated, :unchanged, :skipped, :detected_columns)
	`
	if _, err := r.DB.NamedExecContext(ctx, query, run); err != nil {
		return fmt.Errorf("save sync run: %w", err)
	}
	return nil
}

func (r *SQLRepository) LastRun(ctx context.Context) (*model.SyncRun, error) {
	var run model.SyncRun
	err := r.DB.GetContext(ctx, &run, `SELECT `+runColumns+` FROM sync_runs ORDER BY started_at DESC, id DESC LIMIT 1`)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}
