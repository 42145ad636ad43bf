package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/fekuna/ronary-inventory-service/internal/inventory"
	"github.com/fekuna/ronary-inventory-service/internal/inventory/dto"
	"github.com/fekuna/ronary-inventory-service/internal/model"
	"github.com/fekuna/ronary-inventory-service/pkg/database"
)

const stockViewColumns = `s.sku, s.location, s.qty, s.low_stock_threshold, s.updated_at,
	p.product_name, p.category, p.color, p.size`

type SQLRepository struct {
	DB *sqlx.DB
}

func NewSQLRepository(db *sqlx.DB) *SQLRepository {
	return &SQLRepository{DB: db}
}

func (r *SQLRepository) RunInTx(ctx context.Context, fn func(ctx context.Context, tx inventory.TxRepository) error) error {
	return database.WithTx(ctx, r.DB, func(tx *sqlx.Tx) error {
		return fn(ctx, &txRepository{
			tx:        tx,
			forUpdate: database.IsPostgres(r.DB.DriverName()),
		})
	})
}

func (r *SQLRepository) GetStock(ctx context.Context, sku, location string) (*model.Stock, error) {
	return getStock(ctx, r.DB, sku, location, "")
}

func (r *SQLRepository) ListStock(ctx context.Context, f *dto.StockFilters) ([]model.StockView, error) {
	conditions := []string{}
	args := []interface{}{}

	if f.SKU != "" {
		conditions = append(conditions, "s.sku = ?")
		args = append(args, f.SKU)
	}
	if f.Location != "" {
		conditions = append(conditions, "s.location = ?")
		args = append(args, f.Location)
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		conditions = append(conditions, "(LOWER(s.sku) LIKE ? OR LOWER(p.product_name) LIKE ?)")
		args = append(args, like, like)
	}

	query := "SELECT " + stockViewColumns + " FROM stock s JOIN products p ON p.sku = s.sku"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY p.product_name, s.sku, s.location"

	var items []model.StockView
	if err := r.DB.SelectContext(ctx, &items, r.DB.Rebind(query), args...); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *SQLRepository) ListLowStock(ctx context.Context, location string) ([]model.StockView, error) {
	query := "SELECT " + stockViewColumns + ` FROM stock s JOIN products p ON p.sku = s.sku
		WHERE s.low_stock_threshold > 0 AND s.qty <= s.low_stock_threshold`
	args := []interface{}{}
	if location != "" {
		query += " AND s.location = ?"
		args = append(args, location)
	}
	query += " ORDER BY (s.low_stock_threshold - s.qty) DESC, s.sku, s.location"

	var items []model.StockView
	if err := r.DB.SelectContext(ctx, &items, r.DB.Rebind(query), args...); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *SQLRepository) ListMovements(ctx context.Context, f *dto.MovementFilters) ([]model.Movement, error) {
	conditions := []string{}
	args := []interface{}{}

	if f.SKU != "" {
		conditions = append(conditions, "sku = ?")
		args = append(args, f.SKU)
	}
	if f.Location != "" {
		conditions = append(conditions, "(location_from = ? OR location_to = ?)")
		args = append(args, f.Location, f.Location)
	}
	if f.MovementType != "" {
		conditions = append(conditions, "movement_type = ?")
		args = append(args, string(f.MovementType))
	}
	if f.StartDate != nil {
		conditions = append(conditions, "ts >= ?")
		args = append(args, f.StartDate.UTC())
	}
	if f.EndDate != nil {
		conditions = append(conditions, "ts <= ?")
		args = append(args, f.EndDate.UTC())
	}

	query := "SELECT id, ts, sku, movement_type, location_from, location_to, qty, reason, notes FROM movements"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	limit := f.Limit
	if limit <= 0 {
		limit = dto.DefaultMovementLimit
	}
	query += fmt.Sprintf(" ORDER BY id DESC LIMIT %d", limit)

	var items []model.Movement
	if err := r.DB.SelectContext(ctx, &items, r.DB.Rebind(query), args...); err != nil {
		return nil, err
	}
	return items, nil
}

type txRepository struct {
	tx        *sqlx.Tx
	forUpdate bool
}

func (r *txRepository) ProductExists(ctx context.Context, sku string) (bool, error) {
	return exists(ctx, r.tx, `SELECT count(*) FROM products WHERE sku = ?`, sku)
}

func (r *txRepository) LocationExists(ctx context.Context, location string) (bool, error) {
	return exists(ctx, r.tx, `SELECT count(*) FROM locations WHERE location = ?`, location)
}

func (r *txRepository) EnsureStock(ctx context.Context, sku, location string, now time.Time) error {
	_, err := r.tx.ExecContext(ctx, r.tx.Rebind(`
		INSERT INTO stock (sku, location, qty, low_stock_threshold, updated_at)
		VALUES (?, ?, 0, 0, ?)
		ON CONFLICT (sku, location) DO NOTHING
	`), sku, location, now)
	if err != nil {
		return fmt.Errorf("ensure stock row: %w", err)
	}
	return nil
}

func (r *txRepository) GetStockForUpdate(ctx context.Context, sku, location string) (*model.Stock, error) {
	suffix := ""
	if r.forUpdate {
		suffix = " FOR UPDATE"
	}
	return getStock(ctx, r.tx, sku, location, suffix)
}

func (r *txRepository) UpdateQuantity(ctx context.Context, sku, location string, qty int64, now time.Time) error {
	_, err := r.tx.ExecContext(ctx, r.tx.Rebind(`
		UPDATE stock SET qty = ?, updated_at = ? WHERE sku = ? AND location = ?
	`), qty, now, sku, location)
	if err != nil {
		return fmt.Errorf("update stock: %w", err)
	}
	return nil
}

func (r *txRepository) SetThreshold(ctx context.Context, sku, location string, threshold int64, now time.Time) error {
	_, err := r.tx.ExecContext(ctx, r.tx.Rebind(`
		UPDATE stock SET low_stock_threshold = ?, updated_at = ? WHERE sku = ? AND location = ?
	`), threshold, now, sku, location)
	if err != nil {
		return fmt.Errorf("set low stock threshold: %w", err)
	}
	return nil
}

func (r *txRepository) InsertMovement(ctx context.Context, m *model.Movement) (int64, error) {
	var id int64
	err := r.tx.QueryRowxContext(ctx, r.tx.Rebind(`
		INSERT INTO movements (ts, sku, movement_type, location_from, location_to, qty, reason, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`), m.Ts, m.SKU, string(m.MovementType), m.LocationFrom, m.LocationTo, m.Qty, m.Reason, m.Notes).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("log movement: %w", err)
	}
	m.ID = id
	return id, nil
}

func getStock(ctx context.Context, q database.DBTX, sku, location, suffix string) (*model.Stock, error) {
	var s model.Stock
	query := q.Rebind(`
		SELECT sku, location, qty, low_stock_threshold, updated_at
		FROM stock WHERE sku = ? AND location = ?`+suffix)
	err := sqlx.GetContext(ctx, q, &s, query, sku, location)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func exists(ctx context.Context, q database.DBTX, query string, args ...interface{}) (bool, error) {
	var n int
	if err := sqlx.GetContext(ctx, q, &n, q.Rebind(query), args...); err != nil {
		return false, err
	}
	return n > 0, nil
}
