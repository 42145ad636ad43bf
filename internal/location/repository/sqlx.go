package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/fekuna/ronary-inventory-service/internal/location/dto"
	"github.com/fekuna/ronary-inventory-service/pkg/database"
)

type SQLRepository struct {
	DB *sqlx.DB
}

func NewSQLRepository(db *sqlx.DB) *SQLRepository {
	return &SQLRepository{DB: db}
}

func (r *SQLRepository) Create(ctx context.Context, location string) (bool, error) {
	var created bool
	err := database.WithTx(ctx, r.DB, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO locations (location) VALUES (?)
			ON CONFLICT (location) DO NOTHING
		`), location)
		if err != nil {
			return fmt.Errorf("insert location: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		created = n > 0

		// WHERE true keeps SQLite from reading ON CONFLICT as a join clause.
		_, err = tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO stock (sku, location, qty, low_stock_threshold, updated_at)
			SELECT sku, ?, 0, 0, ? FROM products WHERE true
			ON CONFLICT (sku, location) DO NOTHING
		`), location, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("backfill stock rows: %w", err)
		}
		return nil
	})
	return created, err
}

func (r *SQLRepository) Exists(ctx context.Context, location string) (bool, error) {
	var n int
	err := r.DB.GetContext(ctx, &n, r.DB.Rebind(`SELECT count(*) FROM locations WHERE location = ?`), location)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *SQLRepository) FindAll(ctx context.Context) ([]dto.LocationSummary, error) {
	var items []dto.LocationSummary
	query := `
		SELECT l.location,
		       count(s.sku) AS skus,
		       COALESCE(SUM(s.qty), 0) AS total_qty
		FROM locations l
		LEFT JOIN stock s ON s.location = l.location
		GROUP BY l.location
		ORDER BY l.location
	`
	if err := r.DB.SelectContext(ctx, &items, query); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *SQLRepository) Delete(ctx context.Context, location string) (bool, error) {
	// Stock rows go with the location through ON DELETE CASCADE. Movements
	// keep the name as history.
	res, err := r.DB.ExecContext(ctx, r.DB.Rebind(`DELETE FROM locations WHERE location = ?`), location)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
