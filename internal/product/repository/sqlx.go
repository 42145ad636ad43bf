package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/fekuna/ronary-inventory-service/internal/model"
	"github.com/fekuna/ronary-inventory-service/internal/product/dto"
	"github.com/fekuna/ronary-inventory-service/pkg/database"
)

const productColumns = `sku, base_sku, product_name, item_name, category, color, size, vendor,
	cost, price, is_active, created_at, updated_at`

type SQLRepository struct {
	DB *sqlx.DB
}

func NewSQLRepository(db *sqlx.DB) *SQLRepository {
	return &SQLRepository{DB: db}
}

func (r *SQLRepository) Create(ctx context.Context, p *model.Product) error {
	return database.WithTx(ctx, r.DB, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO products (` + productColumns + `)
			VALUES (:sku, :base_sku, :product_name, :item_name, :category, :color, :size, :vendor,
				:cost, :price, :is_active, :created_at, :updated_at)
		`
		if _, err := tx.NamedExecContext(ctx, query, p); err != nil {
			return fmt.Errorf("insert product: %w", err)
		}

		_, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO stock (sku, location, qty, low_stock_threshold, updated_at)
			SELECT ?, location, 0, 0, ? FROM locations WHERE true
			ON CONFLICT (sku, location) DO NOTHING
		`), p.SKU, p.CreatedAt)
		if err != nil {
			return fmt.Errorf("create stock rows: %w", err)
		}
		return nil
	})
}

func (r *SQLRepository) FindBySKU(ctx context.Context, sku string) (*model.Product, error) {
	var p model.Product
	query := r.DB.Rebind(`SELECT ` + productColumns + ` FROM products WHERE sku = ?`)
	err := r.DB.GetContext(ctx, &p, query, sku)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *SQLRepository) FindAll(ctx context.Context, f *dto.ProductFilters) ([]model.Product, int, error) {
	var items []model.Product
	var count int

	conditions := []string{}
	args := []interface{}{}

	if f.ActiveOnly {
		conditions = append(conditions, "is_active = ?")
		args = append(args, true)
	}
	if f.Category != "" {
		conditions = append(conditions, "LOWER(category) = LOWER(?)")
		args = append(args, f.Category)
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		conditions = append(conditions, "(LOWER(sku) LIKE ? OR LOWER(product_name) LIKE ? OR LOWER(category) LIKE ?)")
		args = append(args, like, like, like)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := r.DB.Rebind("SELECT count(*) FROM products" + whereClause)
	if err := r.DB.GetContext(ctx, &count, countQuery, args...); err != nil {
		return nil, 0, err
	}

	query := "SELECT " + productColumns + " FROM products" + whereClause + " ORDER BY created_at DESC, sku ASC"
	if f.PageSize > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, (page-1)*f.PageSize)
	}

	if err := r.DB.SelectContext(ctx, &items, r.DB.Rebind(query), args...); err != nil {
		return nil, 0, err
	}
	return items, count, nil
}

func (r *SQLRepository) Update(ctx context.Context, p *model.Product) error {
	query := `
		UPDATE products
		SET base_sku = :base_sku,
		    product_name = :product_name,
		    item_name = :item_name,
		    category = :category,
		    color = :color,
		    size = :size,
		    vendor = :vendor,
		    cost = :cost,
		    price = :price,
		    is_active = :is_active,
		    updated_at = :updated_at
		WHERE sku = :sku
	`
	_, err := r.DB.NamedExecContext(ctx, query, p)
	return err
}

func (r *SQLRepository) Delete(ctx context.Context, sku string) (bool, error) {
	// stock and movements cascade
	res, err := r.DB.ExecContext(ctx, r.DB.Rebind(`DELETE FROM products WHERE sku = ?`), sku)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
