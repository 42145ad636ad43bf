package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fekuna/ronary-inventory-service/internal/apperror"
	"github.com/fekuna/ronary-inventory-service/internal/product"
	"github.com/fekuna/ronary-inventory-service/internal/product/dto"
	"github.com/fekuna/ronary-inventory-service/internal/product/repository"
	"github.com/fekuna/ronary-inventory-service/pkg/cache"
	"github.com/fekuna/ronary-inventory-service/pkg/database/dbtest"
	"github.com/fekuna/ronary-inventory-service/pkg/logger"
)

func newUseCase(t *testing.T, store cache.Store) (product.UseCase, func(query string, args ...interface{}) int) {
	db := dbtest.NewSQLite(t)
	uc := NewProductUseCase(repository.NewSQLRepository(db), store, logger.NewNop())
	count := func(query string, args ...interface{}) int {
		var n int
		require.NoError(t, db.Get(&n, query, args...))
		return n
	}
	return uc, count
}

func teeInput() *dto.ProductInput {
	return &dto.ProductInput{
		SKU:         " tee blk m ",
		ProductName: "Basic Tee",
		Category:    "Tops",
		Color:       "Black",
		Size:        "M",
		Cost:        decimal.NewFromInt(50000),
		Price:       decimal.NewFromInt(89000),
	}
}

func TestAddProduct(t *testing.T) {
	ctx := context.Background()
	uc, count := newUseCase(t, nil)

	p, err := uc.AddProduct(ctx, teeInput())
	require.NoError(t, err)
	assert.Equal(t, "TEE-BLK-M", p.SKU)
	assert.True(t, p.IsActive)
	assert.True(t, p.Profit().Equal(decimal.NewFromInt(39000)))

	assert.Equal(t, 4, count(`SELECT count(*) FROM stock WHERE sku = ? AND qty = 0`, "TEE-BLK-M"),
		"one zero stock row per seeded location")

	_, err = uc.AddProduct(ctx, teeInput())
	assert.ErrorIs(t, err, apperror.ErrAlreadyExists)
}

func TestAddProductValidation(t *testing.T) {
	ctx := context.Background()
	uc, _ := newUseCase(t, nil)

	cases := map[string]func(in *dto.ProductInput){
		"short sku":      func(in *dto.ProductInput) { in.SKU = "ab" },
		"missing name":   func(in *dto.ProductInput) { in.ProductName = "  " },
		"negative cost":  func(in *dto.ProductInput) { in.Cost = decimal.NewFromInt(-1) },
		"negative price": func(in *dto.ProductInput) { in.Price = decimal.NewFromInt(-1) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := teeInput()
			mutate(in)
			_, err := uc.AddProduct(ctx, in)
			assert.ErrorIs(t, err, apperror.ErrInvalidArgument)
		})
	}
}

func TestUpdateProductPreservesCreatedAt(t *testing.T) {
	ctx := context.Background()
	uc, _ := newUseCase(t, nil)

	created, err := uc.AddProduct(ctx, teeInput())
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	in := teeInput()
	in.Color = "White"
	updated, err := uc.UpdateProduct(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "White", updated.Color)

	got, err := uc.GetProduct(ctx, "tee-blk-m")
	require.NoError(t, err)
	assert.Equal(t, "White", got.Color)
	assert.True(t, created.CreatedAt.Equal(got.CreatedAt), "created_at is set once")
	assert.True(t, got.UpdatedAt.After(got.CreatedAt))

	in.SKU = "NOPE-1"
	_, err = uc.UpdateProduct(ctx, in)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestUpsertProduct(t *testing.T) {
	ctx := context.Background()
	uc, _ := newUseCase(t, nil)

	_, inserted, err := uc.UpsertProduct(ctx, teeInput())
	require.NoError(t, err)
	assert.True(t, inserted)

	in := teeInput()
	in.Price = decimal.NewFromInt(99000)
	p, inserted, err := uc.UpsertProduct(ctx, in)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.True(t, p.Price.Equal(decimal.NewFromInt(99000)))
}

func TestListProductsWithCache(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rc, err := cache.NewRedisClient(&cache.Config{Addr: mr.Addr()})
	require.NoError(t, err)
	defer rc.Close()

	uc, _ := newUseCase(t, rc)

	_, err = uc.AddProduct(ctx, teeInput())
	require.NoError(t, err)
	inactive := false
	_, err = uc.AddProduct(ctx, &dto.ProductInput{SKU: "CAP-01", ProductName: "Cap", Category: "Hats", IsActive: &inactive})
	require.NoError(t, err)

	items, total, err := uc.ListProducts(ctx, &dto.ProductFilters{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, items, 2)
	assert.NotEmpty(t, mr.Keys(), "listing is cached")

	items, total, err = uc.ListProducts(ctx, &dto.ProductFilters{ActiveOnly: true})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "TEE-BLK-M", items[0].SKU)

	items, _, err = uc.ListProducts(ctx, &dto.ProductFilters{Search: "hat"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "CAP-01", items[0].SKU)

	require.NoError(t, uc.DeleteProduct(ctx, "cap-01"))
	assert.Empty(t, mr.Keys(), "writes invalidate cached listings")

	_, total, err = uc.ListProducts(ctx, &dto.ProductFilters{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	assert.ErrorIs(t, uc.DeleteProduct(ctx, "cap-01"), apperror.ErrNotFound)
}

func TestDeleteProductCascades(t *testing.T) {
	ctx := context.Background()
	uc, count := newUseCase(t, nil)

	_, err := uc.AddProduct(ctx, teeInput())
	require.NoError(t, err)
	require.NoError(t, uc.DeleteProduct(ctx, "TEE-BLK-M"))

	assert.Zero(t, count(`SELECT count(*) FROM stock WHERE sku = 'TEE-BLK-M'`))
	_, err = uc.GetProduct(ctx, "TEE-BLK-M")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
