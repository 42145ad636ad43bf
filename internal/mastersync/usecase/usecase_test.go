package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fekuna/ronary-inventory-service/internal/apperror"
	invdto "github.com/fekuna/ronary-inventory-service/internal/inventory/dto"
	invrepo "github.com/fekuna/ronary-inventory-service/internal/inventory/repository"
	invuc "github.com/fekuna/ronary-inventory-service/internal/inventory/usecase"
	locrepo "github.com/fekuna/ronary-inventory-service/internal/location/repository"
	locuc "github.com/fekuna/ronary-inventory-service/internal/location/usecase"
	"github.com/fekuna/ronary-inventory-service/internal/mastersync"
	"github.com/fekuna/ronary-inventory-service/internal/mastersync/repository"
	"github.com/fekuna/ronary-inventory-service/internal/model"
	prodrepo "github.com/fekuna/ronary-inventory-service/internal/product/repository"
	"github.com/fekuna/ronary-inventory-service/pkg/cache"
	"github.com/fekuna/ronary-inventory-service/pkg/database/dbtest"
	"github.com/fekuna/ronary-inventory-service/pkg/logger"
)

const (
	masterURL = "https://sheets.test/master"
	costURL   = "https://sheets.test/cost"
)

type fakeFetcher struct {
	bodies map[string]string
	err    error
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.bodies[url], nil
}

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) InvalidateCache(context.Context) { c.calls++ }

type env struct {
	db          *sqlx.DB
	fetcher     *fakeFetcher
	invalidator *countingInvalidator
}

func newEnv(t *testing.T, master string) *env {
	return &env{
		db:          dbtest.NewSQLite(t),
		fetcher:     &fakeFetcher{bodies: map[string]string{masterURL: master}},
		invalidator: &countingInvalidator{},
	}
}

func (e *env) useCase(opts Options) mastersync.UseCase {
	if opts.SheetURL == "" {
		opts.SheetURL = masterURL
	}
	if opts.StockLocation == "" {
		opts.StockLocation = "GUDANG"
	}
	locations := locuc.NewLocationUseCase(locrepo.NewSQLRepository(e.db), "GUDANG", logger.NewNop())
	return NewSyncUseCase(repository.NewSQLRepository(e.db), e.fetcher, locations, e.invalidator, opts, logger.NewNop())
}

func (e *env) product(t *testing.T, sku string) *model.Product {
	p, err := prodrepo.NewSQLRepository(e.db).FindBySKU(context.Background(), sku)
	require.NoError(t, err)
	require.NotNil(t, p, "product %s", sku)
	return p
}

func (e *env) qty(t *testing.T, sku, loc string) int64 {
	s, err := invrepo.NewSQLRepository(e.db).GetStock(context.Background(), sku, loc)
	require.NoError(t, err)
	require.NotNil(t, s, "stock %s@%s", sku, loc)
	return s.Qty
}

func (e *env) movements(t *testing.T) int {
	var n int
	require.NoError(t, e.db.Get(&n, `SELECT count(*) FROM movements`))
	return n
}

func TestSyncThenLedger(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, "Item SKU,Stock,Cost,Price\nA-1,10,1000,1500\n")
	uc := e.useCase(Options{})

	st := uc.Sync(ctx)
	require.True(t, st.OK, st.Message)
	assert.Equal(t, model.SyncDone, st.Phase)
	assert.Equal(t, 1, st.Inserted)
	assert.NotEmpty(t, st.RunID)

	p := e.product(t, "A-1")
	assert.True(t, p.Cost.Equal(decimal.NewFromInt(1000)))
	assert.True(t, p.Price.Equal(decimal.NewFromInt(1500)))
	assert.Equal(t, int64(10), e.qty(t, "A-1", "GUDANG"))
	assert.Equal(t, int64(0), e.qty(t, "A-1", "STUDIO"))
	assert.Equal(t, 0, e.movements(t), "sync never writes movements")

	ledger := invuc.NewInventoryUseCase(invrepo.NewSQLRepository(e.db), cache.NewLocalLocker(), invuc.Options{DefaultLocation: "GUDANG"}, logger.NewNop())

	s, err := ledger.ApplyOut(ctx, &invdto.MovementInput{SKU: "A-1", Qty: 4, Reason: "SOLD"})
	require.NoError(t, err)
	assert.Equal(t, int64(6), s.Qty)
	assert.Equal(t, 1, e.movements(t))

	_, err = ledger.ApplyOut(ctx, &invdto.MovementInput{SKU: "A-1", Qty: 100, Reason: "SOLD"})
	assert.ErrorIs(t, err, apperror.ErrInsufficientStock)
	assert.Equal(t, int64(6), e.qty(t, "A-1", "GUDANG"))
}

func TestSyncIsIdempotent(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, "Nama Produk,SKU,Warna,Stok,Harga\nKaos,K-1,Hitam,3,\"Rp 99.000\"\nKemeja,K-2,Putih,1,\"Rp 150.000\"\n")
	uc := e.useCase(Options{})

	first := uc.Sync(ctx)
	require.True(t, first.OK, first.Message)
	assert.Equal(t, 2, first.Inserted)
	assert.Equal(t, 1, e.invalidator.calls)
	before := e.product(t, "K-1")

	second := uc.Sync(ctx)
	require.True(t, second.OK, second.Message)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, 0, second.Updated)
	assert.Equal(t, 2, second.Unchanged)
	assert.Equal(t, 1, e.invalidator.calls, "nothing written, nothing invalidated")
	assert.NotEqual(t, first.RunID, second.RunID)

	after := e.product(t, "K-1")
	assert.True(t, before.UpdatedAt.Equal(after.UpdatedAt))
}

func TestSyncUpdatesAttributes(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, "Product Name,Item SKU,Stock,Price\nKaos,K-1,3,100\n")
	uc := e.useCase(Options{})
	require.True(t, uc.Sync(ctx).OK)
	created := e.product(t, "K-1")

	e.fetcher.bodies[masterURL] = "Product Name,Item SKU,Stock,Price\nKaos Oversize,K-1,3,120\n"
	st := uc.Sync(ctx)
	require.True(t, st.OK, st.Message)
	assert.Equal(t, 1, st.Updated)

	p := e.product(t, "K-1")
	assert.Equal(t, "Kaos Oversize", p.ProductName)
	assert.True(t, p.Price.Equal(decimal.NewFromInt(120)))
	assert.True(t, created.CreatedAt.Equal(p.CreatedAt))
}

func TestSyncKeepsCostWhenColumnAbsent(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, "Item SKU,Stock,Cost,Price\nK-1,3,1000,1500\n")
	uc := e.useCase(Options{})
	require.True(t, uc.Sync(ctx).OK)

	e.fetcher.bodies[masterURL] = "Item SKU,Stock,Price\nK-1,3,1800\n"
	st := uc.Sync(ctx)
	require.True(t, st.OK, st.Message)
	assert.Equal(t, 1, st.Updated)

	p := e.product(t, "K-1")
	assert.True(t, p.Price.Equal(decimal.NewFromInt(1800)))
	assert.True(t, p.Cost.Equal(decimal.NewFromInt(1000)), "cost %s", p.Cost)
}

func TestQuantityPolicies(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, "Item SKU,Stock\nA-1,10\n")
	require.True(t, e.useCase(Options{}).Sync(ctx).OK)

	_, err := e.db.Exec(`UPDATE stock SET qty = 6 WHERE sku = 'A-1' AND location = 'GUDANG'`)
	require.NoError(t, err)

	st := e.useCase(Options{Policy: mastersync.PolicySeed}).Sync(ctx)
	require.True(t, st.OK)
	assert.Equal(t, 1, st.Unchanged)
	assert.Equal(t, int64(6), e.qty(t, "A-1", "GUDANG"), "seed keeps local quantity")

	st = e.useCase(Options{Policy: mastersync.PolicySheet}).Sync(ctx)
	require.True(t, st.OK)
	assert.Equal(t, 1, st.Updated)
	assert.Equal(t, int64(10), e.qty(t, "A-1", "GUDANG"), "sheet overwrites")
	assert.Equal(t, 0, e.movements(t))
}

func TestSyncCostJoin(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, "Base SKU,Item SKU,Stock\nKP,KP-01,3\nZZ,ZZ-01,1\n")
	e.fetcher.bodies[costURL] = "Base SKU,HPP,Harga Jual\nKP,40.000,99.000\n"

	st := e.useCase(Options{CostURL: costURL}).Sync(ctx)
	require.True(t, st.OK, st.Message)
	assert.Equal(t, 2, st.Inserted)

	assert.True(t, e.product(t, "KP-01").Cost.Equal(decimal.NewFromInt(40000)))
	assert.True(t, e.product(t, "ZZ-01").Price.IsZero())
}

func TestSyncNewLocation(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, "Item SKU,Stock\nA-1,4\n")

	st := e.useCase(Options{StockLocation: "gudang 2"}).Sync(ctx)
	require.True(t, st.OK, st.Message)
	assert.Equal(t, int64(4), e.qty(t, "A-1", "GUDANG 2"))
}

func TestSyncRowErrors(t *testing.T) {
	e := newEnv(t, "Item SKU,Stock\nA-1,4\nA-2,-1\n,3\n")

	st := e.useCase(Options{}).Sync(context.Background())
	require.True(t, st.OK, "row failures do not fail the run")
	assert.Equal(t, 1, st.Inserted)
	assert.Equal(t, 1, st.Skipped)
	require.Len(t, st.RowErrors, 1)
	assert.Contains(t, st.RowErrors[0], "A-2")
}

func TestSyncSchemaMismatch(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, "Nama,Warna\nKaos,Hitam\n")

	st := e.useCase(Options{}).Sync(ctx)
	assert.False(t, st.OK)
	assert.Equal(t, model.SyncFailed, st.Phase)
	assert.Equal(t, model.SyncParsing, st.FailedPhase)
	assert.Equal(t, []string{"nama", "warna"}, st.DetectedColumns)
	assert.Contains(t, st.Message, "item_sku")

	// a fresh instance reads the persisted run
	last, err := e.useCase(Options{}).LastStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, st.RunID, last.RunID)
	assert.Equal(t, model.SyncFailed, last.Phase)
	assert.Equal(t, []string{"nama", "warna"}, last.DetectedColumns)
}

func TestSyncFetchFailure(t *testing.T) {
	e := newEnv(t, "")
	e.fetcher.err = errors.New("dial tcp: connection refused")

	st := e.useCase(Options{}).Sync(context.Background())
	assert.False(t, st.OK)
	assert.Equal(t, model.SyncFetching, st.FailedPhase)
	assert.Contains(t, st.Message, "connection refused")
	assert.Equal(t, 0, e.invalidator.calls)
}

func TestLastStatusEmpty(t *testing.T) {
	e := newEnv(t, "")
	_, err := e.useCase(Options{}).LastStatus(context.Background())
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
