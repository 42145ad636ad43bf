package usecase

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fekuna/ronary-inventory-service/internal/apperror"
	"github.com/fekuna/ronary-inventory-service/internal/inventory"
	"github.com/fekuna/ronary-inventory-service/internal/inventory/dto"
	"github.com/fekuna/ronary-inventory-service/internal/inventory/repository"
	"github.com/fekuna/ronary-inventory-service/internal/model"
	"github.com/fekuna/ronary-inventory-service/pkg/cache"
	"github.com/fekuna/ronary-inventory-service/pkg/database/dbtest"
	"github.com/fekuna/ronary-inventory-service/pkg/logger"
)

func setup(t *testing.T, skus ...string) (*sqlx.DB, inventory.UseCase) {
	db := dbtest.NewSQLite(t)
	now := time.Now().UTC()
	for _, sku := range skus {
		_, err := db.Exec(`INSERT INTO products (sku, product_name, created_at, updated_at) VALUES (?, ?, ?, ?)`, sku, "Product "+sku, now, now)
		require.NoError(t, err)
	}
	uc := NewInventoryUseCase(repository.NewSQLRepository(db), cache.NewLocalLocker(), Options{DefaultLocation: "GUDANG"}, logger.NewNop())
	return db, uc
}

func movementCount(t *testing.T, db *sqlx.DB, sku string) int {
	var n int
	require.NoError(t, db.Get(&n, `SELECT count(*) FROM movements WHERE sku = ?`, sku))
	return n
}

func TestInOutSequence(t *testing.T) {
	ctx := context.Background()
	db, uc := setup(t, "A-1")

	ops := []struct {
		in  bool
		qty int64
		ok  bool
	}{
		{true, 10, true},
		{false, 3, true},
		{false, 8, false},
		{true, 5, true},
		{false, 12, true},
		{false, 1, false},
	}

	var want int64
	var applied int
	for _, op := range ops {
		input := &dto.MovementInput{SKU: "A-1", Qty: op.qty, Reason: "TEST"}
		var err error
		if op.in {
			_, err = uc.ApplyIn(ctx, input)
		} else {
			_, err = uc.ApplyOut(ctx, input)
		}
		if !op.ok {
			assert.ErrorIs(t, err, apperror.ErrInsufficientStock)
			continue
		}
		require.NoError(t, err)
		applied++
		if op.in {
			want += op.qty
		} else {
			want -= op.qty
		}
	}

	s, err := uc.GetStock(ctx, "A-1", "")
	require.NoError(t, err)
	assert.Equal(t, want, s.Qty)
	assert.Equal(t, applied, movementCount(t, db, "A-1"))

	moves, err := uc.ListMovements(ctx, &dto.MovementFilters{SKU: "A-1"})
	require.NoError(t, err)
	require.Len(t, moves, applied)
	// newest first
	assert.Equal(t, model.MovementOut, moves[0].MovementType)
	assert.Equal(t, int64(12), moves[0].Qty)
	require.NotNil(t, moves[0].LocationFrom)
	assert.Equal(t, "GUDANG", *moves[0].LocationFrom)
	assert.Nil(t, moves[0].LocationTo)
}

func TestInvalidQuantity(t *testing.T) {
	ctx := context.Background()
	db, uc := setup(t, "A-1")

	for _, qty := range []int64{0, -5} {
		_, err := uc.ApplyIn(ctx, &dto.MovementInput{SKU: "A-1", Qty: qty})
		assert.ErrorIs(t, err, apperror.ErrInvalidQuantity)
		_, err = uc.ApplyOut(ctx, &dto.MovementInput{SKU: "A-1", Qty: qty})
		assert.ErrorIs(t, err, apperror.ErrInvalidQuantity)
	}
	_, err := uc.ApplyAdjust(ctx, &dto.AdjustInput{SKU: "A-1", NewQty: -1})
	assert.ErrorIs(t, err, apperror.ErrInvalidQuantity)
	_, err = uc.SetLowStockThreshold(ctx, "A-1", "", -1)
	assert.ErrorIs(t, err, apperror.ErrInvalidQuantity)

	assert.Zero(t, movementCount(t, db, "A-1"))
}

func TestOutFailureLeavesQuantityUnchanged(t *testing.T) {
	ctx := context.Background()
	db, uc := setup(t, "A-1")

	_, err := uc.ApplyIn(ctx, &dto.MovementInput{SKU: "A-1", Qty: 6})
	require.NoError(t, err)

	_, err = uc.ApplyOut(ctx, &dto.MovementInput{SKU: "A-1", Qty: 100, Reason: "SOLD"})
	require.ErrorIs(t, err, apperror.ErrInsufficientStock)
	assert.Equal(t, "Insufficient stock at GUDANG. Current: 6, requested OUT: 100.", err.Error())

	s, err := uc.GetStock(ctx, "A-1", "GUDANG")
	require.NoError(t, err)
	assert.Equal(t, int64(6), s.Qty)
	assert.Equal(t, 1, movementCount(t, db, "A-1"))
}

func TestUnknownReferences(t *testing.T) {
	ctx := context.Background()
	_, uc := setup(t, "A-1")

	_, err := uc.ApplyIn(ctx, &dto.MovementInput{SKU: "NOPE", Qty: 1})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = uc.ApplyIn(ctx, &dto.MovementInput{SKU: "A-1", Location: "MARS", Qty: 1})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = uc.GetStock(ctx, "NOPE", "")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestTransferConservesQuantity(t *testing.T) {
	ctx := context.Background()
	db, uc := setup(t, "A-1")

	_, err := uc.ApplyIn(ctx, &dto.MovementInput{SKU: "A-1", Location: "GUDANG", Qty: 10})
	require.NoError(t, err)
	_, err = uc.ApplyIn(ctx, &dto.MovementInput{SKU: "A-1", Location: "STUDIO", Qty: 2})
	require.NoError(t, err)

	res, err := uc.ApplyTransfer(ctx, &dto.TransferInput{SKU: "a-1", From: "gudang", To: "studio", Qty: 4, Reason: "RESTOCK"})
	require.NoError(t, err)
	assert.Equal(t, int64(6), res.From.Qty)
	assert.Equal(t, int64(6), res.To.Qty)
	assert.NotZero(t, res.MovementID)

	var total int64
	require.NoError(t, db.Get(&total, `SELECT SUM(qty) FROM stock WHERE sku = 'A-1'`))
	assert.Equal(t, int64(12), total)

	moves, err := uc.ListMovements(ctx, &dto.MovementFilters{SKU: "A-1", MovementType: model.MovementTransfer})
	require.NoError(t, err)
	require.Len(t, moves, 1)
	assert.Equal(t, "GUDANG", *moves[0].LocationFrom)
	assert.Equal(t, "STUDIO", *moves[0].LocationTo)
	assert.Equal(t, int64(4), moves[0].Qty)
}

func TestTransferValidation(t *testing.T) {
	ctx := context.Background()
	_, uc := setup(t, "A-1")

	_, err := uc.ApplyTransfer(ctx, &dto.TransferInput{SKU: "A-1", From: "GUDANG", To: "gudang", Qty: 1})
	assert.ErrorIs(t, err, apperror.ErrInvalidTransfer)

	_, err = uc.ApplyTransfer(ctx, &dto.TransferInput{SKU: "A-1", From: "GUDANG", To: "STUDIO", Qty: 0})
	assert.ErrorIs(t, err, apperror.ErrInvalidQuantity)

	_, err = uc.ApplyTransfer(ctx, &dto.TransferInput{SKU: "A-1", From: "GUDANG", To: "STUDIO", Qty: 1})
	assert.ErrorIs(t, err, apperror.ErrInsufficientStock)
}

func TestQuantityOverflowIsRejected(t *testing.T) {
	ctx := context.Background()
	db, uc := setup(t, "A-1")

	_, err := uc.ApplyIn(ctx, &dto.MovementInput{SKU: "A-1", Location: "STUDIO", Qty: math.MaxInt64})
	require.NoError(t, err)
	_, err = uc.ApplyIn(ctx, &dto.MovementInput{SKU: "A-1", Location: "GUDANG", Qty: 1})
	require.NoError(t, err)

	_, err = uc.ApplyIn(ctx, &dto.MovementInput{SKU: "A-1", Location: "STUDIO", Qty: 1})
	assert.ErrorIs(t, err, apperror.ErrInvalidQuantity)
	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "QuantityOverflow", appErr.MessageID)

	_, err = uc.ApplyTransfer(ctx, &dto.TransferInput{SKU: "A-1", From: "GUDANG", To: "STUDIO", Qty: 1})
	assert.ErrorIs(t, err, apperror.ErrInvalidQuantity)

	studio, err := uc.GetStock(ctx, "A-1", "STUDIO")
	require.NoError(t, err)
	gudang, err := uc.GetStock(ctx, "A-1", "GUDANG")
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), studio.Qty)
	assert.Equal(t, int64(1), gudang.Qty)
	assert.Equal(t, 2, movementCount(t, db, "A-1"))
}

// failingMovements wraps the sql repository and fails every movement insert.
type failingMovements struct {
	inventory.Repository
}

type failingTx struct {
	inventory.TxRepository
}

func (f failingMovements) RunInTx(ctx context.Context, fn func(ctx context.Context, tx inventory.TxRepository) error) error {
	return f.Repository.RunInTx(ctx, func(ctx context.Context, tx inventory.TxRepository) error {
		return fn(ctx, failingTx{tx})
	})
}

func (failingTx) InsertMovement(context.Context, *model.Movement) (int64, error) {
	return 0, errors.New("disk full")
}

func TestTransferIsAtomic(t *testing.T) {
	ctx := context.Background()
	db, uc := setup(t, "A-1")
	_, err := uc.ApplyIn(ctx, &dto.MovementInput{SKU: "A-1", Qty: 10})
	require.NoError(t, err)
	require.NoError(t, uc.EnsureStockRow(ctx, "A-1", "STUDIO"))

	broken := NewInventoryUseCase(failingMovements{repository.NewSQLRepository(db)}, cache.NewLocalLocker(), Options{DefaultLocation: "GUDANG"}, logger.NewNop())
	_, err = broken.ApplyTransfer(ctx, &dto.TransferInput{SKU: "A-1", From: "GUDANG", To: "STUDIO", Qty: 4})
	require.Error(t, err)

	src, err := uc.GetStock(ctx, "A-1", "GUDANG")
	require.NoError(t, err)
	dst, err := uc.GetStock(ctx, "A-1", "STUDIO")
	require.NoError(t, err)
	assert.Equal(t, int64(10), src.Qty)
	assert.Equal(t, int64(0), dst.Qty)
	assert.Equal(t, 1, movementCount(t, db, "A-1"))
}

func TestAdjustIsIdempotent(t *testing.T) {
	ctx := context.Background()
	_, uc := setup(t, "A-1")

	_, err := uc.ApplyIn(ctx, &dto.MovementInput{SKU: "A-1", Qty: 3})
	require.NoError(t, err)

	s, err := uc.ApplyAdjust(ctx, &dto.AdjustInput{SKU: "A-1", NewQty: 10, Reason: "STOCKTAKE", Notes: "count"})
	require.NoError(t, err)
	assert.Equal(t, int64(10), s.Qty)

	s, err = uc.ApplyAdjust(ctx, &dto.AdjustInput{SKU: "A-1", NewQty: 10, Reason: "STOCKTAKE"})
	require.NoError(t, err)
	assert.Equal(t, int64(10), s.Qty)

	moves, err := uc.ListMovements(ctx, &dto.MovementFilters{SKU: "A-1", MovementType: model.MovementAdjust})
	require.NoError(t, err)
	require.Len(t, moves, 2)
	assert.Equal(t, int64(0), moves[0].Qty)
	assert.Equal(t, "| prev=10 new=10 delta=0", moves[0].Notes)
	assert.Equal(t, int64(7), moves[1].Qty)
	assert.Equal(t, "count | prev=3 new=10 delta=7", moves[1].Notes)
	assert.Equal(t, "GUDANG", *moves[1].LocationFrom)
	assert.Equal(t, "GUDANG", *moves[1].LocationTo)
}

func TestLowStock(t *testing.T) {
	ctx := context.Background()
	_, uc := setup(t, "A-1", "B-2")

	_, err := uc.ApplyIn(ctx, &dto.MovementInput{SKU: "A-1", Qty: 2})
	require.NoError(t, err)
	_, err = uc.ApplyIn(ctx, &dto.MovementInput{SKU: "B-2", Qty: 20})
	require.NoError(t, err)

	s, err := uc.SetLowStockThreshold(ctx, "A-1", "", 5)
	require.NoError(t, err)
	assert.True(t, s.IsLow())
	_, err = uc.SetLowStockThreshold(ctx, "B-2", "", 5)
	require.NoError(t, err)

	low, err := uc.ListLowStock(ctx, "")
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "A-1", low[0].SKU)
	assert.Equal(t, "Product A-1", low[0].ProductName)

	all, err := uc.ListStock(ctx, &dto.StockFilters{Location: "gudang"})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestEnsureStockRow(t *testing.T) {
	ctx := context.Background()
	db, uc := setup(t, "A-1")

	require.NoError(t, uc.EnsureStockRow(ctx, "A-1", "STUDIO"))
	require.NoError(t, uc.EnsureStockRow(ctx, "A-1", "STUDIO"))

	var n int
	require.NoError(t, db.Get(&n, `SELECT count(*) FROM stock WHERE sku = 'A-1'`))
	assert.Equal(t, 1, n)
}

func TestBusyWhenLockHeld(t *testing.T) {
	ctx := context.Background()
	db, _ := setup(t, "A-1")

	locker := cache.NewLocalLocker()
	ok, err := locker.AcquireLock(ctx, "lock:inventory:A-1", "someone-else", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	uc := NewInventoryUseCase(repository.NewSQLRepository(db), locker, Options{
		DefaultLocation: "GUDANG",
		LockAttempts:    2,
		LockRetryWait:   time.Millisecond,
	}, logger.NewNop())

	_, err = uc.ApplyIn(ctx, &dto.MovementInput{SKU: "A-1", Qty: 1})
	assert.ErrorIs(t, err, apperror.ErrBusy)
}
