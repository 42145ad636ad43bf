package usecase

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fekuna/ronary-inventory-service/internal/apperror"
	"github.com/fekuna/ronary-inventory-service/internal/inventory"
	"github.com/fekuna/ronary-inventory-service/internal/inventory/dto"
	"github.com/fekuna/ronary-inventory-service/internal/model"
	"github.com/fekuna/ronary-inventory-service/pkg/cache"
	"github.com/fekuna/ronary-inventory-service/pkg/logger"
)

type Options struct {
	DefaultLocation string
	LockTTL         time.Duration
	LockAttempts    int
	LockRetryWait   time.Duration
}

func (o *Options) withDefaults() Options {
	out := *o
	out.DefaultLocation = model.NormalizeLocation(out.DefaultLocation)
	if out.LockTTL <= 0 {
		out.LockTTL = 5 * time.Second
	}
	if out.LockAttempts <= 0 {
		out.LockAttempts = 3
	}
	if out.LockRetryWait <= 0 {
		out.LockRetryWait = 100 * time.Millisecond
	}
	return out
}

type inventoryUseCase struct {
	repo   inventory.Repository
	locker cache.Locker
	opts   Options
	logger logger.ZapLogger
	now    func() time.Time
}

func NewInventoryUseCase(repo inventory.Repository, locker cache.Locker, opts Options, log logger.ZapLogger) inventory.UseCase {
	return &inventoryUseCase{
		repo:   repo,
		locker: locker,
		opts:   opts.withDefaults(),
		logger: log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (uc *inventoryUseCase) location(loc string) string {
	if loc = model.NormalizeLocation(loc); loc != "" {
		return loc
	}
	return uc.opts.DefaultLocation
}

// withLock serializes ledger mutations on one SKU.
func (uc *inventoryUseCase) withLock(ctx context.Context, sku string, fn func() error) error {
	lockKey := "lock:inventory:" + sku
	lockValue := uuid.New().String()

	acquired := false
	for i := 0; i < uc.opts.LockAttempts; i++ {
		ok, err := uc.locker.AcquireLock(ctx, lockKey, lockValue, uc.opts.LockTTL)
		if err != nil {
			uc.logger.Error("failed to acquire lock", zap.String("key", lockKey), zap.Error(err))
		}
		if ok {
			acquired = true
			break
		}
		if i == uc.opts.LockAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(uc.opts.LockRetryWait):
		}
	}
	if !acquired {
		return apperror.Busy(lockKey)
	}

	defer func() {
		if err := uc.locker.ReleaseLock(context.WithoutCancel(ctx), lockKey, lockValue); err != nil {
			uc.logger.Warn("failed to release lock", zap.String("key", lockKey), zap.Error(err))
		}
	}()
	return fn()
}

// loadStock checks both references exist, creates the stock row lazily and
// reads it for update.
func loadStock(ctx context.Context, tx inventory.TxRepository, sku, location string, now time.Time) (*model.Stock, error) {
	ok, err := tx.ProductExists(ctx, sku)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.NotFound("SKU", sku)
	}

	ok, err = tx.LocationExists(ctx, location)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.NotFound("Location", location)
	}

	if err := tx.EnsureStock(ctx, sku, location, now); err != nil {
		return nil, err
	}
	s, err := tx.GetStockForUpdate(ctx, sku, location)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("stock row %s@%s missing after insert", sku, location)
	}
	return s, nil
}

func (uc *inventoryUseCase) EnsureStockRow(ctx context.Context, sku, location string) error {
	sku, location = model.NormalizeSKU(sku), uc.location(location)
	return uc.repo.RunInTx(ctx, func(ctx context.Context, tx inventory.TxRepository) error {
		_, err := loadStock(ctx, tx, sku, location, uc.now())
		return err
	})
}

func (uc *inventoryUseCase) ApplyIn(ctx context.Context, input *dto.MovementInput) (*model.Stock, error) {
	if input.Qty <= 0 {
		return nil, apperror.InvalidQuantity(input.Qty)
	}
	sku, loc := model.NormalizeSKU(input.SKU), uc.location(input.Location)

	var out *model.Stock
	err := uc.withLock(ctx, sku, func() error {
		return uc.repo.RunInTx(ctx, func(ctx context.Context, tx inventory.TxRepository) error {
			now := uc.now()
			s, err := loadStock(ctx, tx, sku, loc, now)
			if err != nil {
				return err
			}

			if input.Qty > math.MaxInt64-s.Qty {
				return apperror.QuantityOverflow(sku, loc, s.Qty, input.Qty)
			}
			s.Qty += input.Qty
			s.UpdatedAt = now
			if err := tx.UpdateQuantity(ctx, sku, loc, s.Qty, now); err != nil {
				return err
			}
			if _, err := tx.InsertMovement(ctx, &model.Movement{
				Ts:           now,
				SKU:          sku,
				MovementType: model.MovementIn,
				LocationTo:   &loc,
				Qty:          input.Qty,
				Reason:       strings.TrimSpace(input.Reason),
				Notes:        strings.TrimSpace(input.Notes),
			}); err != nil {
				return err
			}
			out = s
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("stock in", zap.String("sku", sku), zap.String("location", loc), zap.Int64("qty", input.Qty), zap.Int64("new_qty", out.Qty))
	return out, nil
}

func (uc *inventoryUseCase) ApplyOut(ctx context.Context, input *dto.MovementInput) (*model.Stock, error) {
	if input.Qty <= 0 {
		return nil, apperror.InvalidQuantity(input.Qty)
	}
	sku, loc := model.NormalizeSKU(input.SKU), uc.location(input.Location)

	var out *model.Stock
	err := uc.withLock(ctx, sku, func() error {
		return uc.repo.RunInTx(ctx, func(ctx context.Context, tx inventory.TxRepository) error {
			now := uc.now()
			s, err := loadStock(ctx, tx, sku, loc, now)
			if err != nil {
				return err
			}
			if s.Qty-input.Qty < 0 {
				return apperror.InsufficientStock(sku, loc, string(model.MovementOut), s.Qty, input.Qty)
			}

			s.Qty -= input.Qty
			s.UpdatedAt = now
			if err := tx.UpdateQuantity(ctx, sku, loc, s.Qty, now); err != nil {
				return err
			}
			if _, err := tx.InsertMovement(ctx, &model.Movement{
				Ts:           now,
				SKU:          sku,
				MovementType: model.MovementOut,
				LocationFrom: &loc,
				Qty:          input.Qty,
				Reason:       strings.TrimSpace(input.Reason),
				Notes:        strings.TrimSpace(input.Notes),
			}); err != nil {
				return err
			}
			out = s
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("stock out", zap.String("sku", sku), zap.String("location", loc), zap.Int64("qty", input.Qty), zap.Int64("new_qty", out.Qty))
	return out, nil
}

func (uc *inventoryUseCase) ApplyAdjust(ctx context.Context, input *dto.AdjustInput) (*model.Stock, error) {
	if input.NewQty < 0 {
		return nil, apperror.NegativeQuantity(input.NewQty)
	}
	sku, loc := model.NormalizeSKU(input.SKU), uc.location(input.Location)

	var out *model.Stock
	var delta int64
	err := uc.withLock(ctx, sku, func() error {
		return uc.repo.RunInTx(ctx, func(ctx context.Context, tx inventory.TxRepository) error {
			now := uc.now()
			s, err := loadStock(ctx, tx, sku, loc, now)
			if err != nil {
				return err
			}

			prev := s.Qty
			delta = input.NewQty - prev
			s.Qty = input.NewQty
			s.UpdatedAt = now
			if err := tx.UpdateQuantity(ctx, sku, loc, s.Qty, now); err != nil {
				return err
			}

			magnitude := delta
			if magnitude < 0 {
				magnitude = -magnitude
			}
			notes := fmt.Sprintf("%s | prev=%d new=%d delta=%d", strings.TrimSpace(input.Notes), prev, input.NewQty, delta)
			if _, err := tx.InsertMovement(ctx, &model.Movement{
				Ts:           now,
				SKU:          sku,
				MovementType: model.MovementAdjust,
				LocationFrom: &loc,
				LocationTo:   &loc,
				Qty:          magnitude,
				Reason:       strings.TrimSpace(input.Reason),
				Notes:        strings.TrimSpace(notes),
			}); err != nil {
				return err
			}
			out = s
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("stock adjusted", zap.String("sku", sku), zap.String("location", loc), zap.Int64("new_qty", out.Qty), zap.Int64("delta", delta))
	return out, nil
}

func (uc *inventoryUseCase) ApplyTransfer(ctx context.Context, input *dto.TransferInput) (*dto.TransferResult, error) {
	sku := model.NormalizeSKU(input.SKU)
	from, to := uc.location(input.From), uc.location(input.To)
	if from == to {
		return nil, apperror.InvalidTransfer(from, to)
	}
	if input.Qty <= 0 {
		return nil, apperror.InvalidQuantity(input.Qty)
	}

	res := &dto.TransferResult{}
	err := uc.withLock(ctx, sku, func() error {
		return uc.repo.RunInTx(ctx, func(ctx context.Context, tx inventory.TxRepository) error {
			now := uc.now()
			src, err := loadStock(ctx, tx, sku, from, now)
			if err != nil {
				return err
			}
			dst, err := loadStock(ctx, tx, sku, to, now)
			if err != nil {
				return err
			}
			if src.Qty-input.Qty < 0 {
				return apperror.InsufficientStock(sku, from, string(model.MovementTransfer), src.Qty, input.Qty)
			}
			if input.Qty > math.MaxInt64-dst.Qty {
				return apperror.QuantityOverflow(sku, to, dst.Qty, input.Qty)
			}

			src.Qty -= input.Qty
			src.UpdatedAt = now
			dst.Qty += input.Qty
			dst.UpdatedAt = now
			if err := tx.UpdateQuantity(ctx, sku, from, src.Qty, now); err != nil {
				return err
			}
			if err := tx.UpdateQuantity(ctx, sku, to, dst.Qty, now); err != nil {
				return err
			}
			id, err := tx.InsertMovement(ctx, &model.Movement{
				Ts:           now,
				SKU:          sku,
				MovementType: model.MovementTransfer,
				LocationFrom: &from,
				LocationTo:   &to,
				Qty:          input.Qty,
				Reason:       strings.TrimSpace(input.Reason),
				Notes:        strings.TrimSpace(input.Notes),
			})
			if err != nil {
				return err
			}
			res.From, res.To, res.MovementID = src, dst, id
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("stock transferred", zap.String("sku", sku), zap.String("from", from), zap.String("to", to), zap.Int64("qty", input.Qty))
	return res, nil
}

func (uc *inventoryUseCase) SetLowStockThreshold(ctx context.Context, sku, location string, threshold int64) (*model.Stock, error) {
	if threshold < 0 {
		return nil, apperror.NegativeThreshold(threshold)
	}
	sku, location = model.NormalizeSKU(sku), uc.location(location)

	var out *model.Stock
	err := uc.withLock(ctx, sku, func() error {
		return uc.repo.RunInTx(ctx, func(ctx context.Context, tx inventory.TxRepository) error {
			now := uc.now()
			s, err := loadStock(ctx, tx, sku, location, now)
			if err != nil {
				return err
			}
			if err := tx.SetThreshold(ctx, sku, location, threshold, now); err != nil {
				return err
			}
			s.LowStockThreshold = threshold
			s.UpdatedAt = now
			out = s
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (uc *inventoryUseCase) GetStock(ctx context.Context, sku, location string) (*model.Stock, error) {
	sku, location = model.NormalizeSKU(sku), uc.location(location)
	s, err := uc.repo.GetStock(ctx, sku, location)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, apperror.NotFound("Stock", sku+"@"+location)
	}
	return s, nil
}

func (uc *inventoryUseCase) ListStock(ctx context.Context, filters *dto.StockFilters) ([]model.StockView, error) {
	f := *filters
	f.SKU = model.NormalizeSKU(f.SKU)
	f.Location = model.NormalizeLocation(f.Location)
	return uc.repo.ListStock(ctx, &f)
}

func (uc *inventoryUseCase) ListLowStock(ctx context.Context, location string) ([]model.StockView, error) {
	return uc.repo.ListLowStock(ctx, model.NormalizeLocation(location))
}

func (uc *inventoryUseCase) ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.Movement, error) {
	f := *filters
	f.SKU = model.NormalizeSKU(f.SKU)
	f.Location = model.NormalizeLocation(f.Location)
	if f.MovementType != "" && !f.MovementType.Valid() {
		return nil, apperror.InvalidArgument("movement_type", "must be one of IN, OUT, ADJUST, TRANSFER")
	}
	return uc.repo.ListMovements(ctx, &f)
}
