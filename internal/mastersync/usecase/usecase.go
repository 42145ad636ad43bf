package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fekuna/ronary-inventory-service/internal/apperror"
	"github.com/fekuna/ronary-inventory-service/internal/location"
	"github.com/fekuna/ronary-inventory-service/internal/mastersync"
	"github.com/fekuna/ronary-inventory-service/internal/mastersync/parser"
	"github.com/fekuna/ronary-inventory-service/internal/model"
	"github.com/fekuna/ronary-inventory-service/pkg/logger"
)

type Options struct {
	SheetURL      string
	CostURL       string // empty disables the cost join
	Policy        mastersync.QuantityPolicy
	StockLocation string
}

// CacheInvalidator drops cached product listings after a sync writes.
type CacheInvalidator interface {
	InvalidateCache(ctx context.Context)
}

type syncUseCase struct {
	repo      mastersync.Repository
	fetcher   mastersync.Fetcher
	locations location.UseCase
	products  CacheInvalidator
	opts      Options
	logger    logger.ZapLogger
	now       func() time.Time

	runMu sync.Mutex // one run at a time

	mu   sync.RWMutex
	last *mastersync.Status
}

func NewSyncUseCase(
	repo mastersync.Repository,
	fetcher mastersync.Fetcher,
	locations location.UseCase,
	products CacheInvalidator,
	opts Options,
	log logger.ZapLogger,
) mastersync.UseCase {
	if opts.Policy == "" {
		opts.Policy = mastersync.PolicySeed
	}
	opts.StockLocation = model.NormalizeLocation(opts.StockLocation)

	return &syncUseCase{
		repo:      repo,
		fetcher:   fetcher,
		locations: locations,
		products:  products,
		opts:      opts,
		logger:    log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (uc *syncUseCase) Sync(ctx context.Context) (st *mastersync.Status) {
	uc.runMu.Lock()
	defer uc.runMu.Unlock()

	st = &mastersync.Status{
		RunID:     uuid.New().String(),
		Phase:     model.SyncFetching,
		StartedAt: uc.now(),
	}
	uc.logger.Info("master sync started", zap.String("run_id", st.RunID))

	defer func() {
		if r := recover(); r != nil {
			uc.logger.Error("master sync panicked", zap.String("run_id", st.RunID), zap.Any("panic", r))
			fail(st, fmt.Errorf("panic: %v", r))
		}
		uc.finish(ctx, st)
	}()

	master, cost, err := uc.fetch(ctx)
	if err != nil {
		fail(st, err)
		return st
	}

	st.Phase = model.SyncParsing
	sheet, err := uc.parse(master, cost)
	if err != nil {
		var schemaErr *parser.SchemaError
		if errors.As(err, &schemaErr) {
			st.DetectedColumns = schemaErr.Detected
		}
		fail(st, err)
		return st
	}
	st.DetectedColumns = sheet.Columns
	st.Skipped = sheet.Skipped
	st.RowErrors = append(st.RowErrors, sheet.Errors...)

	st.Phase = model.SyncReconciling
	if err := uc.reconcile(ctx, st, sheet); err != nil {
		fail(st, err)
		return st
	}

	st.Phase = model.SyncDone
	st.OK = true
	st.Message = fmt.Sprintf("inserted %d, updated %d, unchanged %d, skipped %d, row errors %d",
		st.Inserted, st.Updated, st.Unchanged, st.Skipped, len(st.RowErrors))
	return st
}

func (uc *syncUseCase) fetch(ctx context.Context) (string, string, error) {
	if uc.opts.SheetURL == "" {
		return "", "", apperror.SyncFailure(string(model.SyncFetching), "no sheet source configured")
	}

	var master, cost string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		master, err = uc.fetcher.Fetch(gctx, uc.opts.SheetURL)
		return err
	})
	if uc.opts.CostURL != "" {
		g.Go(func() error {
			var err error
			cost, err = uc.fetcher.Fetch(gctx, uc.opts.CostURL)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return "", "", apperror.SyncFailure(string(model.SyncFetching), err.Error())
	}
	return master, cost, nil
}

func (uc *syncUseCase) parse(master, cost string) (*parser.Sheet, error) {
	withCost := uc.opts.CostURL != ""
	sheet, err := parser.ParseMaster(master, withCost)
	if err != nil {
		return nil, err
	}
	if withCost {
		costs, err := parser.ParseCost(cost)
		if err != nil {
			return nil, err
		}
		parser.JoinCost(sheet, costs)
	}
	return sheet, nil
}

func (uc *syncUseCase) reconcile(ctx context.Context, st *mastersync.Status, sheet *parser.Sheet) error {
	loc := uc.opts.StockLocation
	if err := uc.locations.EnsureLocations(ctx, loc); err != nil {
		return fmt.Errorf("ensure location %s: %w", loc, err)
	}

	for i := range sheet.Rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		row := &sheet.Rows[i]

		outcome, err := uc.repo.ReconcileRow(ctx, row, uc.opts.Policy, loc, uc.now())
		if err != nil {
			uc.logger.Warn("master sync row failed", zap.String("sku", row.ItemSKU), zap.Int("line", row.Line), zap.Error(err))
			st.RowErrors = append(st.RowErrors, fmt.Sprintf("line %d (%s): %v", row.Line, row.ItemSKU, err))
			continue
		}
		switch outcome {
		case mastersync.Inserted:
			st.Inserted++
		case mastersync.Updated:
			st.Updated++
		default:
			st.Unchanged++
		}
	}
	return nil
}

func fail(st *mastersync.Status, err error) {
	st.OK = false
	st.FailedPhase = st.Phase
	st.Phase = model.SyncFailed
	st.Message = err.Error()
}

func (uc *syncUseCase) finish(ctx context.Context, st *mastersync.Status) {
	st.FinishedAt = uc.now()
	ctx = context.WithoutCancel(ctx)

	if err := uc.repo.SaveRun(ctx, st.Run()); err != nil {
		uc.logger.Error("failed to save sync run", zap.String("run_id", st.RunID), zap.Error(err))
	}
	if st.Inserted+st.Updated > 0 && uc.products != nil {
		uc.products.InvalidateCache(ctx)
	}

	uc.mu.Lock()
	uc.last = st
	uc.mu.Unlock()

	fields := []zap.Field{
		zap.String("run_id", st.RunID),
		zap.Bool("ok", st.OK),
		zap.Int("inserted", st.Inserted),
		zap.Int("updated", st.Updated),
		zap.Int("unchanged", st.Unchanged),
		zap.Int("skipped", st.Skipped),
		zap.Int("row_errors", len(st.RowErrors)),
		zap.Duration("took", st.FinishedAt.Sub(st.StartedAt)),
	}
	if st.OK {
		uc.logger.Info("master sync finished", fields...)
		return
	}
	uc.logger.Warn("master sync failed", append(fields,
		zap.String("phase", string(st.FailedPhase)),
		zap.String("message", st.Message))...)
}

func (uc *syncUseCase) LastStatus(ctx context.Context) (*mastersync.Status, error) {
	uc.mu.RLock()
	last := uc.last
	uc.mu.RUnlock()
	if last != nil {
		return last, nil
	}

	run, err := uc.repo.LastRun(ctx)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, apperror.NotFound("Sync run", "latest")
	}
	return mastersync.StatusFromRun(run), nil
}
