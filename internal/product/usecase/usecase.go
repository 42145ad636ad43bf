package usecase

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/fekuna/ronary-inventory-service/internal/apperror"
	"github.com/fekuna/ronary-inventory-service/internal/model"
	"github.com/fekuna/ronary-inventory-service/internal/product"
	"github.com/fekuna/ronary-inventory-service/internal/product/dto"
	"github.com/fekuna/ronary-inventory-service/pkg/cache"
	"github.com/fekuna/ronary-inventory-service/pkg/logger"
)

const (
	listCachePrefix = "products:list:"
	listCacheTTL    = 5 * time.Minute
	minSKULength    = 3
)

type productUseCase struct {
	repo   product.Repository
	cache  cache.Store
	logger logger.ZapLogger
}

// NewProductUseCase returns the product use case. store may be nil, in which
// case listings are never cached.
func NewProductUseCase(repo product.Repository, store cache.Store, log logger.ZapLogger) product.UseCase {
	return &productUseCase{
		repo:   repo,
		cache:  store,
		logger: log,
	}
}

func (uc *productUseCase) AddProduct(ctx context.Context, input *dto.ProductInput) (*model.Product, error) {
	p, err := buildProduct(input)
	if err != nil {
		return nil, err
	}

	existing, err := uc.repo.FindBySKU(ctx, p.SKU)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperror.AlreadyExists("SKU", p.SKU)
	}

	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	if err := uc.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	uc.InvalidateCache(ctx)

	uc.logger.Info("product added", zap.String("sku", p.SKU))
	return p, nil
}

func (uc *productUseCase) UpdateProduct(ctx context.Context, input *dto.ProductInput) (*model.Product, error) {
	p, err := buildProduct(input)
	if err != nil {
		return nil, err
	}

	existing, err := uc.repo.FindBySKU(ctx, p.SKU)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, apperror.NotFound("SKU", p.SKU)
	}
	return uc.replace(ctx, existing, p)
}

func (uc *productUseCase) UpsertProduct(ctx context.Context, input *dto.ProductInput) (*model.Product, bool, error) {
	p, err := buildProduct(input)
	if err != nil {
		return nil, false, err
	}

	existing, err := uc.repo.FindBySKU(ctx, p.SKU)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		p, err = uc.AddProduct(ctx, input)
		return p, err == nil, err
	}

	p, err = uc.replace(ctx, existing, p)
	return p, false, err
}

func (uc *productUseCase) replace(ctx context.Context, existing, p *model.Product) (*model.Product, error) {
	p.CreatedAt = existing.CreatedAt
	if existing.SameAttributes(p) {
		return existing, nil
	}
	p.UpdatedAt = time.Now().UTC()

	if err := uc.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	uc.InvalidateCache(ctx)
	return p, nil
}

func (uc *productUseCase) GetProduct(ctx context.Context, sku string) (*model.Product, error) {
	sku = model.NormalizeSKU(sku)
	p, err := uc.repo.FindBySKU(ctx, sku)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperror.NotFound("SKU", sku)
	}
	return p, nil
}

type cachedList struct {
	Products []model.Product
	Count    int
}

func (uc *productUseCase) ListProducts(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, int, error) {
	cacheKey, err := generateCacheKey(filters)
	if err == nil && uc.cache != nil {
		if val, ok, err := uc.cache.Get(ctx, cacheKey); err == nil && ok {
			var result cachedList
			if err := json.Unmarshal([]byte(val), &result); err == nil {
				return result.Products, result.Count, nil
			}
		} else if err != nil {
			uc.logger.Warn("product list cache read failed", zap.Error(err))
		}
	}

	products, count, err := uc.repo.FindAll(ctx, filters)
	if err != nil {
		return nil, 0, err
	}

	if cacheKey != "" && uc.cache != nil {
		if data, err := json.Marshal(cachedList{Products: products, Count: count}); err == nil {
			if err := uc.cache.Set(ctx, cacheKey, data, listCacheTTL); err != nil {
				uc.logger.Warn("product list cache write failed", zap.Error(err))
			}
		}
	}
	return products, count, nil
}

func (uc *productUseCase) DeleteProduct(ctx context.Context, sku string) error {
	sku = model.NormalizeSKU(sku)
	deleted, err := uc.repo.Delete(ctx, sku)
	if err != nil {
		return err
	}
	if !deleted {
		return apperror.NotFound("SKU", sku)
	}
	uc.InvalidateCache(ctx)

	uc.logger.Info("product deleted", zap.String("sku", sku))
	return nil
}

func (uc *productUseCase) InvalidateCache(ctx context.Context) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.DeletePattern(ctx, listCachePrefix+"*"); err != nil {
		uc.logger.Warn("product list cache invalidation failed", zap.Error(err))
	}
}

func generateCacheKey(filters *dto.ProductFilters) (string, error) {
	data, err := json.Marshal(filters)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%x", listCachePrefix, md5.Sum(data)), nil
}

func buildProduct(input *dto.ProductInput) (*model.Product, error) {
	sku := model.NormalizeSKU(input.SKU)
	if utf8.RuneCountInString(sku) < minSKULength {
		return nil, apperror.InvalidArgument("sku", fmt.Sprintf("must be at least %d characters", minSKULength))
	}
	if strings.TrimSpace(input.ProductName) == "" {
		return nil, apperror.InvalidArgument("product_name", "is required")
	}
	if input.Cost.IsNegative() {
		return nil, apperror.InvalidArgument("cost", "cannot be negative")
	}
	if input.Price.IsNegative() {
		return nil, apperror.InvalidArgument("price", "cannot be negative")
	}

	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}

	return &model.Product{
		SKU:         sku,
		BaseSKU:     model.NormalizeSKU(input.BaseSKU),
		ProductName: strings.TrimSpace(input.ProductName),
		ItemName:    strings.TrimSpace(input.ItemName),
		Category:    strings.TrimSpace(input.Category),
		Color:       strings.TrimSpace(input.Color),
		Size:        strings.TrimSpace(input.Size),
		Vendor:      strings.TrimSpace(input.Vendor),
		Cost:        input.Cost,
		Price:       input.Price,
		IsActive:    active,
	}, nil
}
