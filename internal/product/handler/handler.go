package handler

import (
	"context"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/fekuna/ronary-inventory-service/internal/apperror"
	"github.com/fekuna/ronary-inventory-service/internal/model"
	"github.com/fekuna/ronary-inventory-service/internal/product"
	"github.com/fekuna/ronary-inventory-service/internal/product/dto"
	"github.com/fekuna/ronary-inventory-service/pkg/i18n"
	"github.com/fekuna/ronary-inventory-service/pkg/logger"
	"github.com/fekuna/ronary-inventory-service/pkg/rpc"
)

const ServiceName = "ronary.inventory.v1.ProductService"

type ProductServer interface {
	AddProduct(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	UpdateProduct(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetProduct(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListProducts(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	DeleteProduct(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var _ ProductServer = (*ProductHandler)(nil)

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ProductServer)(nil),
	Methods: []grpc.MethodDesc{
		rpc.Method[*ProductHandler](ServiceName, "AddProduct", (*ProductHandler).AddProduct),
		rpc.Method[*ProductHandler](ServiceName, "UpdateProduct", (*ProductHandler).UpdateProduct),
		rpc.Method[*ProductHandler](ServiceName, "GetProduct", (*ProductHandler).GetProduct),
		rpc.Method[*ProductHandler](ServiceName, "ListProducts", (*ProductHandler).ListProducts),
		rpc.Method[*ProductHandler](ServiceName, "DeleteProduct", (*ProductHandler).DeleteProduct),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ronary/inventory/v1/product.proto",
}

type ProductHandler struct {
	uc     product.UseCase
	tr     *i18n.Translator
	logger logger.ZapLogger
}

func NewProductHandler(uc product.UseCase, tr *i18n.Translator, log logger.ZapLogger) *ProductHandler {
	return &ProductHandler{
		uc:     uc,
		tr:     tr,
		logger: log,
	}
}

func (h *ProductHandler) Register(s grpc.ServiceRegistrar) {
	s.RegisterService(&ServiceDesc, h)
}

func (h *ProductHandler) AddProduct(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	input, err := parseInput(req)
	if err != nil {
		return nil, err
	}

	p, err := h.uc.AddProduct(ctx, input)
	if err != nil {
		return nil, h.error(ctx, "failed to add product", err)
	}
	return rpc.Response(map[string]interface{}{"product": MapProduct(p)})
}

func (h *ProductHandler) UpdateProduct(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	input, err := parseInput(req)
	if err != nil {
		return nil, err
	}

	p, err := h.uc.UpdateProduct(ctx, input)
	if err != nil {
		return nil, h.error(ctx, "failed to update product", err)
	}
	return rpc.Response(map[string]interface{}{"product": MapProduct(p)})
}

func (h *ProductHandler) GetProduct(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	p, err := h.uc.GetProduct(ctx, rpc.String(req, "sku"))
	if err != nil {
		return nil, h.error(ctx, "failed to get product", err)
	}
	return rpc.Response(map[string]interface{}{"product": MapProduct(p)})
}

func (h *ProductHandler) ListProducts(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	page, err := rpc.Int(req, "page")
	if err != nil {
		return nil, err
	}
	pageSize, err := rpc.Int(req, "page_size")
	if err != nil {
		return nil, err
	}

	items, total, err := h.uc.ListProducts(ctx, &dto.ProductFilters{
		ActiveOnly: rpc.Bool(req, "active_only", false),
		Category:   rpc.String(req, "category"),
		Search:     rpc.String(req, "search"),
		Page:       int(page),
		PageSize:   int(pageSize),
	})
	if err != nil {
		return nil, h.error(ctx, "failed to list products", err)
	}

	return rpc.Response(map[string]interface{}{
		"products": rpc.List(items, func(p model.Product) map[string]interface{} { return MapProduct(&p) }),
		"total":    total,
	})
}

func (h *ProductHandler) DeleteProduct(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := h.uc.DeleteProduct(ctx, rpc.String(req, "sku")); err != nil {
		return nil, h.error(ctx, "failed to delete product", err)
	}
	return rpc.Response(map[string]interface{}{})
}

func (h *ProductHandler) error(ctx context.Context, msg string, err error) error {
	if apperror.Code(err) == codes.Internal {
		h.logger.Error(msg, zap.Error(err))
	}
	return apperror.ToStatus(ctx, h.tr, err)
}

func parseInput(req *structpb.Struct) (*dto.ProductInput, error) {
	cost, err := rpc.Decimal(req, "cost")
	if err != nil {
		return nil, err
	}
	price, err := rpc.Decimal(req, "price")
	if err != nil {
		return nil, err
	}

	input := &dto.ProductInput{
		SKU:         rpc.String(req, "sku"),
		BaseSKU:     rpc.String(req, "base_sku"),
		ProductName: rpc.String(req, "product_name"),
		ItemName:    rpc.String(req, "item_name"),
		Category:    rpc.String(req, "category"),
		Color:       rpc.String(req, "color"),
		Size:        rpc.String(req, "size"),
		Vendor:      rpc.String(req, "vendor"),
		Cost:        cost,
		Price:       price,
	}
	if rpc.Has(req, "is_active") {
		active := rpc.Bool(req, "is_active", true)
		input.IsActive = &active
	}
	return input, nil
}

// MapProduct renders p for a response. Money goes out as decimal strings.
func MapProduct(p *model.Product) map[string]interface{} {
	if p == nil {
		return nil
	}
	return map[string]interface{}{
		"sku":          p.SKU,
		"base_sku":     p.BaseSKU,
		"product_name": p.ProductName,
		"item_name":    p.ItemName,
		"category":     p.Category,
		"color":        p.Color,
		"size":         p.Size,
		"vendor":       p.Vendor,
		"cost":         p.Cost.String(),
		"price":        p.Price.String(),
		"profit":       p.Profit().String(),
		"is_active":    p.IsActive,
		"created_at":   rpc.Time(p.CreatedAt),
		"updated_at":   rpc.Time(p.UpdatedAt),
	}
}
