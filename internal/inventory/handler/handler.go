package handler

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/fekuna/ronary-inventory-service/internal/apperror"
	"github.com/fekuna/ronary-inventory-service/internal/inventory"
	"github.com/fekuna/ronary-inventory-service/internal/inventory/dto"
	"github.com/fekuna/ronary-inventory-service/internal/model"
	"github.com/fekuna/ronary-inventory-service/pkg/i18n"
	"github.com/fekuna/ronary-inventory-service/pkg/logger"
	"github.com/fekuna/ronary-inventory-service/pkg/rpc"
)

const ServiceName = "ronary.inventory.v1.InventoryService"

type InventoryServer interface {
	StockIn(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	StockOut(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	StockAdjust(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	StockTransfer(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	SetLowStockThreshold(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetStock(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListStock(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListLowStock(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListMovements(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var _ InventoryServer = (*InventoryHandler)(nil)

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*InventoryServer)(nil),
	Methods: []grpc.MethodDesc{
		rpc.Method[*InventoryHandler](ServiceName, "StockIn", (*InventoryHandler).StockIn),
		rpc.Method[*InventoryHandler](ServiceName, "StockOut", (*InventoryHandler).StockOut),
		rpc.Method[*InventoryHandler](ServiceName, "StockAdjust", (*InventoryHandler).StockAdjust),
		rpc.Method[*InventoryHandler](ServiceName, "StockTransfer", (*InventoryHandler).StockTransfer),
		rpc.Method[*InventoryHandler](ServiceName, "SetLowStockThreshold", (*InventoryHandler).SetLowStockThreshold),
		rpc.Method[*InventoryHandler](ServiceName, "GetStock", (*InventoryHandler).GetStock),
		rpc.Method[*InventoryHandler](ServiceName, "ListStock", (*InventoryHandler).ListStock),
		rpc.Method[*InventoryHandler](ServiceName, "ListLowStock", (*InventoryHandler).ListLowStock),
		rpc.Method[*InventoryHandler](ServiceName, "ListMovements", (*InventoryHandler).ListMovements),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ronary/inventory/v1/inventory.proto",
}

type InventoryHandler struct {
	uc     inventory.UseCase
	tr     *i18n.Translator
	logger logger.ZapLogger
}

func NewInventoryHandler(uc inventory.UseCase, tr *i18n.Translator, log logger.ZapLogger) *InventoryHandler {
	return &InventoryHandler{
		uc:     uc,
		tr:     tr,
		logger: log,
	}
}

func (h *InventoryHandler) Register(s grpc.ServiceRegistrar) {
	s.RegisterService(&ServiceDesc, h)
}

func (h *InventoryHandler) StockIn(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	input, err := movementInput(req)
	if err != nil {
		return nil, err
	}
	s, err := h.uc.ApplyIn(ctx, input)
	if err != nil {
		return nil, h.error(ctx, "failed to apply stock in", err)
	}
	return rpc.Response(map[string]interface{}{"stock": mapStock(s)})
}

func (h *InventoryHandler) StockOut(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	input, err := movementInput(req)
	if err != nil {
		return nil, err
	}
	s, err := h.uc.ApplyOut(ctx, input)
	if err != nil {
		return nil, h.error(ctx, "failed to apply stock out", err)
	}
	return rpc.Response(map[string]interface{}{"stock": mapStock(s)})
}

func (h *InventoryHandler) StockAdjust(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	newQty, err := rpc.Int(req, "new_qty")
	if err != nil {
		return nil, err
	}
	s, err := h.uc.ApplyAdjust(ctx, &dto.AdjustInput{
		SKU:      rpc.String(req, "sku"),
		Location: rpc.String(req, "location"),
		NewQty:   newQty,
		Reason:   rpc.String(req, "reason"),
		Notes:    rpc.String(req, "notes"),
	})
	if err != nil {
		return nil, h.error(ctx, "failed to adjust stock", err)
	}
	return rpc.Response(map[string]interface{}{"stock": mapStock(s)})
}

func (h *InventoryHandler) StockTransfer(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	qty, err := rpc.Int(req, "qty")
	if err != nil {
		return nil, err
	}
	res, err := h.uc.ApplyTransfer(ctx, &dto.TransferInput{
		SKU:    rpc.String(req, "sku"),
		From:   rpc.String(req, "from"),
		To:     rpc.String(req, "to"),
		Qty:    qty,
		Reason: rpc.String(req, "reason"),
		Notes:  rpc.String(req, "notes"),
	})
	if err != nil {
		return nil, h.error(ctx, "failed to transfer stock", err)
	}
	return rpc.Response(map[string]interface{}{
		"from":        mapStock(res.From),
		"to":          mapStock(res.To),
		"movement_id": res.MovementID,
	})
}

func (h *InventoryHandler) SetLowStockThreshold(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	threshold, err := rpc.Int(req, "threshold")
	if err != nil {
		return nil, err
	}
	s, err := h.uc.SetLowStockThreshold(ctx, rpc.String(req, "sku"), rpc.String(req, "location"), threshold)
	if err != nil {
		return nil, h.error(ctx, "failed to set threshold", err)
	}
	return rpc.Response(map[string]interface{}{"stock": mapStock(s)})
}

func (h *InventoryHandler) GetStock(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	s, err := h.uc.GetStock(ctx, rpc.String(req, "sku"), rpc.String(req, "location"))
	if err != nil {
		return nil, h.error(ctx, "failed to get stock", err)
	}
	return rpc.Response(map[string]interface{}{"stock": mapStock(s)})
}

func (h *InventoryHandler) ListStock(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	items, err := h.uc.ListStock(ctx, &dto.StockFilters{
		SKU:      rpc.String(req, "sku"),
		Location: rpc.String(req, "location"),
		Search:   rpc.String(req, "search"),
	})
	if err != nil {
		return nil, h.error(ctx, "failed to list stock", err)
	}
	return rpc.Response(map[string]interface{}{
		"items": rpc.List(items, mapStockView),
		"total": len(items),
	})
}

func (h *InventoryHandler) ListLowStock(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	items, err := h.uc.ListLowStock(ctx, rpc.String(req, "location"))
	if err != nil {
		return nil, h.error(ctx, "failed to list low stock", err)
	}
	return rpc.Response(map[string]interface{}{
		"items": rpc.List(items, mapStockView),
		"total": len(items),
	})
}

func (h *InventoryHandler) ListMovements(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	limit, err := rpc.Int(req, "limit")
	if err != nil {
		return nil, err
	}
	start, err := rpc.TimeField(req, "start_date")
	if err != nil {
		return nil, err
	}
	end, err := rpc.TimeField(req, "end_date")
	if err != nil {
		return nil, err
	}

	items, err := h.uc.ListMovements(ctx, &dto.MovementFilters{
		SKU:          rpc.String(req, "sku"),
		Location:     rpc.String(req, "location"),
		MovementType: model.MovementType(strings.ToUpper(rpc.String(req, "movement_type"))),
		StartDate:    start,
		EndDate:      end,
		Limit:        int(limit),
	})
	if err != nil {
		return nil, h.error(ctx, "failed to list movements", err)
	}
	return rpc.Response(map[string]interface{}{
		"movements": rpc.List(items, mapMovement),
		"total":     len(items),
	})
}

func (h *InventoryHandler) error(ctx context.Context, msg string, err error) error {
	if apperror.Code(err) == codes.Internal {
		h.logger.Error(msg, zap.Error(err))
	}
	return apperror.ToStatus(ctx, h.tr, err)
}

func movementInput(req *structpb.Struct) (*dto.MovementInput, error) {
	qty, err := rpc.Int(req, "qty")
	if err != nil {
		return nil, err
	}
	return &dto.MovementInput{
		SKU:      rpc.String(req, "sku"),
		Location: rpc.String(req, "location"),
		Qty:      qty,
		Reason:   rpc.String(req, "reason"),
		Notes:    rpc.String(req, "notes"),
	}, nil
}

func mapStock(s *model.Stock) map[string]interface{} {
	if s == nil {
		return nil
	}
	return map[string]interface{}{
		"sku":                 s.SKU,
		"location":            s.Location,
		"qty":                 s.Qty,
		"low_stock_threshold": s.LowStockThreshold,
		"is_low":              s.IsLow(),
		"updated_at":          rpc.Time(s.UpdatedAt),
	}
}

func mapStockView(v model.StockView) map[string]interface{} {
	m := mapStock(&v.Stock)
	m["product_name"] = v.ProductName
	m["category"] = v.Category
	m["color"] = v.Color
	m["size"] = v.Size
	return m
}

func mapMovement(m model.Movement) map[string]interface{} {
	out := map[string]interface{}{
		"id":            m.ID,
		"ts":            rpc.Time(m.Ts),
		"sku":           m.SKU,
		"movement_type": string(m.MovementType),
		"qty":           m.Qty,
		"reason":        m.Reason,
		"notes":         m.Notes,
		"location_from": nil,
		"location_to":   nil,
	}
	if m.LocationFrom != nil {
		out["location_from"] = *m.LocationFrom
	}
	if m.LocationTo != nil {
		out["location_to"] = *m.LocationTo
	}
	return out
}
