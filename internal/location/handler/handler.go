package handler

import (
	"context"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/fekuna/ronary-inventory-service/internal/apperror"
	"github.com/fekuna/ronary-inventory-service/internal/location"
	"github.com/fekuna/ronary-inventory-service/internal/location/dto"
	"github.com/fekuna/ronary-inventory-service/pkg/i18n"
	"github.com/fekuna/ronary-inventory-service/pkg/logger"
	"github.com/fekuna/ronary-inventory-service/pkg/rpc"
)

const ServiceName = "ronary.inventory.v1.LocationService"

type LocationServer interface {
	AddLocation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListLocations(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	DeleteLocation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var _ LocationServer = (*LocationHandler)(nil)

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LocationServer)(nil),
	Methods: []grpc.MethodDesc{
		rpc.Method[*LocationHandler](ServiceName, "AddLocation", (*LocationHandler).AddLocation),
		rpc.Method[*LocationHandler](ServiceName, "ListLocations", (*LocationHandler).ListLocations),
		rpc.Method[*LocationHandler](ServiceName, "DeleteLocation", (*LocationHandler).DeleteLocation),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ronary/inventory/v1/location.proto",
}

type LocationHandler struct {
	uc     location.UseCase
	tr     *i18n.Translator
	logger logger.ZapLogger
}

func NewLocationHandler(uc location.UseCase, tr *i18n.Translator, log logger.ZapLogger) *LocationHandler {
	return &LocationHandler{
		uc:     uc,
		tr:     tr,
		logger: log,
	}
}

func (h *LocationHandler) Register(s grpc.ServiceRegistrar) {
	s.RegisterService(&ServiceDesc, h)
}

func (h *LocationHandler) AddLocation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	loc, created, err := h.uc.AddLocation(ctx, rpc.String(req, "location"))
	if err != nil {
		return nil, h.error(ctx, "failed to add location", err)
	}
	return rpc.Response(map[string]interface{}{
		"location": loc.Location,
		"created":  created,
	})
}

func (h *LocationHandler) ListLocations(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	items, err := h.uc.ListLocations(ctx)
	if err != nil {
		return nil, h.error(ctx, "failed to list locations", err)
	}
	return rpc.Response(map[string]interface{}{
		"locations": rpc.List(items, mapSummary),
		"total":     len(items),
	})
}

func (h *LocationHandler) DeleteLocation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := h.uc.DeleteLocation(ctx, rpc.String(req, "location")); err != nil {
		return nil, h.error(ctx, "failed to delete location", err)
	}
	return rpc.Response(map[string]interface{}{})
}

func (h *LocationHandler) error(ctx context.Context, msg string, err error) error {
	if apperror.Code(err) == codes.Internal {
		h.logger.Error(msg, zap.Error(err))
	}
	return apperror.ToStatus(ctx, h.tr, err)
}

func mapSummary(s dto.LocationSummary) map[string]interface{} {
	return map[string]interface{}{
		"location":  s.Location,
		"skus":      s.SKUs,
		"total_qty": s.TotalQty,
	}
}
