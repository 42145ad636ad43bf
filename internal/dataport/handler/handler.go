package handler

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/fekuna/ronary-inventory-service/internal/apperror"
	"github.com/fekuna/ronary-inventory-service/internal/dataport"
	"github.com/fekuna/ronary-inventory-service/pkg/i18n"
	"github.com/fekuna/ronary-inventory-service/pkg/logger"
	"github.com/fekuna/ronary-inventory-service/pkg/rpc"
)

const ServiceName = "ronary.inventory.v1.DataService"

type DataServer interface {
	ExportCSV(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ImportCSV(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var _ DataServer = (*DataHandler)(nil)

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DataServer)(nil),
	Methods: []grpc.MethodDesc{
		rpc.Method[*DataHandler](ServiceName, "ExportCSV", (*DataHandler).ExportCSV),
		rpc.Method[*DataHandler](ServiceName, "ImportCSV", (*DataHandler).ImportCSV),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ronary/inventory/v1/data.proto",
}

type DataHandler struct {
	uc     dataport.UseCase
	tr     *i18n.Translator
	logger logger.ZapLogger
}

func NewDataHandler(uc dataport.UseCase, tr *i18n.Translator, log logger.ZapLogger) *DataHandler {
	return &DataHandler{
		uc:     uc,
		tr:     tr,
		logger: log,
	}
}

func (h *DataHandler) Register(s grpc.ServiceRegistrar) {
	s.RegisterService(&ServiceDesc, h)
}

func (h *DataHandler) ExportCSV(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	kind, err := dataport.ParseKind(rpc.String(req, "kind"))
	if err != nil {
		return nil, h.error(ctx, "invalid export kind", err)
	}

	var sb strings.Builder
	if err := h.uc.ExportCSV(ctx, kind, &sb); err != nil {
		return nil, h.error(ctx, "failed to export csv", err)
	}
	return rpc.Response(map[string]interface{}{
		"kind": string(kind),
		"csv":  sb.String(),
	})
}

// ImportCSV accepts kind "products" or "stock".
func (h *DataHandler) ImportCSV(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	kind, err := dataport.ParseKind(rpc.String(req, "kind"))
	if err != nil {
		return nil, h.error(ctx, "invalid import kind", err)
	}
	body := strings.NewReader(rpc.String(req, "csv"))

	var res *dataport.ImportResult
	switch kind {
	case dataport.KindProducts:
		res, err = h.uc.ImportProducts(ctx, body)
	case dataport.KindStock:
		res, err = h.uc.ImportStock(ctx, body)
	default:
		err = apperror.InvalidArgument("kind", "movements cannot be imported")
	}
	if err != nil {
		return nil, h.error(ctx, "failed to import csv", err)
	}

	errs := make([]interface{}, len(res.Errors))
	for i, e := range res.Errors {
		errs[i] = e
	}
	return rpc.Response(map[string]interface{}{
		"inserted": res.Inserted,
		"updated":  res.Updated,
		"applied":  res.Applied,
		"errors":   errs,
	})
}

func (h *DataHandler) error(ctx context.Context, msg string, err error) error {
	if apperror.Code(err) == codes.Internal {
		h.logger.Error(msg, zap.Error(err))
	}
	return apperror.ToStatus(ctx, h.tr, err)
}
