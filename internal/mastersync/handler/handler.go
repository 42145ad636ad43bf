package handler

import (
	"context"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/fekuna/ronary-inventory-service/internal/apperror"
	"github.com/fekuna/ronary-inventory-service/internal/mastersync"
	"github.com/fekuna/ronary-inventory-service/pkg/i18n"
	"github.com/fekuna/ronary-inventory-service/pkg/logger"
	"github.com/fekuna/ronary-inventory-service/pkg/rpc"
)

const ServiceName = "ronary.inventory.v1.SyncService"

type SyncServer interface {
	SyncNow(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	LastSyncStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var _ SyncServer = (*SyncHandler)(nil)

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SyncServer)(nil),
	Methods: []grpc.MethodDesc{
		rpc.Method[*SyncHandler](ServiceName, "SyncNow", (*SyncHandler).SyncNow),
		rpc.Method[*SyncHandler](ServiceName, "LastSyncStatus", (*SyncHandler).LastSyncStatus),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ronary/inventory/v1/sync.proto",
}

type SyncHandler struct {
	uc     mastersync.UseCase
	tr     *i18n.Translator
	logger logger.ZapLogger
}

func NewSyncHandler(uc mastersync.UseCase, tr *i18n.Translator, log logger.ZapLogger) *SyncHandler {
	return &SyncHandler{
		uc:     uc,
		tr:     tr,
		logger: log,
	}
}

func (h *SyncHandler) Register(s grpc.ServiceRegistrar) {
	s.RegisterService(&ServiceDesc, h)
}

// SyncNow runs a sync and reports its outcome. A failed run is still a
// successful call; callers read "ok".
func (h *SyncHandler) SyncNow(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return rpc.Response(mapStatus(h.uc.Sync(ctx)))
}

func (h *SyncHandler) LastSyncStatus(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	st, err := h.uc.LastStatus(ctx)
	if err != nil {
		return nil, h.error(ctx, "failed to read last sync status", err)
	}
	return rpc.Response(mapStatus(st))
}

func (h *SyncHandler) error(ctx context.Context, msg string, err error) error {
	if apperror.Code(err) == codes.Internal {
		h.logger.Error(msg, zap.Error(err))
	}
	return apperror.ToStatus(ctx, h.tr, err)
}

func mapStatus(st *mastersync.Status) map[string]interface{} {
	return map[string]interface{}{
		"run_id":           st.RunID,
		"ok":               st.OK,
		"phase":            string(st.Phase),
		"failed_phase":     string(st.FailedPhase),
		"message":          st.Message,
		"inserted":         st.Inserted,
		"updated":          st.Updated,
		"unchanged":        st.Unchanged,
		"skipped":          st.Skipped,
		"row_errors":       stringList(st.RowErrors),
		"detected_columns": stringList(st.DetectedColumns),
		"started_at":       rpc.Time(st.StartedAt),
		"finished_at":      rpc.Time(st.FinishedAt),
	}
}

func stringList(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
