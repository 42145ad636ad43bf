package handler

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/fekuna/ronary-inventory-service/internal/apperror"
	"github.com/fekuna/ronary-inventory-service/internal/mastersync"
	"github.com/fekuna/ronary-inventory-service/internal/model"
	"github.com/fekuna/ronary-inventory-service/pkg/i18n"
	"github.com/fekuna/ronary-inventory-service/pkg/logger"
	"github.com/fekuna/ronary-inventory-service/pkg/middleware"
	"github.com/fekuna/ronary-inventory-service/pkg/rpc"
)

type stubUseCase struct {
	last *mastersync.Status
}

func (s *stubUseCase) Sync(context.Context) *mastersync.Status {
	s.last = &mastersync.Status{
		RunID:           "run-1",
		Phase:           model.SyncFailed,
		FailedPhase:     model.SyncParsing,
		Message:         "missing item_sku",
		DetectedColumns: []string{"nama", "warna"},
		StartedAt:       time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC),
		FinishedAt:      time.Date(2024, 5, 1, 8, 0, 1, 0, time.UTC),
	}
	return s.last
}

func (s *stubUseCase) LastStatus(context.Context) (*mastersync.Status, error) {
	if s.last == nil {
		return nil, apperror.NotFound("Sync run", "latest")
	}
	return s.last, nil
}

func dial(t *testing.T) *grpc.ClientConn {
	t.Helper()
	tr, err := i18n.New("en")
	require.NoError(t, err)
	log := logger.NewNop()

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(middleware.ContextInterceptor(), middleware.RecoveryInterceptor(log)))
	NewSyncHandler(&stubUseCase{}, tr, log).Register(srv)
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestSyncOverGRPC(t *testing.T) {
	ctx := context.Background()
	conn := dial(t)

	_, err := rpc.Invoke(ctx, conn, ServiceName, "LastSyncStatus", map[string]interface{}{})
	assert.Equal(t, codes.NotFound, status.Code(err))

	out, err := rpc.Invoke(ctx, conn, ServiceName, "SyncNow", map[string]interface{}{})
	require.NoError(t, err, "a failed run is reported in the body")
	got := out.AsMap()
	assert.Equal(t, false, got["ok"])
	assert.Equal(t, "FAILED", got["phase"])
	assert.Equal(t, "PARSING", got["failed_phase"])
	assert.Equal(t, []interface{}{"nama", "warna"}, got["detected_columns"])
	assert.Equal(t, "2024-05-01T08:00:00Z", got["started_at"])

	out, err = rpc.Invoke(ctx, conn, ServiceName, "LastSyncStatus", map[string]interface{}{})
	require.NoError(t, err)
	assert.Equal(t, "run-1", out.AsMap()["run_id"])
}
