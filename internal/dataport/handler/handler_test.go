package handler

import (
	"context"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/fekuna/ronary-inventory-service/internal/dataport/usecase"
	invrepo "github.com/fekuna/ronary-inventory-service/internal/inventory/repository"
	invuc "github.com/fekuna/ronary-inventory-service/internal/inventory/usecase"
	locrepo "github.com/fekuna/ronary-inventory-service/internal/location/repository"
	locuc "github.com/fekuna/ronary-inventory-service/internal/location/usecase"
	prodrepo "github.com/fekuna/ronary-inventory-service/internal/product/repository"
	produc "github.com/fekuna/ronary-inventory-service/internal/product/usecase"
	"github.com/fekuna/ronary-inventory-service/pkg/cache"
	"github.com/fekuna/ronary-inventory-service/pkg/database/dbtest"
	"github.com/fekuna/ronary-inventory-service/pkg/i18n"
	"github.com/fekuna/ronary-inventory-service/pkg/logger"
	"github.com/fekuna/ronary-inventory-service/pkg/middleware"
	"github.com/fekuna/ronary-inventory-service/pkg/rpc"
)

func dial(t *testing.T) *grpc.ClientConn {
	t.Helper()
	db := dbtest.NewSQLite(t)
	tr, err := i18n.New("en")
	require.NoError(t, err)
	log := logger.NewNop()

	uc := usecase.NewDataPortUseCase(
		produc.NewProductUseCase(prodrepo.NewSQLRepository(db), nil, log),
		invuc.NewInventoryUseCase(invrepo.NewSQLRepository(db), cache.NewLocalLocker(), invuc.Options{DefaultLocation: "GUDANG"}, log),
		locuc.NewLocationUseCase(locrepo.NewSQLRepository(db), "GUDANG", log),
		log,
	)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(middleware.ContextInterceptor(), middleware.RecoveryInterceptor(log)))
	NewDataHandler(uc, tr, log).Register(srv)
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

func TestImportExportOverGRPC(t *testing.T) {
	ctx := context.Background()
	conn := dial(t)

	out, err := rpc.Invoke(ctx, conn, ServiceName, "ImportCSV", map[string]interface{}{
		"kind": "products",
		"csv":  "sku,product_name,price\nKAOS-01,Kaos,99000\nX,,1\n",
	})
	require.NoError(t, err)
	got := out.AsMap()
	assert.Equal(t, float64(1), got["inserted"])
	assert.Len(t, got["errors"], 1)

	_, err = rpc.Invoke(ctx, conn, ServiceName, "ImportCSV", map[string]interface{}{
		"kind": "stock",
		"csv":  "sku,location,qty\nKAOS-01,GUDANG,7\n",
	})
	require.NoError(t, err)

	out, err = rpc.Invoke(ctx, conn, ServiceName, "ExportCSV", map[string]interface{}{"kind": "Stock"})
	require.NoError(t, err)
	assert.Equal(t, "stock", out.AsMap()["kind"])
	assert.True(t, strings.HasPrefix(out.AsMap()["csv"].(string), "sku,location,product_name,qty"))
	assert.Contains(t, out.AsMap()["csv"], "KAOS-01,GUDANG,Kaos,7,0,")

	_, err = rpc.Invoke(ctx, conn, ServiceName, "ImportCSV", map[string]interface{}{"kind": "movements", "csv": "id\n"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = rpc.Invoke(ctx, conn, ServiceName, "ExportCSV", map[string]interface{}{"kind": "orders"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = rpc.Invoke(ctx, conn, ServiceName, "ImportCSV", map[string]interface{}{"kind": "stock", "csv": "sku\nA\n"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}
