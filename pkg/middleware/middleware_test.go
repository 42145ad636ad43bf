package middleware

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/fekuna/ronary-inventory-service/pkg/logger"
)

var info = &grpc.UnaryServerInfo{FullMethod: "/ronary.inventory.v1.InventoryService/StockOut"}

func TestContextInterceptorLocale(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("accept-language", "id-ID"))

	var got string
	_, err := ContextInterceptor()(ctx, nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		got = LocaleFromContext(ctx)
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "id-ID", got)

	ctx = metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-lang", "en", "accept-language", "id"))
	_, _ = ContextInterceptor()(ctx, nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		got = LocaleFromContext(ctx)
		return nil, nil
	})
	assert.Equal(t, "en", got)
}

func TestRecoveryInterceptor(t *testing.T) {
	_, err := RecoveryInterceptor(logger.NewNop())(context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		panic("boom")
	})
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestUnaryInterceptorsRecoverOutermost(t *testing.T) {
	chain := UnaryInterceptors(logger.NewNop())
	require.Len(t, chain, 3)

	// a panic raised by any later interceptor still reaches the first one
	_, err := chain[0](context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return chain[1](ctx, req, info, func(ctx context.Context, req interface{}) (interface{}, error) {
			panic("interceptor bug")
		})
	})
	assert.Equal(t, codes.Internal, status.Code(err))

	var got string
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-lang", "id"))
	_, err = chain[0](ctx, nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return chain[1](ctx, req, info, func(ctx context.Context, req interface{}) (interface{}, error) {
			return chain[2](ctx, req, info, func(ctx context.Context, req interface{}) (interface{}, error) {
				got = LocaleFromContext(ctx)
				return nil, nil
			})
		})
	})
	require.NoError(t, err)
	assert.Equal(t, "id", got)
}
