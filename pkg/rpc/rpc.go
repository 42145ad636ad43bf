// Package rpc registers hand-described gRPC services whose request and
// response messages are google.protobuf.Struct values.
package rpc

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Handler is the shape every service method implements.
type Handler[S any] func(srv S, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

// Method builds the MethodDesc for one unary call of service.
func Method[S any](service, name string, h Handler[S]) grpc.MethodDesc {
	fullMethod := FullMethod(service, name)
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return h(srv.(S), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return h(srv.(S), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func FullMethod(service, name string) string {
	return "/" + service + "/" + name
}

// Invoke calls a struct-message method on conn. Used by clients and tests.
func Invoke(ctx context.Context, conn grpc.ClientConnInterface, service, name string, req map[string]interface{}) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := conn.Invoke(ctx, FullMethod(service, name), in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Response wraps a plain map into a Struct, reporting encoding failures as
// codes.Internal.
func Response(m map[string]interface{}) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	return s, nil
}

// List converts items into the []interface{} form structpb accepts.
func List[T any](items []T, fn func(T) map[string]interface{}) []interface{} {
	out := make([]interface{}, len(items))
	for i, item := range items {
		out[i] = fn(item)
	}
	return out
}

func Time(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func String(req *structpb.Struct, key string) string {
	return req.GetFields()[key].GetStringValue()
}

func Has(req *structpb.Struct, key string) bool {
	_, ok := req.GetFields()[key]
	return ok
}

// Int reads a number field. Numeric strings are accepted as well.
func Int(req *structpb.Struct, key string) (int64, error) {
	v, ok := req.GetFields()[key]
	if !ok {
		return 0, nil
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		if k.NumberValue != float64(int64(k.NumberValue)) {
			return 0, status.Errorf(codes.InvalidArgument, "%s must be a whole number", key)
		}
		return int64(k.NumberValue), nil
	case *structpb.Value_StringValue:
		d, err := decimal.NewFromString(k.StringValue)
		if err != nil || !d.IsInteger() {
			return 0, status.Errorf(codes.InvalidArgument, "%s must be a whole number", key)
		}
		return d.IntPart(), nil
	case *structpb.Value_NullValue:
		return 0, nil
	default:
		return 0, status.Errorf(codes.InvalidArgument, "%s must be a number", key)
	}
}

func Bool(req *structpb.Struct, key string, def bool) bool {
	v, ok := req.GetFields()[key]
	if !ok {
		return def
	}
	if b, ok := v.GetKind().(*structpb.Value_BoolValue); ok {
		return b.BoolValue
	}
	return def
}

// Decimal reads money values sent either as numbers or as decimal strings.
func Decimal(req *structpb.Struct, key string) (decimal.Decimal, error) {
	v, ok := req.GetFields()[key]
	if !ok {
		return decimal.Zero, nil
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		return decimal.NewFromFloat(k.NumberValue), nil
	case *structpb.Value_StringValue:
		if k.StringValue == "" {
			return decimal.Zero, nil
		}
		d, err := decimal.NewFromString(k.StringValue)
		if err != nil {
			return decimal.Zero, status.Errorf(codes.InvalidArgument, "%s must be a decimal", key)
		}
		return d, nil
	case *structpb.Value_NullValue:
		return decimal.Zero, nil
	default:
		return decimal.Zero, status.Errorf(codes.InvalidArgument, "%s must be a decimal", key)
	}
}

// TimeField parses an RFC 3339 timestamp; empty yields nil.
func TimeField(req *structpb.Struct, key string) (*time.Time, error) {
	s := String(req, key)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%s must be RFC 3339", key)
	}
	return &t, nil
}
