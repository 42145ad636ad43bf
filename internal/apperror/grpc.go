package apperror

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/fekuna/ronary-inventory-service/pkg/i18n"
	"github.com/fekuna/ronary-inventory-service/pkg/middleware"
)

var codeByKind = []struct {
	kind error
	code codes.Code
}{
	{ErrInvalidQuantity, codes.InvalidArgument},
	{ErrInvalidTransfer, codes.InvalidArgument},
	{ErrInvalidArgument, codes.InvalidArgument},
	{ErrInsufficientStock, codes.FailedPrecondition},
	{ErrNotFound, codes.NotFound},
	{ErrAlreadyExists, codes.AlreadyExists},
	{ErrBusy, codes.Unavailable},
	{ErrSchemaMismatch, codes.FailedPrecondition},
	{ErrSyncFailure, codes.Unavailable},
}

// Code returns the gRPC code for err's category.
func Code(err error) codes.Code {
	if _, ok := status.FromError(err); ok {
		return status.Code(err)
	}
	for _, c := range codeByKind {
		if errors.Is(err, c.kind) {
			return c.code
		}
	}
	return codes.Internal
}

// ToStatus converts err into a gRPC status with a message localized for the
// caller. Internal errors never leak their text.
func ToStatus(ctx context.Context, tr *i18n.Translator, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	lang := middleware.LocaleFromContext(ctx)
	code := Code(err)

	var appErr *Error
	if errors.As(err, &appErr) {
		msg := appErr.Error()
		if tr != nil {
			msg = tr.Localize(lang, appErr.MessageID, appErr.Data, msg)
		}
		return status.Error(code, msg)
	}

	if code == codes.Internal {
		msg := "internal error"
		if tr != nil {
			msg = tr.Localize(lang, "Internal", nil, msg)
		}
		return status.Error(code, msg)
	}
	return status.Error(code, err.Error())
}
