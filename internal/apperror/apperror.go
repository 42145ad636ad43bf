package apperror

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels for errors.Is. Each maps to one user-facing category.
var (
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidTransfer   = errors.New("invalid transfer")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrBusy              = errors.New("busy")
	ErrSyncFailure       = errors.New("sync failure")
	ErrSchemaMismatch    = errors.New("schema mismatch")
)

// Error is a validation failure that carries enough data to be rendered in
// the caller's language.
type Error struct {
	Kind      error
	MessageID string
	Data      map[string]interface{}
	msg       string
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, id string, data map[string]interface{}, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, MessageID: id, Data: data, msg: fmt.Sprintf(format, args...)}
}

func InvalidQuantity(qty int64) *Error {
	return newError(ErrInvalidQuantity, "InvalidQuantity",
		map[string]interface{}{"Qty": qty},
		"Qty must be > 0 (got %d).", qty)
}

func NegativeQuantity(qty int64) *Error {
	return newError(ErrInvalidQuantity, "NegativeQuantity",
		map[string]interface{}{"Qty": qty},
		"New qty cannot be negative (got %d).", qty)
}

// QuantityOverflow rejects a movement that would push a balance past the
// largest storable quantity.
func QuantityOverflow(sku, location string, current, requested int64) *Error {
	return newError(ErrInvalidQuantity, "QuantityOverflow",
		map[string]interface{}{
			"SKU":       sku,
			"Location":  location,
			"Current":   current,
			"Requested": requested,
		},
		"Qty at %s would overflow (current %d, adding %d).", location, current, requested)
}

func NegativeThreshold(threshold int64) *Error {
	return newError(ErrInvalidQuantity, "NegativeThreshold",
		map[string]interface{}{"Threshold": threshold},
		"Threshold cannot be negative (got %d).", threshold)
}

func InsufficientStock(sku, location, operation string, current, requested int64) *Error {
	return newError(ErrInsufficientStock, "InsufficientStock",
		map[string]interface{}{
			"SKU":       sku,
			"Location":  location,
			"Operation": operation,
			"Current":   current,
			"Requested": requested,
		},
		"Insufficient stock at %s. Current: %d, requested %s: %d.", location, current, operation, requested)
}

func InvalidTransfer(from, to string) *Error {
	return newError(ErrInvalidTransfer, "InvalidTransfer",
		map[string]interface{}{"From": from, "To": to},
		"From and To locations must be different (%s).", from)
}

func InvalidArgument(field, reason string) *Error {
	return newError(ErrInvalidArgument, "InvalidArgument",
		map[string]interface{}{"Field": field, "Reason": reason},
		"Invalid %s: %s.", field, reason)
}

func NotFound(entity, key string) *Error {
	return newError(ErrNotFound, "NotFound",
		map[string]interface{}{"Entity": entity, "Key": key},
		"%s not found: %s.", entity, key)
}

func AlreadyExists(entity, key string) *Error {
	return newError(ErrAlreadyExists, "AlreadyExists",
		map[string]interface{}{"Entity": entity, "Key": key},
		"%s already exists: %s.", entity, key)
}

func Busy(key string) *Error {
	return newError(ErrBusy, "Busy",
		map[string]interface{}{"Key": key},
		"System busy, please try again later (lock %s).", key)
}

// SchemaMismatch reports required sheet columns that could not be resolved.
// Detected lists the normalized headers that were present.
func SchemaMismatch(sheet string, missing, detected []string) *Error {
	return newError(ErrSchemaMismatch, "SchemaMismatch",
		map[string]interface{}{
			"Sheet":    sheet,
			"Missing":  strings.Join(missing, ", "),
			"Detected": strings.Join(detected, ", "),
		},
		"Sheet %s is missing required columns: %s (detected: %s).",
		sheet, strings.Join(missing, ", "), strings.Join(detected, ", "))
}

func SyncFailure(phase, reason string) *Error {
	return newError(ErrSyncFailure, "SyncFailure",
		map[string]interface{}{"Phase": phase, "Reason": reason},
		"Sync failed while %s: %s", strings.ToLower(phase), reason)
}
