// Package fault holds the error classes shared by the store, the asset
// service and the transport.
//
// Every layer wraps its cause together with one of these sentinels, so callers
// classify with errors.Is and can still reach the underlying driver or
// filesystem error with errors.As.
package fault

import (
	"errors"
	"fmt"
)

// error classes - keep in alphabetic order
var (
	ErrConfigDivergence    = errors.New("schema version diverges from known migrations")
	ErrConstraintViolation = errors.New("constraint violation")
	ErrDB                  = errors.New("database error")
	ErrIO                  = errors.New("filesystem error")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrNotFound            = errors.New("not found")
	ErrPayloadTooLarge     = errors.New("payload too large")
)

// Wrap joins class and cause under a short context message. A nil cause
// yields nil.
func Wrap(class error, cause error, format string, args ...any) error {
	if cause == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", fmt.Sprintf(format, args...), class, cause)
}

func IsNotFound(err error) bool            { return errors.Is(err, ErrNotFound) }
func IsConstraintViolation(err error) bool { return errors.Is(err, ErrConstraintViolation) }
func IsPayloadTooLarge(err error) bool     { return errors.Is(err, ErrPayloadTooLarge) }
func IsInvalidArgument(err error) bool     { return errors.Is(err, ErrInvalidArgument) }
func IsConfigDivergence(err error) bool    { return errors.Is(err, ErrConfigDivergence) }
