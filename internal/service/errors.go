package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound: the room or booking does not exist or is not listed.
	ErrNotFound = errors.New("not found")
	// ErrInvalidRange: the requested dates cannot be booked.
	ErrInvalidRange = errors.New("invalid date range")
	// ErrExhausted: the room has no unit left.
	ErrExhausted = errors.New("room fully booked")
	// ErrGatewayUnavailable: the payment gateway gave no usable answer.
	// Nothing was approved; the caller may try again later.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	// ErrUnknownReference: no booking carries the reference.
	ErrUnknownReference = errors.New("unknown payment reference")
	// ErrDuplicateReference: a freshly generated reference already exists.
	ErrDuplicateReference = errors.New("duplicate payment reference")
	// ErrForbidden: the caller may not perform the operation.
	ErrForbidden = errors.New("forbidden")
)

// ValidationError describes a rejected booking request.  It matches
// ErrInvalidRange with errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidRange }
