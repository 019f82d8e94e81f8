package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies business failures so the transport layer can map
// them to status codes without inspecting messages. Anything that is not a
// *Error is an internal failure.
type ErrorKind string

const (
	ErrNotFound          ErrorKind = "not_found"
	ErrInvalidInput      ErrorKind = "invalid_input"
	ErrInsufficientStock ErrorKind = "insufficient_stock"
	ErrInvalidTransition ErrorKind = "invalid_transition"
)

// Error is a structured business failure carrying the offending entity and
// identifier.
type Error struct {
	Kind   ErrorKind
	Entity string
	Ref    string
	Reason string
}

func (e *Error) Error() string {
	if e.Ref == "" {
		return fmt.Sprintf("%s: %s", e.Entity, e.Reason)
	}
	return fmt.Sprintf("%s %s: %s", e.Entity, e.Ref, e.Reason)
}

func NotFound(entity, ref string) *Error {
	return &Error{Kind: ErrNotFound, Entity: entity, Ref: ref, Reason: "not found"}
}

func InvalidInput(entity, reason string) *Error {
	return &Error{Kind: ErrInvalidInput, Entity: entity, Reason: reason}
}

func InsufficientStock(productName string) *Error {
	return &Error{Kind: ErrInsufficientStock, Entity: "product", Ref: productName, Reason: "insufficient stock"}
}

func InvalidTransition(orderID, reason string) *Error {
	return &Error{Kind: ErrInvalidTransition, Entity: "order", Ref: orderID, Reason: reason}
}

// KindOf extracts the business kind from err. The second return is false
// for internal failures.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
