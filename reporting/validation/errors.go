package validation

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid matches every error produced by this package, so callers can
// classify a failure with errors.Is regardless of its concrete type.
var ErrInvalid = errors.New("invalid input")

type RangeError struct {
	Field string
	Value float64
	Min   *float64
	Max   *float64
}

func (e *RangeError) Error() string {
	switch {
	case e.Min != nil && e.Max != nil:
		return fmt.Sprintf("%v must be between %v and %v, got %v", e.Field, *e.Min, *e.Max, e.Value)
	case e.Min != nil:
		return fmt.Sprintf("%v must be greater than or equal to %v, got %v", e.Field, *e.Min, e.Value)
	case e.Max != nil:
		return fmt.Sprintf("%v must be less than or equal to %v, got %v", e.Field, *e.Max, e.Value)
	}
	return fmt.Sprintf("%v is out of range, got %v", e.Field, e.Value)
}

func (e *RangeError) Is(target error) bool {
	return target == ErrInvalid
}

// OrderingError is returned when Greater is not strictly greater than Lesser.
type OrderingError struct {
	Greater string
	Lesser  string
}

func (e *OrderingError) Error() string {
	return fmt.Sprintf("%v must be greater than %v", e.Greater, e.Lesser)
}

func (e *OrderingError) Is(target error) bool {
	return target == ErrInvalid
}

type FormatError struct {
	Field  string
	Value  string
	Reason string
}

func (e *FormatError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %v: %v", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %v '%v': %v", e.Field, e.Value, e.Reason)
}

func (e *FormatError) Is(target error) bool {
	return target == ErrInvalid
}

type MixedTypeError struct {
	Types []string
}

func (e *MixedTypeError) Error() string {
	return fmt.Sprintf("all events in an event group must be of the same type, found: %v", strings.Join(e.Types, ", "))
}

func (e *MixedTypeError) Is(target error) bool {
	return target == ErrInvalid
}

type RequiredError struct {
	Field string
}

func (e *RequiredError) Error() string {
	return fmt.Sprintf("%v is required", e.Field)
}

func (e *RequiredError) Is(target error) bool {
	return target == ErrInvalid
}

// Errors collects every failure found in one request so the caller sees them
// all at once.
type Errors struct {
	errs []error
}

func (e *Errors) Error() string {
	msgs := make([]string, 0, len(e.errs))
	for _, err := range e.errs {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

func (e *Errors) Unwrap() []error {
	return e.errs
}
