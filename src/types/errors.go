package types

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrGatewayNotConfigured = errors.New("Noon API configuration incomplete")
	ErrInvalidSignature     = errors.New("invalid webhook signature")
	ErrInternal             = errors.New("internal error")
)

// ValidationError carries field-level detail for input that was rejected.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// ConflictError reports a unique constraint violation on Resource.
type ConflictError struct {
	Resource string
	Value    string
	Err      error
}

func (e *ConflictError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s already exists", e.Resource)
	}
	return fmt.Sprintf("%s %q already exists", e.Resource, e.Value)
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}

// GatewayError is a non-success response from the payment processor.
type GatewayError struct {
	StatusCode int
	Body       string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway responded with status %d", e.StatusCode)
}

type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.Key)
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// Internal wraps err so it is classified as an internal failure.
func Internal(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrInternal, err)
}
