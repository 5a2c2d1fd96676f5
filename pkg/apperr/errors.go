// Package apperr defines the typed error taxonomy shared by every layer of
// the control plane. Handlers never construct a bare error; they return one
// of these types (or something wrapping one) so pkg/net/http can translate it
// into the JSON envelope without inspecting strings.
package apperr

import (
	"fmt"
	"strings"
)

// NotFoundError records that an entity could not be located.
type NotFoundError struct {
	EntityType string
	Title      string
	Message    string
	Code       string
	Err        error
}

func (e NotFoundError) Error() string {
	if strings.TrimSpace(e.Message) != "" {
		return e.Message
	}

	if strings.TrimSpace(e.EntityType) != "" {
		return fmt.Sprintf("%s not found", e.EntityType)
	}

	if e.Err != nil {
		return e.Err.Error()
	}

	return "entity not found"
}

func (e NotFoundError) Unwrap() error { return e.Err }

// ValidationError records a request-shape or business-rule validation failure.
type ValidationError struct {
	EntityType string
	Title      string
	Message    string
	Code       string
	Details    map[string]string
	Err        error
}

func (e ValidationError) Error() string {
	if strings.TrimSpace(e.Code) != "" {
		return fmt.Sprintf("%s - %s", e.Code, e.Message)
	}

	return e.Message
}

func (e ValidationError) Unwrap() error { return e.Err }

// ConflictError records a CAS failure, duplicate key, or concurrent-write race.
type ConflictError struct {
	EntityType string
	Title      string
	Message    string
	Code       string
	Err        error
}

func (e ConflictError) Error() string {
	if e.Err != nil && strings.TrimSpace(e.Message) == "" {
		return e.Err.Error()
	}

	return e.Message
}

func (e ConflictError) Unwrap() error { return e.Err }

// UnauthorizedError records a missing or invalid bearer token.
type UnauthorizedError struct {
	Title   string
	Message string
	Code    string
	Err     error
}

func (e UnauthorizedError) Error() string { return e.Message }
func (e UnauthorizedError) Unwrap() error { return e.Err }

// ForbiddenError records an ownership or capability mismatch.
type ForbiddenError struct {
	Title   string
	Message string
	Code    string
	Err     error
}

func (e ForbiddenError) Error() string { return e.Message }
func (e ForbiddenError) Unwrap() error { return e.Err }

// QuotaExceededError records a plan-quota or active-run-cap rejection.
// Details carries the full plan/limits/usage payload sent on the wire.
type QuotaExceededError struct {
	Title   string
	Message string
	Code    string
	Details map[string]any
	Err     error
}

func (e QuotaExceededError) Error() string { return e.Message }
func (e QuotaExceededError) Unwrap() error { return e.Err }

// RateLimitedError records a fixed-window rate-limit rejection. Limit,
// Remaining and ResetMs carry the X-RateLimit-* values so the handler can set
// response headers.
type RateLimitedError struct {
	Title   string
	Message string
	Code    string
	Limit   int
	Remaining int
	ResetMs int64
	Err     error
}

func (e RateLimitedError) Error() string { return e.Message }
func (e RateLimitedError) Unwrap() error { return e.Err }

// PolicyViolationError records a blocked host, unsupported import, or
// unsupported runner: the 403 "policy" failures.
type PolicyViolationError struct {
	Title   string
	Message string
	Code    string
	Err     error
}

func (e PolicyViolationError) Error() string { return e.Message }
func (e PolicyViolationError) Unwrap() error { return e.Err }

// InternalError records an unexpected failure that maps to 500.
type InternalError struct {
	EntityType string
	Title      string
	Message    string
	Code       string
	Err        error
}

func (e InternalError) Error() string {
	if e.Err != nil && strings.TrimSpace(e.Message) == "" {
		return e.Err.Error()
	}

	return e.Message
}

func (e InternalError) Unwrap() error { return e.Err }

// ValidateInternalError wraps err as an InternalError with the standard
// client-facing message, mirroring the taxonomy's other constructors.
func ValidateInternalError(err error, entityType string) error {
	return InternalError{
		EntityType: entityType,
		Code:       "internal_error",
		Title:      "Internal Server Error",
		Message:    "The server encountered an unexpected error. Please try again later.",
		Err:        err,
	}
}
