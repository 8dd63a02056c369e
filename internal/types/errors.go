package types

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for canvasagent operations.
var (
	// ErrInvalidRequest indicates a malformed command, request id or canvas summary.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrValidation indicates tool arguments did not match the tool's schema.
	ErrValidation = errors.New("invalid tool arguments")

	// ErrUnknownTool indicates an invocation named a tool outside the registry.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrAdmissionDenied indicates the rate gate rejected the request.
	ErrAdmissionDenied = errors.New("rate limit exceeded")

	// ErrReasoningEngine indicates the reasoning engine failed before producing any operation.
	ErrReasoningEngine = errors.New("reasoning engine failure")

	// ErrEngineRateLimited indicates the reasoning engine asked the caller to back off.
	ErrEngineRateLimited = errors.New("reasoning engine rate limited")

	// ErrEngineUnauthorized indicates the reasoning engine rejected its credentials.
	ErrEngineUnauthorized = errors.New("reasoning engine unauthorized")
)

// ValidationError reports which tool argument failed validation.
type ValidationError struct {
	Tool   OperationName
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Tool, e.Reason)
	}
	return fmt.Sprintf("%s: %s %s", e.Tool, e.Field, e.Reason)
}

// Unwrap lets errors.Is match ErrValidation.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// AdmissionDeniedError carries the remaining quota for the denied identity.
type AdmissionDeniedError struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
}

func (e *AdmissionDeniedError) Error() string {
	return fmt.Sprintf("%s: limit %d, retry after %s", ErrAdmissionDenied, e.Limit, e.ResetAt.UTC().Format(time.RFC3339))
}

// Unwrap lets errors.Is match ErrAdmissionDenied.
func (e *AdmissionDeniedError) Unwrap() error {
	return ErrAdmissionDenied
}
