package domain

import (
	"errors"
	"net/http"
)

var (
	// ErrIndexMissing signals that no supported index artifacts exist on disk.
	ErrIndexMissing = errors.New("compliance index missing")
	// ErrEmbeddingDimMismatch signals a query/index embedding dimension mismatch.
	ErrEmbeddingDimMismatch = errors.New("embedding dimension mismatch")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrEmbeddingProviderTimeout signals an embedding call that exceeded its deadline.
	ErrEmbeddingProviderTimeout = errors.New("embedding provider timeout")
	// ErrModelOutputInvalid signals unparsable or schema-invalid generation output.
	ErrModelOutputInvalid = errors.New("model output invalid")
	// ErrProviderError signals a generation backend failure (transport or non-2xx).
	ErrProviderError = errors.New("generation provider error")
	// ErrProviderTimeout signals a generation call that exceeded its deadline.
	ErrProviderTimeout = errors.New("generation provider timeout")
	// ErrAnalysisNotFound signals a missing upstream product analysis.
	ErrAnalysisNotFound = errors.New("analysis request not found")
	// ErrAnalysisNotReady signals an upstream analysis whose feature extraction has not succeeded.
	ErrAnalysisNotReady = errors.New("analysis not ready")
	// ErrComplianceNotFound signals a missing compliance assessment.
	ErrComplianceNotFound = errors.New("compliance assessment not found")
	// ErrValidation signals invalid caller input.
	ErrValidation = errors.New("validation failed")
)

// Code is the machine-readable error code exposed to callers.
type Code string

// Error codes.
const (
	CodeIndexMissing             Code = "INDEX_MISSING"
	CodeEmbeddingDimMismatch     Code = "EMBEDDING_DIMENSION_MISMATCH"
	CodeEmbeddingProviderError   Code = "EMBEDDING_PROVIDER_ERROR"
	CodeEmbeddingProviderTimeout Code = "EMBEDDING_PROVIDER_TIMEOUT"
	CodeModelOutputInvalid       Code = "MODEL_OUTPUT_INVALID"
	CodeProviderError            Code = "PROVIDER_ERROR"
	CodeProviderTimeout          Code = "PROVIDER_TIMEOUT"
	CodeAnalysisRequestNotFound  Code = "ANALYSIS_REQUEST_NOT_FOUND"
	CodeAnalysisNotReady         Code = "ANALYSIS_NOT_READY"
	CodeComplianceNotFound       Code = "COMPLIANCE_NOT_FOUND"
	CodeValidationFailed         Code = "VALIDATION_FAILED"
	CodeInternal                 Code = "INTERNAL_ERROR"
)

// AppError is the single tagged error type that crosses the service boundary.
type AppError struct {
	Code    Code
	Message string
	Status  int
	Details map[string]any
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return string(e.Code) + ": " + e.Err.Error()
	}
	return string(e.Code) + ": " + e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// errorMapping ties a sentinel to its code and status. exposeCause copies the
// wrapped error text into the caller-facing message.
type errorMapping struct {
	sentinel    error
	code        Code
	status      int
	exposeCause bool
}

// Order matters: the first matching sentinel wins.
var errorMappings = []errorMapping{
	{ErrIndexMissing, CodeIndexMissing, http.StatusServiceUnavailable, true},
	{ErrEmbeddingDimMismatch, CodeEmbeddingDimMismatch, http.StatusInternalServerError, true},
	{ErrEmbeddingProviderTimeout, CodeEmbeddingProviderTimeout, http.StatusGatewayTimeout, false},
	{ErrEmbeddingProviderError, CodeEmbeddingProviderError, http.StatusBadGateway, false},
	{ErrModelOutputInvalid, CodeModelOutputInvalid, http.StatusBadGateway, false},
	{ErrProviderTimeout, CodeProviderTimeout, http.StatusGatewayTimeout, false},
	{ErrProviderError, CodeProviderError, http.StatusBadGateway, false},
	{ErrAnalysisNotFound, CodeAnalysisRequestNotFound, http.StatusNotFound, false},
	{ErrAnalysisNotReady, CodeAnalysisNotReady, http.StatusConflict, false},
	{ErrComplianceNotFound, CodeComplianceNotFound, http.StatusNotFound, false},
	{ErrValidation, CodeValidationFailed, http.StatusBadRequest, true},
}

// Normalize converts any error into an *AppError. Unknown errors become
// INTERNAL_ERROR with a generic message so internals never leak to callers.
func Normalize(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	for _, m := range errorMappings {
		if !errors.Is(err, m.sentinel) {
			continue
		}
		msg := m.sentinel.Error()
		if m.exposeCause {
			msg = err.Error()
		}
		return &AppError{Code: m.code, Message: msg, Status: m.status, Err: err}
	}
	return &AppError{
		Code:    CodeInternal,
		Message: "internal error",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}
