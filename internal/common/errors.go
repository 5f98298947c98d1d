package common

import (
	"errors"
	"fmt"
)

// Error codes carried by AppError.
const (
	CodeBackendFailure     = "BACKEND_FAILURE"
	CodeDocumentFatal      = "DOCUMENT_FATAL"
	CodeDiscoveryError     = "DISCOVERY_ERROR"
	CodeOrchestrationError = "ORCHESTRATION_ERROR"
	CodeConfigError        = "CONFIG_ERROR"
	CodeInternalError      = "INTERNAL_ERROR"
	CodeSinkError          = "SINK_ERROR"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound       = errors.New("resource not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrInternal       = errors.New("internal error")
	ErrDatabase       = errors.New("database error")
	ErrValidation     = errors.New("validation failed")
	ErrBackendFailure = errors.New("backend failure")
	ErrDocumentFatal  = errors.New("document cannot be opened")
	ErrDiscovery      = errors.New("discovery failed")
	ErrOrchestration  = errors.New("orchestration failed")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// DiscoveryError wraps err so that errors.Is(err, ErrDiscovery) holds.
func DiscoveryError(message string, err error) error {
	return NewAppError(CodeDiscoveryError, message, errors.Join(ErrDiscovery, err))
}

// OrchestrationError wraps err so that errors.Is(err, ErrOrchestration) holds.
func OrchestrationError(message string, err error) error {
	return NewAppError(CodeOrchestrationError, message, errors.Join(ErrOrchestration, err))
}

// DocumentFatalError wraps err so that errors.Is(err, ErrDocumentFatal) holds.
func DocumentFatalError(message string, err error) error {
	return NewAppError(CodeDocumentFatal, message, errors.Join(ErrDocumentFatal, err))
}

// InternalErrorf builds an INTERNAL_ERROR AppError wrapping ErrInternal.
func InternalErrorf(format string, args ...interface{}) error {
	return NewAppError(CodeInternalError, fmt.Sprintf(format, args...), ErrInternal)
}

// IsProcessLevel reports whether err should stop the batch: only discovery and
// orchestration failures qualify.
func IsProcessLevel(err error) bool {
	return errors.Is(err, ErrDiscovery) || errors.Is(err, ErrOrchestration)
}
