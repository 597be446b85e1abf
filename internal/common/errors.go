package common

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
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
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrValidation   = errors.New("validation failed")

	// ErrUnreadableSource: bytes are not decodable as any supported format. Fatal, never retried.
	ErrUnreadableSource = errors.New("unreadable source")
	// ErrBackendUnavailable: engine failed initialization at process start.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrBackendExecution: an available engine failed during a request.
	ErrBackendExecution = errors.New("backend execution failure")
)

// Error codes carried by AppError.Code.
const (
	CodeUnreadableSource   = "UNREADABLE_SOURCE"
	CodeBackendUnavailable = "BACKEND_UNAVAILABLE"
	CodeBackendExecution   = "BACKEND_EXECUTION_FAILURE"
	CodeInvalidRequest     = "INVALID_REQUEST"
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// UnreadableSourceError wraps a decode failure so errors.Is(err, ErrUnreadableSource) holds.
func UnreadableSourceError(message string, cause error) error {
	if cause == nil {
		return NewAppError(CodeUnreadableSource, message, ErrUnreadableSource)
	}
	return NewAppError(CodeUnreadableSource, message, fmt.Errorf("%w: %w", ErrUnreadableSource, cause))
}

// BackendUnavailableError records why an engine could not be initialized.
func BackendUnavailableError(engine, reason string) error {
	return NewAppError(CodeBackendUnavailable, fmt.Sprintf("%s: %s", engine, reason), ErrBackendUnavailable)
}

// BackendExecutionError wraps a per-request engine failure.
func BackendExecutionError(engine string, cause error) error {
	return NewAppError(CodeBackendExecution, engine, fmt.Errorf("%w: %w", ErrBackendExecution, cause))
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// gRPC error helpers
func InvalidArgumentError(message string) error {
	return status.Error(codes.InvalidArgument, message)
}

func InternalError(message string) error {
	return status.Error(codes.Internal, message)
}

func InvalidArgumentErrorf(format string, args ...interface{}) error {
	return InvalidArgumentError(fmt.Sprintf(format, args...))
}

// ToStatus maps pipeline errors onto gRPC status errors for RPC callers.
func ToStatus(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrUnreadableSource), errors.Is(err, ErrInvalidInput), errors.Is(err, ErrValidation):
		return InvalidArgumentError(err.Error())
	case errors.Is(err, ErrBackendUnavailable):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return InternalError(err.Error())
	}
}
