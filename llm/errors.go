package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// LLMError represents errors that can occur during LLM operations
type LLMError struct {
	Op      string
	Code    string
	Message string
	Err     error
}

func (e *LLMError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("llm.%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("llm.%s: %s", e.Op, e.Message)
}

func (e *LLMError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrInvalidInput       = "InvalidInput"
	ErrUnauthorized       = "Unauthorized"
	ErrTokenLimitExceeded = "TokenLimitExceeded"
	ErrModelNotAvailable  = "ModelNotAvailable"
	ErrRateLimitExceeded  = "RateLimitExceeded"
	ErrContextCanceled    = "ContextCanceled"
	ErrTimeout            = "Timeout"
	ErrEmptyResponse      = "EmptyResponse"
	ErrAPIError           = "APIError"
	ErrInternal           = "Internal"
)

func NewLLMError(op, code, message string, err error) *LLMError {
	return &LLMError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// FromStatus maps an HTTP status returned by a provider to an LLMError.
func FromStatus(op string, status int, err error) *LLMError {
	switch {
	case status == http.StatusBadRequest:
		return NewLLMError(op, ErrInvalidInput, "invalid request", err)
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return NewLLMError(op, ErrUnauthorized, "invalid API key", err)
	case status == http.StatusNotFound:
		return NewLLMError(op, ErrModelNotAvailable, "model not found", err)
	case status == http.StatusRequestTimeout, status == http.StatusGatewayTimeout:
		return NewLLMError(op, ErrTimeout, "request timed out", err)
	case status == http.StatusTooManyRequests:
		return NewLLMError(op, ErrRateLimitExceeded, "rate limit exceeded", err)
	case status >= 500:
		return NewLLMError(op, ErrAPIError, "provider server error", err)
	default:
		return NewLLMError(op, ErrAPIError, fmt.Sprintf("provider returned status %d", status), err)
	}
}

// FromContext classifies cancellation and deadline errors; it returns nil
// for anything else.
func FromContext(op string, err error) *LLMError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewLLMError(op, ErrTimeout, "request timed out", err)
	case errors.Is(err, context.Canceled):
		return NewLLMError(op, ErrContextCanceled, "request canceled", err)
	}
	return nil
}

// IsCode reports whether err is an LLMError with the given code.
func IsCode(err error, code string) bool {
	var le *LLMError
	return errors.As(err, &le) && le.Code == code
}
