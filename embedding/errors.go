package embedding

import (
	"errors"
	"fmt"
)

// Error codes carried by EmbeddingError.
const (
	ErrCodeEmptyInput        = "EmptyInput"
	ErrCodeInvalidInput      = "InvalidInput"
	ErrCodeInvalidDimensions = "InvalidDimensions"
	ErrCodeModelNotAvailable = "ModelNotAvailable"
	ErrCodeUnauthorized      = "Unauthorized"
	ErrCodeRateLimitExceeded = "RateLimitExceeded"
	ErrCodeContextCanceled   = "ContextCanceled"
	ErrCodeAPIError          = "APIError"
	ErrCodeInternal          = "Internal"
)

// EmbeddingError is returned by every Embedder. Op names the method that
// failed.
type EmbeddingError struct {
	Op      string
	Err     error
	Code    string
	Message string
}

func (e *EmbeddingError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("embedding.%s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("embedding.%s: %s: %v", e.Op, e.Message, e.Err)
}

func (e *EmbeddingError) Unwrap() error {
	return e.Err
}

func NewEmbeddingError(op string, err error, code, message string) *EmbeddingError {
	return &EmbeddingError{Op: op, Err: err, Code: code, Message: message}
}

func ErrEmptyInput(op string) error {
	return NewEmbeddingError(op, nil, ErrCodeEmptyInput, "nothing to embed")
}

func ErrInvalidInput(op string, err error, details string) error {
	return NewEmbeddingError(op, err, ErrCodeInvalidInput, "invalid input: "+details)
}

// ErrInvalidDimensions reports that vector index of a batch has the wrong
// length.
func ErrInvalidDimensions(op string, want, got, index int) error {
	return NewEmbeddingError(op, nil, ErrCodeInvalidDimensions,
		fmt.Sprintf("vector %d has %d dimensions, model produces %d", index, got, want))
}

// ErrModelNotAvailable covers a model that cannot be loaded or reached.
func ErrModelNotAvailable(op string, err error) error {
	return NewEmbeddingError(op, err, ErrCodeModelNotAvailable, "embedding model unavailable")
}

func ErrRateLimitExceeded(op string, err error) error {
	return NewEmbeddingError(op, err, ErrCodeRateLimitExceeded, "embedding rate limit exceeded")
}

func IsCode(err error, code string) bool {
	var ee *EmbeddingError
	return errors.As(err, &ee) && ee.Code == code
}

func IsModelNotAvailable(err error) bool {
	return IsCode(err, ErrCodeModelNotAvailable)
}
