package vectorstore

import (
	"errors"
	"fmt"
)

// ErrorCode represents specific error types in vector store operations
type ErrorCode string

const (
	ErrCodeDimensionMismatch ErrorCode = "DIMENSION_MISMATCH"
	ErrCodeInvalidArgument   ErrorCode = "INVALID_ARGUMENT"
	ErrCodeFormat            ErrorCode = "FORMAT"
	ErrCodeNotIndexed        ErrorCode = "NOT_INDEXED"
	ErrCodeInitFailed        ErrorCode = "INIT_FAILED"
	ErrCodeBuildFailed       ErrorCode = "BUILD_FAILED"
	ErrCodeSearchFailed      ErrorCode = "SEARCH_FAILED"
	ErrCodeEmbeddingFailed   ErrorCode = "EMBEDDING_FAILED"
)

// VectorStoreError represents an error that occurred in vector store operations
type VectorStoreError struct {
	Code    ErrorCode
	Op      string
	Store   string
	Message string
	Err     error
}

func (e *VectorStoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (store: %s, operation: %s) - %v",
			e.Code, e.Message, e.Store, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s (store: %s, operation: %s)",
		e.Code, e.Message, e.Store, e.Op)
}

func (e *VectorStoreError) Unwrap() error {
	return e.Err
}

// IsCode reports whether err is a VectorStoreError carrying code.
func IsCode(err error, code ErrorCode) bool {
	var vse *VectorStoreError
	return errors.As(err, &vse) && vse.Code == code
}

// Helper functions to create errors
func NewDimensionMismatchError(store, op, message string) error {
	return &VectorStoreError{
		Code:    ErrCodeDimensionMismatch,
		Op:      op,
		Store:   store,
		Message: message,
	}
}

func NewInvalidArgumentError(store, op, message string) error {
	return &VectorStoreError{
		Code:    ErrCodeInvalidArgument,
		Op:      op,
		Store:   store,
		Message: message,
	}
}

func NewFormatError(store, message string, err error) error {
	return &VectorStoreError{
		Code:    ErrCodeFormat,
		Op:      "Load",
		Store:   store,
		Message: message,
		Err:     err,
	}
}

func NewNotIndexedError(store string) error {
	return &VectorStoreError{
		Code:    ErrCodeNotIndexed,
		Op:      "Retrieve",
		Store:   store,
		Message: "no content has been indexed yet",
	}
}

func NewInitFailedError(store string, err error) error {
	return &VectorStoreError{
		Code:    ErrCodeInitFailed,
		Op:      "InitDB",
		Store:   store,
		Message: "failed to initialize database",
		Err:     err,
	}
}

func NewBuildFailedError(store string, err error) error {
	return &VectorStoreError{
		Code:    ErrCodeBuildFailed,
		Op:      "Build",
		Store:   store,
		Message: "failed to store chunks",
		Err:     err,
	}
}

func NewSearchFailedError(store string, err error) error {
	return &VectorStoreError{
		Code:    ErrCodeSearchFailed,
		Op:      "Search",
		Store:   store,
		Message: "failed to perform similarity search",
		Err:     err,
	}
}

func NewEmbeddingFailedError(store string, err error) error {
	return &VectorStoreError{
		Code:    ErrCodeEmbeddingFailed,
		Op:      "Embedding",
		Store:   store,
		Message: "failed to generate embeddings",
		Err:     err,
	}
}
