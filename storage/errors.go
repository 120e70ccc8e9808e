package storage

import (
	"errors"
	"fmt"
)

// Error codes carried by StorageError.
const (
	ErrCodeNotFound        = "NotFound"
	ErrCodeInvalidArgument = "InvalidArgument"
	ErrCodeUnauthenticated = "Unauthenticated"
	ErrCodeInternal        = "Internal"
)

// StorageError describes a failed object operation on Key.
type StorageError struct {
	Op      string
	Key     string
	Err     error
	Code    string
	Message string
}

func (e *StorageError) Error() string {
	target := e.Op
	if e.Key != "" {
		target = fmt.Sprintf("%s %q", e.Op, e.Key)
	}
	if e.Err == nil {
		return fmt.Sprintf("storage.%s: %s", target, e.Message)
	}
	return fmt.Sprintf("storage.%s: %s: %v", target, e.Message, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func NewStorageError(op, key string, err error, code, message string) *StorageError {
	return &StorageError{Op: op, Key: key, Err: err, Code: code, Message: message}
}

// IsNotFound reports whether err means the requested key does not exist.
func IsNotFound(err error) bool {
	var se *StorageError
	return errors.As(err, &se) && se.Code == ErrCodeNotFound
}
