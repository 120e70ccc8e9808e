package datasource

import (
	"errors"
	"fmt"
)

// DataSourceError represents errors that can occur during data source operations
type DataSourceError struct {
	Source  string
	Op      string
	Err     error
	Code    string
	Message string
}

func (e *DataSourceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("datasource.%s [%s]: %s: %v", e.Op, e.Source, e.Message, e.Err)
	}
	return fmt.Sprintf("datasource.%s [%s]: %s", e.Op, e.Source, e.Message)
}

func (e *DataSourceError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrCodeFetch           = "FetchError"
	ErrCodeRender          = "RenderError"
	ErrCodeInvalidURL      = "InvalidURL"
	ErrCodeContentTooShort = "ContentTooShort"
)

func NewFetchError(source, op, message string, err error) *DataSourceError {
	return &DataSourceError{Source: source, Op: op, Code: ErrCodeFetch, Message: message, Err: err}
}

func NewRenderError(source, op, message string, err error) *DataSourceError {
	return &DataSourceError{Source: source, Op: op, Code: ErrCodeRender, Message: message, Err: err}
}

// IsCode reports whether err is a DataSourceError with the given code.
func IsCode(err error, code string) bool {
	var de *DataSourceError
	return errors.As(err, &de) && de.Code == code
}

// IsFetchError reports fetch failures, including invalid URLs and pages
// without enough static text.
func IsFetchError(err error) bool {
	return IsCode(err, ErrCodeFetch) || IsCode(err, ErrCodeInvalidURL) || IsCode(err, ErrCodeContentTooShort)
}

func IsRenderError(err error) bool {
	return IsCode(err, ErrCodeRender)
}
