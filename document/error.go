package document

import (
	"errors"
	"fmt"
)

// ErrCodeConfig marks an invalid chunking configuration.
const ErrCodeConfig = "CONFIG_ERROR"

// SplitterError represents errors that can occur during text splitting
type SplitterError struct {
	Op      string
	Code    string
	Message string
	Err     error
}

func (e *SplitterError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("splitter.%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("splitter.%s: %s", e.Op, e.Message)
}

func (e *SplitterError) Unwrap() error {
	return e.Err
}

func newConfigError(op, message string, err error) *SplitterError {
	return &SplitterError{
		Op:      op,
		Code:    ErrCodeConfig,
		Message: message,
		Err:     err,
	}
}

// IsConfigError reports whether err was caused by an invalid splitter setup.
func IsConfigError(err error) bool {
	var se *SplitterError
	return errors.As(err, &se) && se.Code == ErrCodeConfig
}
