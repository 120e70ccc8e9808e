package config

import (
	"errors"
	"fmt"
)

// Error reports an invalid or unreadable configuration.
type Error struct {
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("config: %s: %v", msg, e.Err)
	}
	return "config: " + msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func IsConfigError(err error) bool {
	var ce *Error
	return errors.As(err, &ce)
}
