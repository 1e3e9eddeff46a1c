package memo

import (
	"errors"
	"fmt"
)

// ErrInvalidResultType is returned when a stored value cannot be converted
// to the type requested by the caller.
var ErrInvalidResultType = errors.New("memo: cached value does not match requested type")

// StorageError is returned when a store cannot read or write its backing
// medium. A corrupt stored blob surfaces as a StorageError, never as a
// silent miss.
type StorageError struct {
	// Op is the store operation that failed: "init", "get", "set", "clear".
	Op string

	// Path identifies the backing location involved, when there is one.
	Path string

	// Err is the underlying failure.
	Err error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("memo: storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("memo: storage %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap exposes the underlying failure.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// ConfigError represents an invalid store construction parameter.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "memo: config error in field " + e.Field + ": " + e.Message
}
