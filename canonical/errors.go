package canonical

import (
	"fmt"

	"go.uber.org/multierr"
)

// SerializationError is returned when a value cannot be reduced to
// canonical form after every rule and fallback has been tried. It carries
// all underlying conversion failures, not just the last one.
type SerializationError struct {
	// TypeName is the Go type of the offending value.
	TypeName string

	// Failures lists every conversion failure encountered while trying
	// to reduce the value.
	Failures []error
}

// Error implements the error interface.
func (e *SerializationError) Error() string {
	if len(e.Failures) == 0 {
		return fmt.Sprintf("canonical: cannot serialize value of type %s", e.TypeName)
	}
	return fmt.Sprintf("canonical: cannot serialize value of type %s: %v", e.TypeName, multierr.Combine(e.Failures...))
}

// Unwrap exposes the combined underlying failures for errors.Is/As.
func (e *SerializationError) Unwrap() error {
	return multierr.Combine(e.Failures...)
}
