package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors matched with errors.Is
var (
	// ErrInput marks unsupported domains, malformed configuration and bad snapshot attributes
	ErrInput = errors.New("invalid input")
	// ErrComputation marks NaN/Inf propagation that would corrupt a score
	ErrComputation = errors.New("computation error")
	// ErrNotFound marks a missing entity, evaluation, application or claim
	ErrNotFound = errors.New("not found")
)

// InputError is returned when configuration or input fails validation.
// It is surfaced directly to the caller and never retried.
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid input: %s", e.Message)
	}
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Message)
}

// Is lets errors.Is(err, ErrInput) match any InputError
func (e *InputError) Is(target error) bool {
	return target == ErrInput
}

// NewInputError builds an InputError with a formatted message
func NewInputError(field, format string, args ...interface{}) error {
	return &InputError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ComputationError is returned instead of emitting a corrupted score
type ComputationError struct {
	Stage   string
	Message string
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("computation error in %s: %s", e.Stage, e.Message)
}

// Is lets errors.Is(err, ErrComputation) match any ComputationError
func (e *ComputationError) Is(target error) bool {
	return target == ErrComputation
}

// NewComputationError builds a ComputationError with a formatted message
func NewComputationError(stage, format string, args ...interface{}) error {
	return &ComputationError{Stage: stage, Message: fmt.Sprintf(format, args...)}
}
