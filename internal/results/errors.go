package results

import (
	"errors"
	"fmt"
)

// Lookup and consistency errors reported by result providers.
var (
	// ErrRunNotFound indicates no run exists under the given name and root.
	ErrRunNotFound = errors.New("results: run not found")

	// ErrOutOfRange indicates an export step, compartment or species index past the end.
	ErrOutOfRange = errors.New("results: index out of range")

	// ErrUnknownProperty indicates a particle property absent from the dataset.
	ErrUnknownProperty = errors.New("results: property does not exist in the selected dataset")

	// ErrPhaseAbsent indicates the run carries no data for the requested phase.
	ErrPhaseAbsent = errors.New("results: phase is not present")

	// ErrNotAvailable indicates an optional quantity that was not exported.
	ErrNotAvailable = errors.New("results: quantity not available")

	// ErrShapeMismatch indicates arrays whose lengths or dimensions disagree.
	ErrShapeMismatch = errors.New("results: shape mismatch")

	// ErrEmptySample indicates a statistic requested over no values.
	ErrEmptySample = errors.New("results: empty sample")
)

// LookupError wraps a sentinel error with the query that produced it.
type LookupError struct {
	Op      string
	Key     string
	Index   int
	Limit   int
	Wrapped error
}

func (e *LookupError) Error() string {
	msg := e.Op
	if e.Key != "" {
		msg += fmt.Sprintf(" %q", e.Key)
	}
	if e.Limit > 0 || e.Index != 0 {
		msg += fmt.Sprintf(" (index %d, limit %d)", e.Index, e.Limit)
	}
	return msg + ": " + e.Wrapped.Error()
}

func (e *LookupError) Unwrap() error {
	return e.Wrapped
}

// OutOfRange builds a LookupError for an index past limit.
func OutOfRange(op string, index, limit int) error {
	return &LookupError{Op: op, Index: index, Limit: limit, Wrapped: ErrOutOfRange}
}

// UnknownProperty builds a LookupError for a missing property key.
func UnknownProperty(op, key string) error {
	return &LookupError{Op: op, Key: key, Wrapped: ErrUnknownProperty}
}
