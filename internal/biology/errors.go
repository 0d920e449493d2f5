// Package biology holds the vocabulary shared by every model in the bone
// strength chain: the error taxonomy, environmental conditions, deviation
// factors, 3D vectors and the small capability interfaces models implement.
package biology

import (
	"errors"
	"fmt"
)

// Error kinds. Use errors.Is against these to classify a failure.
var (
	// ErrInvalidState indicates an operation attempted in an incompatible lifecycle state.
	ErrInvalidState = errors.New("invalid state")

	// ErrInvalidInteraction indicates mismatched specificity, sites or partners.
	ErrInvalidInteraction = errors.New("invalid interaction")

	// ErrInvalidParameter indicates an out-of-domain numeric input.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrSimulation indicates a generic computational failure (NaN, divergence).
	ErrSimulation = errors.New("simulation error")
)

// Error carries the operation that failed alongside its kind.
type Error struct {
	Kind error  // one of the Err* sentinels
	Op   string // operation name, e.g. "matrix.Remodel"
	Msg  string
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// InvalidState builds an ErrInvalidState error for op.
func InvalidState(op, format string, args ...any) error {
	return &Error{Kind: ErrInvalidState, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// InvalidInteraction builds an ErrInvalidInteraction error for op.
func InvalidInteraction(op, format string, args ...any) error {
	return &Error{Kind: ErrInvalidInteraction, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// InvalidParameter builds an ErrInvalidParameter error for op.
func InvalidParameter(op, format string, args ...any) error {
	return &Error{Kind: ErrInvalidParameter, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// SimulationFailure builds an ErrSimulation error for op.
func SimulationFailure(op, format string, args ...any) error {
	return &Error{Kind: ErrSimulation, Op: op, Msg: fmt.Sprintf(format, args...)}
}
