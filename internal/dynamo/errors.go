package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrConfig indicates missing or inconsistent setup parameters.
	ErrConfig = errors.New("dynamo: invalid configuration")

	// ErrBoxTooSmall indicates a box dimension cannot hold a single cell.
	ErrBoxTooSmall = errors.New("dynamo: box smaller than cutoff radius")

	// ErrCutoffTooLarge indicates the cutoff exceeds half a periodic box length.
	ErrCutoffTooLarge = errors.New("dynamo: cutoff radius larger than half the box length")

	// ErrUnknownPair indicates a bead-type pair without interaction parameters.
	ErrUnknownPair = errors.New("dynamo: no interaction parameters for bead-type pair")

	// ErrInvalidState indicates a NaN or Inf position, velocity or force.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrUnstable indicates a bead moved further than one box length in a step.
	ErrUnstable = errors.New("dynamo: simulation unstable (bead escaped box)")

	// ErrGridInvariant indicates a bead in zero or several cells after assignment.
	ErrGridInvariant = errors.New("dynamo: cell grid membership invariant violated")

	// ErrStopped indicates a collaborator requested run termination.
	ErrStopped = errors.New("dynamo: run stopped on request")

	// ErrHookFatal marks a collaborator error that must abort the run.
	ErrHookFatal = errors.New("dynamo: fatal collaborator error")
)

// SimulationError wraps a fatal error with the step and phase it occurred in.
type SimulationError struct {
	Step    int64
	Phase   string
	Bead    int
	Wrapped error
}

func (e *SimulationError) Error() string {
	if e.Bead >= 0 {
		return fmt.Sprintf("step %d (%s, bead %d): %v", e.Step, e.Phase, e.Bead, e.Wrapped)
	}
	return fmt.Sprintf("step %d (%s): %v", e.Step, e.Phase, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}

// Configf returns an ErrConfig-wrapped error with a formatted reason.
func Configf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}
