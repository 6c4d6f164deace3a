package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrInvalidState indicates a state with NaN or Inf values.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrUnstable indicates the simulation became numerically unstable.
	ErrUnstable = errors.New("dynamo: simulation unstable (state diverged)")

	// ErrParameterBounds indicates a parameter value is outside valid range.
	ErrParameterBounds = errors.New("dynamo: parameter out of valid bounds")

	// ErrDimensionMismatch indicates mismatched model/state/action dimensions.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between model and state")

	// ErrNotFinalized indicates a model was used before Finalize.
	ErrNotFinalized = errors.New("dynamo: model not finalized")

	// ErrSingularMassMatrix indicates the joint-space mass matrix could not
	// be factorized.
	ErrSingularMassMatrix = errors.New("dynamo: mass matrix not positive definite")
)

// SimulationError wraps an error with simulation context.
type SimulationError struct {
	Step    int
	Time    float64
	Env     int
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f, env %d): %v", e.Step, e.Time, e.Env, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
