package env

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Env is the capability set shared by batched environments.
type Env interface {
	Reset(envIDs []int, force bool) *mat.Dense
	Step(actions *mat.Dense) (StepResult, error)
	ObservationSpace() Space
	ActionSpace() Space
}

type SpaceKind int

const (
	KindAction SpaceKind = iota
	KindObservation
)

// Space describes the shape and bounds of one environment's action or
// observation vector.
type Space struct {
	Shape      mat.Vector
	Kind       SpaceKind
	LowerBound mat.Vector
	UpperBound mat.Vector
}

// NewSpace constructs a space. It panics if the bound lengths do not match
// the shape.
func NewSpace(shape mat.Vector, kind SpaceKind, lower, upper mat.Vector) Space {
	if shape.Len() != lower.Len() {
		panic(fmt.Sprintf("shape length %v must match lower bounds length %v", shape.Len(), lower.Len()))
	}
	if shape.Len() != upper.Len() {
		panic(fmt.Sprintf("shape length %v must match upper bounds length %v", shape.Len(), upper.Len()))
	}
	return Space{Shape: shape, Kind: kind, LowerBound: lower, UpperBound: upper}
}

// Dim is the number of components in the space.
func (s Space) Dim() int {
	return s.Shape.Len()
}

// StepResult is the outcome of one batched step. Reward, Terminated and
// Truncated describe the transition; Obs is taken after any resets.
type StepResult struct {
	Obs        *mat.Dense
	Reward     *mat.VecDense
	Terminated []bool
	Truncated  []bool
	// Extras is nil unless gradients are tracked.
	Extras *Extras
}

// Done reports whether environment i ended its episode this step.
func (r StepResult) Done(i int) bool {
	return r.Terminated[i] || r.Truncated[i]
}

// Extras carries training diagnostics.
type Extras struct {
	// ObsBeforeReset is the observation of every environment before resets
	// were applied.
	ObsBeforeReset  *mat.Dense
	EpisodeEnd      []bool
	ContactsChanged []bool
	// Jacobian holds, per environment, the derivative of the first
	// MaxJacobianOutDim observation components with respect to the previous
	// observation and the applied torques.
	Jacobian []*mat.Dense
}

// Checkpoint is a value snapshot of the episodic state.
type Checkpoint struct {
	JointQ   *mat.Dense
	JointQD  *mat.Dense
	Actions  *mat.Dense
	Progress []int
}

// Clone deep-copies the checkpoint.
func (c *Checkpoint) Clone() *Checkpoint {
	return &Checkpoint{
		JointQ:   mat.DenseCopyOf(c.JointQ),
		JointQD:  mat.DenseCopyOf(c.JointQD),
		Actions:  mat.DenseCopyOf(c.Actions),
		Progress: append([]int(nil), c.Progress...),
	}
}
