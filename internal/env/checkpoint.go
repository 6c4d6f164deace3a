package env

import (
	"fmt"

	"github.com/san-kum/antsim/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// GetCheckpoint snapshots joint coordinates, actions and progress. The
// snapshot shares no memory with the environment.
func (e *Ant) GetCheckpoint() *Checkpoint {
	return &Checkpoint{
		JointQ:   mat.DenseCopyOf(e.state.JointQ),
		JointQD:  mat.DenseCopyOf(e.state.JointQD),
		Actions:  mat.DenseCopyOf(e.actions),
		Progress: append([]int(nil), e.progress...),
	}
}

// ClearGrad replaces the live state with a fresh, untracked state seeded
// from cp, or from a snapshot of the current state when cp is nil. Values
// are preserved exactly.
func (e *Ant) ClearGrad(cp *Checkpoint) error {
	if cp == nil {
		e.clearGrad(e.GetCheckpoint())
		return nil
	}
	if err := e.checkCheckpoint(cp); err != nil {
		return err
	}
	e.clearGrad(cp.Clone())
	return nil
}

// clearGrad installs cp, which must be valid and owned by the environment.
func (e *Ant) clearGrad(cp *Checkpoint) {
	state := e.model.State()
	state.JointQ = cp.JointQ
	state.JointQD = cp.JointQD
	state.ContactCount = e.state.ContactCount

	e.state = state
	e.actions = cp.Actions
	e.progress = cp.Progress
}

// InitializeTrajectory cuts the gradient history and returns fresh
// observations. Call it before accumulating gradients over a new segment.
func (e *Ant) InitializeTrajectory() *mat.Dense {
	e.clearGrad(e.GetCheckpoint())
	return e.CalculateObservations()
}

func (e *Ant) checkCheckpoint(cp *Checkpoint) error {
	check := func(name string, d *mat.Dense, cols int) error {
		if d == nil {
			return fmt.Errorf("checkpoint %s missing: %w", name, dynamo.ErrDimensionMismatch)
		}
		if r, c := d.Dims(); r != e.numEnvs || c != cols {
			return fmt.Errorf("checkpoint %s is %dx%d, want %dx%d: %w", name, r, c, e.numEnvs, cols, dynamo.ErrDimensionMismatch)
		}
		return nil
	}
	if err := check("joint_q", cp.JointQ, e.model.QDim); err != nil {
		return err
	}
	if err := check("joint_qd", cp.JointQD, e.model.QDDim); err != nil {
		return err
	}
	if err := check("actions", cp.Actions, AntActs); err != nil {
		return err
	}
	if len(cp.Progress) != e.numEnvs {
		return fmt.Errorf("checkpoint progress has %d entries, want %d: %w", len(cp.Progress), e.numEnvs, dynamo.ErrDimensionMismatch)
	}
	return nil
}
