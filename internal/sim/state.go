package sim

import (
	"fmt"
	"math"

	"github.com/san-kum/antsim/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// State is the dynamic part of the simulation for the whole batch.
//
// JointQ is (numEnvs x QDim), JointQD and JointAct are (numEnvs x QDDim) and
// BodyFS is (numEnvs x 6*NumBodies) holding the spatial contact force on
// each body from the last substep.
type State struct {
	JointQ   *mat.Dense
	JointQD  *mat.Dense
	JointAct *mat.Dense
	BodyFS   *mat.Dense

	// ContactCount is the number of contact points found by the last
	// Model.Collide call.
	ContactCount int

	tape *tape
}

// tape links a state to the state it was derived from while gradients are
// tracked.
type tape struct {
	prev  *State
	depth int
}

// GraphLen is the number of derived states recorded behind s. A detached
// state has length zero.
func (s *State) GraphLen() int {
	if s.tape == nil {
		return 0
	}
	return s.tape.depth
}

// Prev returns the state s was derived from, or nil when detached.
func (s *State) Prev() *State {
	if s.tape == nil {
		return nil
	}
	return s.tape.prev
}

// Link records s as derived from prev.
func (s *State) Link(prev *State) {
	s.tape = &tape{prev: prev, depth: prev.GraphLen() + 1}
}

func (s *State) NumEnvs() int {
	r, _ := s.JointQ.Dims()
	return r
}

// Clone deep-copies the state. The clone is derived from s and extends its
// tape by one when s is tracked.
func (s *State) Clone() *State {
	c := s.copyData()
	if s.tape != nil {
		c.Link(s)
	}
	return c
}

// WithAct returns a shallow copy of s sharing its coordinates and history
// but driven by act.
func (s *State) WithAct(act *mat.Dense) *State {
	c := *s
	c.JointAct = act
	return &c
}

// Detach deep-copies the state without history.
func (s *State) Detach() *State {
	return s.copyData()
}

func (s *State) copyData() *State {
	return &State{
		JointQ:       mat.DenseCopyOf(s.JointQ),
		JointQD:      mat.DenseCopyOf(s.JointQD),
		JointAct:     mat.DenseCopyOf(s.JointAct),
		BodyFS:       mat.DenseCopyOf(s.BodyFS),
		ContactCount: s.ContactCount,
	}
}

// Validate checks that the state's dimensions agree with m.
func (s *State) Validate(m *Model) error {
	check := func(name string, d *mat.Dense, cols int) error {
		if d == nil {
			return fmt.Errorf("%s is nil: %w", name, dynamo.ErrDimensionMismatch)
		}
		r, c := d.Dims()
		if r != m.NumEnvs || c != cols {
			return fmt.Errorf("%s is %dx%d, want %dx%d: %w", name, r, c, m.NumEnvs, cols, dynamo.ErrDimensionMismatch)
		}
		return nil
	}
	if err := check("joint_q", s.JointQ, m.QDim); err != nil {
		return err
	}
	if err := check("joint_qd", s.JointQD, m.QDDim); err != nil {
		return err
	}
	if err := check("joint_act", s.JointAct, m.QDDim); err != nil {
		return err
	}
	return check("body_f_s", s.BodyFS, 6*m.NumBodies)
}

// IsValid reports whether joint_q and joint_qd are finite.
func (s *State) IsValid() bool {
	return finite(s.JointQ) && finite(s.JointQD)
}

// InvalidEnv returns the first environment whose coordinates are not
// finite, or -1.
func (s *State) InvalidEnv() int {
	r, _ := s.JointQ.Dims()
	for i := 0; i < r; i++ {
		if !finiteRow(s.JointQ.RawRowView(i)) || !finiteRow(s.JointQD.RawRowView(i)) {
			return i
		}
	}
	return -1
}

func finite(d *mat.Dense) bool {
	r, _ := d.Dims()
	for i := 0; i < r; i++ {
		if !finiteRow(d.RawRowView(i)) {
			return false
		}
	}
	return true
}

func finiteRow(row []float64) bool {
	for _, v := range row {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
