package sim

import (
	"github.com/san-kum/antsim/internal/dynamo"
	"github.com/san-kum/antsim/internal/spatial"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// ContactPoint is a sphere attached to a body, used for ground and
// self-contact. Capsules contribute one point per endpoint.
type ContactPoint struct {
	Body   int
	Local  r3.Vec
	Radius float64
}

// Model is the immutable description of a batch of identical articulations.
// Topology is shared; masses and materials are stored per environment.
// Fields must not be modified after Finalize.
type Model struct {
	exec dynamo.ExecContext

	NumEnvs   int
	NumBodies int
	QDim      int
	QDDim     int

	Gravity       r3.Vec
	Ground        bool
	SelfCollision bool

	// Per-body topology, indexed by body within one environment.
	BodyName    []string
	Parent      []int
	JointType   []JointType
	JointName   []string
	JointAxis   []r3.Vec
	JointOffset []r3.Vec
	JointLower  []float64
	JointUpper  []float64
	QStart      []int
	QDStart     []int
	BodyCOM     []r3.Vec

	// Per-environment mass properties, indexed env*NumBodies+body.
	BodyMass    []float64
	BodyInertia []spatial.Mat3

	Materials []Material

	// Contacts are shared by all environments. Pairs index Contacts and list
	// the point pairs eligible for self-contact.
	Contacts []ContactPoint
	Pairs    [][2]int

	JointQ0     *mat.Dense
	JointTarget *mat.Dense
}

// Exec returns the execution context the model was finalized with.
func (m *Model) Exec() dynamo.ExecContext {
	return m.exec
}

// State returns a fresh state at the model's initial coordinates with zero
// velocities, actions and contact forces.
func (m *Model) State() *State {
	return &State{
		JointQ:   mat.DenseCopyOf(m.JointQ0),
		JointQD:  mat.NewDense(m.NumEnvs, m.QDDim, nil),
		JointAct: mat.NewDense(m.NumEnvs, m.QDDim, nil),
		BodyFS:   mat.NewDense(m.NumEnvs, 6*m.NumBodies, nil),
	}
}

// EvalFK computes world transforms of every body of one environment from its
// joint_q row. xf must have NumBodies entries.
func (m *Model) EvalFK(q []float64, xf []spatial.Transform) {
	for b := 0; b < m.NumBodies; b++ {
		start := m.QStart[b]
		switch m.JointType[b] {
		case JointFree:
			xf[b] = spatial.Transform{
				P: spatial.VecFromSlice(q[start : start+3]),
				Q: spatial.Normalize(spatial.QuatFromSlice(q[start+3 : start+7])),
			}
		case JointRevolute:
			local := spatial.Transform{
				P: m.JointOffset[b],
				Q: spatial.QuatFromAxisAngle(m.JointAxis[b], q[start]),
			}
			xf[b] = spatial.Mul(xf[m.Parent[b]], local)
		}
	}
}

// ContactWorld returns the world position of contact point c given body
// transforms from EvalFK.
func (m *Model) ContactWorld(c int, xf []spatial.Transform) r3.Vec {
	p := m.Contacts[c]
	return xf[p.Body].Point(p.Local)
}

// Collide counts contact points whose surface is within the contact margin
// of the ground plane, stores the count on s and returns it.
func (m *Model) Collide(s *State) int {
	if !m.Ground {
		s.ContactCount = 0
		return 0
	}
	xf := make([]spatial.Transform, m.NumBodies)
	count := 0
	for env := 0; env < m.NumEnvs; env++ {
		m.EvalFK(s.JointQ.RawRowView(env), xf)
		margin := m.Materials[env].ContactMargin
		for c := range m.Contacts {
			if m.ContactWorld(c, xf).Y-m.Contacts[c].Radius < margin {
				count++
			}
		}
	}
	s.ContactCount = count
	return count
}

// TotalMass returns the summed body mass of one environment.
func (m *Model) TotalMass(env int) float64 {
	var total float64
	for _, v := range m.BodyMass[env*m.NumBodies : (env+1)*m.NumBodies] {
		total += v
	}
	return total
}
