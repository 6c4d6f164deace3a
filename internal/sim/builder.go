package sim

import (
	"fmt"
	"math"

	"github.com/san-kum/antsim/internal/dynamo"
	"github.com/san-kum/antsim/internal/spatial"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// ModelBuilder accumulates articulations and produces a Model. JointQ and
// JointTarget grow by one rest pose per AddArticulation and may be edited
// before Finalize to set initial poses.
type ModelBuilder struct {
	Gravity       r3.Vec
	Ground        bool
	SelfCollision bool

	JointQ      []float64
	JointTarget []float64

	template  *ArticulationDesc
	materials []Material
}

func NewModelBuilder() *ModelBuilder {
	return &ModelBuilder{
		Gravity: r3.Vec{Y: -9.81},
		Ground:  true,
	}
}

// NumEnvs is the number of articulations added so far.
func (b *ModelBuilder) NumEnvs() int {
	return len(b.materials)
}

// AddArticulation appends one environment and returns its index. Every
// articulation in a builder must share the first one's topology.
func (b *ModelBuilder) AddArticulation(desc *ArticulationDesc, m Material) (int, error) {
	if err := desc.Validate(); err != nil {
		return 0, err
	}
	if err := m.Validate(); err != nil {
		return 0, fmt.Errorf("articulation %q: %w", desc.Name, err)
	}
	if b.template == nil {
		b.template = desc
	} else if !sameTopology(b.template, desc) {
		return 0, fmt.Errorf("articulation %q does not match %q: %w",
			desc.Name, b.template.Name, dynamo.ErrDimensionMismatch)
	}

	env := len(b.materials)
	b.materials = append(b.materials, m)
	b.JointQ = append(b.JointQ, desc.RestQ...)
	b.JointTarget = append(b.JointTarget, desc.RestQ...)
	return env, nil
}

// Finalize freezes the builder into a Model bound to ctx.
func (b *ModelBuilder) Finalize(ctx dynamo.ExecContext) (*Model, error) {
	n := len(b.materials)
	if n == 0 || b.template == nil {
		return nil, fmt.Errorf("no articulations added: %w", dynamo.ErrParameterBounds)
	}
	t := b.template
	qdim, qddim := t.QDim(), t.QDDim()
	if len(b.JointQ) != n*qdim || len(b.JointTarget) != n*qdim {
		return nil, fmt.Errorf("joint_q has %d values, %d envs need %d: %w",
			len(b.JointQ), n, n*qdim, dynamo.ErrDimensionMismatch)
	}
	for i, v := range b.JointQ {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("joint_q[%d] = %v: %w", i, v, dynamo.ErrInvalidState)
		}
	}
	if ctx.Workers < 1 {
		ctx.Workers = 1
	}

	nb := len(t.Bodies)
	m := &Model{
		exec:          ctx,
		NumEnvs:       n,
		NumBodies:     nb,
		QDim:          qdim,
		QDDim:         qddim,
		Gravity:       b.Gravity,
		Ground:        b.Ground,
		SelfCollision: b.SelfCollision,
		BodyName:      make([]string, nb),
		Parent:        make([]int, nb),
		JointType:     make([]JointType, nb),
		JointName:     make([]string, nb),
		JointAxis:     make([]r3.Vec, nb),
		JointOffset:   make([]r3.Vec, nb),
		JointLower:    make([]float64, nb),
		JointUpper:    make([]float64, nb),
		QStart:        make([]int, nb),
		QDStart:       make([]int, nb),
		BodyCOM:       make([]r3.Vec, nb),
		BodyMass:      make([]float64, n*nb),
		BodyInertia:   make([]spatial.Mat3, n*nb),
		Materials:     append([]Material(nil), b.materials...),
		JointQ0:       mat.NewDense(n, qdim, append([]float64(nil), b.JointQ...)),
		JointTarget:   mat.NewDense(n, qdim, append([]float64(nil), b.JointTarget...)),
	}

	q, qd := 0, 0
	for i, body := range t.Bodies {
		m.BodyName[i] = body.Name
		m.Parent[i] = body.Parent
		m.JointType[i] = body.Joint.Type
		m.JointName[i] = body.Joint.Name
		if body.Joint.Type == JointRevolute {
			m.JointAxis[i] = r3.Unit(body.Joint.Axis)
		}
		m.JointOffset[i] = body.Offset
		m.JointLower[i] = body.Joint.Lower
		m.JointUpper[i] = body.Joint.Upper
		m.QStart[i] = q
		m.QDStart[i] = qd
		q += body.Joint.Type.QDim()
		qd += body.Joint.Type.QDDim()

		for _, s := range body.Shapes {
			m.Contacts = append(m.Contacts, ContactPoint{Body: i, Local: s.From, Radius: s.Radius})
			if s.Kind == ShapeCapsule {
				m.Contacts = append(m.Contacts, ContactPoint{Body: i, Local: s.To, Radius: s.Radius})
			}
		}
	}

	for env, mtl := range b.materials {
		for i, body := range t.Bodies {
			mass, com, inertia := bodyMass(body.Shapes, mtl.Density)
			if mass <= 0 {
				return nil, fmt.Errorf("body %q has no mass: %w", body.Name, dynamo.ErrParameterBounds)
			}
			m.BodyCOM[i] = com
			m.BodyMass[env*nb+i] = mass
			m.BodyInertia[env*nb+i] = inertia
		}
	}

	if m.SelfCollision {
		m.Pairs = collisionPairs(m)
	}
	return m, nil
}

// collisionPairs lists contact point pairs on distinct bodies that are not
// directly jointed to each other.
func collisionPairs(m *Model) [][2]int {
	var pairs [][2]int
	for i := range m.Contacts {
		for j := i + 1; j < len(m.Contacts); j++ {
			a, b := m.Contacts[i].Body, m.Contacts[j].Body
			if a == b || m.Parent[a] == b || m.Parent[b] == a {
				continue
			}
			pairs = append(pairs, [2]int{i, j})
		}
	}
	return pairs
}
