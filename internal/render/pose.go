package render

import (
	"fmt"

	"github.com/san-kum/antsim/internal/dynamo"
	"github.com/san-kum/antsim/internal/sim"
	"github.com/san-kum/antsim/internal/spatial"
)

// BodyPose is the world pose of one body.
type BodyPose struct {
	Name   string     `json:"name"`
	Parent int        `json:"parent"`
	Pos    [3]float64 `json:"pos"`
	Rot    [4]float64 `json:"rot"` // x, y, z, w
}

// Pose is one environment's bodies and contact spheres at one instant.
type Pose struct {
	Env         int          `json:"env"`
	Bodies      []BodyPose   `json:"bodies"`
	Contacts    [][3]float64 `json:"contacts"`
	ContactBody []int        `json:"contact_body"`
}

// Height is the torso height.
func (p Pose) Height() float64 {
	if len(p.Bodies) == 0 {
		return 0
	}
	return p.Bodies[0].Pos[1]
}

// poser evaluates poses for a bound model.
type poser struct {
	model *sim.Model
	xf    []spatial.Transform
}

func (p *poser) bind(m *sim.Model) error {
	if m == nil {
		return fmt.Errorf("bind: nil model: %w", dynamo.ErrNotFinalized)
	}
	p.model = m
	p.xf = make([]spatial.Transform, m.NumBodies)
	return nil
}

func (p *poser) pose(s *sim.State, env int) (Pose, error) {
	if p.model == nil {
		return Pose{}, fmt.Errorf("renderer not bound: %w", dynamo.ErrNotFinalized)
	}
	if env < 0 || env >= s.NumEnvs() {
		return Pose{}, fmt.Errorf("env %d out of range: %w", env, dynamo.ErrDimensionMismatch)
	}

	m := p.model
	m.EvalFK(s.JointQ.RawRowView(env), p.xf)

	out := Pose{
		Env:         env,
		Bodies:      make([]BodyPose, m.NumBodies),
		Contacts:    make([][3]float64, len(m.Contacts)),
		ContactBody: make([]int, len(m.Contacts)),
	}
	for b, xf := range p.xf {
		bp := BodyPose{Name: m.BodyName[b], Parent: m.Parent[b]}
		spatial.PutVec(bp.Pos[:], xf.P)
		spatial.PutQuat(bp.Rot[:], xf.Q)
		out.Bodies[b] = bp
	}
	for c := range m.Contacts {
		spatial.PutVec(out.Contacts[c][:], m.ContactWorld(c, p.xf))
		out.ContactBody[c] = m.Contacts[c].Body
	}
	return out, nil
}
