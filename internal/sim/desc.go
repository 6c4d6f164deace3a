package sim

import (
	"fmt"

	"github.com/san-kum/antsim/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r3"
)

type JointType int

const (
	// JointFree is a 6-DOF floating base: q = (pos, quat xyzw), qd = (w, v0).
	JointFree JointType = iota
	// JointRevolute is a hinge about a body-local axis through the body origin.
	JointRevolute
)

func (j JointType) String() string {
	switch j {
	case JointFree:
		return "free"
	case JointRevolute:
		return "revolute"
	default:
		return fmt.Sprintf("joint(%d)", int(j))
	}
}

// QDim is the number of generalized position coordinates of the joint.
func (j JointType) QDim() int {
	if j == JointFree {
		return 7
	}
	return 1
}

// QDDim is the number of generalized velocity coordinates of the joint.
func (j JointType) QDDim() int {
	if j == JointFree {
		return 6
	}
	return 1
}

type ShapeKind int

const (
	ShapeSphere ShapeKind = iota
	ShapeCapsule
)

// ShapeDesc is a collision/mass shape in body-local coordinates. Spheres use
// From as their center; capsules span From to To.
type ShapeDesc struct {
	Kind   ShapeKind
	Radius float64
	From   r3.Vec
	To     r3.Vec
}

type JointDesc struct {
	Name string
	Type JointType
	Axis r3.Vec
	// Lower and Upper are joint limits in radians, ignored for free joints.
	Lower, Upper float64
}

// BodyDesc places a body relative to its parent. Offset is the body origin
// (and joint anchor) in the parent frame; body frames share the parent
// orientation at zero joint angle.
type BodyDesc struct {
	Name   string
	Parent int
	Offset r3.Vec
	Joint  JointDesc
	Shapes []ShapeDesc
}

// ArticulationDesc is the declarative description of one agent, as produced
// by an asset loader.
type ArticulationDesc struct {
	Name   string
	Bodies []BodyDesc
	// RestQ is the default joint_q, including the 7 root coordinates.
	RestQ []float64
}

func (a *ArticulationDesc) QDim() int {
	n := 0
	for _, b := range a.Bodies {
		n += b.Joint.Type.QDim()
	}
	return n
}

func (a *ArticulationDesc) QDDim() int {
	n := 0
	for _, b := range a.Bodies {
		n += b.Joint.Type.QDDim()
	}
	return n
}

// Validate checks topology and dimensions.
func (a *ArticulationDesc) Validate() error {
	if len(a.Bodies) == 0 {
		return fmt.Errorf("articulation %q has no bodies: %w", a.Name, dynamo.ErrParameterBounds)
	}
	for i, b := range a.Bodies {
		if i == 0 {
			if b.Parent != -1 || b.Joint.Type != JointFree {
				return fmt.Errorf("articulation %q: body 0 must be a free root: %w", a.Name, dynamo.ErrParameterBounds)
			}
			continue
		}
		if b.Parent < 0 || b.Parent >= i {
			return fmt.Errorf("articulation %q: body %q has parent %d, bodies must be topologically ordered: %w",
				a.Name, b.Name, b.Parent, dynamo.ErrParameterBounds)
		}
		if b.Joint.Type != JointRevolute {
			return fmt.Errorf("articulation %q: body %q: only the root may be free: %w", a.Name, b.Name, dynamo.ErrParameterBounds)
		}
		if r3.Norm(b.Joint.Axis) == 0 {
			return fmt.Errorf("articulation %q: joint %q has zero axis: %w", a.Name, b.Joint.Name, dynamo.ErrParameterBounds)
		}
		if len(b.Shapes) == 0 {
			return fmt.Errorf("articulation %q: body %q has no shapes: %w", a.Name, b.Name, dynamo.ErrParameterBounds)
		}
	}
	if len(a.RestQ) != a.QDim() {
		return fmt.Errorf("articulation %q: rest pose has %d coordinates, joints need %d: %w",
			a.Name, len(a.RestQ), a.QDim(), dynamo.ErrDimensionMismatch)
	}
	return nil
}

// sameTopology reports whether two articulations share joint structure.
func sameTopology(a, b *ArticulationDesc) bool {
	if len(a.Bodies) != len(b.Bodies) {
		return false
	}
	for i := range a.Bodies {
		if a.Bodies[i].Parent != b.Bodies[i].Parent || a.Bodies[i].Joint.Type != b.Bodies[i].Joint.Type {
			return false
		}
	}
	return true
}

// Material holds the per-call physical parameters handed to the builder.
type Material struct {
	Density float64 `yaml:"density"`
	// Stiffness and Damping drive revolute joints toward their targets.
	Stiffness float64 `yaml:"stiffness"`
	Damping   float64 `yaml:"damping"`

	ContactKe     float64 `yaml:"contact_ke"`
	ContactKd     float64 `yaml:"contact_kd"`
	ContactKf     float64 `yaml:"contact_kf"`
	ContactMu     float64 `yaml:"contact_mu"`
	ContactMargin float64 `yaml:"contact_margin"`

	LimitKe  float64 `yaml:"limit_ke"`
	LimitKd  float64 `yaml:"limit_kd"`
	Armature float64 `yaml:"armature"`
}

func (m Material) Validate() error {
	if m.Density <= 0 {
		return fmt.Errorf("density must be positive, got %g: %w", m.Density, dynamo.ErrParameterBounds)
	}
	for name, v := range map[string]float64{
		"stiffness": m.Stiffness, "damping": m.Damping,
		"contact_ke": m.ContactKe, "contact_kd": m.ContactKd, "contact_kf": m.ContactKf,
		"contact_mu": m.ContactMu, "contact_margin": m.ContactMargin,
		"limit_ke": m.LimitKe, "limit_kd": m.LimitKd, "armature": m.Armature,
	} {
		if v < 0 {
			return fmt.Errorf("%s must be non-negative, got %g: %w", name, v, dynamo.ErrParameterBounds)
		}
	}
	return nil
}
