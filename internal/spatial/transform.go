package spatial

import (
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Transform is a rigid transform: rotation Q followed by translation P.
type Transform struct {
	P r3.Vec
	Q quat.Number
}

func IdentityTransform() Transform {
	return Transform{Q: Identity}
}

// Mul composes a and b so that Mul(a, b).Point(x) == a.Point(b.Point(x)).
func Mul(a, b Transform) Transform {
	return Transform{
		P: r3.Add(a.P, Rotate(a.Q, b.P)),
		Q: quat.Mul(a.Q, b.Q),
	}
}

// Point maps a point from the local frame into the parent frame.
func (t Transform) Point(x r3.Vec) r3.Vec {
	return r3.Add(t.P, Rotate(t.Q, x))
}

// Vector maps a direction from the local frame into the parent frame.
func (t Transform) Vector(v r3.Vec) r3.Vec {
	return Rotate(t.Q, v)
}
