package spatial

import "gonum.org/v1/gonum/spatial/r3"

// Inertia is a spatial inertia expressed at the world origin:
//
//	| Ic - m[c][c]   m[c] |
//	| -m[c]          m 1  |
type Inertia struct {
	Mass float64
	// MC is mass times the world center of mass.
	MC r3.Vec
	// IO is the rotational inertia about the world origin.
	IO Mat3
}

// NewInertia builds the world-frame spatial inertia of a body with mass m,
// world center of mass c and world-frame rotational inertia ic about c.
func NewInertia(m float64, c r3.Vec, ic Mat3) Inertia {
	cx := Skew(c)
	return Inertia{
		Mass: m,
		MC:   r3.Scale(m, c),
		IO:   ic.Add(cx.Mul(cx).Scale(-m)),
	}
}

// MulVec returns the momentum I*v of the twist v.
func (in Inertia) MulVec(v Vector) Vector {
	return Vector{
		W: r3.Add(in.IO.MulVec(v.W), r3.Cross(in.MC, v.V)),
		V: r3.Sub(r3.Scale(in.Mass, v.V), r3.Cross(in.MC, v.W)),
	}
}

// Add returns the inertia of two bodies rigidly joined. Both must be
// expressed at the same point.
func (in Inertia) Add(o Inertia) Inertia {
	return Inertia{
		Mass: in.Mass + o.Mass,
		MC:   r3.Add(in.MC, o.MC),
		IO:   in.IO.Add(o.IO),
	}
}
