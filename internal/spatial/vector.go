package spatial

import "gonum.org/v1/gonum/spatial/r3"

// Vector is a 6D spatial motion or force vector, angular part first.
type Vector struct {
	W r3.Vec
	V r3.Vec
}

func (a Vector) Add(b Vector) Vector {
	return Vector{W: r3.Add(a.W, b.W), V: r3.Add(a.V, b.V)}
}

func (a Vector) Sub(b Vector) Vector {
	return Vector{W: r3.Sub(a.W, b.W), V: r3.Sub(a.V, b.V)}
}

func (a Vector) Scale(f float64) Vector {
	return Vector{W: r3.Scale(f, a.W), V: r3.Scale(f, a.V)}
}

// Dot is the pairing of a motion vector with a force vector (power).
func (a Vector) Dot(b Vector) float64 {
	return r3.Dot(a.W, b.W) + r3.Dot(a.V, b.V)
}

// IsZero reports whether every component is exactly zero.
func (a Vector) IsZero() bool {
	return a.W == (r3.Vec{}) && a.V == (r3.Vec{})
}

// CrossMotion returns a ×m b for motion vectors a and b.
func CrossMotion(a, b Vector) Vector {
	return Vector{
		W: r3.Cross(a.W, b.W),
		V: r3.Add(r3.Cross(a.W, b.V), r3.Cross(a.V, b.W)),
	}
}

// CrossForce returns a ×f f for a motion vector a and force vector f.
func CrossForce(a, f Vector) Vector {
	return Vector{
		W: r3.Add(r3.Cross(a.W, f.W), r3.Cross(a.V, f.V)),
		V: r3.Cross(a.W, f.V),
	}
}

// PointVelocity returns the linear velocity of the world point x moving
// with twist t.
func PointVelocity(t Vector, x r3.Vec) r3.Vec {
	return r3.Add(t.V, r3.Cross(t.W, x))
}

// ForceAt returns the spatial force of a linear force f applied at the world
// point x.
func ForceAt(f, x r3.Vec) Vector {
	return Vector{W: r3.Cross(x, f), V: f}
}

// PutVector writes v as six consecutive values.
func PutVector(dst []float64, v Vector) {
	dst[0], dst[1], dst[2] = v.W.X, v.W.Y, v.W.Z
	dst[3], dst[4], dst[5] = v.V.X, v.V.Y, v.V.Z
}

// VectorFromSlice reads six consecutive values.
func VectorFromSlice(s []float64) Vector {
	return Vector{
		W: r3.Vec{X: s[0], Y: s[1], Z: s[2]},
		V: r3.Vec{X: s[3], Y: s[4], Z: s[5]},
	}
}
