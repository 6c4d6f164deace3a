package spatial

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Identity is the identity rotation.
var Identity = quat.Number{Real: 1}

// QuatFromSlice reads an (x, y, z, w) quaternion.
func QuatFromSlice(s []float64) quat.Number {
	return quat.Number{Real: s[3], Imag: s[0], Jmag: s[1], Kmag: s[2]}
}

// PutQuat writes q into dst as (x, y, z, w).
func PutQuat(dst []float64, q quat.Number) {
	dst[0], dst[1], dst[2], dst[3] = q.Imag, q.Jmag, q.Kmag, q.Real
}

// QuatFromAxisAngle returns the rotation of angle radians about axis. The
// axis does not need to be normalized.
func QuatFromAxisAngle(axis r3.Vec, angle float64) quat.Number {
	n := r3.Norm(axis)
	if n == 0 {
		return Identity
	}
	s, c := math.Sincos(angle * 0.5)
	a := r3.Scale(s/n, axis)
	return quat.Number{Real: c, Imag: a.X, Jmag: a.Y, Kmag: a.Z}
}

// Normalize returns q scaled to unit length.
func Normalize(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n == 0 {
		return Identity
	}
	return quat.Scale(1/n, q)
}

// Rotate applies the unit quaternion q to v.
func Rotate(q quat.Number, v r3.Vec) r3.Vec {
	p := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	r := quat.Mul(quat.Mul(q, p), quat.Conj(q))
	return r3.Vec{X: r.Imag, Y: r.Jmag, Z: r.Kmag}
}

// RotateInv applies the inverse of the unit quaternion q to v.
func RotateInv(q quat.Number, v r3.Vec) r3.Vec {
	return Rotate(quat.Conj(q), v)
}

// Integrate advances q by the world-frame angular velocity w over dt using
// the first-order update q + 0.5*dt*(0,w)*q followed by renormalization.
func Integrate(q quat.Number, w r3.Vec, dt float64) quat.Number {
	wq := quat.Number{Imag: w.X, Jmag: w.Y, Kmag: w.Z}
	dq := quat.Scale(0.5*dt, quat.Mul(wq, q))
	return Normalize(quat.Add(q, dq))
}

// Slice returns v as a fresh 3-element slice.
func Slice(v r3.Vec) []float64 {
	return []float64{v.X, v.Y, v.Z}
}

// VecFromSlice reads the first three elements of s.
func VecFromSlice(s []float64) r3.Vec {
	return r3.Vec{X: s[0], Y: s[1], Z: s[2]}
}

// PutVec writes v into dst[0:3].
func PutVec(dst []float64, v r3.Vec) {
	dst[0], dst[1], dst[2] = v.X, v.Y, v.Z
}
