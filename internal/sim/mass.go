package sim

import (
	"math"

	"github.com/san-kum/antsim/internal/spatial"
	"gonum.org/v1/gonum/spatial/r3"
)

// shapeMass returns mass, local center of mass and rotational inertia about
// that center for a solid shape of the given density.
func shapeMass(s ShapeDesc, density float64) (float64, r3.Vec, spatial.Mat3) {
	r := s.Radius
	switch s.Kind {
	case ShapeCapsule:
		axis := r3.Sub(s.To, s.From)
		l := r3.Norm(axis)
		center := r3.Scale(0.5, r3.Add(s.From, s.To))

		mc := density * math.Pi * r * r * l
		ms := density * 4.0 / 3.0 * math.Pi * r * r * r
		m := mc + ms

		ia := mc*r*r/2 + ms*2*r*r/5
		ip := mc*(3*r*r+l*l)/12 + ms*(2*r*r/5+l*l/4+3*l*r/8)

		var u r3.Vec
		if l > 0 {
			u = r3.Scale(1/l, axis)
		}
		uu := spatial.Outer(u, u)
		in := spatial.Diag3(ip, ip, ip).Add(uu.Scale(ia - ip))
		return m, center, in
	default:
		m := density * 4.0 / 3.0 * math.Pi * r * r * r
		i := 2.0 / 5.0 * m * r * r
		return m, s.From, spatial.Diag3(i, i, i)
	}
}

// bodyMass combines the shapes of a body into total mass, center of mass and
// inertia about the center of mass (parallel axis theorem).
func bodyMass(shapes []ShapeDesc, density float64) (float64, r3.Vec, spatial.Mat3) {
	var (
		total float64
		mc    r3.Vec
	)
	type part struct {
		m  float64
		c  r3.Vec
		in spatial.Mat3
	}
	parts := make([]part, 0, len(shapes))
	for _, s := range shapes {
		m, c, in := shapeMass(s, density)
		parts = append(parts, part{m, c, in})
		total += m
		mc = r3.Add(mc, r3.Scale(m, c))
	}
	if total == 0 {
		return 0, r3.Vec{}, spatial.Mat3{}
	}
	com := r3.Scale(1/total, mc)

	var inertia spatial.Mat3
	for _, p := range parts {
		d := r3.Sub(p.c, com)
		d2 := r3.Dot(d, d)
		shift := spatial.Diag3(d2, d2, d2).Add(spatial.Outer(d, d).Scale(-1)).Scale(p.m)
		inertia = inertia.Add(p.in).Add(shift)
	}
	return total, com, inertia
}
