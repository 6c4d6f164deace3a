package integrators

import (
	"math"

	"github.com/san-kum/antsim/internal/sim"
	"github.com/san-kum/antsim/internal/spatial"
	"gonum.org/v1/gonum/spatial/r3"
)

// groundContacts adds penalty forces between contact spheres and the ground
// plane y = 0. Friction is a regularized Coulomb model: a viscous force with
// stiffness kf clamped to the cone mu*fn.
func groundContacts(m *sim.Model, mtl sim.Material, w *workspace) {
	for _, cp := range m.Contacts {
		x := w.xf[cp.Body].Point(cp.Local)
		depth := x.Y - cp.Radius
		if depth >= 0 {
			continue
		}
		p := r3.Vec{X: x.X, Y: x.Y - cp.Radius, Z: x.Z}
		v := spatial.PointVelocity(w.vel[cp.Body], p)

		fn := -depth*mtl.ContactKe - math.Min(v.Y, 0)*mtl.ContactKd
		ft := friction(r3.Vec{X: v.X, Z: v.Z}, mtl, fn)

		f := r3.Vec{X: ft.X, Y: fn, Z: ft.Z}
		w.fc[cp.Body] = w.fc[cp.Body].Add(spatial.ForceAt(f, p))
	}
}

// selfContacts adds equal and opposite penalty forces between overlapping
// contact spheres of bodies that are not directly jointed, with the same
// friction model as the ground.
func selfContacts(m *sim.Model, mtl sim.Material, w *workspace) {
	for _, pair := range m.Pairs {
		a, b := m.Contacts[pair[0]], m.Contacts[pair[1]]
		xa := w.xf[a.Body].Point(a.Local)
		xb := w.xf[b.Body].Point(b.Local)

		d := r3.Sub(xb, xa)
		dist := r3.Norm(d)
		pen := dist - a.Radius - b.Radius
		if pen >= 0 || dist == 0 {
			continue
		}
		n := r3.Scale(1/dist, d)
		mid := r3.Scale(0.5, r3.Add(xa, xb))
		vrel := r3.Sub(spatial.PointVelocity(w.vel[b.Body], mid), spatial.PointVelocity(w.vel[a.Body], mid))
		vn := r3.Dot(vrel, n)

		mag := -pen*mtl.ContactKe - math.Min(vn, 0)*mtl.ContactKd
		ft := friction(r3.Sub(vrel, r3.Scale(vn, n)), mtl, mag)

		f := spatial.ForceAt(r3.Add(r3.Scale(mag, n), ft), mid)
		w.fc[b.Body] = w.fc[b.Body].Add(f)
		w.fc[a.Body] = w.fc[a.Body].Sub(f)
	}
}

// friction opposes the tangential slip velocity vt with stiffness kf,
// clamped to the cone mu*fn.
func friction(vt r3.Vec, mtl sim.Material, fn float64) r3.Vec {
	ft := r3.Scale(-mtl.ContactKf, vt)
	if limit, mag := mtl.ContactMu*math.Max(fn, 0), r3.Norm(ft); mag > limit {
		ft = r3.Scale(limit/mag, ft)
	}
	return ft
}
