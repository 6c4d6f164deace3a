package integrators

import (
	"sync"

	"github.com/san-kum/antsim/internal/sim"
	"github.com/san-kum/antsim/internal/spatial"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// workspace is the scratch memory for advancing one environment.
type workspace struct {
	nb, ndof int

	xf     []spatial.Transform
	vel    []spatial.Vector
	bias   []spatial.Vector
	force  []spatial.Vector
	fc     []spatial.Vector
	com    []r3.Vec
	inert  []spatial.Inertia
	comp   []spatial.Inertia
	motion []spatial.Vector
	bodyOf []int

	h    *mat.SymDense
	chol mat.Cholesky
	rhs  *mat.VecDense
	qdd  *mat.VecDense
}

func newWorkspace(m *sim.Model) *workspace {
	nb, ndof := m.NumBodies, m.QDDim
	w := &workspace{
		nb:     nb,
		ndof:   ndof,
		xf:     make([]spatial.Transform, nb),
		vel:    make([]spatial.Vector, nb),
		bias:   make([]spatial.Vector, nb),
		force:  make([]spatial.Vector, nb),
		fc:     make([]spatial.Vector, nb),
		com:    make([]r3.Vec, nb),
		inert:  make([]spatial.Inertia, nb),
		comp:   make([]spatial.Inertia, nb),
		motion: make([]spatial.Vector, ndof),
		bodyOf: make([]int, ndof),
		h:      mat.NewSymDense(ndof, nil),
		rhs:    mat.NewVecDense(ndof, nil),
		qdd:    mat.NewVecDense(ndof, nil),
	}
	w.bind(m)
	return w
}

// bind maps every degree of freedom to the body owning it.
func (w *workspace) bind(m *sim.Model) {
	for b := 0; b < w.nb; b++ {
		for k := 0; k < m.JointType[b].QDDim(); k++ {
			w.bodyOf[m.QDStart[b]+k] = b
		}
	}
}

// workspacePool recycles workspaces for models of one shape.
type workspacePool struct {
	pool  sync.Pool
	nb    int
	qdim  int
	qddim int
}

func newWorkspacePool(m *sim.Model) *workspacePool {
	p := &workspacePool{nb: m.NumBodies, qdim: m.QDim, qddim: m.QDDim}
	p.pool.New = func() interface{} {
		return newWorkspace(m)
	}
	return p
}

func (p *workspacePool) fits(m *sim.Model) bool {
	return p.nb == m.NumBodies && p.qdim == m.QDim && p.qddim == m.QDDim
}

func (p *workspacePool) Get() *workspace {
	return p.pool.Get().(*workspace)
}

func (p *workspacePool) Put(w *workspace) {
	if w.nb == p.nb && w.ndof == p.qddim {
		p.pool.Put(w)
	}
}
