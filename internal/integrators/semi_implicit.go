package integrators

import (
	"fmt"
	"sync"

	"github.com/san-kum/antsim/internal/dynamo"
	"github.com/san-kum/antsim/internal/sim"
	"github.com/san-kum/antsim/internal/spatial"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// SemiImplicit is a semi-implicit Euler integrator in generalized
// coordinates. Each substep solves H(q) qdd = tau - C(q, qd) with a
// composite rigid body mass matrix, updates qd and then integrates q with
// the new velocities.
type SemiImplicit struct {
	exec dynamo.ExecContext
	// MinChunk is the smallest number of environments handed to a worker.
	MinChunk int

	mu   sync.Mutex
	pool *workspacePool
}

var _ Integrator = (*SemiImplicit)(nil)

func NewSemiImplicit(ctx dynamo.ExecContext) *SemiImplicit {
	if ctx.Workers < 1 {
		ctx.Workers = 1
	}
	return &SemiImplicit{exec: ctx, MinChunk: 16}
}

func (s *SemiImplicit) Name() string {
	return "semi-implicit"
}

func (s *SemiImplicit) poolFor(m *sim.Model) *workspacePool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pool == nil || !s.pool.fits(m) {
		s.pool = newWorkspacePool(m)
	}
	return s.pool
}

// Forward returns the state dt after st. The input state is not modified.
// With gradient tracking enabled the returned state is linked to st.
func (s *SemiImplicit) Forward(m *sim.Model, st *sim.State, dt float64, substeps, cacheFreq int) (*sim.State, error) {
	if m == nil {
		return nil, dynamo.ErrNotFinalized
	}
	if err := st.Validate(m); err != nil {
		return nil, err
	}
	if dt <= 0 || substeps < 1 {
		return nil, fmt.Errorf("dt=%g substeps=%d: %w", dt, substeps, dynamo.ErrParameterBounds)
	}

	next := &sim.State{
		JointQ:   mat.DenseCopyOf(st.JointQ),
		JointQD:  mat.DenseCopyOf(st.JointQD),
		JointAct: mat.DenseCopyOf(st.JointAct),
		BodyFS:   mat.NewDense(m.NumEnvs, 6*m.NumBodies, nil),
	}

	pool := s.poolFor(m)
	errs := make([]error, m.NumEnvs)
	dynamo.ParallelFor(m.NumEnvs, s.MinChunk, s.exec.Workers, func(start, end int) {
		w := pool.Get()
		defer pool.Put(w)
		w.bind(m)
		for env := start; env < end; env++ {
			errs[env] = stepEnv(m, env, w,
				next.JointQ.RawRowView(env),
				next.JointQD.RawRowView(env),
				next.JointAct.RawRowView(env),
				next.BodyFS.RawRowView(env),
				dt, substeps, cacheFreq)
		}
	})
	for env, err := range errs {
		if err != nil {
			return nil, &dynamo.SimulationError{Env: env, Wrapped: err}
		}
	}
	if env := next.InvalidEnv(); env >= 0 {
		return nil, &dynamo.SimulationError{Env: env, Wrapped: dynamo.ErrUnstable}
	}

	if s.exec.RequiresGrad {
		next.Link(st)
	}
	return next, nil
}

// StepEnv advances one environment in place. q, qd and act are that
// environment's joint_q, joint_qd and joint_act rows; bodyFS receives the
// contact forces of the final substep.
func (s *SemiImplicit) StepEnv(m *sim.Model, env int, q, qd, act, bodyFS []float64, dt float64, substeps, cacheFreq int) error {
	if len(q) != m.QDim || len(qd) != m.QDDim || len(act) != m.QDDim || len(bodyFS) != 6*m.NumBodies {
		return dynamo.ErrDimensionMismatch
	}
	pool := s.poolFor(m)
	w := pool.Get()
	defer pool.Put(w)
	w.bind(m)
	return stepEnv(m, env, w, q, qd, act, bodyFS, dt, substeps, cacheFreq)
}

func stepEnv(m *sim.Model, env int, w *workspace, q, qd, act, bodyFS []float64, dt float64, substeps, cacheFreq int) error {
	if cacheFreq < 1 {
		cacheFreq = 1
	}
	mtl := m.Materials[env]
	target := m.JointTarget.RawRowView(env)
	sdt := dt / float64(substeps)

	for sub := 0; sub < substeps; sub++ {
		m.EvalFK(q, w.xf)
		kinematics(m, env, w, qd)

		for b := range w.fc {
			w.fc[b] = spatial.Vector{}
		}
		if m.Ground {
			groundContacts(m, mtl, w)
		}
		if len(m.Pairs) > 0 {
			selfContacts(m, mtl, w)
		}

		for b := 0; b < w.nb; b++ {
			in := w.inert[b]
			gravity := spatial.ForceAt(r3.Scale(in.Mass, m.Gravity), w.com[b])
			w.force[b] = in.MulVec(w.bias[b]).
				Add(spatial.CrossForce(w.vel[b], in.MulVec(w.vel[b]))).
				Sub(gravity).
				Sub(w.fc[b])
		}
		for b := w.nb - 1; b > 0; b-- {
			p := m.Parent[b]
			w.force[p] = w.force[p].Add(w.force[b])
		}

		if sub%cacheFreq == 0 {
			if err := massMatrix(m, mtl, w); err != nil {
				return err
			}
		}

		for j := 0; j < w.ndof; j++ {
			tau := act[j] + jointForce(m, mtl, w.bodyOf[j], q, qd[j], target)
			w.rhs.SetVec(j, tau-w.motion[j].Dot(w.force[w.bodyOf[j]]))
		}
		if err := w.chol.SolveVecTo(w.qdd, w.rhs); err != nil {
			return fmt.Errorf("%w: %v", dynamo.ErrSingularMassMatrix, err)
		}

		for j := range qd {
			qd[j] += w.qdd.AtVec(j) * sdt
		}
		integratePositions(m, q, qd, sdt)
	}

	for b := 0; b < w.nb; b++ {
		spatial.PutVector(bodyFS[6*b:6*b+6], w.fc[b])
	}
	return nil
}

// kinematics computes world-frame motion subspaces, body twists, velocity
// product accelerations and spatial inertias from the current transforms.
func kinematics(m *sim.Model, env int, w *workspace, qd []float64) {
	for b := 0; b < w.nb; b++ {
		x := w.xf[b]
		d := m.QDStart[b]
		n := m.JointType[b].QDDim()

		switch m.JointType[b] {
		case sim.JointFree:
			for k := 0; k < 6; k++ {
				w.motion[d+k] = unitMotion(k)
			}
		case sim.JointRevolute:
			a := x.Vector(m.JointAxis[b])
			w.motion[d] = spatial.Vector{W: a, V: r3.Cross(x.P, a)}
		}

		var vj spatial.Vector
		for k := 0; k < n; k++ {
			vj = vj.Add(w.motion[d+k].Scale(qd[d+k]))
		}

		var vp, cp spatial.Vector
		if p := m.Parent[b]; p >= 0 {
			vp, cp = w.vel[p], w.bias[p]
		}
		w.vel[b] = vp.Add(vj)
		w.bias[b] = cp.Add(spatial.CrossMotion(w.vel[b], vj))

		idx := env*w.nb + b
		rot := spatial.RotationMatrix(x.Q)
		w.com[b] = x.Point(m.BodyCOM[b])
		w.inert[b] = spatial.NewInertia(m.BodyMass[idx], w.com[b], rot.Mul(m.BodyInertia[idx]).Mul(rot.T()))
	}
}

func unitMotion(k int) spatial.Vector {
	var e [6]float64
	e[k] = 1
	return spatial.VectorFromSlice(e[:])
}

// massMatrix assembles the joint-space inertia with the composite rigid body
// algorithm and factorizes it.
func massMatrix(m *sim.Model, mtl sim.Material, w *workspace) error {
	copy(w.comp, w.inert)
	for b := w.nb - 1; b > 0; b-- {
		p := m.Parent[b]
		w.comp[p] = w.comp[p].Add(w.comp[b])
	}

	w.h.Zero()
	for i := 0; i < w.ndof; i++ {
		bi := w.bodyOf[i]
		f := w.comp[bi].MulVec(w.motion[i])
		for j := m.QDStart[bi]; j <= i; j++ {
			w.h.SetSym(i, j, w.motion[j].Dot(f))
		}
		for a := m.Parent[bi]; a >= 0; a = m.Parent[a] {
			for k := 0; k < m.JointType[a].QDDim(); k++ {
				j := m.QDStart[a] + k
				w.h.SetSym(i, j, w.motion[j].Dot(f))
			}
		}
		if m.JointType[bi] == sim.JointRevolute {
			w.h.SetSym(i, i, w.h.At(i, i)+mtl.Armature)
		}
	}

	if ok := w.chol.Factorize(w.h); !ok {
		return dynamo.ErrSingularMassMatrix
	}
	return nil
}

// jointForce is the passive force on a revolute joint: a drive toward its
// target plus penalty forces past either limit.
func jointForce(m *sim.Model, mtl sim.Material, b int, q []float64, qd float64, target []float64) float64 {
	if m.JointType[b] != sim.JointRevolute {
		return 0
	}
	qi := m.QStart[b]
	angle := q[qi]
	f := mtl.Stiffness*(target[qi]-angle) - mtl.Damping*qd

	lower, upper := m.JointLower[b], m.JointUpper[b]
	if lower < upper {
		switch {
		case angle < lower:
			f += mtl.LimitKe*(lower-angle) - mtl.LimitKd*qd
		case angle > upper:
			f += mtl.LimitKe*(upper-angle) - mtl.LimitKd*qd
		}
	}
	return f
}

func integratePositions(m *sim.Model, q, qd []float64, dt float64) {
	for b := 0; b < m.NumBodies; b++ {
		s, d := m.QStart[b], m.QDStart[b]
		switch m.JointType[b] {
		case sim.JointFree:
			omega := spatial.VecFromSlice(qd[d : d+3])
			v := spatial.VecFromSlice(qd[d+3 : d+6])
			p := spatial.VecFromSlice(q[s : s+3])
			pdot := r3.Add(v, r3.Cross(omega, p))
			spatial.PutVec(q[s:s+3], r3.Add(p, r3.Scale(dt, pdot)))
			spatial.PutQuat(q[s+3:s+7], spatial.Integrate(spatial.QuatFromSlice(q[s+3:s+7]), omega, dt))
		case sim.JointRevolute:
			q[s] += qd[d] * dt
		}
	}
}
