package env

import (
	"fmt"
	"math"

	"github.com/san-kum/antsim/internal/dynamo"
	"github.com/san-kum/antsim/internal/sim"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

// Jacobian differentiates one control step of every environment with
// respect to the previous observation and the applied joint torques. Each
// result is MaxJacobianOutDim x (AntObs + AntActs), computed by central
// finite differences from the live state.
func (e *Ant) Jacobian(obs, torques *mat.Dense) ([]*mat.Dense, error) {
	if r, c := obs.Dims(); r != e.numEnvs || c != AntObs {
		return nil, fmt.Errorf("observations are %dx%d, want %dx%d: %w", r, c, e.numEnvs, AntObs, dynamo.ErrDimensionMismatch)
	}
	if r, c := torques.Dims(); r != e.numEnvs || c != AntActs {
		return nil, fmt.Errorf("torques are %dx%d, want %dx%d: %w", r, c, e.numEnvs, AntActs, dynamo.ErrDimensionMismatch)
	}
	return e.jacobian(e.state, obs, torques, e.actions)
}

// jacobian differentiates around base; actions fill the last-action
// observation slot of the outputs.
func (e *Ant) jacobian(base *sim.State, obs, torques, actions *mat.Dense) ([]*mat.Dense, error) {
	m := e.model
	jac := make([]*mat.Dense, e.numEnvs)
	errs := make([]error, e.numEnvs)

	dynamo.ParallelFor(e.numEnvs, 1, e.exec.Workers, func(start, end int) {
		q := make([]float64, m.QDim)
		qd := make([]float64, m.QDDim)
		act := make([]float64, m.QDDim)
		fs := make([]float64, 6*m.NumBodies)
		out := make([]float64, MaxJacobianOutDim)
		x0 := make([]float64, AntObs+AntActs)

		for env := start; env < end; env++ {
			copy(x0[:AntObs], obs.RawRowView(env))
			copy(x0[AntObs:], torques.RawRowView(env))

			f := func(y, x []float64) {
				copy(q, base.JointQ.RawRowView(env))
				copy(qd, base.JointQD.RawRowView(env))
				copy(act, base.JointAct.RawRowView(env))
				e.inject(q, qd, act, x[:AntObs], x[AntObs:])

				err := e.integ.StepEnv(m, env, q, qd, act, fs, e.cfg.Sim.Dt, e.cfg.Sim.Substeps, e.cfg.MMCachingFrequency)
				if err != nil {
					errs[env] = err
					for i := range y {
						y[i] = math.NaN()
					}
					return
				}
				e.observe(out, q, qd, actions.RawRowView(env), env, MaxJacobianOutDim)
				copy(y, out)
			}

			dst := mat.NewDense(MaxJacobianOutDim, AntObs+AntActs, nil)
			fd.Jacobian(dst, f, x0, &fd.JacobianSettings{Formula: fd.Central})
			jac[env] = dst
		}
	})

	for env, err := range errs {
		if err != nil {
			return nil, &dynamo.SimulationError{Step: e.numFrames, Time: e.simTime, Env: env, Wrapped: err}
		}
	}
	return jac, nil
}
