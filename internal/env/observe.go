package env

import (
	"fmt"

	"github.com/san-kum/antsim/internal/dynamo"
	"github.com/san-kum/antsim/internal/sim"
	"github.com/san-kum/antsim/internal/spatial"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// CalculateObservations recomputes the observation buffer from the live
// state and returns it.
func (e *Ant) CalculateObservations() *mat.Dense {
	e.obs = e.ObservationFromState(e.state)
	return e.obs
}

// ObservationFromState computes observations for an arbitrary state of this
// environment's model, using the environment's current actions.
func (e *Ant) ObservationFromState(s *sim.State) *mat.Dense {
	obs := mat.NewDense(e.numEnvs, AntObs, nil)
	for i := 0; i < e.numEnvs; i++ {
		e.observe(obs.RawRowView(i), s.JointQ.RawRowView(i), s.JointQD.RawRowView(i), e.actions.RawRowView(i), i, AntObs)
	}
	return obs
}

// observe writes the first n observation components of environment env.
func (e *Ant) observe(row, q, qd, act []float64, env, n int) {
	pos := spatial.VecFromSlice(q[0:3])
	rot := spatial.QuatFromSlice(q[3:7])
	angVel := spatial.VecFromSlice(qd[0:3])
	// joint_qd holds the velocity of the point at the world origin.
	linVel := r3.Sub(spatial.VecFromSlice(qd[3:6]), r3.Cross(pos, angVel))

	var full [AntObs]float64
	obsHeight.Of(full[:])[0] = pos.Y
	copy(obsRot.Of(full[:]), q[3:7])
	spatial.PutVec(obsLinVel.Of(full[:]), linVel)
	spatial.PutVec(obsAngVel.Of(full[:]), angVel)

	if n > obsJointQ.Offset {
		copy(obsJointQ.Of(full[:]), q[rootQ:])
		vel := obsJointQD.Of(full[:])
		for j := range vel {
			vel[j] = e.cfg.Ant.JointVelObsScaling * qd[rootQD+j]
		}

		toTarget := r3.Sub(r3.Add(target, e.startPos[env]), pos)
		toTarget.Y = 0
		var dir r3.Vec
		if norm := r3.Norm(toTarget); norm > 0 {
			dir = r3.Scale(1/norm, toTarget)
		}
		torso := quat.Mul(rot, e.invStartRot)
		up := spatial.Rotate(torso, basisUp)
		heading := spatial.Rotate(torso, basisFw)

		obsUp.Of(full[:])[0] = up.Y
		obsHeading.Of(full[:])[0] = r3.Dot(heading, dir)
		copy(obsActions.Of(full[:]), act)
	}

	copy(row, full[:n])
}

// calculateReward scores the latest observations: forward velocity, upright
// and heading alignment, height above the termination threshold and the
// scaled squared action norm.
func (e *Ant) calculateReward() {
	for i := 0; i < e.numEnvs; i++ {
		row := e.obs.RawRowView(i)
		progress := obsLinVel.Of(row)[0]
		up := 0.1 * obsUp.Of(row)[0]
		heading := obsHeading.Of(row)[0]
		height := obsHeight.Of(row)[0] - e.cfg.Ant.TerminationHeight

		var effort float64
		for _, a := range e.actions.RawRowView(i) {
			effort += a * a
		}
		e.rew.SetVec(i, progress+up+heading+height+effort*e.cfg.Ant.ActionPenalty)
	}
}

// SetStateAct writes the state fields covered by obs, and the joint torques
// act, into s. It inverts ObservationFromState for every field it touches;
// the horizontal torso position is taken from s.
func (e *Ant) SetStateAct(s *sim.State, obs, act *mat.Dense) error {
	if r, c := obs.Dims(); r != e.numEnvs || c != AntObs {
		return fmt.Errorf("observations are %dx%d, want %dx%d: %w", r, c, e.numEnvs, AntObs, dynamo.ErrDimensionMismatch)
	}
	if r, c := act.Dims(); r != e.numEnvs || c != AntActs {
		return fmt.Errorf("torques are %dx%d, want %dx%d: %w", r, c, e.numEnvs, AntActs, dynamo.ErrDimensionMismatch)
	}
	if err := s.Validate(e.model); err != nil {
		return err
	}
	for i := 0; i < e.numEnvs; i++ {
		e.inject(s.JointQ.RawRowView(i), s.JointQD.RawRowView(i), s.JointAct.RawRowView(i),
			obs.RawRowView(i), act.RawRowView(i))
	}
	return nil
}

func (e *Ant) inject(q, qd, jointAct, obs, act []float64) {
	q[1] = obsHeight.Of(obs)[0]
	copy(q[3:7], obsRot.Of(obs))

	pos := spatial.VecFromSlice(q[0:3])
	angVel := spatial.VecFromSlice(obsAngVel.Of(obs))
	linVel := spatial.VecFromSlice(obsLinVel.Of(obs))
	spatial.PutVec(qd[0:3], angVel)
	spatial.PutVec(qd[3:6], r3.Add(linVel, r3.Cross(pos, angVel)))

	copy(q[rootQ:], obsJointQ.Of(obs))
	vel := obsJointQD.Of(obs)
	for j := range vel {
		qd[rootQD+j] = vel[j] / e.cfg.Ant.JointVelObsScaling
	}
	copy(jointAct[rootQD:], act)
}
