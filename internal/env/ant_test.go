package env

import (
	"errors"
	"io"
	"math"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/san-kum/antsim/internal/config"
	"github.com/san-kum/antsim/internal/dynamo"
	"github.com/san-kum/antsim/internal/sim"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

func testConfig(mutate func(*config.Config)) *config.Config {
	cfg := config.DefaultConfig()
	cfg.NumEnvs = 4
	cfg.EpisodeLength = 100
	cfg.EarlyTermination = false
	if mutate != nil {
		mutate(cfg)
	}
	return cfg
}

func newTestAnt(t testing.TB, mutate func(*config.Config), opts ...Option) *Ant {
	t.Helper()
	opts = append([]Option{WithLogger(log.New(io.Discard))}, opts...)
	e, err := NewAnt(testConfig(mutate), opts...)
	if err != nil {
		t.Fatalf("NewAnt: %v", err)
	}
	return e
}

func randomActions(rng *rand.Rand, n int) *mat.Dense {
	a := mat.NewDense(n, AntActs, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < AntActs; j++ {
			a.Set(i, j, 2*rng.Float64()-1)
		}
	}
	return a
}

func mustStep(t testing.TB, e *Ant, actions *mat.Dense) StepResult {
	t.Helper()
	res, err := e.Step(actions)
	if err != nil {
		t.Fatalf("step %d: %v", e.NumFrames(), err)
	}
	return res
}

func TestNewAntDimensions(t *testing.T) {
	e := newTestAnt(t, nil)

	if r, c := e.Obs().Dims(); r != 4 || c != AntObs {
		t.Errorf("expected 4x%d observations, got %dx%d", AntObs, r, c)
	}
	if e.ObservationSpace().Dim() != AntObs {
		t.Errorf("expected observation dim %d, got %d", AntObs, e.ObservationSpace().Dim())
	}
	if e.ActionSpace().Dim() != AntActs {
		t.Errorf("expected action dim %d, got %d", AntActs, e.ActionSpace().Dim())
	}
	if e.Model().QDim != 15 || e.Model().QDDim != 14 {
		t.Errorf("unexpected model dims %d/%d", e.Model().QDim, e.Model().QDDim)
	}
}

func TestNewAntRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(func(c *config.Config) { c.NumEnvs = 0 })
	if _, err := NewAnt(cfg, WithLogger(log.New(io.Discard))); !errors.Is(err, dynamo.ErrParameterBounds) {
		t.Errorf("expected ErrParameterBounds, got %v", err)
	}
}

func TestResetCanonicalPose(t *testing.T) {
	e := newTestAnt(t, nil)
	mustStep(t, e, randomActions(rand.New(rand.NewSource(1)), 4))

	obs := e.Reset(nil, true)
	for i := 0; i < 4; i++ {
		if h := obs.At(i, obsHeight.Offset); h != config.DefaultStartHeight {
			t.Errorf("env %d: expected height %v, got %v", i, config.DefaultStartHeight, h)
		}
		for j := 0; j < AntActs; j++ {
			if e.Actions().At(i, j) != 0 {
				t.Errorf("env %d: action %d not cleared", i, j)
			}
			if obs.At(i, obsActions.Offset+j) != 0 {
				t.Errorf("env %d: action observation %d not cleared", i, j)
			}
		}
		if e.Progress()[i] != 0 {
			t.Errorf("env %d: progress not cleared", i)
		}
	}
}

func TestResetIdempotent(t *testing.T) {
	e := newTestAnt(t, nil)
	mustStep(t, e, randomActions(rand.New(rand.NewSource(2)), 4))

	first := mat.DenseCopyOf(e.Reset(nil, true))
	second := e.Reset(nil, true)
	if !mat.Equal(first, second) {
		t.Error("two consecutive resets produced different observations")
	}
}

func TestResetIsolation(t *testing.T) {
	e := newTestAnt(t, nil)
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 5; i++ {
		mustStep(t, e, randomActions(rng, 4))
	}

	before := mat.DenseCopyOf(e.Obs())
	after := e.Reset([]int{1}, true)

	for _, i := range []int{0, 2, 3} {
		if !mat.Equal(before.RowView(i), after.RowView(i)) {
			t.Errorf("env %d observation changed by resetting env 1", i)
		}
	}
	if after.At(1, obsHeight.Offset) != config.DefaultStartHeight {
		t.Error("env 1 was not reset")
	}
	if p := e.Progress(); p[0] != 5 || p[1] != 0 {
		t.Errorf("unexpected progress after partial reset: %v", p)
	}
}

func TestResetWithoutForceIsNoop(t *testing.T) {
	e := newTestAnt(t, nil)
	mustStep(t, e, randomActions(rand.New(rand.NewSource(4)), 4))

	before := mat.DenseCopyOf(e.Obs())
	if !mat.Equal(before, e.Reset(nil, false)) {
		t.Error("reset without ids or force changed observations")
	}
}

func TestTruncationScenario(t *testing.T) {
	e := newTestAnt(t, func(c *config.Config) { c.EpisodeLength = 10 })
	zero := mat.NewDense(4, AntActs, nil)

	for step := 1; step <= 10; step++ {
		res := mustStep(t, e, zero)
		for i := 0; i < 4; i++ {
			if res.Terminated[i] {
				t.Errorf("step %d env %d: unexpected termination", step, i)
			}
			if res.Truncated[i] != (step == 10) {
				t.Errorf("step %d env %d: truncated=%v", step, i, res.Truncated[i])
			}
		}
	}
	for i, p := range e.Progress() {
		if p != 0 {
			t.Errorf("env %d: progress %d after truncation reset", i, p)
		}
	}
}

func TestTruncationEdge(t *testing.T) {
	if testing.Short() {
		t.Skip("long rollout")
	}
	e := newTestAnt(t, func(c *config.Config) {
		c.NumEnvs = 1
		c.EpisodeLength = 1000
	})
	zero := mat.NewDense(1, AntActs, nil)

	for step := 1; step <= 1000; step++ {
		res := mustStep(t, e, zero)
		if res.Truncated[0] != (step == 1000) {
			t.Fatalf("step %d: truncated=%v", step, res.Truncated[0])
		}
	}
}

func TestObservationAfterResetIsResetObservation(t *testing.T) {
	e := newTestAnt(t, func(c *config.Config) {
		c.EpisodeLength = 3
		c.NoGrad = false
	})
	fresh := mat.DenseCopyOf(e.Reset(nil, true))
	rng := rand.New(rand.NewSource(5))

	var res StepResult
	for i := 0; i < 3; i++ {
		res = mustStep(t, e, randomActions(rng, 4))
	}

	if !res.Truncated[0] {
		t.Fatal("expected truncation at step 3")
	}
	if !mat.Equal(res.Obs, fresh) {
		t.Error("returned observation should be the reset observation")
	}
	if mat.Equal(res.Extras.ObsBeforeReset, fresh) {
		t.Error("pre-reset observation should describe the terminal state")
	}
	for i, end := range res.Extras.EpisodeEnd {
		if !end {
			t.Errorf("env %d: expected episode end flag", i)
		}
	}
}

func TestDeterministicRollouts(t *testing.T) {
	for _, stochastic := range []bool{false, true} {
		run := func() ([]*mat.Dense, []*mat.VecDense) {
			e := newTestAnt(t, func(c *config.Config) {
				c.StochasticInit = stochastic
				c.Seed = 7
				c.EpisodeLength = 12
			})
			e.Reset(nil, true)
			rng := rand.New(rand.NewSource(11))
			var obs []*mat.Dense
			var rew []*mat.VecDense
			for i := 0; i < 25; i++ {
				res := mustStep(t, e, randomActions(rng, 4))
				obs = append(obs, mat.DenseCopyOf(res.Obs))
				rew = append(rew, res.Reward)
			}
			return obs, rew
		}

		obsA, rewA := run()
		obsB, rewB := run()
		for i := range obsA {
			if !mat.Equal(obsA[i], obsB[i]) || !mat.Equal(rewA[i], rewB[i]) {
				t.Fatalf("stochastic=%v: rollouts diverged at step %d", stochastic, i)
			}
		}
	}
}

func TestStochasticResetPerturbsEachEnv(t *testing.T) {
	e := newTestAnt(t, func(c *config.Config) { c.StochasticInit = true })
	obs := e.Reset(nil, true)

	if obs.At(0, obsHeight.Offset) == obs.At(1, obsHeight.Offset) {
		t.Error("expected independent perturbations per environment")
	}
	for i := 0; i < 4; i++ {
		if d := math.Abs(obs.At(i, obsHeight.Offset) - config.DefaultStartHeight); d > initPosNoise {
			t.Errorf("env %d: height perturbation %g exceeds %g", i, d, initPosNoise)
		}
	}
}

func TestClearGradPreservesValues(t *testing.T) {
	e := newTestAnt(t, func(c *config.Config) { c.NoGrad = false })
	rng := rand.New(rand.NewSource(6))
	for i := 0; i < 5; i++ {
		mustStep(t, e, randomActions(rng, 4))
	}
	if e.State().GraphLen() == 0 {
		t.Fatal("expected tracked history before ClearGrad")
	}

	q := mat.DenseCopyOf(e.State().JointQ)
	qd := mat.DenseCopyOf(e.State().JointQD)
	actions := mat.DenseCopyOf(e.Actions())
	progress := e.Progress()

	if err := e.ClearGrad(nil); err != nil {
		t.Fatal(err)
	}

	if !mat.Equal(q, e.State().JointQ) || !mat.Equal(qd, e.State().JointQD) {
		t.Error("ClearGrad changed joint coordinates")
	}
	if !mat.Equal(actions, e.Actions()) {
		t.Error("ClearGrad changed actions")
	}
	for i, p := range e.Progress() {
		if p != progress[i] {
			t.Errorf("env %d: progress %d, want %d", i, p, progress[i])
		}
	}
	if n := e.State().GraphLen(); n != 0 {
		t.Errorf("expected empty history after ClearGrad, got %d", n)
	}
}

func TestClearGradFromCheckpoint(t *testing.T) {
	e := newTestAnt(t, func(c *config.Config) { c.NoGrad = false })
	rng := rand.New(rand.NewSource(8))
	mustStep(t, e, randomActions(rng, 4))

	cp := e.GetCheckpoint()
	for i := 0; i < 3; i++ {
		mustStep(t, e, randomActions(rng, 4))
	}
	if err := e.ClearGrad(cp); err != nil {
		t.Fatal(err)
	}

	if !mat.Equal(cp.JointQ, e.State().JointQ) || e.Progress()[0] != 1 {
		t.Error("state not restored from checkpoint")
	}

	e.State().JointQ.Set(0, 0, 99)
	if cp.JointQ.At(0, 0) == 99 {
		t.Error("live state aliases the checkpoint")
	}
}

func TestClearGradRejectsMismatchedCheckpoint(t *testing.T) {
	e := newTestAnt(t, nil)
	cp := e.GetCheckpoint()
	cp.JointQ = mat.NewDense(2, 15, nil)

	if err := e.ClearGrad(cp); !errors.Is(err, dynamo.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestInitializeTrajectory(t *testing.T) {
	e := newTestAnt(t, func(c *config.Config) { c.NoGrad = false })
	mustStep(t, e, randomActions(rand.New(rand.NewSource(9)), 4))

	obs := e.InitializeTrajectory()
	if e.State().GraphLen() != 0 {
		t.Error("expected detached state")
	}
	if !mat.Equal(obs, e.ObservationFromState(e.State())) {
		t.Error("observations not recomputed from the detached state")
	}
}

func TestObservationPathsAgree(t *testing.T) {
	e := newTestAnt(t, nil)
	mustStep(t, e, randomActions(rand.New(rand.NewSource(10)), 4))

	stateless := e.ObservationFromState(e.State())
	stateful := e.CalculateObservations()
	if !mat.Equal(stateless, stateful) {
		t.Error("stateless and stateful observations differ")
	}
}

func TestSetStateActInvertsObservation(t *testing.T) {
	e := newTestAnt(t, nil)
	rng := rand.New(rand.NewSource(12))
	for i := 0; i < 20; i++ {
		mustStep(t, e, randomActions(rng, 4))
	}

	s := e.State()
	obs := e.ObservationFromState(s)
	torques := randomActions(rng, 4)
	torques.Scale(200, torques)

	target := s.Detach()
	for i := 0; i < 4; i++ {
		q, qd := target.JointQ.RawRowView(i), target.JointQD.RawRowView(i)
		q[1] = 0
		for j := 3; j < len(q); j++ {
			q[j] = 0
		}
		for j := range qd {
			qd[j] = 0
		}
	}

	if err := e.SetStateAct(target, obs, torques); err != nil {
		t.Fatal(err)
	}

	const tol = 1e-12
	if !mat.EqualApprox(s.JointQ, target.JointQ, tol) {
		t.Error("joint_q not recovered from observation")
	}
	if !mat.EqualApprox(s.JointQD, target.JointQD, tol) {
		t.Error("joint_qd not recovered from observation")
	}
	if !mat.EqualApprox(obs, e.ObservationFromState(target), tol) {
		t.Error("observation of the injected state differs")
	}
	for i := 0; i < 4; i++ {
		for j := 0; j < AntActs; j++ {
			if target.JointAct.At(i, rootQD+j) != torques.At(i, j) {
				t.Fatalf("env %d torque %d not injected", i, j)
			}
		}
	}
}

func TestActionsClamped(t *testing.T) {
	e := newTestAnt(t, nil)
	actions := mat.NewDense(4, AntActs, nil)
	actions.Set(0, 0, 5)
	actions.Set(1, 3, -3)

	res := mustStep(t, e, actions)
	if e.Actions().At(0, 0) != 1 || e.Actions().At(1, 3) != -1 {
		t.Error("actions not clamped to [-1, 1]")
	}
	if res.Obs.At(0, obsActions.Offset) != 1 {
		t.Error("observation should carry the clamped action")
	}
	if actions.At(0, 0) != 5 {
		t.Error("caller's actions were modified")
	}
}

func TestStepRejectsWrongShape(t *testing.T) {
	e := newTestAnt(t, nil)
	if _, err := e.Step(mat.NewDense(3, AntActs, nil)); !errors.Is(err, dynamo.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestEarlyTermination(t *testing.T) {
	e := newTestAnt(t, func(c *config.Config) {
		c.NumEnvs = 1
		c.EarlyTermination = true
		c.EpisodeLength = 1000
	})
	zero := mat.NewDense(1, AntActs, nil)

	for step := 1; step <= 300; step++ {
		res := mustStep(t, e, zero)
		if res.Terminated[0] {
			if res.Truncated[0] {
				t.Error("terminated episode should not also truncate")
			}
			if h := res.Obs.At(0, obsHeight.Offset); h != config.DefaultStartHeight {
				t.Errorf("expected reset height after termination, got %v", h)
			}
			return
		}
	}
	t.Error("an ant without actuation should eventually fall below the termination height")
}

func TestRewardTerms(t *testing.T) {
	e := newTestAnt(t, func(c *config.Config) { c.Ant.ActionPenalty = -0.5 })
	actions := randomActions(rand.New(rand.NewSource(13)), 4)
	res := mustStep(t, e, actions)

	for i := 0; i < 4; i++ {
		row := res.Obs.RawRowView(i)
		var effort float64
		for _, a := range obsActions.Of(row) {
			effort += a * a
		}
		want := row[obsLinVel.Offset] + 0.1*row[obsUp.Offset] + row[obsHeading.Offset] +
			row[obsHeight.Offset] - config.DefaultTerminationHeight - 0.5*effort
		if got := res.Reward.AtVec(i); math.Abs(got-want) > 1e-12 {
			t.Errorf("env %d: reward %v, want %v", i, got, want)
		}
	}
}

func TestUprightStartObservation(t *testing.T) {
	e := newTestAnt(t, nil)
	obs := e.Reset(nil, true)

	if up := obs.At(0, obsUp.Offset); math.Abs(up-1) > 1e-12 {
		t.Errorf("expected upright torso, up=%v", up)
	}
	if h := obs.At(0, obsHeading.Offset); math.Abs(h-1) > 1e-12 {
		t.Errorf("expected heading aligned with target, got %v", h)
	}
}

func TestExtrasOnlyWhenTracking(t *testing.T) {
	e := newTestAnt(t, nil)
	if res := mustStep(t, e, mat.NewDense(4, AntActs, nil)); res.Extras != nil {
		t.Error("expected no extras without gradient tracking")
	}
}

func TestContactsChangedSignal(t *testing.T) {
	e := newTestAnt(t, func(c *config.Config) {
		c.NumEnvs = 1
		c.NoGrad = false
	})
	zero := mat.NewDense(1, AntActs, nil)

	for step := 0; step < 60; step++ {
		res := mustStep(t, e, zero)
		if res.Extras.ContactsChanged[0] {
			return
		}
	}
	t.Error("expected a contact change when the ant lands")
}

func TestJacobianExtras(t *testing.T) {
	e := newTestAnt(t, func(c *config.Config) {
		c.NumEnvs = 2
		c.NoGrad = false
		c.Jacobians = true
	})

	res := mustStep(t, e, mat.NewDense(2, AntActs, nil))
	jac := res.Extras.Jacobian
	if len(jac) != 2 {
		t.Fatalf("expected one Jacobian per env, got %d", len(jac))
	}
	r, c := jac[0].Dims()
	if r != MaxJacobianOutDim || c != AntObs+AntActs {
		t.Fatalf("unexpected Jacobian shape %dx%d", r, c)
	}
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := jac[0].At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("non-finite Jacobian entry (%d, %d)", i, j)
			}
		}
	}

	// In flight the height moves one-for-one with the previous height and
	// by dt per unit of vertical velocity.
	if d := jac[0].At(obsHeight.Offset, obsHeight.Offset); math.Abs(d-1) > 1e-4 {
		t.Errorf("d height / d height = %v, want 1", d)
	}
	if d := jac[0].At(obsHeight.Offset, obsLinVel.Offset+1); math.Abs(d-config.DefaultDt) > 1e-3 {
		t.Errorf("d height / d vy = %v, want %v", d, config.DefaultDt)
	}

	play, err := e.PlayStep(mat.NewDense(2, AntActs, nil))
	if err != nil {
		t.Fatal(err)
	}
	if play.Extras.Jacobian != nil {
		t.Error("playback steps should not compute Jacobians")
	}
}

type countingRenderer struct {
	updates, saves int
	lastTime       float64
	failSave       bool
}

func (r *countingRenderer) Update(s *sim.State, simTime float64) error {
	r.updates++
	r.lastTime = simTime
	return nil
}

func (r *countingRenderer) Save() error {
	r.saves++
	if r.failSave {
		return errors.New("disk full")
	}
	return nil
}

func TestRendererCollaborator(t *testing.T) {
	r := &countingRenderer{failSave: true}
	e := newTestAnt(t, func(c *config.Config) {
		c.Render = true
		c.RenderInterval = 2
	}, WithRenderer(r))

	zero := mat.NewDense(4, AntActs, nil)
	for i := 0; i < 4; i++ {
		mustStep(t, e, zero)
	}
	if r.updates != 4 || r.saves != 2 {
		t.Errorf("expected 4 updates and 2 saves, got %d and %d", r.updates, r.saves)
	}
	if math.Abs(r.lastTime-e.SimTime()) > 1e-12 {
		t.Errorf("render time %v out of sync with sim time %v", r.lastTime, e.SimTime())
	}
}

func TestRenderRequestedWithoutRenderer(t *testing.T) {
	e := newTestAnt(t, func(c *config.Config) { c.Render = true })
	if _, err := e.Step(mat.NewDense(4, AntActs, nil)); err != nil {
		t.Errorf("step without renderer failed: %v", err)
	}
}

type unavailableRenderer struct {
	countingRenderer
	bound *sim.Model
}

func (r *unavailableRenderer) Bind(m *sim.Model) error {
	r.bound = m
	return errors.New("no display")
}

func TestRendererBindFailureDisablesRendering(t *testing.T) {
	r := &unavailableRenderer{}
	e := newTestAnt(t, func(c *config.Config) { c.Render = true }, WithRenderer(r))
	if r.bound != e.Model() {
		t.Error("renderer should be bound to the environment model")
	}

	mustStep(t, e, mat.NewDense(4, AntActs, nil))
	if r.updates != 0 {
		t.Errorf("disabled renderer received %d updates", r.updates)
	}
}

func TestSimCounters(t *testing.T) {
	e := newTestAnt(t, nil)
	zero := mat.NewDense(4, AntActs, nil)
	for i := 0; i < 3; i++ {
		mustStep(t, e, zero)
	}
	if e.NumFrames() != 3 {
		t.Errorf("expected 3 frames, got %d", e.NumFrames())
	}
	if math.Abs(e.SimTime()-3*config.DefaultDt) > 1e-12 {
		t.Errorf("unexpected sim time %v", e.SimTime())
	}
}

func TestFailedStepKeepsActions(t *testing.T) {
	e := newTestAnt(t, func(c *config.Config) { c.NumEnvs = 2 })
	cp := e.GetCheckpoint()
	cp.JointQD.Set(1, 0, math.NaN())
	if err := e.ClearGrad(cp); err != nil {
		t.Fatal(err)
	}
	before := mat.DenseCopyOf(e.Actions())
	frames := e.NumFrames()

	ones := mat.NewDense(2, AntActs, nil)
	ones.Apply(func(i, j int, v float64) float64 { return 1 }, ones)
	if _, err := e.Step(ones); !errors.Is(err, dynamo.ErrUnstable) {
		t.Fatalf("expected ErrUnstable, got %v", err)
	}
	if !mat.Equal(e.Actions(), before) {
		t.Error("actions changed by a failed step")
	}
	if e.NumFrames() != frames {
		t.Errorf("frames advanced to %d after a failed step", e.NumFrames())
	}
}

func TestExtrasFollowExecContext(t *testing.T) {
	e := newTestAnt(t, func(c *config.Config) { c.NoGrad = true },
		WithExecContext(dynamo.DefaultExecContext().WithGrad()))

	res := mustStep(t, e, mat.NewDense(4, AntActs, nil))
	if res.Extras == nil {
		t.Fatal("expected extras when the exec context tracks gradients")
	}
	if e.State().GraphLen() == 0 {
		t.Error("expected state history while tracking gradients")
	}
}

func TestResetSkipsOutOfRangeIDs(t *testing.T) {
	e := newTestAnt(t, nil)
	for i := 0; i < 5; i++ {
		mustStep(t, e, mat.NewDense(4, AntActs, nil))
	}

	e.Reset([]int{-1, 1, 4, 99}, true)
	if e.progress[1] != 0 {
		t.Errorf("env 1 progress = %d, want 0", e.progress[1])
	}
	for _, i := range []int{0, 2, 3} {
		if e.progress[i] != 5 {
			t.Errorf("env %d progress = %d, want 5", i, e.progress[i])
		}
	}
}

func TestInitializeTrajectoryKeepsValues(t *testing.T) {
	e := newTestAnt(t, func(c *config.Config) { c.NoGrad = false })
	for i := 0; i < 3; i++ {
		mustStep(t, e, mat.NewDense(4, AntActs, nil))
	}
	q := mat.DenseCopyOf(e.State().JointQ)
	progress := append([]int(nil), e.progress...)

	obs := e.InitializeTrajectory()
	if e.State().GraphLen() != 0 {
		t.Errorf("graph length = %d after InitializeTrajectory", e.State().GraphLen())
	}
	if !mat.Equal(e.State().JointQ, q) {
		t.Error("joint_q changed")
	}
	for i := range progress {
		if e.progress[i] != progress[i] {
			t.Errorf("env %d progress = %d, want %d", i, e.progress[i], progress[i])
		}
	}
	if !mat.Equal(obs, e.ObservationFromState(e.State())) {
		t.Error("observations not recomputed from the restored state")
	}
}
