package integrators

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/antsim/internal/dynamo"
	"github.com/san-kum/antsim/internal/models"
	"github.com/san-kum/antsim/internal/sim"
	"gonum.org/v1/gonum/mat"
)

func ballDesc(radius float64) *sim.ArticulationDesc {
	return &sim.ArticulationDesc{
		Name: "ball",
		Bodies: []sim.BodyDesc{{
			Name:   "ball",
			Parent: -1,
			Joint:  sim.JointDesc{Type: sim.JointFree},
			Shapes: []sim.ShapeDesc{{Kind: sim.ShapeSphere, Radius: radius}},
		}},
		RestQ: []float64{0, 0, 0, 0, 0, 0, 1},
	}
}

func buildBall(t testing.TB, height float64, ground bool) *sim.Model {
	t.Helper()
	b := sim.NewModelBuilder()
	b.Ground = ground
	if _, err := b.AddArticulation(ballDesc(0.25), models.AntMaterial()); err != nil {
		t.Fatal(err)
	}
	b.JointQ[1] = height
	m, err := b.Finalize(dynamo.DefaultExecContext())
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func buildAnts(t testing.TB, n int, ctx dynamo.ExecContext) *sim.Model {
	t.Helper()
	b := sim.NewModelBuilder()
	b.SelfCollision = true
	for i := 0; i < n; i++ {
		env, err := b.AddArticulation(models.Ant(), models.AntMaterial())
		if err != nil {
			t.Fatal(err)
		}
		q := b.JointQ[env*models.AntJointQ:]
		q[1] = 0.75
		// z-up to y-up
		s := math.Sin(-math.Pi / 4)
		q[3], q[6] = s, math.Cos(-math.Pi/4)
	}
	m, err := b.Finalize(ctx)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestFreeFall(t *testing.T) {
	m := buildBall(t, 10, false)
	integ := NewSemiImplicit(dynamo.DefaultExecContext())

	dt, substeps := 0.1, 10
	next, err := integ.Forward(m, m.State(), dt, substeps, 1)
	if err != nil {
		t.Fatal(err)
	}

	vy := next.JointQD.At(0, 4)
	if math.Abs(vy-(-9.81*dt)) > 1e-9 {
		t.Errorf("expected vy %.6f, got %.6f", -9.81*dt, vy)
	}

	h := dt / float64(substeps)
	want := 10 - 9.81*h*h*float64(substeps*(substeps+1)/2)
	if y := next.JointQ.At(0, 1); math.Abs(y-want) > 1e-9 {
		t.Errorf("expected y %.6f, got %.6f", want, y)
	}
}

func TestGroundStopsFall(t *testing.T) {
	m := buildBall(t, 0.5, true)
	integ := NewSemiImplicit(dynamo.DefaultExecContext())

	s := m.State()
	var err error
	for i := 0; i < 180; i++ {
		s, err = integ.Forward(m, s, 1.0/60.0, 16, 16)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	y := s.JointQ.At(0, 1)
	if y < 0.2 || y > 0.26 {
		t.Errorf("expected ball to rest near its radius, got y=%.4f", y)
	}
	if vy := s.JointQD.At(0, 4); math.Abs(vy) > 1e-2 {
		t.Errorf("expected ball at rest, vy=%.4f", vy)
	}
	if mat.Norm(s.BodyFS, 2) == 0 {
		t.Error("expected nonzero contact force while resting")
	}
}

func TestNoContactForceInAir(t *testing.T) {
	m := buildBall(t, 5, true)
	next, err := NewSemiImplicit(dynamo.DefaultExecContext()).Forward(m, m.State(), 1.0/60.0, 16, 16)
	if err != nil {
		t.Fatal(err)
	}
	if mat.Norm(next.BodyFS, 2) != 0 {
		t.Error("expected zero contact force in the air")
	}
}

func TestForwardDeterministic(t *testing.T) {
	ctx := dynamo.DefaultExecContext()
	ctx.Workers = 4
	m := buildAnts(t, 8, ctx)
	integ := NewSemiImplicit(ctx)
	integ.MinChunk = 1

	s := m.State()
	s.JointAct.Set(3, 7, 150)
	s.JointAct.Set(5, 9, -80)

	run := func() *sim.State {
		cur := s
		for i := 0; i < 20; i++ {
			next, err := integ.Forward(m, cur, 1.0/60.0, 16, 16)
			if err != nil {
				t.Fatal(err)
			}
			cur = next
		}
		return cur
	}

	a, b := run(), run()
	if !mat.Equal(a.JointQ, b.JointQ) || !mat.Equal(a.JointQD, b.JointQD) {
		t.Error("two identical rollouts diverged")
	}
}

func TestForwardDoesNotMutateInput(t *testing.T) {
	m := buildAnts(t, 2, dynamo.DefaultExecContext())
	s := m.State()
	before := s.Detach()

	if _, err := NewSemiImplicit(dynamo.DefaultExecContext()).Forward(m, s, 1.0/60.0, 16, 16); err != nil {
		t.Fatal(err)
	}
	if !mat.Equal(s.JointQ, before.JointQ) || !mat.Equal(s.JointQD, before.JointQD) {
		t.Error("Forward modified its input state")
	}
}

func TestEnvironmentsIndependent(t *testing.T) {
	single := buildAnts(t, 1, dynamo.DefaultExecContext())
	batch := buildAnts(t, 4, dynamo.DefaultExecContext())
	integ := NewSemiImplicit(dynamo.DefaultExecContext())

	s1 := single.State()
	s1.JointAct.Set(0, 6, 100)
	sb := batch.State()
	sb.JointAct.Set(0, 6, 100)
	sb.JointAct.Set(2, 8, -200)

	n1, err := integ.Forward(single, s1, 1.0/60.0, 16, 16)
	if err != nil {
		t.Fatal(err)
	}
	nb, err := integ.Forward(batch, sb, 1.0/60.0, 16, 16)
	if err != nil {
		t.Fatal(err)
	}

	for j := 0; j < models.AntJointQ; j++ {
		if n1.JointQ.At(0, j) != nb.JointQ.At(0, j) {
			t.Fatalf("env 0 coordinate %d differs between single and batched run", j)
		}
	}
}

func TestCacheFrequencyApproximation(t *testing.T) {
	m := buildAnts(t, 1, dynamo.DefaultExecContext())
	integ := NewSemiImplicit(dynamo.DefaultExecContext())

	exact, err := integ.Forward(m, m.State(), 1.0/60.0, 16, 1)
	if err != nil {
		t.Fatal(err)
	}
	cached, err := integ.Forward(m, m.State(), 1.0/60.0, 16, 16)
	if err != nil {
		t.Fatal(err)
	}

	var diff mat.Dense
	diff.Sub(exact.JointQ, cached.JointQ)
	if d := mat.Norm(&diff, math.Inf(1)); d > 1e-2 {
		t.Errorf("cached mass matrix drifted too far: %g", d)
	}
}

func TestActuationMovesJoint(t *testing.T) {
	m := buildAnts(t, 1, dynamo.DefaultExecContext())
	integ := NewSemiImplicit(dynamo.DefaultExecContext())

	s := m.State()
	s.JointAct.Set(0, 6, 200)
	next, err := integ.Forward(m, s, 1.0/60.0, 16, 16)
	if err != nil {
		t.Fatal(err)
	}
	if next.JointQD.At(0, 6) <= 0 {
		t.Errorf("positive hip torque should produce positive hip velocity, got %g", next.JointQD.At(0, 6))
	}
}

func TestGradientLink(t *testing.T) {
	m := buildAnts(t, 1, dynamo.DefaultExecContext())
	s := m.State()

	tracked, err := NewSemiImplicit(dynamo.DefaultExecContext().WithGrad()).Forward(m, s, 1.0/60.0, 16, 16)
	if err != nil {
		t.Fatal(err)
	}
	if tracked.GraphLen() != 1 || tracked.Prev() != s {
		t.Errorf("expected tracked state linked to input, graph length %d", tracked.GraphLen())
	}

	plain, err := NewSemiImplicit(dynamo.DefaultExecContext()).Forward(m, s, 1.0/60.0, 16, 16)
	if err != nil {
		t.Fatal(err)
	}
	if plain.GraphLen() != 0 {
		t.Errorf("expected untracked state, graph length %d", plain.GraphLen())
	}
}

func TestForwardRejectsBadInput(t *testing.T) {
	m := buildAnts(t, 2, dynamo.DefaultExecContext())
	integ := NewSemiImplicit(dynamo.DefaultExecContext())

	s := m.State()
	s.JointQD = mat.NewDense(2, 3, nil)
	if _, err := integ.Forward(m, s, 1.0/60.0, 16, 16); !errors.Is(err, dynamo.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}

	if _, err := integ.Forward(m, m.State(), 0, 16, 16); !errors.Is(err, dynamo.ErrParameterBounds) {
		t.Errorf("expected ErrParameterBounds, got %v", err)
	}

	if _, err := integ.Forward(nil, m.State(), 0.1, 1, 1); !errors.Is(err, dynamo.ErrNotFinalized) {
		t.Errorf("expected ErrNotFinalized, got %v", err)
	}
}

func TestStepEnvMatchesForward(t *testing.T) {
	m := buildAnts(t, 2, dynamo.DefaultExecContext())
	var integ Integrator = NewSemiImplicit(dynamo.DefaultExecContext())
	if integ.Name() != "semi-implicit" {
		t.Errorf("name = %q", integ.Name())
	}
	s := m.State()
	s.JointAct.Set(1, 10, 120)

	next, err := integ.Forward(m, s, 1.0/60.0, 16, 16)
	if err != nil {
		t.Fatal(err)
	}

	q := append([]float64(nil), s.JointQ.RawRowView(1)...)
	qd := append([]float64(nil), s.JointQD.RawRowView(1)...)
	act := append([]float64(nil), s.JointAct.RawRowView(1)...)
	fs := make([]float64, 6*m.NumBodies)
	if err := integ.StepEnv(m, 1, q, qd, act, fs, 1.0/60.0, 16, 16); err != nil {
		t.Fatal(err)
	}
	for j := range q {
		if q[j] != next.JointQ.At(1, j) {
			t.Fatalf("joint_q[%d]: StepEnv %g, Forward %g", j, q[j], next.JointQ.At(1, j))
		}
	}
}
