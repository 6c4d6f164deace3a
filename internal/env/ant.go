package env

import (
	"errors"
	"fmt"
	"math"

	"github.com/charmbracelet/log"
	"github.com/san-kum/antsim/internal/config"
	"github.com/san-kum/antsim/internal/dynamo"
	"github.com/san-kum/antsim/internal/integrators"
	"github.com/san-kum/antsim/internal/models"
	"github.com/san-kum/antsim/internal/sim"
	"github.com/san-kum/antsim/internal/spatial"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat/distmv"
)

const (
	// AntObs and AntActs are the per-environment observation and action
	// widths.
	AntObs  = 37
	AntActs = models.AntActions

	// MaxJacobianOutDim is the number of leading observation components
	// differentiated by the Jacobian diagnostic. Components past it are
	// not differentiated.
	MaxJacobianOutDim = 11

	rootQ  = 7
	rootQD = 6
)

// Noise ranges for stochastic resets.
const (
	initPosNoise   = 0.1
	initAngleNoise = math.Pi / 24
	initJointNoise = 0.2
	initVelNoise   = 0.25
)

var (
	// target is the far-away point the ant is rewarded for heading to,
	// relative to its start position.
	target  = r3.Vec{X: 10000}
	basisUp = r3.Vec{Y: 1}
	basisFw = r3.Vec{X: 1}
)

// Ant is a batch of four-legged ants walking on a ground plane toward a
// distant target along +x.
type Ant struct {
	cfg  *config.Config
	log  *log.Logger
	exec dynamo.ExecContext

	model *sim.Model
	integ integrators.Integrator
	state *sim.State

	numEnvs int

	obs      *mat.Dense
	rew      *mat.VecDense
	actions  *mat.Dense
	progress []int
	resetBuf []bool

	startPos    []r3.Vec
	startRot    quat.Number
	invStartRot quat.Number
	startJointQ [AntActs]float64

	noise *distmv.Uniform

	renderer   Renderer
	renderTime float64
	simTime    float64
	numFrames  int
}

var _ Env = (*Ant)(nil)

// NewAnt builds the model, integrator and initial state for cfg. Any
// mismatch between the model's dimensions and the ant layout aborts
// construction with dynamo.ErrDimensionMismatch.
func NewAnt(cfg *config.Config, opts ...Option) (*Ant, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.Default()
	}

	exec := dynamo.DefaultExecContext()
	if o.exec != nil {
		exec = *o.exec
	} else {
		exec.RequiresGrad = !cfg.NoGrad
		if cfg.Workers > 0 {
			exec.Workers = cfg.Workers
		}
	}

	e := &Ant{
		cfg:         cfg.Clone(),
		log:         o.logger,
		exec:        exec,
		numEnvs:     cfg.NumEnvs,
		startRot:    spatial.QuatFromAxisAngle(r3.Vec{X: 1}, -math.Pi*0.5),
		startJointQ: models.AntRestPose,
	}
	e.invStartRot = quat.Conj(e.startRot)

	if err := e.initSim(); err != nil {
		return nil, err
	}

	e.rew = mat.NewVecDense(e.numEnvs, nil)
	e.actions = mat.NewDense(e.numEnvs, AntActs, nil)
	e.progress = make([]int, e.numEnvs)
	e.resetBuf = make([]bool, e.numEnvs)
	e.noise = distmv.NewUniform(noiseBounds(), rand.NewSource(cfg.Seed))

	if cfg.Render {
		if o.renderer == nil {
			e.log.Warn("rendering requested but no renderer attached, continuing without visualization")
		} else {
			e.renderer = o.renderer
			if b, ok := o.renderer.(ModelBinder); ok {
				if err := b.Bind(e.model); err != nil {
					e.log.Warn("renderer unavailable, continuing without visualization", "err", err)
					e.renderer = nil
				}
			}
		}
	}

	e.CalculateObservations()
	e.log.Debug("ant environment ready",
		"envs", e.numEnvs,
		"obs", AntObs,
		"actions", AntActs,
		"integrator", e.integ.Name(),
		"grad", e.exec.RequiresGrad,
		"workers", e.exec.Workers)
	return e, nil
}

func (e *Ant) initSim() error {
	b := sim.NewModelBuilder()
	b.Gravity = r3.Vec{Y: -e.cfg.Sim.Gravity}
	b.Ground = true
	b.SelfCollision = e.cfg.Sim.SelfCollision

	desc := models.Ant()
	e.startPos = make([]r3.Vec, e.numEnvs)
	for i := 0; i < e.numEnvs; i++ {
		env, err := b.AddArticulation(desc, e.cfg.Material)
		if err != nil {
			return err
		}
		e.startPos[i] = r3.Vec{Y: e.cfg.Ant.StartHeight, Z: float64(i) * e.cfg.Ant.EnvSpacing}

		q := b.JointQ[env*desc.QDim() : (env+1)*desc.QDim()]
		spatial.PutVec(q[0:3], e.startPos[i])
		spatial.PutQuat(q[3:7], e.startRot)
		copy(q[rootQ:], e.startJointQ[:])
		copy(b.JointTarget[env*desc.QDim()+rootQ:(env+1)*desc.QDim()], e.startJointQ[:])
	}

	model, err := b.Finalize(e.exec)
	if err != nil {
		return err
	}
	if model.QDim != models.AntJointQ || model.QDDim != models.AntJointQD {
		return fmt.Errorf("ant model has %d/%d coordinates, want %d/%d: %w",
			model.QDim, model.QDDim, models.AntJointQ, models.AntJointQD, dynamo.ErrDimensionMismatch)
	}
	if model.QDDim-rootQD != AntActs || AntLayout.Width != AntObs {
		return fmt.Errorf("ant layout does not match model: %w", dynamo.ErrDimensionMismatch)
	}

	state := model.State()
	if err := state.Validate(model); err != nil {
		return err
	}
	if model.Ground {
		model.Collide(state)
	}

	e.model = model
	e.integ = integrators.NewSemiImplicit(e.exec)
	e.state = state
	return nil
}

// noiseBounds lists one interval per random draw of a stochastic reset:
// root position, rotation angle, rotation axis, joint positions and all
// joint velocities.
func noiseBounds() []r1.Interval {
	var b []r1.Interval
	add := func(n int, half float64) {
		for i := 0; i < n; i++ {
			b = append(b, r1.Interval{Min: -half, Max: half})
		}
	}
	add(3, initPosNoise)
	add(1, initAngleNoise)
	add(3, 0.5)
	add(AntActs, initJointNoise)
	add(models.AntJointQD, initVelNoise)
	return b
}

func (e *Ant) ObservationSpace() Space {
	lo := make([]float64, AntObs)
	hi := make([]float64, AntObs)
	for i := range lo {
		lo[i], hi[i] = math.Inf(-1), math.Inf(1)
	}
	return NewSpace(mat.NewVecDense(AntObs, nil), KindObservation,
		mat.NewVecDense(AntObs, lo), mat.NewVecDense(AntObs, hi))
}

func (e *Ant) ActionSpace() Space {
	lo := make([]float64, AntActs)
	hi := make([]float64, AntActs)
	for i := range lo {
		lo[i], hi[i] = -1, 1
	}
	return NewSpace(mat.NewVecDense(AntActs, nil), KindAction,
		mat.NewVecDense(AntActs, lo), mat.NewVecDense(AntActs, hi))
}

// Step advances every environment by one control step.
func (e *Ant) Step(actions *mat.Dense) (StepResult, error) {
	return e.step(actions, false)
}

// PlayStep is Step without the Jacobian diagnostic, for playback.
func (e *Ant) PlayStep(actions *mat.Dense) (StepResult, error) {
	return e.step(actions, true)
}

func (e *Ant) step(actions *mat.Dense, play bool) (StepResult, error) {
	if r, c := actions.Dims(); r != e.numEnvs || c != AntActs {
		return StepResult{}, fmt.Errorf("actions are %dx%d, want %dx%d: %w",
			r, c, e.numEnvs, AntActs, dynamo.ErrDimensionMismatch)
	}

	clipped := mat.NewDense(e.numEnvs, AntActs, nil)
	clipped.Apply(func(i, j int, v float64) float64 {
		return math.Max(-1, math.Min(1, v))
	}, actions)
	var torques mat.Dense
	torques.Scale(e.cfg.Ant.ActionStrength, clipped)

	act := mat.DenseCopyOf(e.state.JointAct)
	act.Slice(0, e.numEnvs, rootQD, rootQD+AntActs).(*mat.Dense).Copy(&torques)
	in := e.state.WithAct(act)

	next, err := e.integ.Forward(e.model, in, e.cfg.Sim.Dt, e.cfg.Sim.Substeps, e.cfg.MMCachingFrequency)
	if err != nil {
		var se *dynamo.SimulationError
		if errors.As(err, &se) {
			se.Step = e.numFrames
			se.Time = e.simTime
		}
		e.log.Error("integration failed", "err", err)
		return StepResult{}, err
	}

	contactsChanged := make([]bool, e.numEnvs)
	for i := range contactsChanged {
		contactsChanged[i] = anyNonzero(next.BodyFS.RawRowView(i)) != anyNonzero(e.state.BodyFS.RawRowView(i))
	}

	var jac []*mat.Dense
	if e.cfg.Jacobians && !play {
		jac, err = e.jacobian(in, e.obs, &torques, clipped)
		if err != nil {
			return StepResult{}, err
		}
	}

	e.state = next
	e.actions = clipped
	e.simTime += e.cfg.Sim.Dt
	e.numFrames++
	for i := range e.progress {
		e.progress[i]++
	}

	e.CalculateObservations()
	e.calculateReward()

	terminated := make([]bool, e.numEnvs)
	truncated := make([]bool, e.numEnvs)
	var resetIDs []int
	for i := 0; i < e.numEnvs; i++ {
		truncated[i] = e.progress[i] > e.cfg.EpisodeLength-1
		if e.cfg.EarlyTermination {
			terminated[i] = e.obs.At(i, obsHeight.Offset) < e.cfg.Ant.TerminationHeight
		}
		if e.cfg.ContactTermination && anyNonzero(e.state.BodyFS.RawRowView(i)[0:6]) {
			terminated[i] = true
		}
		e.resetBuf[i] = terminated[i] || truncated[i]
		if e.resetBuf[i] {
			resetIDs = append(resetIDs, i)
		}
	}

	res := StepResult{
		Reward:     mat.VecDenseCopyOf(e.rew),
		Terminated: terminated,
		Truncated:  truncated,
	}
	if e.exec.RequiresGrad {
		res.Extras = &Extras{
			ObsBeforeReset:  mat.DenseCopyOf(e.obs),
			EpisodeEnd:      append([]bool(nil), e.resetBuf...),
			ContactsChanged: contactsChanged,
			Jacobian:        jac,
		}
	}

	if len(resetIDs) > 0 {
		e.Reset(resetIDs, true)
	}
	e.render()

	res.Obs = e.obs
	return res, nil
}

// Reset puts the given environments back at their start pose and returns
// the observation of the whole batch. A nil envIDs resets everything when
// force is set and is a no-op otherwise. Out of range ids are skipped.
func (e *Ant) Reset(envIDs []int, force bool) *mat.Dense {
	if envIDs == nil {
		if !force {
			return e.obs
		}
		envIDs = make([]int, e.numEnvs)
		for i := range envIDs {
			envIDs[i] = i
		}
	}

	state := e.state.Clone()
	actions := mat.DenseCopyOf(e.actions)
	sample := make([]float64, len(noiseBounds()))

	for _, id := range envIDs {
		if id < 0 || id >= e.numEnvs {
			e.log.Warn("reset: env id out of range", "env", id, "envs", e.numEnvs)
			continue
		}
		q := state.JointQ.RawRowView(id)
		qd := state.JointQD.RawRowView(id)

		pos, rot := e.startPos[id], e.startRot
		joints := e.startJointQ
		for i := range qd {
			qd[i] = 0
		}

		if e.cfg.StochasticInit {
			e.noise.Rand(sample)
			pos = r3.Add(pos, spatial.VecFromSlice(sample[0:3]))
			axis := spatial.VecFromSlice(sample[4:7])
			rot = quat.Mul(rot, spatial.QuatFromAxisAngle(axis, sample[3]))
			for i := range joints {
				joints[i] += sample[7+i]
			}
			copy(qd, sample[7+AntActs:])
		}

		spatial.PutVec(q[0:3], pos)
		spatial.PutQuat(q[3:7], rot)
		copy(q[rootQ:], joints[:])

		for j := 0; j < AntActs; j++ {
			actions.Set(id, j, 0)
		}
		e.progress[id] = 0
	}

	e.state = state
	e.actions = actions
	return e.CalculateObservations()
}

func (e *Ant) render() {
	if e.renderer == nil {
		return
	}
	e.renderTime += e.cfg.Sim.Dt
	if err := e.renderer.Update(e.state, e.renderTime); err != nil {
		e.log.Warn("render update failed", "err", err)
	}
	if e.numFrames%e.cfg.RenderInterval == 0 {
		if err := e.renderer.Save(); err != nil {
			e.log.Warn("render save failed", "frame", e.numFrames, "err", err)
		}
	}
}

func anyNonzero(row []float64) bool {
	for _, v := range row {
		if v != 0 {
			return true
		}
	}
	return false
}

func (e *Ant) NumEnvs() int             { return e.numEnvs }
func (e *Ant) Model() *sim.Model        { return e.model }
func (e *Ant) State() *sim.State        { return e.state }
func (e *Ant) Obs() *mat.Dense          { return e.obs }
func (e *Ant) Reward() *mat.VecDense    { return e.rew }
func (e *Ant) Actions() *mat.Dense      { return e.actions }
func (e *Ant) Config() *config.Config   { return e.cfg }
func (e *Ant) Exec() dynamo.ExecContext { return e.exec }
func (e *Ant) SimTime() float64         { return e.simTime }
func (e *Ant) NumFrames() int           { return e.numFrames }
func (e *Ant) StartPos(env int) r3.Vec  { return e.startPos[env] }
func (e *Ant) Progress() []int          { return append([]int(nil), e.progress...) }
func (e *Ant) ResetBuf() []bool         { return append([]bool(nil), e.resetBuf...) }
