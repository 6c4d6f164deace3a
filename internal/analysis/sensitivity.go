package analysis

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/antsim/internal/config"
	"github.com/san-kum/antsim/internal/control"
	"github.com/san-kum/antsim/internal/dynamo"
	"github.com/san-kum/antsim/internal/env"
	"github.com/san-kum/antsim/internal/spatial"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const DefaultPerturbation = 1e-6

type SensitivityOptions struct {
	Steps int
	// Perturbation is added to joint_qd column Coordinate of the perturbed
	// copy.
	Perturbation float64
	Coordinate   int
	// Controller drives both copies; nil means zero actions.
	Controller control.Controller
}

type SensitivityResult struct {
	// Separation is the state-space distance after each step, before
	// renormalization.
	Separation []float64
	// ContactChanged marks steps where the reference copy gained or lost
	// ground contact.
	ContactChanged []bool
	// Exponent is the mean log growth rate per unit time.
	Exponent float64
	// ContactGrowth and FreeGrowth are the mean log growth rates over steps
	// with and without a contact change. NaN when no step falls in the set.
	ContactGrowth float64
	FreeGrowth    float64
}

// Sensitivity runs a reference and a perturbed copy of the ant side by side,
// renormalizing their separation to the initial perturbation after every
// step.
func Sensitivity(ctx context.Context, cfg *config.Config, opts SensitivityOptions, envOpts ...env.Option) (*SensitivityResult, error) {
	if opts.Steps <= 0 {
		return nil, fmt.Errorf("steps must be positive, got %d: %w", opts.Steps, dynamo.ErrParameterBounds)
	}
	if opts.Perturbation == 0 {
		opts.Perturbation = DefaultPerturbation
	}

	c := cfg.Clone()
	c.NumEnvs = 2
	c.NoGrad = true
	c.StochasticInit = false
	c.EarlyTermination = false
	c.ContactTermination = false
	c.Jacobians = false
	c.Render = false
	c.EpisodeLength = opts.Steps + 1
	c.Ant.EnvSpacing = 0

	a, err := env.NewAnt(c, envOpts...)
	if err != nil {
		return nil, err
	}
	qdDim := a.Model().QDDim
	if opts.Coordinate < 0 || opts.Coordinate >= qdDim {
		return nil, fmt.Errorf("coordinate %d out of range [0, %d): %w", opts.Coordinate, qdDim, dynamo.ErrParameterBounds)
	}
	ctrl := opts.Controller
	if ctrl == nil {
		ctrl = control.NewZero(env.AntActs)
	}

	cp := a.GetCheckpoint()
	cp.JointQD.Set(1, opts.Coordinate, cp.JointQD.At(1, opts.Coordinate)+opts.Perturbation)
	if err := a.ClearGrad(cp); err != nil {
		return nil, err
	}
	a.CalculateObservations()

	d0 := opts.Perturbation
	dt := c.Sim.Dt
	res := &SensitivityResult{
		Separation:     make([]float64, 0, opts.Steps),
		ContactChanged: make([]bool, 0, opts.Steps),
	}
	var growth, contactGrowth, freeGrowth []float64
	inContact := touching(a.State().BodyFS.RawRowView(0))

	for i := 0; i < opts.Steps; i++ {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		default:
		}

		if _, err := a.PlayStep(ctrl.Compute(a.Obs(), a.SimTime())); err != nil {
			return res, fmt.Errorf("step %d: %w", i, err)
		}

		s := a.State()
		sep := separation(s.JointQ, s.JointQD)
		now := touching(s.BodyFS.RawRowView(0))
		changed := now != inContact
		inContact = now

		res.Separation = append(res.Separation, sep)
		res.ContactChanged = append(res.ContactChanged, changed)
		if sep > 0 {
			g := math.Log(sep / d0)
			growth = append(growth, g)
			if changed {
				contactGrowth = append(contactGrowth, g)
			} else {
				freeGrowth = append(freeGrowth, g)
			}
			if err := renormalize(a, d0/sep); err != nil {
				return res, err
			}
		}
	}

	res.Exponent = meanRate(growth, dt)
	res.ContactGrowth = meanRate(contactGrowth, dt)
	res.FreeGrowth = meanRate(freeGrowth, dt)
	if len(growth) == 0 {
		res.Exponent = 0
	}
	return res, nil
}

func meanRate(g []float64, dt float64) float64 {
	if len(g) == 0 {
		return math.NaN()
	}
	return stat.Mean(g, nil) / dt
}

func separation(q, qd *mat.Dense) float64 {
	dq := floats.Distance(q.RawRowView(0), q.RawRowView(1), 2)
	dv := floats.Distance(qd.RawRowView(0), qd.RawRowView(1), 2)
	return math.Hypot(dq, dv)
}

// renormalize pulls the perturbed copy towards the reference so that their
// separation is scaled by scale.
func renormalize(a *env.Ant, scale float64) error {
	cp := a.GetCheckpoint()
	for _, d := range []*mat.Dense{cp.JointQ, cp.JointQD} {
		ref, pert := d.RawRowView(0), d.RawRowView(1)
		for j := range pert {
			pert[j] = ref[j] + (pert[j]-ref[j])*scale
		}
	}
	q := cp.JointQ.RawRowView(1)
	spatial.PutQuat(q[3:7], spatial.Normalize(spatial.QuatFromSlice(q[3:7])))

	if err := a.ClearGrad(cp); err != nil {
		return err
	}
	a.CalculateObservations()
	return nil
}

func touching(bodyFS []float64) bool {
	for _, v := range bodyFS {
		if v != 0 {
			return true
		}
	}
	return false
}
