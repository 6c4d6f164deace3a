// Package rollout drives an environment batch with a controller and
// collects per-step summaries.
package rollout

import (
	"context"
	"fmt"

	"github.com/san-kum/antsim/internal/control"
	"github.com/san-kum/antsim/internal/env"
	"github.com/san-kum/antsim/internal/metrics"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Environment is the part of the ant environment a rollout needs.
type Environment interface {
	env.Env
	Obs() *mat.Dense
	SimTime() float64
}

// Player is implemented by environments with a diagnostics-free step.
type Player interface {
	PlayStep(actions *mat.Dense) (env.StepResult, error)
}

// Observer is notified after every step.
type Observer interface {
	OnStep(step int, res env.StepResult, actions *mat.Dense, t float64)
}

// Config controls a rollout.
type Config struct {
	Steps int
	// Play steps through PlayStep when the environment supports it.
	Play bool
	// TraceEnv selects the environment whose observations and actions are
	// recorded in full.
	TraceEnv int
}

type Runner struct {
	env        Environment
	controller control.Controller
	metrics    []metrics.Metric
	observers  []Observer
}

func New(e Environment, controller control.Controller) *Runner {
	return &Runner{
		env:        e,
		controller: controller,
		metrics:    make([]metrics.Metric, 0),
		observers:  make([]Observer, 0),
	}
}

func (r *Runner) AddMetric(m metrics.Metric) { r.metrics = append(r.metrics, m) }
func (r *Runner) AddObserver(o Observer)     { r.observers = append(r.observers, o) }

func (r *Runner) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := r.validateConfig(cfg); err != nil {
		return nil, err
	}

	result := &Result{
		Times:          make([]float64, 0, cfg.Steps+1),
		MeanReward:     make([]float64, 0, cfg.Steps),
		MeanHeight:     make([]float64, 0, cfg.Steps+1),
		Resets:         make([]int, 0, cfg.Steps),
		ContactChanges: make([]int, 0, cfg.Steps),
		Observations:   make([][]float64, 0, cfg.Steps+1),
		Actions:        make([][]float64, 0, cfg.Steps),
		Metrics:        make(map[string]float64),
		TraceEnv:       cfg.TraceEnv,
	}

	for _, m := range r.metrics {
		m.Reset()
	}
	if rs, ok := r.controller.(control.Resetter); ok {
		rs.Reset()
	}

	step := r.env.Step
	if p, ok := r.env.(Player); ok && cfg.Play {
		step = p.PlayStep
	}

	height := env.AntLayout.Field("torso_height")
	obs := r.env.Obs()
	result.Times = append(result.Times, r.env.SimTime())
	result.MeanHeight = append(result.MeanHeight, stat.Mean(mat.Col(nil, height.Offset, obs), nil))
	result.Observations = append(result.Observations, mat.Row(nil, cfg.TraceEnv, obs))

	for i := 0; i < cfg.Steps; i++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		t := r.env.SimTime()
		u := r.controller.Compute(obs, t)

		res, err := step(u)
		if err != nil {
			return result, fmt.Errorf("step %d: %w", i, err)
		}

		for _, m := range r.metrics {
			m.Observe(res, u, t)
		}
		for _, o := range r.observers {
			o.OnStep(i, res, u, t)
		}

		obs = res.Obs
		result.StepsTaken++
		result.Times = append(result.Times, r.env.SimTime())
		result.MeanReward = append(result.MeanReward, stat.Mean(res.Reward.RawVector().Data, nil))
		result.MeanHeight = append(result.MeanHeight, stat.Mean(mat.Col(nil, height.Offset, obs), nil))
		result.Observations = append(result.Observations, mat.Row(nil, cfg.TraceEnv, obs))
		result.Actions = append(result.Actions, mat.Row(nil, cfg.TraceEnv, u))

		resets := 0
		for j := range res.Terminated {
			if res.Done(j) {
				resets++
			}
		}
		result.Resets = append(result.Resets, resets)

		changes := 0
		if res.Extras != nil {
			for _, c := range res.Extras.ContactsChanged {
				if c {
					changes++
				}
			}
		}
		result.ContactChanges = append(result.ContactChanges, changes)
	}

	for _, m := range r.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	return result, nil
}

func (r *Runner) validateConfig(cfg Config) error {
	if cfg.Steps <= 0 {
		return fmt.Errorf("steps must be positive, got %d", cfg.Steps)
	}
	if n, _ := r.env.Obs().Dims(); cfg.TraceEnv < 0 || cfg.TraceEnv >= n {
		return fmt.Errorf("trace env %d out of range [0, %d)", cfg.TraceEnv, n)
	}
	if r.controller == nil {
		return fmt.Errorf("no controller")
	}
	return nil
}
