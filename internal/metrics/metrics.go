// Package metrics accumulates scalar summaries over environment steps.
package metrics

import (
	"github.com/san-kum/antsim/internal/env"
	"gonum.org/v1/gonum/mat"
)

// Metric observes every step of a batched rollout and reduces it to one
// value.
type Metric interface {
	Name() string
	Observe(res env.StepResult, actions *mat.Dense, t float64)
	Value() float64
	Reset()
}

// Defaults returns the metric set used by the rollout commands.
func Defaults() []Metric {
	return []Metric{
		NewEpisodeReturn(),
		NewMeanHeight(),
		NewActionEffort(),
		NewResetRate(),
		NewStability(DefaultUprightThreshold),
	}
}

// preResetObs returns the observations of the step before any automatic
// reset replaced them.
func preResetObs(res env.StepResult) *mat.Dense {
	if res.Extras != nil && res.Extras.ObsBeforeReset != nil {
		return res.Extras.ObsBeforeReset
	}
	return res.Obs
}
