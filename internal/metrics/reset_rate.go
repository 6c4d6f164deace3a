package metrics

import (
	"github.com/san-kum/antsim/internal/env"
	"gonum.org/v1/gonum/mat"
)

// ResetRate is the fraction of environment steps that ended an episode.
type ResetRate struct {
	name    string
	resets  int
	samples int
}

func NewResetRate() *ResetRate {
	return &ResetRate{
		name: "reset_rate",
	}
}

func (r *ResetRate) Name() string {
	return r.name
}

func (r *ResetRate) Observe(res env.StepResult, actions *mat.Dense, t float64) {
	for i := range res.Terminated {
		if res.Done(i) {
			r.resets++
		}
		r.samples++
	}
}

func (r *ResetRate) Value() float64 {
	if r.samples == 0 {
		return 0
	}
	return float64(r.resets) / float64(r.samples)
}

func (r *ResetRate) Reset() {
	r.resets = 0
	r.samples = 0
}
