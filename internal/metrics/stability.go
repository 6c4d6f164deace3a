package metrics

import (
	"github.com/san-kum/antsim/internal/env"
	"gonum.org/v1/gonum/mat"
)

// DefaultUprightThreshold is the minimum up-axis projection of an upright
// torso.
const DefaultUprightThreshold = 0.5

// Stability is the fraction of environment steps with the torso upright.
type Stability struct {
	name       string
	threshold  float64
	field      env.Field
	violations int
	samples    int
}

func NewStability(threshold float64) *Stability {
	return &Stability{
		name:      "stability",
		threshold: threshold,
		field:     env.AntLayout.Field("up"),
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(res env.StepResult, actions *mat.Dense, t float64) {
	obs := preResetObs(res)
	n, _ := obs.Dims()
	for i := 0; i < n; i++ {
		s.samples++
		if s.field.Of(obs.RawRowView(i))[0] < s.threshold {
			s.violations++
		}
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}
