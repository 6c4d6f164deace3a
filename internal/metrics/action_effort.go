package metrics

import (
	"github.com/san-kum/antsim/internal/env"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ActionEffort is the mean L1 norm of one environment's action vector.
type ActionEffort struct {
	name    string
	sum     float64
	samples int
}

func NewActionEffort() *ActionEffort {
	return &ActionEffort{
		name: "action_effort",
	}
}

func (c *ActionEffort) Name() string {
	return c.name
}

func (c *ActionEffort) Observe(res env.StepResult, actions *mat.Dense, t float64) {
	if actions == nil {
		return
	}
	n, _ := actions.Dims()
	for i := 0; i < n; i++ {
		c.sum += floats.Norm(actions.RawRowView(i), 1)
		c.samples++
	}
}

func (c *ActionEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *ActionEffort) Reset() {
	c.sum = 0
	c.samples = 0
}
