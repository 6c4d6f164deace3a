package metrics

import (
	"github.com/san-kum/antsim/internal/env"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

type MeanHeight struct {
	name    string
	field   env.Field
	sum     float64
	samples int
}

func NewMeanHeight() *MeanHeight {
	return &MeanHeight{
		name:  "mean_height",
		field: env.AntLayout.Field("torso_height"),
	}
}

func (m *MeanHeight) Name() string {
	return m.name
}

func (m *MeanHeight) Observe(res env.StepResult, actions *mat.Dense, t float64) {
	col := mat.Col(nil, m.field.Offset, preResetObs(res))
	m.sum += stat.Mean(col, nil)
	m.samples++
}

func (m *MeanHeight) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *MeanHeight) Reset() {
	m.sum = 0
	m.samples = 0
}
