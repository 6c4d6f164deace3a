package control

import (
	"github.com/san-kum/antsim/internal/env"
	"github.com/san-kum/antsim/internal/models"
	"gonum.org/v1/gonum/mat"
)

const (
	DefaultKp = 2.0
	DefaultKd = 0.5
)

// PD holds the joints at Target using the observed joint angles and
// (scaled) joint velocities.
type PD struct {
	Kp     float64
	Kd     float64
	Target []float64

	q  env.Field
	qd env.Field
}

// NewPD returns a PD controller. A nil target means the ant rest pose.
func NewPD(kp, kd float64, target []float64) *PD {
	if target == nil {
		target = append([]float64(nil), models.AntRestPose[:]...)
	}
	return &PD{
		Kp:     kp,
		Kd:     kd,
		Target: target,
		q:      env.AntLayout.Field("joint_q"),
		qd:     env.AntLayout.Field("joint_qd"),
	}
}

func (p *PD) Compute(obs *mat.Dense, t float64) *mat.Dense {
	n, _ := obs.Dims()
	u := mat.NewDense(n, len(p.Target), nil)
	for i := 0; i < n; i++ {
		row := obs.RawRowView(i)
		q, qd := p.q.Of(row), p.qd.Of(row)
		for j, target := range p.Target {
			u.Set(i, j, clamp(p.Kp*(target-q[j])-p.Kd*qd[j]))
		}
	}
	return u
}

func (p *PD) GetParams() map[string]float64 {
	return map[string]float64{
		"Kp": p.Kp,
		"Kd": p.Kd,
	}
}

func (p *PD) SetParam(name string, value float64) {
	switch name {
	case "Kp":
		p.Kp = value
	case "Kd":
		p.Kd = value
	}
}
