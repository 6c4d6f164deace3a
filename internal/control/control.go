package control

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Controller computes a (numEnvs x actionDim) action batch from a
// (numEnvs x obsDim) observation batch at simulation time t.
type Controller interface {
	Compute(obs *mat.Dense, t float64) *mat.Dense
}

// Tunable is implemented by controllers with adjustable gains.
type Tunable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64)
}

// Resetter is implemented by controllers that carry internal state.
type Resetter interface {
	Reset()
}

// Names lists the controllers accepted by New.
func Names() []string {
	names := []string{"zero", "random", "gait", "pd"}
	sort.Strings(names)
	return names
}

// New builds a controller by name with default gains.
func New(name string, actDim int, seed uint64) (Controller, error) {
	switch strings.ToLower(name) {
	case "zero", "none":
		return NewZero(actDim), nil
	case "random":
		return NewRandom(actDim, seed), nil
	case "gait":
		return NewGait(DefaultGaitAmplitude, DefaultGaitFrequency), nil
	case "pd":
		return NewPD(DefaultKp, DefaultKd, nil), nil
	default:
		return nil, fmt.Errorf("unknown controller %q (available: %s)", name, strings.Join(Names(), ", "))
	}
}

func clamp(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
