package control

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	DefaultGaitAmplitude = 0.8
	DefaultGaitFrequency = 1.5
)

// Gait drives the legs with phase-shifted sinusoids. Diagonal leg pairs
// move together; each ankle lags its hip by a quarter period.
type Gait struct {
	Amplitude float64
	Frequency float64 // Hz
}

func NewGait(amplitude, frequency float64) *Gait {
	return &Gait{
		Amplitude: amplitude,
		Frequency: frequency,
	}
}

// legPhase is indexed by leg in action order (front left, front right,
// back left, back right).
var legPhase = [4]float64{0, math.Pi, math.Pi, 0}

func (g *Gait) Compute(obs *mat.Dense, t float64) *mat.Dense {
	n, _ := obs.Dims()
	u := mat.NewDense(n, 2*len(legPhase), nil)
	w := 2 * math.Pi * g.Frequency
	for leg, ph := range legPhase {
		hip := clamp(g.Amplitude * math.Sin(w*t+ph))
		ankle := clamp(g.Amplitude * math.Cos(w*t+ph))
		for i := 0; i < n; i++ {
			u.Set(i, 2*leg, hip)
			u.Set(i, 2*leg+1, ankle)
		}
	}
	return u
}

func (g *Gait) GetParams() map[string]float64 {
	return map[string]float64{
		"Amplitude": g.Amplitude,
		"Frequency": g.Frequency,
	}
}

func (g *Gait) SetParam(name string, value float64) {
	switch name {
	case "Amplitude":
		g.Amplitude = value
	case "Frequency":
		g.Frequency = value
	}
}
