package analysis

import (
	"fmt"
	"math/cmplx"

	"github.com/san-kum/antsim/internal/dynamo"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"
)

// FrequencyBin is one bin of a one-sided power spectrum.
type FrequencyBin struct {
	Freq  float64 // Hz
	Power float64
}

// Spectrum returns the one-sided power spectrum of a series sampled every
// dt seconds. The mean is removed first, so bin 0 carries no power.
func Spectrum(series []float64, dt float64) ([]FrequencyBin, error) {
	if len(series) < 2 {
		return nil, fmt.Errorf("spectrum needs at least 2 samples, got %d: %w", len(series), dynamo.ErrParameterBounds)
	}
	if dt <= 0 {
		return nil, fmt.Errorf("dt must be positive, got %g: %w", dt, dynamo.ErrParameterBounds)
	}

	mean := stat.Mean(series, nil)
	centered := make([]float64, len(series))
	for i, v := range series {
		centered[i] = v - mean
	}

	fft := fourier.NewFFT(len(series))
	coeff := fft.Coefficients(nil, centered)
	bins := make([]FrequencyBin, len(coeff))
	for i, c := range coeff {
		a := cmplx.Abs(c)
		bins[i] = FrequencyBin{Freq: fft.Freq(i) / dt, Power: a * a}
	}
	return bins, nil
}

// DominantFrequency returns the frequency with the most power, ignoring the
// zero bin.
func DominantFrequency(bins []FrequencyBin) float64 {
	best, freq := 0.0, 0.0
	for _, b := range bins[1:] {
		if b.Power > best {
			best, freq = b.Power, b.Freq
		}
	}
	return freq
}
