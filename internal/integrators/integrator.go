// Package integrators advances articulated simulation states in time.
package integrators

import "github.com/san-kum/antsim/internal/sim"

// Integrator advances a State by dt split into substeps. cacheFreq is the
// number of substeps a mass matrix factorization is reused for.
type Integrator interface {
	Name() string
	Forward(m *sim.Model, s *sim.State, dt float64, substeps, cacheFreq int) (*sim.State, error)
	// StepEnv advances the single environment env in place on raw rows.
	StepEnv(m *sim.Model, env int, q, qd, act, bodyFS []float64, dt float64, substeps, cacheFreq int) error
}
