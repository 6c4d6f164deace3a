package dynamo

import "runtime"

// ExecContext carries the execution target and differentiability mode. It
// replaces any implicit global device or graph state: every Model, State and
// Integrator is constructed with one.
type ExecContext struct {
	Device       string
	RequiresGrad bool
	Workers      int
}

func DefaultExecContext() ExecContext {
	return ExecContext{
		Device:  "cpu",
		Workers: runtime.NumCPU(),
	}
}

// NoGrad returns a copy of the context with gradient tracking disabled.
func (c ExecContext) NoGrad() ExecContext {
	c.RequiresGrad = false
	return c
}

// WithGrad returns a copy of the context with gradient tracking enabled.
func (c ExecContext) WithGrad() ExecContext {
	c.RequiresGrad = true
	return c
}
