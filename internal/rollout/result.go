package rollout

import "gonum.org/v1/gonum/floats"

// Result holds the per-step summaries of a rollout. Times, MeanHeight and
// Observations include the initial state; the other series hold one entry
// per step.
type Result struct {
	Times          []float64
	MeanReward     []float64
	MeanHeight     []float64
	Resets         []int
	ContactChanges []int
	// Observations and Actions trace environment TraceEnv.
	Observations [][]float64
	Actions      [][]float64
	TraceEnv     int
	Metrics      map[string]float64
	StepsTaken   int
}

// TotalResets is the number of episodes ended during the rollout.
func (r *Result) TotalResets() int {
	n := 0
	for _, v := range r.Resets {
		n += v
	}
	return n
}

// RewardSum is the summed mean reward.
func (r *Result) RewardSum() float64 {
	return floats.Sum(r.MeanReward)
}

// Column extracts one traced observation component over time.
func (r *Result) Column(i int) []float64 {
	out := make([]float64, len(r.Observations))
	for k, row := range r.Observations {
		out[k] = row[i]
	}
	return out
}
