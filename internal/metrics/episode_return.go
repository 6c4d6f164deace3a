package metrics

import (
	"github.com/san-kum/antsim/internal/env"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// EpisodeReturn is the mean undiscounted return of completed episodes. Before
// any episode completes it reports the mean running return.
type EpisodeReturn struct {
	name      string
	running   []float64
	completed []float64
}

func NewEpisodeReturn() *EpisodeReturn {
	return &EpisodeReturn{
		name: "episode_return",
	}
}

func (e *EpisodeReturn) Name() string {
	return e.name
}

func (e *EpisodeReturn) Observe(res env.StepResult, actions *mat.Dense, t float64) {
	n := res.Reward.Len()
	if len(e.running) != n {
		e.running = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		e.running[i] += res.Reward.AtVec(i)
		if res.Done(i) {
			e.completed = append(e.completed, e.running[i])
			e.running[i] = 0
		}
	}
}

func (e *EpisodeReturn) Value() float64 {
	if len(e.completed) > 0 {
		return stat.Mean(e.completed, nil)
	}
	if len(e.running) == 0 {
		return 0
	}
	return stat.Mean(e.running, nil)
}

// Completed returns the number of finished episodes.
func (e *EpisodeReturn) Completed() int {
	return len(e.completed)
}

func (e *EpisodeReturn) Reset() {
	e.running = nil
	e.completed = nil
}
