package dynamo

import (
	"errors"
	"testing"
)

func TestParallelForCoversRange(t *testing.T) {
	tests := []struct {
		name     string
		n        int
		minChunk int
		workers  int
	}{
		{"serial", 10, 16, 4},
		{"single worker", 100, 1, 1},
		{"even split", 64, 4, 4},
		{"uneven split", 37, 2, 8},
		{"more workers than items", 3, 1, 16},
		{"zero workers", 9, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits := make([]int, tt.n)
			ParallelFor(tt.n, tt.minChunk, tt.workers, func(start, end int) {
				for i := start; i < end; i++ {
					hits[i]++
				}
			})
			for i, h := range hits {
				if h != 1 {
					t.Fatalf("index %d visited %d times", i, h)
				}
			}
		})
	}
}

func TestSimulationErrorUnwrap(t *testing.T) {
	err := &SimulationError{Step: 3, Time: 0.05, Env: 2, Wrapped: ErrInvalidState}
	if !errors.Is(err, ErrInvalidState) {
		t.Error("expected errors.Is to match wrapped sentinel")
	}
	expected := "step 3 (t=0.0500, env 2): dynamo: invalid state (NaN or Inf detected)"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestExecContextModes(t *testing.T) {
	ctx := DefaultExecContext()
	if ctx.RequiresGrad {
		t.Error("default context should not track gradients")
	}
	if !ctx.WithGrad().RequiresGrad {
		t.Error("WithGrad should enable tracking")
	}
	if ctx.WithGrad().NoGrad().RequiresGrad {
		t.Error("NoGrad should disable tracking")
	}
	if ctx.Workers < 1 {
		t.Errorf("expected at least one worker, got %d", ctx.Workers)
	}
}
