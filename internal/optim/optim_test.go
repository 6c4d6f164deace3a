package optim

import (
	"context"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/san-kum/antsim/internal/config"
	"github.com/san-kum/antsim/internal/env"
)

func TestGridSearchMinimize(t *testing.T) {
	g, err := NewGridSearch([]string{"a", "b"}, [][]float64{{-1, 0, 1}, {2, 3}})
	if err != nil {
		t.Fatal(err)
	}
	if g.Size() != 6 {
		t.Errorf("size = %d, want 6", g.Size())
	}

	res, err := g.Search(context.Background(), func(_ context.Context, p map[string]float64) (float64, error) {
		return p["a"]*p["a"] + p["b"], nil
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Trials) != 6 {
		t.Errorf("trials = %d, want 6", len(res.Trials))
	}
	if res.BestValue != 2 || res.Best["a"] != 0 || res.Best["b"] != 2 {
		t.Errorf("best = %v (%f), want a=0 b=2 (2)", res.Best, res.BestValue)
	}
}

func TestGridSearchMaximizeSkipsNaN(t *testing.T) {
	g, err := NewGridSearch([]string{"x"}, [][]float64{{1, 2, 3}})
	if err != nil {
		t.Fatal(err)
	}
	g.Maximize = true

	res, err := g.Search(context.Background(), func(_ context.Context, p map[string]float64) (float64, error) {
		if p["x"] == 3 {
			return math.NaN(), nil
		}
		return p["x"], nil
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Best["x"] != 2 {
		t.Errorf("best x = %f, want 2", res.Best["x"])
	}
	if len(res.Trials) != 3 {
		t.Errorf("trials = %d, want 3", len(res.Trials))
	}
}

func TestGridSearchErrors(t *testing.T) {
	if _, err := NewGridSearch(nil, nil); err == nil {
		t.Error("expected error for empty grid")
	}
	if _, err := NewGridSearch([]string{"a"}, [][]float64{{1}, {2}}); err == nil {
		t.Error("expected error for mismatched ranges")
	}
	if _, err := NewGridSearch([]string{"a"}, [][]float64{{}}); err == nil {
		t.Error("expected error for empty range")
	}

	g, _ := NewGridSearch([]string{"a"}, [][]float64{{1, 2}})
	boom := errors.New("boom")
	calls := 0
	_, err := g.Search(context.Background(), func(context.Context, map[string]float64) (float64, error) {
		calls++
		return 0, boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = g.Search(ctx, func(context.Context, map[string]float64) (float64, error) { return 0, nil })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestFormatParams(t *testing.T) {
	got := FormatParams(map[string]float64{"Kp": 2, "Kd": 0.5})
	if got != "Kd=0.5 Kp=2" {
		t.Errorf("FormatParams = %q", got)
	}
}

func TestParamRangeExpand(t *testing.T) {
	got := ParamRange{Min: 0, Max: 1, Count: 5}.Expand()
	want := []float64{0, 0.25, 0.5, 0.75, 1}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("value %d = %f, want %f", i, got[i], want[i])
		}
	}

	if got := (ParamRange{Min: 3, Count: 1}).Expand(); len(got) != 1 || got[0] != 3 {
		t.Errorf("single value = %v", got)
	}
	if got := (ParamRange{Values: []float64{4, 5}, Count: 9}).Expand(); len(got) != 2 {
		t.Errorf("explicit values = %v", got)
	}
}

const sweepYAML = `name: pd-gains
controller: pd
metric: mean_height
maximize: true
steps: 3
params:
  Kp:
    min: 1
    max: 3
    count: 3
  Kd:
    values: [0.1, 0.5]
`

func TestLoadSweep(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sweep.yaml")
	if err := os.WriteFile(path, []byte(sweepYAML), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := LoadSweep(path)
	if err != nil {
		t.Fatalf("LoadSweep: %v", err)
	}
	if s.Controller != "pd" || s.Metric != "mean_height" || !s.Maximize || s.Steps != 3 {
		t.Errorf("sweep = %+v", s)
	}

	g, err := s.Grid()
	if err != nil {
		t.Fatalf("Grid: %v", err)
	}
	if g.Size() != 6 {
		t.Errorf("grid size = %d, want 6", g.Size())
	}
	if !g.Maximize {
		t.Error("grid should maximize")
	}
}

func TestSweepValidate(t *testing.T) {
	cases := map[string]Sweep{
		"no controller": {Metric: "m", Steps: 1, Params: map[string]ParamRange{"Kp": {Count: 1}}},
		"no metric":     {Controller: "pd", Steps: 1, Params: map[string]ParamRange{"Kp": {Count: 1}}},
		"no steps":      {Controller: "pd", Metric: "m", Params: map[string]ParamRange{"Kp": {Count: 1}}},
		"no params":     {Controller: "pd", Metric: "m", Steps: 1},
		"empty range":   {Controller: "pd", Metric: "m", Steps: 1, Params: map[string]ParamRange{"Kp": {}}},
	}
	for name, s := range cases {
		t.Run(name, func(t *testing.T) {
			if err := s.Validate(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func smallConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.NumEnvs = 2
	cfg.EarlyTermination = false
	return cfg
}

func TestRolloutObjective(t *testing.T) {
	quiet := env.WithLogger(log.New(io.Discard))
	obj := RolloutObjective(smallConfig(), "pd", "mean_height", 3, quiet)

	v, err := obj(context.Background(), map[string]float64{"Kp": 2, "Kd": 0.5})
	if err != nil {
		t.Fatalf("objective: %v", err)
	}
	if math.IsNaN(v) || v <= 0 {
		t.Errorf("mean height = %f, want positive", v)
	}

	if _, err := obj(context.Background(), map[string]float64{"Amplitude": 1}); err == nil {
		t.Error("expected error for unknown parameter")
	}
	if _, err := RolloutObjective(smallConfig(), "zero", "mean_height", 3, quiet)(context.Background(), nil); err == nil {
		t.Error("expected error for untunable controller")
	}
	if _, err := RolloutObjective(smallConfig(), "pd", "nope", 3, quiet)(context.Background(), nil); err == nil {
		t.Error("expected error for unknown metric")
	}
}
