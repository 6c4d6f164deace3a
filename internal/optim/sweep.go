package optim

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/san-kum/antsim/internal/config"
	"github.com/san-kum/antsim/internal/control"
	"github.com/san-kum/antsim/internal/env"
	"github.com/san-kum/antsim/internal/metrics"
	"github.com/san-kum/antsim/internal/rollout"
	"gonum.org/v1/gonum/floats"
	"gopkg.in/yaml.v3"
)

// Sweep describes a gain search loaded from YAML.
type Sweep struct {
	Name       string                `yaml:"name"`
	Controller string                `yaml:"controller"`
	Metric     string                `yaml:"metric"`
	Maximize   bool                  `yaml:"maximize"`
	Steps      int                   `yaml:"steps"`
	Params     map[string]ParamRange `yaml:"params"`
}

// ParamRange lists explicit values, or Count evenly spaced values from Min
// to Max inclusive when Values is empty.
type ParamRange struct {
	Values []float64 `yaml:"values"`
	Min    float64   `yaml:"min"`
	Max    float64   `yaml:"max"`
	Count  int       `yaml:"count"`
}

func LoadSweep(path string) (*Sweep, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var sweep Sweep
	if err := yaml.Unmarshal(data, &sweep); err != nil {
		return nil, err
	}
	if err := sweep.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &sweep, nil
}

func (s *Sweep) Validate() error {
	if s.Controller == "" {
		return errors.New("sweep needs a controller")
	}
	if s.Metric == "" {
		return errors.New("sweep needs a metric")
	}
	if s.Steps < 1 {
		return fmt.Errorf("sweep steps must be at least 1, got %d", s.Steps)
	}
	if len(s.Params) == 0 {
		return errors.New("sweep needs at least one parameter")
	}
	for name, r := range s.Params {
		if len(r.Values) == 0 && r.Count < 1 {
			return fmt.Errorf("parameter %s needs values or a count", name)
		}
	}
	return nil
}

// Expand lists the values of the range.
func (r ParamRange) Expand() []float64 {
	if len(r.Values) > 0 {
		return r.Values
	}
	if r.Count == 1 {
		return []float64{r.Min}
	}
	return floats.Span(make([]float64, r.Count), r.Min, r.Max)
}

// Grid builds the grid search over the sweep parameters in name order.
func (s *Sweep) Grid() (*GridSearch, error) {
	names := make([]string, 0, len(s.Params))
	for name := range s.Params {
		names = append(names, name)
	}
	sort.Strings(names)

	ranges := make([][]float64, len(names))
	for i, name := range names {
		ranges[i] = s.Params[name].Expand()
	}

	g, err := NewGridSearch(names, ranges)
	if err != nil {
		return nil, err
	}
	g.Maximize = s.Maximize
	return g, nil
}

// RolloutObjective scores a parameter assignment by running a fresh
// environment batch for steps steps with the named controller and reading
// metric from the default metric set.
func RolloutObjective(cfg *config.Config, controller, metric string, steps int, opts ...env.Option) Objective {
	return func(ctx context.Context, params map[string]float64) (float64, error) {
		ctrl, err := control.New(controller, env.AntActs, cfg.Seed)
		if err != nil {
			return 0, err
		}
		t, ok := ctrl.(control.Tunable)
		if !ok {
			return 0, fmt.Errorf("controller %s has no tunable parameters", controller)
		}
		known := t.GetParams()
		for name, v := range params {
			if _, ok := known[name]; !ok {
				return 0, fmt.Errorf("controller %s has no parameter %s", controller, name)
			}
			t.SetParam(name, v)
		}

		ant, err := env.NewAnt(cfg.Clone(), opts...)
		if err != nil {
			return 0, err
		}
		runner := rollout.New(ant, ctrl)
		for _, m := range metrics.Defaults() {
			runner.AddMetric(m)
		}

		res, err := runner.Run(ctx, rollout.Config{Steps: steps, Play: true})
		if err != nil {
			return 0, err
		}
		v, ok := res.Metrics[metric]
		if !ok {
			return 0, fmt.Errorf("unknown metric %s", metric)
		}
		return v, nil
	}
}
