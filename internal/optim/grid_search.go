// Package optim searches controller gains for the best rollout metric.
package optim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// Objective scores one parameter assignment.
type Objective func(ctx context.Context, params map[string]float64) (float64, error)

// Trial is one evaluated point of a search.
type Trial struct {
	Params map[string]float64
	Value  float64
}

type SearchResult struct {
	Best      map[string]float64
	BestValue float64
	Trials    []Trial
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	// Maximize selects the largest objective value instead of the smallest.
	Maximize bool
}

func NewGridSearch(params []string, ranges [][]float64) (*GridSearch, error) {
	if len(params) == 0 {
		return nil, errors.New("grid search needs at least one parameter")
	}
	if len(params) != len(ranges) {
		return nil, fmt.Errorf("%d parameters but %d ranges", len(params), len(ranges))
	}
	for i, r := range ranges {
		if len(r) == 0 {
			return nil, fmt.Errorf("parameter %s has no values", params[i])
		}
	}
	return &GridSearch{paramNames: params, ranges: ranges}, nil
}

// Size is the number of grid points.
func (g *GridSearch) Size() int {
	n := 1
	for _, r := range g.ranges {
		n *= len(r)
	}
	return n
}

// Search evaluates every grid point in order. Objective errors abort the
// search; NaN values are recorded but never selected.
func (g *GridSearch) Search(ctx context.Context, objective Objective) (*SearchResult, error) {
	res := &SearchResult{
		BestValue: math.Inf(1),
		Trials:    make([]Trial, 0, g.Size()),
	}
	if g.Maximize {
		res.BestValue = math.Inf(-1)
	}

	err := g.searchRecursive(ctx, 0, make(map[string]float64), objective, res)
	return res, err
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	objective Objective,
	res *SearchResult,
) error {
	if depth == len(g.paramNames) {
		if err := ctx.Err(); err != nil {
			return err
		}
		val, err := objective(ctx, current)
		if err != nil {
			return fmt.Errorf("evaluate %s: %w", FormatParams(current), err)
		}

		res.Trials = append(res.Trials, Trial{Params: current, Value: val})
		if math.IsNaN(val) {
			return nil
		}
		if (g.Maximize && val > res.BestValue) || (!g.Maximize && val < res.BestValue) {
			res.BestValue = val
			res.Best = current
		}
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, objective, res); err != nil {
			return err
		}
	}
	return nil
}

// FormatParams renders p as space separated name=value pairs in name order.
func FormatParams(p map[string]float64) string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%g", k, p[k])
	}
	return strings.Join(parts, " ")
}
