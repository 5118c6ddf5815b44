package tune

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/gatebridge/internal/bridge"
	"github.com/san-kum/gatebridge/internal/config"
)

// Candidate is one evaluated point of the grid.
type Candidate struct {
	Params map[string]float64
	Score  float64
	Err    error
}

// GridSearch evaluates every combination of the given parameter values by
// simulating the base config and keeps the lowest value of one run metric.
// Parameters are config.Config.SetParam names such as kp or kd.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) (*GridSearch, error) {
	if len(params) == 0 || len(params) != len(ranges) {
		return nil, fmt.Errorf("need one value range per parameter, got %d params and %d ranges", len(params), len(ranges))
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

// Search returns the best parameters, their score and every candidate in
// grid order. Candidates that fail to build or run are recorded with their
// error and never win.
func (g *GridSearch) Search(ctx context.Context, base *config.Config, metric string) (map[string]float64, float64, []Candidate, error) {
	best := math.Inf(1)
	var bestParams map[string]float64
	all := make([]Candidate, 0, g.Size())

	err := g.searchRecursive(ctx, 0, make(map[string]float64), func(params map[string]float64) {
		score, err := evaluate(ctx, base, params, metric)
		all = append(all, Candidate{Params: params, Score: score, Err: err})
		if err == nil && score < best {
			best = score
			bestParams = params
		}
	})
	if err != nil {
		return nil, 0, all, err
	}
	if bestParams == nil {
		return nil, 0, all, fmt.Errorf("no grid point produced metric %q", metric)
	}
	return bestParams, best, all, nil
}

func (g *GridSearch) searchRecursive(ctx context.Context, depth int, current map[string]float64, visit func(map[string]float64)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if depth == len(g.paramNames) {
		visit(current)
		return nil
	}

	name := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		next := make(map[string]float64, len(current)+1)
		for k, v := range current {
			next[k] = v
		}
		next[name] = val
		if err := g.searchRecursive(ctx, depth+1, next, visit); err != nil {
			return err
		}
	}
	return nil
}

func evaluate(ctx context.Context, base *config.Config, params map[string]float64, metric string) (float64, error) {
	cfg := base.Clone()
	for name, v := range params {
		if err := cfg.SetParam(name, v); err != nil {
			return 0, err
		}
	}
	b, err := bridge.New(cfg, bridge.Options{})
	if err != nil {
		return 0, err
	}
	res, err := b.Simulate(ctx)
	if err != nil {
		return 0, err
	}
	score, ok := res.Metrics[metric]
	if !ok {
		return 0, fmt.Errorf("unknown metric %q", metric)
	}
	if math.IsNaN(score) {
		return 0, fmt.Errorf("metric %q is NaN", metric)
	}
	return score, nil
}
