// Package optim searches run parameters for the value that minimises a
// metric, running one experiment per grid point.
package optim

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/dpdsim/internal/config"
	"github.com/san-kum/dpdsim/internal/experiment"
	"github.com/san-kum/dpdsim/internal/sim"
)

// Trial is one evaluated grid point.
type Trial struct {
	Params map[string]float64
	Value  float64
	// Err is set when the point produced an invalid config or a failed run.
	Err error
}

// GridSearch evaluates the cartesian product of Values, one list per name in
// Params. Names are resolved by Apply.
type GridSearch struct {
	Params []string
	Values [][]float64
	// Workers caps concurrent runs; 0 means one.
	Workers int
}

func NewGridSearch(params []string, values [][]float64) *GridSearch {
	return &GridSearch{Params: params, Values: values}
}

func (g *GridSearch) points() []map[string]float64 {
	points := []map[string]float64{{}}
	for i, name := range g.Params {
		next := make([]map[string]float64, 0, len(points)*len(g.Values[i]))
		for _, p := range points {
			for _, v := range g.Values[i] {
				q := make(map[string]float64, len(p)+1)
				for k, x := range p {
					q[k] = x
				}
				q[name] = v
				next = append(next, q)
			}
		}
		points = next
	}
	return points
}

// Search runs base with every grid point applied and returns the trials
// sorted by metric value, failed trials last. The best trial is the first
// one without an error; if every trial failed best has a nil Params.
func (g *GridSearch) Search(ctx context.Context, base *config.Config, metric string) (trials []Trial, best Trial, err error) {
	if len(g.Params) != len(g.Values) {
		return nil, Trial{}, fmt.Errorf("%d params for %d value lists", len(g.Params), len(g.Values))
	}
	if _, err := experiment.NewRegistry().GetMetric(metric); err != nil {
		return nil, Trial{}, err
	}

	points := g.points()
	trials = make([]Trial, len(points))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(max(g.Workers, 1))
	for i, p := range points {
		eg.Go(func() error {
			v, err := evaluate(ctx, base, p, metric)
			trials[i] = Trial{Params: p, Value: v, Err: err}
			return ctx.Err()
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, Trial{}, err
	}

	slices.SortStableFunc(trials, func(a, b Trial) int {
		if (a.Err == nil) != (b.Err == nil) {
			if a.Err == nil {
				return -1
			}
			return 1
		}
		return cmp.Compare(a.Value, b.Value)
	})
	if len(trials) > 0 && trials[0].Err == nil {
		best = trials[0]
	}
	return trials, best, nil
}

func evaluate(ctx context.Context, base *config.Config, params map[string]float64, metric string) (float64, error) {
	cfg := base.Clone()
	cfg.Commands = nil
	for name, v := range params {
		if err := Apply(cfg, name, v); err != nil {
			return math.NaN(), err
		}
	}
	exp, err := experiment.New(cfg, nil)
	if err != nil {
		return math.NaN(), err
	}
	m, err := experiment.NewRegistry().GetMetric(metric)
	if err != nil {
		return math.NaN(), err
	}
	if err := exp.Setup([]sim.Metric{m}); err != nil {
		return math.NaN(), err
	}
	if _, err := exp.Run(ctx); err != nil {
		return math.NaN(), err
	}
	return m.Value(), nil
}

// Apply sets the parameter name on cfg. Accepted names are dt, temperature,
// lambda, cutoff, density (of the first solvent), conservative:A:B and
// dissipative:A:B for an interaction, and spring:P, length:P and modulus:P
// for the polymer named P.
func Apply(cfg *config.Config, name string, v float64) error {
	key, rest, _ := strings.Cut(name, ":")
	switch key {
	case "dt":
		cfg.Dt = v
	case "temperature":
		cfg.Temperature = v
	case "lambda":
		cfg.Lambda = v
	case "cutoff":
		cfg.Cutoff = v
	case "density":
		if len(cfg.Solvent) == 0 {
			return fmt.Errorf("%s: config has no solvent", name)
		}
		cfg.Solvent[0].Density = v
	case "conservative", "dissipative":
		a, b, ok := strings.Cut(rest, ":")
		if !ok {
			return fmt.Errorf("%s: want %s:A:B", name, key)
		}
		i := slices.IndexFunc(cfg.Interactions, func(ic config.InteractionConfig) bool {
			return (ic.A == a && ic.B == b) || (ic.A == b && ic.B == a)
		})
		if i < 0 {
			return fmt.Errorf("%s: no interaction between %s and %s", name, a, b)
		}
		if key == "conservative" {
			cfg.Interactions[i].Conservative = v
		} else {
			cfg.Interactions[i].Dissipative = v
		}
	case "spring", "length", "modulus":
		i := slices.IndexFunc(cfg.Polymers, func(p config.PolymerConfig) bool { return p.Name == rest })
		if i < 0 {
			return fmt.Errorf("%s: no polymer named %q", name, rest)
		}
		switch key {
		case "spring":
			cfg.Polymers[i].Spring = v
		case "length":
			cfg.Polymers[i].Length = v
		case "modulus":
			cfg.Polymers[i].Modulus = v
		}
	default:
		return fmt.Errorf("unknown sweep parameter: %s", name)
	}
	return nil
}
