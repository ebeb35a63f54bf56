package experiment

import (
	"fmt"
	"slices"

	"github.com/san-kum/dpdsim/internal/commands"
	"github.com/san-kum/dpdsim/internal/integrators"
	"github.com/san-kum/dpdsim/internal/metrics"
	"github.com/san-kum/dpdsim/internal/sim"
)

// Registry resolves the named pieces a config refers to.
type Registry struct {
	metrics  map[string]func() sim.Metric
	commands *commands.Registry
}

func NewRegistry() *Registry {
	r := &Registry{
		metrics:  make(map[string]func() sim.Metric),
		commands: commands.NewRegistry(),
	}
	for name, fn := range metrics.Registry {
		r.metrics[name] = fn
	}
	return r
}

func (r *Registry) GetMetric(name string) (sim.Metric, error) {
	fn, ok := r.metrics[name]
	if !ok {
		return nil, fmt.Errorf("unknown metric: %s", name)
	}
	return fn(), nil
}

func (r *Registry) GetBoundary(name string) (integrators.Boundary, error) {
	return integrators.NewBoundary(name)
}

func (r *Registry) Commands() *commands.Registry { return r.commands }

func (r *Registry) ListMetrics() []string {
	names := make([]string, 0, len(r.metrics))
	for name := range r.metrics {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// DefaultMetrics returns one of every registered metric.
func (r *Registry) DefaultMetrics() []sim.Metric {
	out := make([]sim.Metric, 0, len(r.metrics))
	for _, name := range r.ListMetrics() {
		out = append(out, r.metrics[name]())
	}
	return out
}
