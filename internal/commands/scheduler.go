package commands

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/san-kum/dpdsim/internal/sim"
)

// Scheduler is a sim.Hook that executes commands once their step is reached.
// Commands sharing a step run in config order.
type Scheduler struct {
	cmds []Command
	next int
	log  *slog.Logger
}

func NewScheduler(cmds []Command, log *slog.Logger) *Scheduler {
	sorted := slices.Clone(cmds)
	slices.SortStableFunc(sorted, func(a, b Command) int {
		switch {
		case a.At() < b.At():
			return -1
		case a.At() > b.At():
			return 1
		}
		return 0
	})
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Scheduler{cmds: sorted, log: log}
}

// Start executes commands due at or before the current step. It is called
// once before the first step so that commands at step 0 take effect at step 1.
func (s *Scheduler) Start(view *sim.View, ctl *sim.Control) error {
	return s.OnStep(view.Step(), view, ctl)
}

// Skip marks every command due at or before step as done. Used on resume,
// where their effects are already part of the checkpoint.
func (s *Scheduler) Skip(step int64) {
	for s.next < len(s.cmds) && s.cmds[s.next].At() <= step {
		s.next++
	}
}

// Pending returns the commands that have not run yet.
func (s *Scheduler) Pending() []Command {
	return s.cmds[s.next:]
}

func (s *Scheduler) OnStep(step int64, view *sim.View, ctl *sim.Control) error {
	var errs []error
	for s.next < len(s.cmds) && s.cmds[s.next].At() <= step {
		c := s.cmds[s.next]
		s.next++
		s.log.Debug("executing command", "step", step, "command", c.Name(), "at", c.At())
		if err := c.Execute(view, ctl); err != nil {
			errs = append(errs, fmt.Errorf("%s@%d: %w", c.Name(), c.At(), err))
		}
	}
	return errors.Join(errs...)
}
