package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/dpdsim/internal/analysis"
	"github.com/san-kum/dpdsim/internal/experiment"
	"github.com/san-kum/dpdsim/internal/optim"
	"github.com/san-kum/dpdsim/internal/sim"
	"github.com/san-kum/dpdsim/internal/storage"
	"github.com/san-kum/dpdsim/internal/tui"
	"github.com/san-kum/dpdsim/internal/viz"
)

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	log := newLogger()

	exp, err := experiment.New(cfg, log)
	if err != nil {
		return err
	}
	if err := exp.Setup(nil); err != nil {
		return err
	}
	runID, err := st.Create(cfg)
	if err != nil {
		return err
	}
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	meta.Beads = len(exp.State().Beads)

	fmt.Printf("running %s: %d beads, %d steps\n", cfg.Name, meta.Beads, cfg.Steps)
	return execute(exp, st, meta, log)
}

func resumeRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st, err := openStore()
	if err != nil {
		return err
	}
	log := newLogger()

	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	cfg, err := st.LoadConfig(runID)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("steps") {
		cfg.Steps = steps
		meta.Steps = steps
	}
	cp, err := st.LoadCheckpoint(runID)
	if err != nil {
		return fmt.Errorf("no checkpoint for %s: %w", runID, err)
	}
	if cp.Step >= cfg.Steps {
		fmt.Printf("%s already at step %d of %d\n", runID, cp.Step, cfg.Steps)
		return nil
	}

	exp, err := experiment.New(cfg, log)
	if err != nil {
		return err
	}
	if err := exp.Resume(cp, nil); err != nil {
		return err
	}
	if err := st.TruncateSamples(runID, cp.Step); err != nil {
		return err
	}
	meta.Stopped = false
	meta.Error = ""

	fmt.Printf("resuming %s at step %d of %d\n", runID, cp.Step, cfg.Steps)
	return execute(exp, st, meta, log)
}

// execute runs exp to its configured step count in chunks of the checkpoint
// period, persisting samples and a checkpoint after each chunk and the
// final snapshot and metadata at the end. An interrupt ends the run at the
// next step boundary with everything saved.
func execute(exp *experiment.Experiment, st *storage.Store, meta *storage.RunMetadata, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	s := exp.GetSimulator()
	cfg := exp.Config()
	chunk := cfg.CheckpointPeriod
	if chunk <= 0 {
		chunk = cfg.Steps
	}

	start := time.Now()
	startStep := s.CurrentStep()
	var runErr error
	for s.CurrentStep() < cfg.Steps {
		n := min(chunk-s.CurrentStep()%chunk, cfg.Steps-s.CurrentStep())
		res, err := s.Run(ctx, n)
		if res != nil {
			if err := st.AppendSamples(meta.ID, res.Samples); err != nil {
				return err
			}
			meta.Metrics = res.Metrics
		}
		if err == nil || errors.Is(err, context.Canceled) {
			cp, cerr := s.Checkpoint()
			if cerr != nil {
				return cerr
			}
			if cerr := st.SaveCheckpoint(meta.ID, cp); cerr != nil {
				return cerr
			}
			log.Debug("checkpoint", "run", meta.ID, "step", cp.Step)
		}
		if err != nil {
			runErr = err
			break
		}
		if res.Stopped {
			meta.Stopped = true
			break
		}
	}
	elapsed := time.Since(start)

	meta.StepsTaken = s.CurrentStep()
	if runErr != nil {
		meta.Error = runErr.Error()
	}
	if err := st.SaveSnapshot(meta.ID, s.Snapshot()); err != nil {
		return err
	}
	if err := st.SaveMetadata(meta); err != nil {
		return err
	}

	taken := s.CurrentStep() - startStep
	fmt.Printf("completed %d steps in %v (%.0f steps/s)\n", taken, elapsed.Round(time.Millisecond), float64(taken)/elapsed.Seconds())
	fmt.Printf("run id: %s\n", meta.ID)
	if meta.Stopped {
		fmt.Println(viz.StatusPaused.Render("stopped by command"))
	}
	fmt.Println(viz.Summary("metrics", metricFields(meta.Metrics)))
	return runErr
}

func metricFields(m map[string]float64) []viz.Field {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	slices.Sort(names)
	fields := make([]viz.Field, len(names))
	for i, name := range names {
		fields[i] = viz.Field{Label: name, Value: m[name]}
	}
	return fields
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	viz.SetTheme(theme)

	// The monitor owns the terminal; a nil logger discards engine logs.
	exp, err := experiment.New(cfg, nil)
	if err != nil {
		return err
	}
	if err := exp.Setup(nil); err != nil {
		return err
	}
	types := make([]string, len(cfg.BeadTypes))
	for i, bt := range cfg.BeadTypes {
		types[i] = bt.Name
	}
	return tui.RunLive(tui.NewMonitor(exp.GetSimulator(), cfg.Name, cfg.Steps, types))
}

func benchRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("steps") {
		cfg.Steps = 200
	}
	counts := []int{1, 2, 4, 8}
	if cmd.Flags().Changed("workers") {
		counts = []int{workers}
	}

	fmt.Printf("benchmarking %s, %d steps\n\n", cfg.Name, cfg.Steps)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WORKERS\tBEADS\tTIME\tSTEPS/SEC\tFINAL T")
	for _, n := range counts {
		c := cfg.Clone()
		c.Workers = n
		c.Commands = nil
		exp, err := experiment.New(c, nil)
		if err != nil {
			return err
		}
		if err := exp.Setup([]sim.Metric{}); err != nil {
			return err
		}
		start := time.Now()
		res, err := exp.Run(context.Background())
		if err != nil {
			return err
		}
		elapsed := time.Since(start)
		fmt.Fprintf(w, "%d\t%d\t%v\t%.0f\t%.4f\n",
			n, len(exp.State().Beads), elapsed.Round(time.Millisecond),
			float64(res.StepsTaken)/elapsed.Seconds(), exp.GetSimulator().Sample().Temperature)
	}
	return w.Flush()
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	if numRuns < 1 {
		return fmt.Errorf("--runs must be >= 1, got %d", numRuns)
	}
	exp, err := experiment.New(cfg, newLogger())
	if err != nil {
		return err
	}
	if len(cfg.Commands) > 0 {
		fmt.Println(viz.Subtle.Render("note: scheduled commands are not applied to ensemble replicas"))
	}

	ens := sim.NewEnsemble(exp.State(), exp.Options(), numRuns, cfg.Seed)
	ens.Limit = max(1, runtime.NumCPU()/max(cfg.Workers, 1))

	start := time.Now()
	results, err := ens.Run(context.Background(), cfg.Steps)
	if err != nil {
		return err
	}
	fmt.Printf("%d replicas of %s in %v\n\n", numRuns, cfg.Name, time.Since(start).Round(time.Millisecond))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "SEED\tSAMPLES\tMEAN %s\tSTDERR\n", field)
	finals := make([]float64, 0, len(results))
	for i, res := range results {
		values := make([]float64, 0, len(res.Samples))
		for _, smp := range res.Samples {
			v, ok := smp.Field(field)
			if !ok {
				return fmt.Errorf("unknown field: %s (have %v)", field, sim.SampleFields)
			}
			values = append(values, v)
		}
		sum := analysis.BlockStats(values, 5)
		fmt.Fprintf(w, "%d\t%d\t%.6g\t%.3g\n", cfg.Seed+uint64(i), sum.N, sum.Mean, sum.StdErr)
		finals = append(finals, sum.Mean)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	across := analysis.BlockStats(finals, len(finals))
	fmt.Println()
	fmt.Println(viz.Summary("across replicas", []viz.Field{
		{Label: "mean", Value: across.Mean},
		{Label: "stddev", Value: across.StdDev},
		{Label: "min", Value: across.Min},
		{Label: "max", Value: across.Max},
	}))
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	if len(params) == 0 {
		return fmt.Errorf("at least one --param is required")
	}
	names := make([]string, len(params))
	values := make([][]float64, len(params))
	for i, p := range params {
		name, list, ok := strings.Cut(p, "=")
		if !ok {
			return fmt.Errorf("param %q: want name=v1,v2,...", p)
		}
		names[i] = name
		for _, f := range strings.Split(list, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
			if err != nil {
				return fmt.Errorf("param %s: %w", name, err)
			}
			values[i] = append(values[i], v)
		}
		if err := optim.Apply(cfg.Clone(), name, values[i][0]); err != nil {
			return err
		}
	}

	g := optim.NewGridSearch(names, values)
	g.Workers = max(1, runtime.NumCPU()/max(cfg.Workers, 1))
	start := time.Now()
	trials, best, err := g.Search(context.Background(), cfg, metric)
	if err != nil {
		return err
	}
	fmt.Printf("%d trials of %s in %v\n\n", len(trials), cfg.Name, time.Since(start).Round(time.Millisecond))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\n", strings.Join(names, "\t"), strings.ToUpper(metric))
	for _, t := range trials {
		for _, name := range names {
			fmt.Fprintf(w, "%g\t", t.Params[name])
		}
		if t.Err != nil {
			fmt.Fprintf(w, "%s\n", viz.StatusStopped.Render(t.Err.Error()))
			continue
		}
		fmt.Fprintf(w, "%.6g\n", t.Value)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if best.Params == nil {
		return fmt.Errorf("every trial failed")
	}
	fields := make([]viz.Field, 0, len(names)+1)
	for _, name := range names {
		fields = append(fields, viz.Field{Label: name, Value: best.Params[name]})
	}
	fields = append(fields, viz.Field{Label: metric, Value: best.Value})
	fmt.Println()
	fmt.Println(viz.Summary("best", fields))
	return nil
}
