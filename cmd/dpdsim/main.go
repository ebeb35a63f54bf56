package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/san-kum/dpdsim/internal/config"
	"github.com/san-kum/dpdsim/internal/sim"
	"github.com/san-kum/dpdsim/internal/storage"
)

var (
	dataDir string
	verbose bool
	theme   string

	steps   int64
	dt      float64
	seed    uint64
	workers int
	preset  string

	field    string
	pngFile  string
	svgFile  string
	outFile  string
	snapshot bool
	blocks   int
	rdfMax   float64
	rdfBins  int
	numRuns  int
	params   []string
	metric   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "dpdsim",
		Short:         "dissipative particle dynamics simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "out", ".dpdsim", "run output directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&theme, "theme", "ocean", "colour theme")

	runCmd := &cobra.Command{
		Use:   "run [config]",
		Short: "run a simulation and store its output",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	addRunFlags(runCmd)

	resumeCmd := &cobra.Command{
		Use:   "resume [run_id]",
		Short: "continue a run from its last checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE:  resumeRun,
	}
	resumeCmd.Flags().Int64Var(&steps, "steps", 0, "new total step count")

	liveCmd := &cobra.Command{
		Use:   "live [config]",
		Short: "run a simulation in the live monitor",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addRunFlags(liveCmd)

	benchCmd := &cobra.Command{
		Use:   "bench [config]",
		Short: "measure step throughput for several worker counts",
		Args:  cobra.MaximumNArgs(1),
		RunE:  benchRun,
	}
	addRunFlags(benchCmd)

	ensembleCmd := &cobra.Command{
		Use:   "ensemble [config]",
		Short: "run replicas with consecutive seeds in parallel",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runEnsemble,
	}
	addRunFlags(ensembleCmd)
	ensembleCmd.Flags().IntVar(&numRuns, "runs", 4, "number of replicas")
	ensembleCmd.Flags().StringVar(&field, "field", "temperature", "sample field to summarise")

	sweepCmd := &cobra.Command{
		Use:   "sweep [config]",
		Short: "grid search parameters for the lowest metric value",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	addRunFlags(sweepCmd)
	sweepCmd.Flags().StringArrayVarP(&params, "param", "p", nil, "name=v1,v2,... (repeatable)")
	sweepCmd.Flags().StringVar(&metric, "metric", "energy_drift", "metric to minimise")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a sampled field",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&field, "field", "temperature", "sample field: "+strings.Join(sim.SampleFields, ", "))
	plotCmd.Flags().StringVar(&pngFile, "png", "", "also write a PNG chart")
	plotCmd.Flags().StringVar(&svgFile, "svg", "", "also write an SVG line")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "statistics, dominant frequency and g(r) of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().StringVar(&field, "field", "temperature", "sample field")
	analyzeCmd.Flags().IntVar(&blocks, "blocks", 10, "blocks for the error estimate")
	analyzeCmd.Flags().Float64Var(&rdfMax, "rmax", 3, "g(r) range")
	analyzeCmd.Flags().IntVar(&rdfBins, "bins", 60, "g(r) bins")

	renderCmd := &cobra.Command{
		Use:   "render [run_id]",
		Short: "draw the final configuration of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  renderRun,
	}
	renderCmd.Flags().StringVar(&svgFile, "svg", "", "write an SVG instead of printing")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "write samples or the final snapshot as CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&outFile, "file", "f", "", "output file (default stdout)")
	exportCSVCmd.Flags().BoolVar(&snapshot, "snapshot", false, "export the bead snapshot")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "write run samples and metrics as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outFile, "file", "f", "", "output file (default stdout)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list presets, or write one out with --preset",
		RunE:  listPresets,
	}
	presetsCmd.Flags().StringVar(&preset, "preset", "", "family/name to write")
	presetsCmd.Flags().StringVarP(&outFile, "file", "f", "", "destination (.yaml or .toml)")

	validateCmd := &cobra.Command{
		Use:   "validate [config]",
		Short: "check a config file",
		Args:  cobra.ExactArgs(1),
		RunE:  validateConfig,
	}

	rootCmd.AddCommand(runCmd, resumeCmd, liveCmd, benchCmd, ensembleCmd, sweepCmd,
		listCmd, plotCmd, analyzeCmd, renderCmd, exportCSVCmd, exportJSONCmd,
		presetsCmd, validateCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().Int64Var(&steps, "steps", config.DefaultSteps, "steps to run")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	cmd.Flags().Uint64Var(&seed, "seed", 1, "random seed")
	cmd.Flags().IntVar(&workers, "workers", 1, "force workers")
	cmd.Flags().StringVar(&preset, "preset", "", "preset as family/name")
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func openStore() (*storage.Store, error) {
	st := storage.New(dataDir)
	return st, st.Init()
}

// loadConfig resolves the run config from a preset, a file or the defaults,
// then applies the flags the user set explicitly.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	var cfg *config.Config
	switch {
	case preset != "" && len(args) > 0:
		return nil, fmt.Errorf("give either a config file or --preset, not both")
	case preset != "":
		family, name, ok := strings.Cut(preset, "/")
		if !ok {
			return nil, fmt.Errorf("preset must be family/name, got %q", preset)
		}
		cfg = config.GetPreset(family, name)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available in %s: %v)", preset, family, config.ListPresets(family))
		}
	case len(args) > 0:
		var err error
		cfg, err = config.Load(args[0])
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	default:
		cfg = config.DefaultConfig()
	}

	if cmd.Flags().Changed("steps") {
		cfg.Steps = steps
	}
	if cmd.Flags().Changed("dt") {
		cfg.Dt = dt
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = seed
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = workers
	}
	return cfg, cfg.Validate()
}
