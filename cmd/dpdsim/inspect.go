package main

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/dpdsim/internal/analysis"
	"github.com/san-kum/dpdsim/internal/config"
	"github.com/san-kum/dpdsim/internal/export"
	"github.com/san-kum/dpdsim/internal/store"
	"github.com/san-kum/dpdsim/internal/viz"
)

func listRuns(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTIME\tBEADS\tSTEPS\tDT\tSEED\tSTATUS")
	for _, run := range runs {
		status := "done"
		switch {
		case run.Error != "":
			status = "failed"
		case run.Stopped:
			status = "stopped"
		case run.StepsTaken < run.Steps:
			status = "partial"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d/%d\t%.4g\t%d\t%s\n",
			run.ID,
			run.Name,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Beads,
			run.StepsTaken, run.Steps,
			run.Dt,
			run.Seed,
			status,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st, err := openStore()
	if err != nil {
		return err
	}
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	times, values, err := st.LoadSeries(runID, field)
	if err != nil {
		return err
	}
	if len(values) == 0 {
		return fmt.Errorf("run %s has no samples", runID)
	}

	fmt.Printf("%s  %s\n\n", viz.Title.Render(meta.ID), viz.Subtle.Render(fmt.Sprintf("%d samples", len(values))))
	fmt.Println(viz.Plot(values, field, 80, 12))
	fmt.Println()

	if pngFile != "" {
		if err := writeFile(pngFile, func(w io.Writer) error {
			return viz.WritePNG(w, meta.Name+" "+field, "time", viz.Series{Name: field, X: times, Y: values})
		}); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", pngFile)
	}
	if svgFile != "" {
		if err := writeFile(svgFile, func(w io.Writer) error {
			return export.SeriesSVG(w, times, values, 800, 300, string(viz.CurrentTheme.Primary))
		}); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", svgFile)
	}
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st, err := openStore()
	if err != nil {
		return err
	}
	cfg, err := st.LoadConfig(runID)
	if err != nil {
		return err
	}
	times, values, err := st.LoadSeries(runID, field)
	if err != nil {
		return err
	}

	sum := analysis.BlockStats(values, blocks)
	fields := []viz.Field{
		{Label: "samples", Value: float64(sum.N)},
		{Label: "mean", Value: sum.Mean},
		{Label: "stddev", Value: sum.StdDev},
		{Label: "stderr", Value: sum.StdErr},
		{Label: "min", Value: sum.Min},
		{Label: "max", Value: sum.Max},
	}
	if len(times) > 1 {
		freq, amp := analysis.DominantFrequency(values, times[1]-times[0])
		fields = append(fields, viz.Field{Label: "dominant freq", Value: freq}, viz.Field{Label: "amplitude", Value: amp})
	}
	fmt.Println(viz.Summary(field, fields))

	beads, err := st.LoadSnapshot(runID)
	if err != nil {
		fmt.Println(viz.Subtle.Render("no snapshot, skipping g(r)"))
		return nil
	}
	box, err := cfg.Box.NewBox()
	if err != nil {
		return err
	}
	pos := make([]r3.Vec, len(beads))
	for i, b := range beads {
		pos[i] = b.Pos
	}
	rmax := min(rdfMax, box.L.X/2, box.L.Y/2, box.L.Z/2)
	rdf := analysis.RadialDistribution(box, pos, rmax, rdfBins)
	fmt.Println()
	fmt.Println(viz.Plot(rdf.G, fmt.Sprintf("g(r), r < %.3g", rmax), 80, 10))
	return nil
}

func renderRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st, err := openStore()
	if err != nil {
		return err
	}
	cfg, err := st.LoadConfig(runID)
	if err != nil {
		return err
	}
	beads, err := st.LoadSnapshot(runID)
	if err != nil {
		return err
	}
	box, err := cfg.Box.NewBox()
	if err != nil {
		return err
	}
	viz.SetTheme(theme)
	cam := viz.NewCamera()
	seq := slices.Values(beads)

	if svgFile != "" {
		if err := writeFile(svgFile, func(w io.Writer) error {
			return export.SnapshotSVG(w, box, seq, cam, viz.CurrentTheme, 800)
		}); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", svgFile)
		return nil
	}

	canvas := viz.NewCanvas(80, 32)
	viz.RenderBeads(canvas, cam, box, seq)
	fmt.Print(canvas.Render(viz.CurrentTheme.Paint))
	for i, bt := range cfg.BeadTypes {
		fmt.Printf("%s %s  ", viz.CurrentTheme.Paint(i, "⣿"), bt.Name)
	}
	fmt.Println()
	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st, err := openStore()
	if err != nil {
		return err
	}
	if snapshot {
		beads, err := st.LoadSnapshot(runID)
		if err != nil {
			return err
		}
		return writeOutput(func(w io.Writer) error {
			return store.WriteSnapshotCSV(w, slices.Values(beads))
		})
	}
	samples, err := st.LoadSamples(runID)
	if err != nil {
		return err
	}
	return writeOutput(func(w io.Writer) error {
		return store.WriteSamplesCSV(w, samples, true)
	})
}

func exportJSON(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st, err := openStore()
	if err != nil {
		return err
	}
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	samples, err := st.LoadSamples(runID)
	if err != nil {
		return err
	}
	return writeOutput(func(w io.Writer) error {
		return store.ExportJSON(w, store.ExportData{
			Name:    meta.Name,
			Seed:    meta.Seed,
			Dt:      meta.Dt,
			Steps:   meta.StepsTaken,
			Samples: samples,
			Metrics: meta.Metrics,
		})
	})
}

func listPresets(cmd *cobra.Command, args []string) error {
	if preset != "" {
		family, name, _ := strings.Cut(preset, "/")
		cfg := config.GetPreset(family, name)
		if cfg == nil {
			return fmt.Errorf("unknown preset: %s", preset)
		}
		if outFile == "" {
			return fmt.Errorf("--file is required with --preset")
		}
		if err := config.Save(outFile, cfg); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", outFile)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRESET\tTYPES\tSTEPS\tCOMMANDS")
	for _, family := range config.Families() {
		for _, name := range config.ListPresets(family) {
			cfg := config.GetPreset(family, name)
			types := make([]string, len(cfg.BeadTypes))
			for i, bt := range cfg.BeadTypes {
				types[i] = bt.Name
			}
			cmds := make([]string, len(cfg.Commands))
			for i, c := range cfg.Commands {
				cmds[i] = fmt.Sprintf("%s@%d", c.Name, c.At)
			}
			fmt.Fprintf(w, "%s/%s\t%s\t%d\t%s\n", family, name, strings.Join(types, ","), cfg.Steps, strings.Join(cmds, " "))
		}
	}
	return w.Flush()
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(args[0])
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		fmt.Println(viz.StatusStopped.Render("invalid"))
		return err
	}
	fmt.Printf("%s %s: %d bead types, %d polymers, %d commands\n",
		viz.StatusRunning.Render("ok"), cfg.Name, len(cfg.BeadTypes), len(cfg.Polymers), len(cfg.Commands))
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeOutput(write func(io.Writer) error) error {
	if outFile == "" {
		return write(os.Stdout)
	}
	return writeFile(outFile, write)
}
