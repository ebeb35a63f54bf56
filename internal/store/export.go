// Package store encodes samples and bead snapshots as CSV and JSON.
package store

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"strconv"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/dpdsim/internal/sim"
)

// SampleColumns is the header of a samples CSV.
var SampleColumns = []string{
	"step", "time", "temperature", "kinetic", "pair_energy", "bond_energy",
	"bend_energy", "total_energy", "momentum_x", "momentum_y", "momentum_z", "max_speed",
}

// SnapshotColumns is the header of a snapshot CSV.
var SnapshotColumns = []string{"id", "type", "x", "y", "z", "vx", "vy", "vz"}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func WriteSamplesCSV(w io.Writer, samples []sim.Sample, header bool) error {
	cw := csv.NewWriter(w)
	if header {
		if err := cw.Write(SampleColumns); err != nil {
			return err
		}
	}
	for _, s := range samples {
		row := []string{
			strconv.FormatInt(s.Step, 10),
			ftoa(s.Time),
			ftoa(s.Temperature),
			ftoa(s.Kinetic),
			ftoa(s.PairEnergy),
			ftoa(s.BondEnergy),
			ftoa(s.BendEnergy),
			ftoa(s.Total()),
			ftoa(s.Momentum.X),
			ftoa(s.Momentum.Y),
			ftoa(s.Momentum.Z),
			ftoa(s.MaxSpeed),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadSamplesCSV parses what WriteSamplesCSV wrote, header included.
func ReadSamplesCSV(r io.Reader) ([]sim.Sample, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(SampleColumns)

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []sim.Sample{}, nil
	}

	samples := make([]sim.Sample, 0, len(records)-1)
	for i, rec := range records[1:] {
		step, err := strconv.ParseInt(rec[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		v := make([]float64, len(rec))
		for j := 1; j < len(rec); j++ {
			if v[j], err = strconv.ParseFloat(rec[j], 64); err != nil {
				return nil, fmt.Errorf("row %d, %s: %w", i+1, SampleColumns[j], err)
			}
		}
		samples = append(samples, sim.Sample{
			Step:        step,
			Time:        v[1],
			Temperature: v[2],
			Kinetic:     v[3],
			PairEnergy:  v[4],
			BondEnergy:  v[5],
			BendEnergy:  v[6],
			Momentum:    r3.Vec{X: v[8], Y: v[9], Z: v[10]},
			MaxSpeed:    v[11],
		})
	}
	return samples, nil
}

func WriteSnapshotCSV(w io.Writer, beads iter.Seq[sim.BeadSnapshot]) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(SnapshotColumns); err != nil {
		return err
	}
	for b := range beads {
		row := []string{
			strconv.Itoa(b.ID),
			strconv.Itoa(b.Type),
			ftoa(b.Pos.X), ftoa(b.Pos.Y), ftoa(b.Pos.Z),
			ftoa(b.Vel.X), ftoa(b.Vel.Y), ftoa(b.Vel.Z),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func ReadSnapshotCSV(r io.Reader) ([]sim.BeadSnapshot, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(SnapshotColumns)

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []sim.BeadSnapshot{}, nil
	}

	out := make([]sim.BeadSnapshot, 0, len(records)-1)
	for i, rec := range records[1:] {
		id, err1 := strconv.Atoi(rec[0])
		typ, err2 := strconv.Atoi(rec[1])
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("row %d: bad id or type", i+1)
		}
		var v [6]float64
		for j := range v {
			if v[j], err = strconv.ParseFloat(rec[j+2], 64); err != nil {
				return nil, fmt.Errorf("row %d, %s: %w", i+1, SnapshotColumns[j+2], err)
			}
		}
		out = append(out, sim.BeadSnapshot{
			ID:   id,
			Type: typ,
			Pos:  r3.Vec{X: v[0], Y: v[1], Z: v[2]},
			Vel:  r3.Vec{X: v[3], Y: v[4], Z: v[5]},
		})
	}
	return out, nil
}

// ExportData is the JSON document written by ExportJSON.
type ExportData struct {
	Name    string             `json:"name"`
	Seed    uint64             `json:"seed"`
	Dt      float64            `json:"dt"`
	Steps   int64              `json:"steps"`
	Samples []sim.Sample       `json:"samples"`
	Metrics map[string]float64 `json:"metrics"`
}

func ExportJSON(w io.Writer, data ExportData) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
