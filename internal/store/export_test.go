package store

import (
	"bytes"
	"encoding/json"
	"slices"
	"strings"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/dpdsim/internal/sim"
)

func testSamples() []sim.Sample {
	return []sim.Sample{
		{Step: 0, Time: 0, Temperature: 1.0, Kinetic: 4.5, PairEnergy: 12.25, Momentum: r3.Vec{X: 1e-17}},
		{Step: 10, Time: 0.2, Temperature: 0.9871, Kinetic: 4.44, PairEnergy: 12.1, BondEnergy: 0.3, BendEnergy: 0.1, MaxSpeed: 3.2},
	}
}

func TestSamplesCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSamplesCSV(&buf, testSamples(), true); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	header, _, _ := strings.Cut(buf.String(), "\n")
	if header != strings.Join(SampleColumns, ",") {
		t.Errorf("unexpected header %q", header)
	}

	got, err := ReadSamplesCSV(&buf)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !slices.Equal(got, testSamples()) {
		t.Errorf("samples changed:\n got %+v\nwant %+v", got, testSamples())
	}
}

func TestSamplesCSVAppend(t *testing.T) {
	var buf bytes.Buffer
	s := testSamples()
	if err := WriteSamplesCSV(&buf, s[:1], true); err != nil {
		t.Fatal(err)
	}
	if err := WriteSamplesCSV(&buf, s[1:], false); err != nil {
		t.Fatal(err)
	}
	got, err := ReadSamplesCSV(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 samples, got %d", len(got))
	}
}

func TestReadSamplesCSVMalformed(t *testing.T) {
	in := strings.Join(SampleColumns, ",") + "\n" + "x,0,0,0,0,0,0,0,0,0,0,0\n"
	if _, err := ReadSamplesCSV(strings.NewReader(in)); err == nil {
		t.Error("expected error for bad step")
	}
	if _, err := ReadSamplesCSV(strings.NewReader("step,time\n1,2\n")); err == nil {
		t.Error("expected error for short rows")
	}
}

func TestSnapshotCSV(t *testing.T) {
	beads := []sim.BeadSnapshot{
		{ID: 0, Type: 0, Pos: r3.Vec{X: 0.1, Y: 2, Z: 3.3333333333333335}, Vel: r3.Vec{X: -1}},
		{ID: 1, Type: 1, Pos: r3.Vec{X: 9.999999999999998}, Vel: r3.Vec{Y: 0.5, Z: 1e-300}},
	}

	var buf bytes.Buffer
	if err := WriteSnapshotCSV(&buf, slices.Values(beads)); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	got, err := ReadSnapshotCSV(&buf)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !slices.Equal(got, beads) {
		t.Errorf("snapshot changed:\n got %+v\nwant %+v", got, beads)
	}
}

func TestExportJSON(t *testing.T) {
	var buf bytes.Buffer
	data := ExportData{
		Name:    "water",
		Seed:    42,
		Dt:      0.02,
		Steps:   10,
		Samples: testSamples(),
		Metrics: map[string]float64{"temperature": 0.99},
	}
	if err := ExportJSON(&buf, data); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	var decoded ExportData
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded.Seed != 42 || len(decoded.Samples) != 2 || decoded.Metrics["temperature"] != 0.99 {
		t.Errorf("unexpected export %+v", decoded)
	}
}
