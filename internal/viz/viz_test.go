package viz

import (
	"bytes"
	"slices"
	"strings"
	"testing"
	"unicode/utf8"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/dpdsim/internal/dynamo"
	"github.com/san-kum/dpdsim/internal/sim"
)

func TestCanvasSet(t *testing.T) {
	c := NewCanvas(2, 1)
	c.Set(0, 0, 3)
	c.Set(1, 3, 3)
	c.Set(100, 100, 1)

	if got := c.Grid[0][0]; got != blank|0x1|0x80 {
		t.Errorf("cell = %U", got)
	}
	if c.Owner[0][0] != 3 || c.Owner[0][1] != -1 {
		t.Errorf("owners = %v", c.Owner[0])
	}

	c.Clear()
	if c.Grid[0][0] != blank {
		t.Error("clear left dots set")
	}
}

func TestCanvasString(t *testing.T) {
	c := NewCanvas(4, 2)
	c.DrawLine(0, 0, 7, 7, 0)
	lines := strings.Split(strings.TrimSuffix(c.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d", len(lines))
	}
	for _, l := range lines {
		if utf8.RuneCountInString(l) != 4 {
			t.Errorf("line %q has %d runes", l, utf8.RuneCountInString(l))
		}
	}
	if c.Grid[1][3] == blank {
		t.Error("line end not drawn")
	}
}

func TestRenderBeads(t *testing.T) {
	box, err := dynamo.NewBox(r3.Vec{X: 4, Y: 4, Z: 4}, [3]bool{true, true, true})
	if err != nil {
		t.Fatal(err)
	}
	beads := []sim.BeadSnapshot{
		{ID: 0, Type: 0, Pos: r3.Vec{X: 2, Y: 2, Z: 2}},
		{ID: 1, Type: 1, Pos: r3.Vec{X: 1, Y: 3, Z: 0.5}},
	}
	c := NewCanvas(40, 20)
	cam := NewCamera()
	RenderBeads(c, cam, box, slices.Values(beads))

	sw, sh := c.Dots()
	x, y, ok := cam.Project(box, beads[0].Pos, sw, sh)
	if !ok || x != sw/2 || y != sh/2 {
		t.Errorf("centre projected to (%d, %d, %v)", x, y, ok)
	}
	if c.Owner[y/4][x/2] != 0 {
		t.Errorf("centre cell owner = %d", c.Owner[y/4][x/2])
	}

	var frame int
	for _, row := range c.Owner {
		for _, o := range row {
			if o == BoxLayer {
				frame++
			}
		}
	}
	if frame == 0 {
		t.Error("box outline not drawn")
	}
}

func TestSparkline(t *testing.T) {
	if got := Sparkline([]float64{0, 1, 2, 3, 4, 5, 6, 7}, 8); got != "▁▂▃▄▅▆▇█" {
		t.Errorf("Sparkline = %q", got)
	}
	if got := Sparkline([]float64{1, 9, 0, 7}, 2); got != "▁█" {
		t.Errorf("tail sparkline = %q", got)
	}
	if got := Sparkline(nil, 3); got != "───" {
		t.Errorf("empty sparkline = %q", got)
	}
}

func TestDownsample(t *testing.T) {
	v := []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	got := Downsample(v, 3)
	if !slices.Equal(got, []float64{0, 5, 10}) {
		t.Errorf("Downsample = %v", got)
	}
	if got := Downsample(v, 20); len(got) != len(v) {
		t.Errorf("short input changed length to %d", len(got))
	}
}

func TestPlot(t *testing.T) {
	out := Plot([]float64{1, 2, 3, 2, 1}, "temperature", 20, 5)
	if !strings.Contains(out, "temperature") {
		t.Errorf("plot missing caption:\n%s", out)
	}
}

func TestWritePNG(t *testing.T) {
	var buf bytes.Buffer
	err := WritePNG(&buf, "energy", "time", Series{Name: "total", X: []float64{0, 1, 2}, Y: []float64{3, 2, 4}})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")) {
		t.Error("output is not a PNG")
	}

	if err := WritePNG(&buf, "x", "t"); err == nil {
		t.Error("expected error for no series")
	}
	if err := WritePNG(&buf, "x", "t", Series{X: []float64{0}, Y: []float64{1, 2}}); err == nil {
		t.Error("expected error for mismatched lengths")
	}
}

func TestThemes(t *testing.T) {
	if GetTheme("nope").Name != Themes[0].Name {
		t.Error("unknown theme did not fall back")
	}
	th := GetTheme("minimal")
	if th.TypeColor(len(th.Palette)) != th.Palette[0] {
		t.Error("palette did not wrap")
	}
	if th.Paint(-1, "x") != "x" {
		t.Error("untouched cell was styled")
	}
}
