package viz

import (
	"fmt"
	"io"

	"github.com/guptarohit/asciigraph"
	"github.com/wcharczuk/go-chart/v2"
)

// Plot renders values as an asciigraph line plot, downsampled to fit width.
func Plot(values []float64, caption string, width, height int) string {
	if len(values) == 0 {
		return Subtle.Render("(no data)")
	}
	if len(values) > width && width > 0 {
		values = Downsample(values, width)
	}
	return asciigraph.Plot(values,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	)
}

// Downsample keeps n evenly spaced values including the last one.
func Downsample(values []float64, n int) []float64 {
	if n <= 0 || len(values) <= n {
		return values
	}
	out := make([]float64, n)
	if n == 1 {
		out[0] = values[len(values)-1]
		return out
	}
	step := float64(len(values)-1) / float64(n-1)
	for i := range out {
		out[i] = values[int(float64(i)*step+0.5)]
	}
	return out
}

// Series is one named line in a PNG chart.
type Series struct {
	Name string
	X, Y []float64
}

// WritePNG renders series to w as a PNG line chart.
func WritePNG(w io.Writer, title, xLabel string, series ...Series) error {
	if len(series) == 0 {
		return fmt.Errorf("no series to plot")
	}
	lines := make([]chart.Series, 0, len(series))
	for i, s := range series {
		if len(s.X) != len(s.Y) {
			return fmt.Errorf("series %q: %d x values for %d y values", s.Name, len(s.X), len(s.Y))
		}
		if len(s.X) < 2 {
			return fmt.Errorf("series %q: need at least 2 points", s.Name)
		}
		lines = append(lines, chart.ContinuousSeries{
			Name:    s.Name,
			XValues: s.X,
			YValues: s.Y,
			Style:   chart.Style{StrokeColor: chart.GetDefaultColor(i), StrokeWidth: 2.0},
		})
	}

	graph := chart.Chart{
		Title:  title,
		Width:  960,
		Height: 480,
		XAxis: chart.XAxis{
			Name:  xLabel,
			Style: chart.Style{FontSize: 10.0},
		},
		YAxis: chart.YAxis{
			Style: chart.Style{FontSize: 10.0},
		},
		Series: lines,
	}
	if len(lines) > 1 {
		graph.Elements = []chart.Renderable{chart.Legend(&graph)}
	}
	return graph.Render(chart.PNG, w)
}
