package export

import (
	"fmt"
	"io"
	"iter"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/dpdsim/internal/dynamo"
	"github.com/san-kum/dpdsim/internal/sim"
	"github.com/san-kum/dpdsim/internal/viz"
)

const background = "#0a0a0a"

// SnapshotSVG writes a size x size SVG of beads seen through cam, one circle
// per bead coloured by type, over the outline of the box.
func SnapshotSVG(w io.Writer, box dynamo.Box, beads iter.Seq[sim.BeadSnapshot], cam *viz.Camera, theme viz.Theme, size int) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
`, size, size, size, size, background)

	half := float64(size) / 2
	project := func(p r3.Vec) (float64, float64, bool) {
		u, v := cam.Screen(box, p)
		x, y := half+u*float64(size), half-v*float64(size)
		return x, y, x >= 0 && x <= float64(size) && y >= 0 && y <= float64(size)
	}

	fmt.Fprintf(&sb, `<g stroke="%s" stroke-width="1" fill="none">`+"\n", theme.Frame)
	corners := viz.BoxCorners(box.L)
	for _, e := range viz.BoxEdges {
		x0, y0, _ := project(corners[e[0]])
		x1, y1, _ := project(corners[e[1]])
		fmt.Fprintf(&sb, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f"/>`+"\n", x0, y0, x1, y1)
	}
	sb.WriteString("</g>\n")

	radius := max(float64(size)/200, 1)
	for b := range beads {
		x, y, ok := project(b.Pos)
		if !ok {
			continue
		}
		fmt.Fprintf(&sb, `<circle cx="%.1f" cy="%.1f" r="%.1f" fill="%s"/>`+"\n", x, y, radius, theme.TypeColor(b.Type))
	}
	sb.WriteString("</svg>\n")
	_, err := io.WriteString(w, sb.String())
	return err
}

// SeriesSVG writes ys against xs as a single polyline scaled to width x height.
func SeriesSVG(w io.Writer, xs, ys []float64, width, height int, strokeColor string) error {
	if len(xs) != len(ys) {
		return fmt.Errorf("%d x values for %d y values", len(xs), len(ys))
	}
	if len(xs) < 2 {
		return fmt.Errorf("need at least 2 points, got %d", len(xs))
	}

	minX, maxX := xs[0], xs[0]
	minY, maxY := ys[0], ys[0]
	for i := range xs {
		minX, maxX = min(minX, xs[i]), max(maxX, xs[i])
		minY, maxY = min(minY, ys[i]), max(maxY, ys[i])
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.05
	minY -= rangeY * 0.1
	rangeX *= 1.1
	rangeY *= 1.2

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		width, height, width, height, background, strokeColor)

	for i := range xs {
		x := (xs[i] - minX) / rangeX * float64(width)
		y := float64(height) - (ys[i]-minY)/rangeY*float64(height)
		if i == 0 {
			fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
		} else {
			fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
		}
	}
	sb.WriteString("\"/>\n</svg>\n")
	_, err := io.WriteString(w, sb.String())
	return err
}
