package viz

import (
	"iter"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/dpdsim/internal/dynamo"
	"github.com/san-kum/dpdsim/internal/sim"
)

// BoxLayer tags the cells covered by the box outline.
const BoxLayer = 1 << 16

// Camera is an orthographic view of the box rotated about its centre.
type Camera struct {
	RotX, RotY float64
	Zoom       float64
}

func NewCamera() *Camera {
	return &Camera{RotX: -0.45, RotY: 0.6, Zoom: 1.0}
}

func (c *Camera) RotateX(a float64) { c.RotX += a }
func (c *Camera) RotateY(a float64) { c.RotY += a }
func (c *Camera) ZoomIn()           { c.Zoom = math.Min(10, c.Zoom*1.2) }
func (c *Camera) ZoomOut()          { c.Zoom = math.Max(0.1, c.Zoom/1.2) }

func (c *Camera) rotate(p r3.Vec) r3.Vec {
	cy, sy := math.Cos(c.RotY), math.Sin(c.RotY)
	p.X, p.Z = p.X*cy+p.Z*sy, -p.X*sy+p.Z*cy
	cx, sx := math.Cos(c.RotX), math.Sin(c.RotX)
	p.Y, p.Z = p.Y*cx-p.Z*sx, p.Y*sx+p.Z*cx
	return p
}

// Screen returns the rotated position of p relative to the box centre in
// units of the box diagonal, with y pointing up. The whole box fits within
// [-0.5, 0.5] at zoom 1.
func (c *Camera) Screen(box dynamo.Box, p r3.Vec) (float64, float64) {
	rot := c.rotate(r3.Sub(p, r3.Scale(0.5, box.L)))
	s := c.Zoom / r3.Norm(box.L)
	return rot.X * s, rot.Y * s
}

// Project maps a box position to dot coordinates on a sw x sh canvas.
func (c *Camera) Project(box dynamo.Box, p r3.Vec, sw, sh int) (int, int, bool) {
	u, v := c.Screen(box, p)
	scale := float64(min(sw, sh))
	// Braille dots are twice as tall as they are wide on most fonts.
	x := int(u*scale) + sw/2
	y := int(-v*scale/2) + sh/2
	return x, y, x >= 0 && x < sw && y >= 0 && y < sh
}

// BoxCorners returns the corners of a box with sides l, indexed for BoxEdges.
func BoxCorners(l r3.Vec) [8]r3.Vec {
	return [8]r3.Vec{
		{}, {X: l.X}, {X: l.X, Y: l.Y}, {Y: l.Y},
		{Z: l.Z}, {X: l.X, Z: l.Z}, {X: l.X, Y: l.Y, Z: l.Z}, {Y: l.Y, Z: l.Z},
	}
}

var BoxEdges = [12][2]int{{0, 1}, {1, 2}, {2, 3}, {3, 0}, {4, 5}, {5, 6}, {6, 7}, {7, 4}, {0, 4}, {1, 5}, {2, 6}, {3, 7}}

// RenderBeads draws the box outline and one dot per bead, tagged with the
// bead type as layer.
func RenderBeads(c *Canvas, cam *Camera, box dynamo.Box, beads iter.Seq[sim.BeadSnapshot]) {
	sw, sh := c.Dots()
	corners := BoxCorners(box.L)
	for _, e := range BoxEdges {
		x0, y0, _ := cam.Project(box, corners[e[0]], sw, sh)
		x1, y1, _ := cam.Project(box, corners[e[1]], sw, sh)
		c.DrawLine(x0, y0, x1, y1, BoxLayer)
	}
	for b := range beads {
		if x, y, ok := cam.Project(box, b.Pos, sw, sh); ok {
			c.Set(x, y, b.Type)
		}
	}
}
