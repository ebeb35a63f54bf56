// Package grid partitions the simulation box into a uniform cell grid so that
// interacting bead pairs can be found by adjacent-cell search alone.
package grid

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/dpdsim/internal/dynamo"
)

// MaxCells bounds the number of cells Build will allocate.
const MaxCells = 1 << 22

// Grid is a fixed 3D array of cells stored as a flat slice. Cell geometry is
// decided once by Build; membership is rebuilt by AssignBeads.
type Grid struct {
	box    dynamo.Box
	cutoff float64

	n    [3]int
	side r3.Vec
	inv  [3]float64

	// area is n[0]*n[1], used for index arithmetic
	area int

	cells [][]int
	// neighbors[c] lists adjacent cells with index > c, so every unordered
	// pair of adjacent cells is owned by exactly one of them.
	neighbors [][]int
	cellOf    []int
}

// Build partitions box into cells whose side is the smallest length >= cutoff
// that divides each box dimension an integer number of times.
func Build(box dynamo.Box, cutoff float64) (*Grid, error) {
	if !(cutoff > 0) || math.IsInf(cutoff, 0) {
		return nil, dynamo.Configf("cutoff radius must be positive and finite, got %g", cutoff)
	}

	g := &Grid{box: box, cutoff: cutoff}
	total := 1.0
	var counts [3]float64
	for axis := 0; axis < 3; axis++ {
		l := box.Length(axis)
		counts[axis] = math.Floor(l / cutoff)
		if !(counts[axis] >= 1) {
			return nil, fmt.Errorf("%w: axis %d has length %g, cutoff %g", dynamo.ErrBoxTooSmall, axis, l, cutoff)
		}
		total *= counts[axis]
	}
	if total > MaxCells {
		return nil, dynamo.Configf("box %v with cutoff %g needs %.3g cells, limit %d", box.L, cutoff, total, MaxCells)
	}

	for axis := 0; axis < 3; axis++ {
		l := box.Length(axis)
		cells := int(counts[axis])
		g.n[axis] = cells
		side := l / float64(cells)
		g.side = dynamo.SetComponent(g.side, axis, side)
		g.inv[axis] = 1 / side
	}
	g.area = g.n[0] * g.n[1]

	n := g.area * g.n[2]
	g.cells = make([][]int, n)
	g.neighbors = make([][]int, n)
	for c := 0; c < n; c++ {
		g.neighbors[c] = g.adjacent(c)
	}
	return g, nil
}

func (g *Grid) adjacent(c int) []int {
	x, y, z := g.Coords(c)
	out := make([]int, 0, 13)
	for dz := -1; dz <= 1; dz++ {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 && dz == 0 {
					continue
				}
				nx, okx := g.step(x, dx, 0)
				ny, oky := g.step(y, dy, 1)
				nz, okz := g.step(z, dz, 2)
				if !okx || !oky || !okz {
					continue
				}
				nc := g.Idx(nx, ny, nz)
				// small periodic grids map several offsets onto one cell
				if nc > c && !slices.Contains(out, nc) {
					out = append(out, nc)
				}
			}
		}
	}
	slices.Sort(out)
	return out
}

func (g *Grid) step(i, d, axis int) (int, bool) {
	j := i + d
	if j >= 0 && j < g.n[axis] {
		return j, true
	}
	if !g.box.Periodic[axis] {
		return 0, false
	}
	return pMod(j, g.n[axis]), true
}

// pMod computes the positive modulo x % y.
func pMod(x, y int) int {
	m := x % y
	if m < 0 {
		m += y
	}
	return m
}

// Idx returns the flat index of cell (x, y, z).
func (g *Grid) Idx(x, y, z int) int {
	return x + y*g.n[0] + z*g.area
}

// Coords returns the cell coordinates of a flat index.
func (g *Grid) Coords(idx int) (x, y, z int) {
	x = idx % g.n[0]
	y = (idx % g.area) / g.n[0]
	z = idx / g.area
	return x, y, z
}

// CellIndex maps a position inside the box to its cell. Positions exactly on
// a cell face belong to the cell above it (floor rule); the upper box face is
// folded into the last cell.
func (g *Grid) CellIndex(p r3.Vec) int {
	return g.Idx(g.axisCell(p.X, 0), g.axisCell(p.Y, 1), g.axisCell(p.Z, 2))
}

func (g *Grid) axisCell(x float64, axis int) int {
	i := int(math.Floor(x * g.inv[axis]))
	if i >= g.n[axis] {
		i = g.n[axis] - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

// AssignBeads clears all membership and inserts every bead into the cell
// containing its position. Beads are inserted in arena order so the result
// depends only on positions.
func (g *Grid) AssignBeads(beads []dynamo.Bead) error {
	for c := range g.cells {
		g.cells[c] = g.cells[c][:0]
	}
	if cap(g.cellOf) < len(beads) {
		g.cellOf = make([]int, len(beads))
	}
	g.cellOf = g.cellOf[:len(beads)]

	for i := range beads {
		p := beads[i].Pos
		if !dynamo.IsFinite(p) {
			return fmt.Errorf("%w: bead %d position %v", dynamo.ErrInvalidState, i, p)
		}
		c := g.CellIndex(p)
		g.cells[c] = append(g.cells[c], i)
		g.cellOf[i] = c
	}
	return nil
}

// Verify checks that each of n beads is a member of exactly one cell.
func (g *Grid) Verify(n int) error {
	if len(g.cellOf) != n {
		return fmt.Errorf("%w: %d beads assigned, %d expected", dynamo.ErrGridInvariant, len(g.cellOf), n)
	}
	seen := make([]uint8, n)
	for c, members := range g.cells {
		for _, i := range members {
			if i < 0 || i >= n {
				return fmt.Errorf("%w: cell %d holds unknown bead %d", dynamo.ErrGridInvariant, c, i)
			}
			seen[i]++
		}
	}
	for i, s := range seen {
		if s != 1 {
			return fmt.Errorf("%w: bead %d found in %d cells", dynamo.ErrGridInvariant, i, s)
		}
	}
	return nil
}

// ForEachInteractingPair calls fn once for every unordered pair of distinct
// beads that share a cell or sit in adjacent cells. Pairs are not filtered by
// distance.
func (g *Grid) ForEachInteractingPair(fn func(i, j int)) {
	g.ForEachInteractingPairInCells(0, len(g.cells), fn)
}

// ForEachInteractingPairInCells is ForEachInteractingPair restricted to pairs
// owned by cells [start, end). Disjoint cell ranges emit disjoint pair sets.
func (g *Grid) ForEachInteractingPairInCells(start, end int, fn func(i, j int)) {
	for c := start; c < end; c++ {
		members := g.cells[c]
		for a := 0; a < len(members); a++ {
			i := members[a]
			for b := a + 1; b < len(members); b++ {
				fn(i, members[b])
			}
			for _, nc := range g.neighbors[c] {
				for _, j := range g.cells[nc] {
					fn(i, j)
				}
			}
		}
	}
}

// NumCells returns the total number of cells.
func (g *Grid) NumCells() int { return len(g.cells) }

// Dims returns the number of cells along each axis.
func (g *Grid) Dims() [3]int { return g.n }

// CellSide returns the cell edge lengths.
func (g *Grid) CellSide() r3.Vec { return g.side }

// Cutoff returns the interaction cutoff the grid was built for.
func (g *Grid) Cutoff() float64 { return g.cutoff }

// Box returns the box the grid partitions.
func (g *Grid) Box() dynamo.Box { return g.box }

// Members returns the beads currently in cell c. The slice is reused by the
// next AssignBeads.
func (g *Grid) Members(c int) []int { return g.cells[c] }

// Neighbors returns the adjacent cells owned by c.
func (g *Grid) Neighbors(c int) []int { return g.neighbors[c] }

// CellOf returns the cell bead i was assigned to.
func (g *Grid) CellOf(i int) int { return g.cellOf[i] }
