package nav

import (
	"math"

	"github.com/kasuganosora/enemyai/game/ai"
)

// Cell is a grid coordinate.
type Cell struct {
	X, Y int
}

// Grid is a walkability grid laid over the XZ plane. Cell (0,0) starts at
// Origin and cells grow along +X and +Z. It implements ai.Navigator and
// ai.Pather.
type Grid struct {
	Width, Height int
	CellSize      float64
	Origin        ai.Vec3

	blocked []bool
}

// NewGrid creates a fully walkable grid.
func NewGrid(width, height int, cellSize float64, origin ai.Vec3) *Grid {
	if cellSize <= 0 {
		cellSize = 1
	}
	return &Grid{
		Width:    width,
		Height:   height,
		CellSize: cellSize,
		Origin:   origin,
		blocked:  make([]bool, width*height),
	}
}

// Clone returns an independent copy of g. A nil grid clones to nil.
func (g *Grid) Clone() *Grid {
	if g == nil {
		return nil
	}
	out := *g
	out.blocked = append([]bool(nil), g.blocked...)
	return &out
}

// InBounds reports whether c lies on the grid.
func (g *Grid) InBounds(c Cell) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < g.Width && c.Y < g.Height
}

// Walkable reports whether c is on the grid and not blocked.
func (g *Grid) Walkable(c Cell) bool {
	return g.InBounds(c) && !g.blocked[c.Y*g.Width+c.X]
}

// SetBlocked marks c blocked or walkable. Out-of-bounds cells are ignored.
func (g *Grid) SetBlocked(c Cell, blocked bool) {
	if g.InBounds(c) {
		g.blocked[c.Y*g.Width+c.X] = blocked
	}
}

// BlockBox blocks every cell overlapping the XZ rectangle [min, max].
func (g *Grid) BlockBox(min, max ai.Vec3) {
	lo, hi := g.CellOf(min), g.CellOf(max)
	for y := lo.Y; y <= hi.Y; y++ {
		for x := lo.X; x <= hi.X; x++ {
			g.SetBlocked(Cell{x, y}, true)
		}
	}
}

// CellOf returns the cell containing p. The result may be out of bounds.
func (g *Grid) CellOf(p ai.Vec3) Cell {
	return Cell{
		X: int(math.Floor((p.X - g.Origin.X) / g.CellSize)),
		Y: int(math.Floor((p.Z - g.Origin.Z) / g.CellSize)),
	}
}

// CenterOf returns the world-space centre of c.
func (g *Grid) CenterOf(c Cell) ai.Vec3 {
	return ai.Vec3{
		X: g.Origin.X + (float64(c.X)+0.5)*g.CellSize,
		Y: g.Origin.Y,
		Z: g.Origin.Z + (float64(c.Y)+0.5)*g.CellSize,
	}
}

// SampleValidPosition returns p itself when it is walkable, otherwise the
// centre of the nearest walkable cell within radius, searching outward ring
// by ring.
func (g *Grid) SampleValidPosition(p ai.Vec3, radius float64) (ai.Vec3, bool) {
	start := g.CellOf(p)
	if g.Walkable(start) {
		return ai.Vec3{X: p.X, Y: g.Origin.Y, Z: p.Z}, true
	}
	rings := int(math.Ceil(radius / g.CellSize))
	for r := 1; r <= rings; r++ {
		best, bestDist := Cell{}, math.Inf(1)
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				if abs(dx) != r && abs(dy) != r {
					continue // interior already searched
				}
				c := Cell{start.X + dx, start.Y + dy}
				if !g.Walkable(c) {
					continue
				}
				d := ai.FlatDistance(g.CenterOf(c), p)
				if d <= radius && d < bestDist {
					best, bestDist = c, d
				}
			}
		}
		if !math.IsInf(bestDist, 1) {
			return g.CenterOf(best), true
		}
	}
	return ai.Vec3{}, false
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
