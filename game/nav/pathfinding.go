package nav

import (
	"container/heap"
	"math"

	"github.com/kasuganosora/enemyai/game/ai"
)

var neighbors = [8]Cell{
	{0, 1}, {0, -1}, {1, 0}, {-1, 0},
	{1, 1}, {1, -1}, {-1, 1}, {-1, -1},
}

type node struct {
	cell   Cell
	g, f   float64
	parent *node
	index  int
}

type openSet []*node

func (o openSet) Len() int           { return len(o) }
func (o openSet) Less(i, j int) bool { return o[i].f < o[j].f }
func (o openSet) Swap(i, j int) {
	o[i], o[j] = o[j], o[i]
	o[i].index = i
	o[j].index = j
}
func (o *openSet) Push(x any) {
	n := x.(*node)
	n.index = len(*o)
	*o = append(*o, n)
}
func (o *openSet) Pop() any {
	old := *o
	n := old[len(old)-1]
	*o = old[:len(old)-1]
	return n
}

// octile is the exact 8-connected distance on an empty grid.
func octile(a, b Cell) float64 {
	dx := math.Abs(float64(a.X - b.X))
	dy := math.Abs(float64(a.Y - b.Y))
	return math.Max(dx, dy) + (math.Sqrt2-1)*math.Min(dx, dy)
}

// FindCellPath runs A* from one cell to another with 8-neighbour moves.
// Diagonal moves may not cut blocked corners. The path excludes from and
// includes to. It returns nil if either end is blocked or no path exists.
func (g *Grid) FindCellPath(from, to Cell) []Cell {
	if !g.Walkable(from) || !g.Walkable(to) {
		return nil
	}
	if from == to {
		return []Cell{}
	}

	open := &openSet{}
	best := map[Cell]*node{}
	closed := map[Cell]bool{}

	start := &node{cell: from, f: octile(from, to)}
	best[from] = start
	heap.Push(open, start)

	for open.Len() > 0 {
		cur := heap.Pop(open).(*node)
		if closed[cur.cell] {
			continue
		}
		closed[cur.cell] = true

		if cur.cell == to {
			var path []Cell
			for n := cur; n.parent != nil; n = n.parent {
				path = append(path, n.cell)
			}
			for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
				path[i], path[j] = path[j], path[i]
			}
			return path
		}

		for _, d := range neighbors {
			next := Cell{cur.cell.X + d.X, cur.cell.Y + d.Y}
			if closed[next] || !g.Walkable(next) {
				continue
			}
			cost := 1.0
			if d.X != 0 && d.Y != 0 {
				if !g.Walkable(Cell{cur.cell.X + d.X, cur.cell.Y}) || !g.Walkable(Cell{cur.cell.X, cur.cell.Y + d.Y}) {
					continue
				}
				cost = math.Sqrt2
			}
			ng := cur.g + cost
			if prev, ok := best[next]; ok && ng >= prev.g {
				continue
			}
			n := &node{cell: next, g: ng, f: ng + octile(next, to), parent: cur}
			best[next] = n
			heap.Push(open, n)
		}
	}
	return nil
}

// FindPath returns world-space waypoints from one point to another: the
// centres of the intermediate cells followed by to itself. It returns nil
// when no path exists.
func (g *Grid) FindPath(from, to ai.Vec3) []ai.Vec3 {
	cells := g.FindCellPath(g.CellOf(from), g.CellOf(to))
	if cells == nil {
		return nil
	}
	out := make([]ai.Vec3, 0, len(cells))
	for i, c := range cells {
		if i == len(cells)-1 {
			out = append(out, ai.Vec3{X: to.X, Y: g.Origin.Y, Z: to.Z})
			break
		}
		out = append(out, g.CenterOf(c))
	}
	return out
}
