package pathfind

import (
	"container/heap"

	"planetbot/internal/domain/world"
)

// neighbours lists candidate offsets in expansion order. Diagonals are
// generated and then rejected so the search only ever takes cardinal steps.
var neighbours = [][2]int{
	{0, -1}, {0, 1}, {-1, 0}, {1, 0},
	{-1, -1}, {1, -1}, {-1, 1}, {1, 1},
}

type node struct {
	at     world.Point
	parent *node
	g, f   int
	seq    int
	index  int
}

// openSet orders by f, then by discovery order.
type openSet []*node

func (o openSet) Len() int { return len(o) }
func (o openSet) Less(i, j int) bool {
	if o[i].f != o[j].f {
		return o[i].f < o[j].f
	}
	return o[i].seq < o[j].seq
}
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
	old[len(old)-1] = nil
	*o = old[:len(old)-1]
	return n
}

func heuristic(a, b world.Point) int {
	dx, dy := a.X-b.X, a.Y-b.Y
	return dx*dx + dy*dy
}

// FindPath searches grid from start to goal. The returned path starts with
// start and ends with goal. It returns nil when start equals goal, when either
// end lies outside the grid, or when no path exists.
func FindPath(grid world.Grid, start, goal world.Point, surfing bool) []world.Point {
	if start == goal {
		return nil
	}
	if _, ok := grid.At(start); !ok {
		return nil
	}
	if _, ok := grid.At(goal); !ok {
		return nil
	}

	seq := 0
	open := &openSet{}
	heap.Push(open, &node{at: start})
	inOpen := map[world.Point]bool{start: true}
	closed := map[world.Point]bool{}

	for open.Len() > 0 {
		cur := heap.Pop(open).(*node)
		delete(inOpen, cur.at)
		closed[cur.at] = true

		if cur.at == goal {
			return unwind(cur)
		}

		for _, d := range neighbours {
			next := world.Point{X: cur.at.X + d[0], Y: cur.at.Y + d[1]}
			if next.X != cur.at.X && next.Y != cur.at.Y {
				continue
			}
			if !grid.Walkable(next, surfing) || closed[next] || inOpen[next] {
				continue
			}
			seq++
			g := cur.g + 1
			heap.Push(open, &node{at: next, parent: cur, g: g, f: g + heuristic(next, goal), seq: seq})
			inOpen[next] = true
		}
	}
	return nil
}

func unwind(n *node) []world.Point {
	var rev []world.Point
	for ; n != nil; n = n.parent {
		rev = append(rev, n.at)
	}
	out := make([]world.Point, len(rev))
	for i, p := range rev {
		out[len(rev)-1-i] = p
	}
	return out
}
