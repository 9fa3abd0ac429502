package world

// Terrain is the collision code stored per grid cell.
type Terrain int

const (
	TerrainOpen    Terrain = 0
	TerrainBlocked Terrain = 1
	TerrainWater   Terrain = 2
	TerrainGrass   Terrain = 3
	TerrainLedge   Terrain = 6
	TerrainNPC     Terrain = 98
)

// Walkable reports whether a player may stand on the terrain. Surfing players
// only move over water.
func (t Terrain) Walkable(surfing bool) bool {
	if surfing {
		return t == TerrainWater
	}
	return t == TerrainOpen || t == TerrainGrass || t == TerrainLedge
}

// Grid is a read-only collision grid addressed as rows[y][x].
type Grid struct {
	rows [][]Terrain
}

func NewGrid(rows [][]int) Grid {
	out := make([][]Terrain, len(rows))
	for y, row := range rows {
		out[y] = make([]Terrain, len(row))
		for x, v := range row {
			out[y][x] = Terrain(v)
		}
	}
	return Grid{rows: out}
}

func (g Grid) Empty() bool {
	return len(g.rows) == 0
}

func (g Grid) Height() int {
	return len(g.rows)
}

func (g Grid) Width() int {
	if len(g.rows) == 0 {
		return 0
	}
	return len(g.rows[len(g.rows)-1])
}

// At returns the terrain at p. Cells outside the grid report ok=false.
func (g Grid) At(p Point) (Terrain, bool) {
	if p.Y < 0 || p.Y >= len(g.rows) {
		return 0, false
	}
	row := g.rows[p.Y]
	if p.X < 0 || p.X >= len(row) {
		return 0, false
	}
	return row[p.X], true
}

func (g Grid) Walkable(p Point, surfing bool) bool {
	t, ok := g.At(p)
	return ok && t.Walkable(surfing)
}

func (g Grid) Is(p Point, want Terrain) bool {
	t, ok := g.At(p)
	return ok && t == want
}

// Rows returns a copy of the raw codes, used when persisting a grid.
func (g Grid) Rows() [][]int {
	out := make([][]int, len(g.rows))
	for y, row := range g.rows {
		out[y] = make([]int, len(row))
		for x, v := range row {
			out[y][x] = int(v)
		}
	}
	return out
}

// WithCells returns a copy of g with the given cells overwritten.
func (g Grid) WithCells(cells map[Point]Terrain) Grid {
	rows := make([][]Terrain, len(g.rows))
	for y, row := range g.rows {
		rows[y] = append([]Terrain(nil), row...)
	}
	for p, t := range cells {
		if p.Y < 0 || p.Y >= len(rows) || p.X < 0 || p.X >= len(rows[p.Y]) {
			continue
		}
		rows[p.Y][p.X] = t
	}
	return Grid{rows: rows}
}
