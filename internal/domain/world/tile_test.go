package world

import "testing"

func TestTerrainWalkable(t *testing.T) {
	cases := []struct {
		terrain Terrain
		surfing bool
		want    bool
	}{
		{TerrainOpen, false, true},
		{TerrainGrass, false, true},
		{TerrainLedge, false, true},
		{TerrainWater, false, false},
		{TerrainBlocked, false, false},
		{TerrainNPC, false, false},
		{TerrainWater, true, true},
		{TerrainOpen, true, false},
		{TerrainGrass, true, false},
	}
	for _, c := range cases {
		if got := c.terrain.Walkable(c.surfing); got != c.want {
			t.Fatalf("Walkable(%d, surfing=%v)=%v want %v", c.terrain, c.surfing, got, c.want)
		}
	}
}

func TestGridOutOfBoundsIsNotWalkable(t *testing.T) {
	g := NewGrid([][]int{{0, 0}, {0, 3}})
	for _, p := range []Point{{X: -1, Y: 0}, {X: 0, Y: -1}, {X: 2, Y: 0}, {X: 0, Y: 2}} {
		if g.Walkable(p, false) {
			t.Fatalf("expected %v to be non-walkable", p)
		}
	}
	if !g.Walkable(Point{X: 1, Y: 1}, false) {
		t.Fatalf("expected grass to be walkable")
	}
	if g.Width() != 2 || g.Height() != 2 {
		t.Fatalf("unexpected size %dx%d", g.Width(), g.Height())
	}
}

func TestMapDataNPCOverlayBlocksCell(t *testing.T) {
	m := MapData{
		Grid: NewGrid([][]int{{0, 0, 0}}),
		NPCs: []NPC{{Name: "Nurse", At: Point{X: 1, Y: 0}}},
	}.WithNPCOverlay()
	if m.Grid.Walkable(Point{X: 1, Y: 0}, false) {
		t.Fatalf("expected npc cell to be blocked")
	}
	if !m.Grid.Walkable(Point{X: 0, Y: 0}, false) {
		t.Fatalf("expected neighbour to stay open")
	}
}

func TestCleanMapName(t *testing.T) {
	if got := CleanMapName("Route 1 (Night)"); got != "Route 1" {
		t.Fatalf("CleanMapName=%q", got)
	}
	if got := MapKey("Viridian City (Day)"); got != "Viridian_City" {
		t.Fatalf("MapKey=%q", got)
	}
}

func TestPointDirectionTo(t *testing.T) {
	p := Point{X: 3, Y: 3}
	if d, ok := p.DirectionTo(Point{X: 3, Y: 2}); !ok || d != DirUp {
		t.Fatalf("expected up, got %v %v", d, ok)
	}
	if _, ok := p.DirectionTo(Point{X: 4, Y: 4}); ok {
		t.Fatalf("diagonal must not resolve to a direction")
	}
}
