package world

import (
	"regexp"
	"strings"
)

// Exit is a tile that moves the player to another map.
type Exit struct {
	At   Point  `json:"at" yaml:"at"`
	Map  string `json:"map" yaml:"map"`
	Dest Point  `json:"dest" yaml:"dest"`
}

type NPC struct {
	Name string `json:"name" yaml:"name"`
	At   Point  `json:"at" yaml:"at"`
}

// MapData is the static description of one map. NPC cells are already
// overlaid on Grid as TerrainNPC.
type MapData struct {
	Name   string
	Region string
	Grid   Grid
	Exits  []Exit
	NPCs   []NPC
}

func (m MapData) ExitAt(p Point) (Exit, bool) {
	for _, e := range m.Exits {
		if e.At == p {
			return e, true
		}
	}
	return Exit{}, false
}

// WithNPCOverlay blocks every NPC cell on the grid.
func (m MapData) WithNPCOverlay() MapData {
	if len(m.NPCs) == 0 {
		return m
	}
	cells := make(map[Point]Terrain, len(m.NPCs))
	for _, n := range m.NPCs {
		cells[n.At] = TerrainNPC
	}
	m.Grid = m.Grid.WithCells(cells)
	return m
}

var parenthetical = regexp.MustCompile(`\([^()]*\)`)

// CleanMapName strips parenthetical qualifiers, e.g. "Route 1 (Night)" -> "Route 1".
func CleanMapName(raw string) string {
	return strings.TrimSpace(parenthetical.ReplaceAllString(raw, ""))
}

// MapKey is the storage key of a clean map name.
func MapKey(name string) string {
	return strings.ReplaceAll(CleanMapName(name), " ", "_")
}
