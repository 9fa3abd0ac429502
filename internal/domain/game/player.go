package game

import (
	"strings"

	"planetbot/internal/domain/world"
)

const (
	MountNone = ""
	MountBike = "Bike"
	MountSurf = "surf"

	MaxTeamSize        = 6
	MinSelectedTiles   = 4
	StepsPerSave       = 256
	mapMovementsPerMap = 64
)

type FishState int

const (
	FishIdle FishState = iota
	FishCasting
)

type tiered struct {
	name  string
	level int
}

var (
	rods = []tiered{
		{"Old Rod", 0},
		{"Good Rod", 5},
		{"Super Rod", 20},
		{"Steel Rod", 50},
	}
	pickaxes = []tiered{
		{"Old Pickaxe", 0},
		{"Good Pickaxe", 5},
		{"Super Pickaxe", 20},
		{"Steel Pickaxe", 50},
	}
	// Strongest first.
	potions = []string{"Hyper Potion", "Super Potion", "Potion"}
	revives = []string{"Revive", "Max Revive"}
)

// UsableBalls is the ordered list "Any" resolves against.
var UsableBalls = []string{"Pokeball", "Great Ball", "Ultra Ball", "Safari Ball"}

// AnyBall matches the first usable ball held.
const AnyBall = "Any"

const untradeableSuffix = " (Untradeable)"

type NearbyPlayer struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// Player is the mutable game snapshot. It carries no lock; State owns it.
type Player struct {
	Username  string
	Money     int
	Credits   int
	Inventory Inventory
	Badges    []string

	Pos    world.Point
	Facing world.Direction
	RawMap string
	Map    string
	Grid   world.Grid
	Exits  []world.Exit

	Team   []Pokemon
	Active int

	Mount        string
	MoveType     string
	SpeedMod     float64
	Speed        float64
	MapMovements float64
	StepsWalked  int

	FishingLevel int
	FishingExp   int
	MiningLevel  int

	CreationEpoch    int64
	CharacterCreated int
	Membership       string
	MembershipTime   int64
	Clan             string

	Battle    bool
	Busy      bool
	Moving    bool
	MyTurn    bool
	BattleWon bool
	Encounter *WildEncounter

	Fishing     FishState
	Hooked      bool
	Mining      bool
	CurrentRock *world.Point

	SelectedTiles map[world.Point]bool
	Rocks         map[world.Point]world.Rock
	Players       map[string]NearbyPlayer
}

func NewPlayer() Player {
	return Player{
		Facing:   world.DirDown,
		SpeedMod: 1,
		Speed:    8,
		Rocks:    map[world.Point]world.Rock{},
		Players:  map[string]NearbyPlayer{},
	}
}

func (p Player) Surfing() bool {
	return p.MoveType == MountSurf
}

func (p Player) InWater() bool {
	return p.Grid.Is(p.Pos, world.TerrainWater)
}

// OnBattleTile reports whether the current cell can spawn wild encounters.
func (p Player) OnBattleTile() bool {
	if p.Surfing() {
		return p.Grid.Is(p.Pos, world.TerrainWater)
	}
	return p.Grid.Is(p.Pos, world.TerrainGrass)
}

// SetSelectedTiles installs the movement bound. Fewer than MinSelectedTiles is rejected.
func (p *Player) SetSelectedTiles(tiles []world.Point) bool {
	if len(tiles) < MinSelectedTiles {
		return false
	}
	p.SelectedTiles = make(map[world.Point]bool, len(tiles))
	for _, t := range tiles {
		p.SelectedTiles[t] = true
	}
	return true
}

func (p Player) CanMoveTo(to world.Point, bounded bool) bool {
	if bounded && p.SelectedTiles == nil {
		return false
	}
	if !p.Grid.Walkable(to, p.Surfing()) {
		return false
	}
	if bounded && !p.SelectedTiles[to] {
		return false
	}
	return true
}

func (p Player) WalkableDirections(bounded bool) []world.Direction {
	out := make([]world.Direction, 0, 4)
	for _, d := range world.Directions {
		if p.CanMoveTo(p.Pos.Step(d), bounded) {
			out = append(out, d)
		}
	}
	return out
}

// Move steps one cell. saveDue is true every StepsPerSave steps.
func (p *Player) Move(d world.Direction, bounded bool) (moved bool, saveDue bool) {
	if d == world.DirNone {
		return false, false
	}
	to := p.Pos.Step(d)
	if !p.CanMoveTo(to, bounded) {
		return false, false
	}
	p.Pos = to
	p.Facing = d
	return true, p.advanceMovement()
}

func (p *Player) advanceMovement() bool {
	if p.MapMovements < mapMovementsPerMap {
		p.MapMovements += p.Speed
	} else {
		p.MapMovements = 0
	}
	if strings.EqualFold(p.MoveType, MountBike) {
		p.Speed = 16 * p.SpeedMod
		if p.Mount == MountNone {
			p.Mount = MountBike
		}
	} else {
		p.Speed = 8 * p.SpeedMod
	}
	p.StepsWalked++
	if p.StepsWalked >= StepsPerSave {
		p.StepsWalked = 0
		return true
	}
	return false
}

// SetMount records the mount and its lower-cased move type.
func (p *Player) SetMount(mount string) {
	p.Mount = mount
	p.MoveType = strings.ToLower(mount)
}

func (p Player) FacingCell() world.Point {
	return p.Pos.Step(p.Facing)
}

func (p Player) NearWater() bool {
	for _, d := range world.Directions {
		if p.Grid.Is(p.Pos.Step(d), world.TerrainWater) {
			return true
		}
	}
	return false
}

// FaceWater turns toward adjacent water, keeping the current facing when it already works.
func (p *Player) FaceWater() bool {
	if p.Grid.Is(p.FacingCell(), world.TerrainWater) {
		return true
	}
	for _, d := range world.Directions {
		if p.Grid.Is(p.Pos.Step(d), world.TerrainWater) {
			p.Facing = d
			return true
		}
	}
	return false
}

func (p Player) NearRock() bool {
	for _, d := range world.Directions {
		if _, ok := p.Rocks[p.Pos.Step(d)]; ok {
			return true
		}
	}
	return false
}

// FaceAvailableRock turns toward an adjacent rock that is not depleted.
func (p *Player) FaceAvailableRock() (world.Rock, bool) {
	if r, ok := p.Rocks[p.FacingCell()]; ok && r.Available {
		return r, true
	}
	for _, d := range world.Directions {
		if r, ok := p.Rocks[p.Pos.Step(d)]; ok && r.Available {
			p.Facing = d
			return r, true
		}
	}
	return world.Rock{}, false
}

func bestTiered(inv Inventory, tiers []tiered, level int) (string, bool) {
	best := ""
	for _, t := range tiers {
		if level >= t.level && inv.Has(t.name) {
			best = t.name
		}
	}
	return best, best != ""
}

func (p Player) BestRod() (string, bool) {
	return bestTiered(p.Inventory, rods, p.FishingLevel)
}

func (p Player) BestPickaxe() (string, bool) {
	return bestTiered(p.Inventory, pickaxes, p.MiningLevel)
}

func (p Player) BestPotion() (string, bool) {
	for _, name := range potions {
		if p.Inventory.Has(name) {
			return name, true
		}
	}
	return "", false
}

func (p Player) BestRevive() (string, bool) {
	for _, name := range revives {
		if p.Inventory.Has(name) {
			return name, true
		}
	}
	return "", false
}

// CatchingBall resolves a catch rule's ball to a held inventory item and its index.
// Untradeable variants are preferred over their tradeable twin.
func (p Player) CatchingBall(ball string) (string, int, bool) {
	candidates := []string{ball}
	if ball == AnyBall || ball == "" {
		candidates = UsableBalls
	}
	for _, name := range candidates {
		for _, variant := range []string{name + untradeableSuffix, name} {
			if i := p.Inventory.Index(variant); i >= 0 {
				return variant, i, true
			}
		}
	}
	return "", -1, false
}

func (p Player) HasUsablePokemon() bool {
	return p.NextAlive() >= 0
}

// NextAlive returns the first team slot with health left, or -1.
func (p Player) NextAlive() int {
	for i, m := range p.Team {
		if !m.Fainted() {
			return i
		}
	}
	return -1
}

func (p Player) ActiveMember() (Pokemon, bool) {
	if p.Active < 0 || p.Active >= len(p.Team) {
		return Pokemon{}, false
	}
	return p.Team[p.Active], true
}

// EnsureActiveAlive points Active at an alive member. False when none is left.
func (p *Player) EnsureActiveAlive() bool {
	if m, ok := p.ActiveMember(); ok && !m.Fainted() {
		return true
	}
	next := p.NextAlive()
	if next < 0 {
		return false
	}
	p.Active = next
	return true
}

func (p Player) ExitHere() (world.Exit, bool) {
	for _, e := range p.Exits {
		if e.At == p.Pos {
			return e, true
		}
	}
	return world.Exit{}, false
}

// EnterMap swaps the map, grid and position in one step.
func (p *Player) EnterMap(raw string, data world.MapData, at world.Point) {
	p.RawMap = raw
	p.Map = world.CleanMapName(raw)
	p.Grid = data.Grid
	p.Exits = append([]world.Exit(nil), data.Exits...)
	p.Pos = at
	p.MapMovements = 0
	p.Players = map[string]NearbyPlayer{}
}

func (p Player) RockList() []world.Rock {
	out := make([]world.Rock, 0, len(p.Rocks))
	for _, r := range p.Rocks {
		out = append(out, r)
	}
	return out
}

// Clone deep-copies every reference field.
func (p Player) Clone() Player {
	out := p
	out.Inventory = p.Inventory.Clone()
	out.Badges = append([]string(nil), p.Badges...)
	out.Exits = append([]world.Exit(nil), p.Exits...)
	out.Team = make([]Pokemon, len(p.Team))
	for i, m := range p.Team {
		out.Team[i] = m.clone()
	}
	if p.Encounter != nil {
		enc := *p.Encounter
		out.Encounter = &enc
	}
	if p.CurrentRock != nil {
		r := *p.CurrentRock
		out.CurrentRock = &r
	}
	if p.SelectedTiles != nil {
		out.SelectedTiles = make(map[world.Point]bool, len(p.SelectedTiles))
		for k, v := range p.SelectedTiles {
			out.SelectedTiles[k] = v
		}
	}
	out.Rocks = make(map[world.Point]world.Rock, len(p.Rocks))
	for k, v := range p.Rocks {
		out.Rocks[k] = v
	}
	out.Players = make(map[string]NearbyPlayer, len(p.Players))
	for k, v := range p.Players {
		out.Players[k] = v
	}
	return out
}
