package game

import (
	"testing"

	"planetbot/internal/domain/world"
)

func grassPatch() world.Grid {
	return world.NewGrid([][]int{
		{1, 1, 1, 1},
		{1, 3, 3, 1},
		{1, 3, 0, 2},
		{1, 1, 2, 2},
	})
}

func TestInventoryKeepsAcquisitionOrder(t *testing.T) {
	inv := NewInventory([]ItemCount{{"Potion", 2}, {"Pokeball", 5}})
	inv.Add("Great Ball", 1)
	inv.Add("Potion", -2)
	inv.Add("Ghost", -1)

	items := inv.Items()
	if len(items) != 2 || items[0].Name != "Pokeball" || items[1].Name != "Great Ball" {
		t.Fatalf("unexpected inventory %+v", items)
	}
	if inv.Count("Pokeball") != 5 || inv.Has("Potion") {
		t.Fatalf("unexpected counts %+v", items)
	}
}

func TestMoveRespectsBoundAndTerrain(t *testing.T) {
	p := NewPlayer()
	p.Grid = grassPatch()
	p.Pos = world.Point{X: 1, Y: 1}
	if !p.SetSelectedTiles([]world.Point{{X: 1, Y: 1}, {X: 2, Y: 1}, {X: 1, Y: 2}, {X: 2, Y: 2}}) {
		t.Fatalf("expected four tiles to be accepted")
	}

	if moved, _ := p.Move(world.DirUp, true); moved {
		t.Fatalf("moved onto a blocked cell")
	}
	if moved, _ := p.Move(world.DirRight, true); !moved || p.Pos != (world.Point{X: 2, Y: 1}) || p.Facing != world.DirRight {
		t.Fatalf("expected move right, got pos=%v facing=%v", p.Pos, p.Facing)
	}
	dirs := p.WalkableDirections(true)
	if len(dirs) != 2 {
		t.Fatalf("expected two walkable directions, got %v", dirs)
	}
}

func TestSetSelectedTilesRejectsFewerThanFour(t *testing.T) {
	p := NewPlayer()
	if p.SetSelectedTiles([]world.Point{{X: 1, Y: 1}, {X: 2, Y: 1}, {X: 3, Y: 1}}) {
		t.Fatalf("three tiles must be rejected")
	}
	if p.SelectedTiles != nil {
		t.Fatalf("bound must stay unset")
	}
}

func TestMoveReportsSaveEveryStepsPerSave(t *testing.T) {
	p := NewPlayer()
	p.Grid = world.NewGrid([][]int{{0, 0}})
	saves := 0
	for i := 0; i < StepsPerSave*2; i++ {
		d := world.DirRight
		if p.Pos.X == 1 {
			d = world.DirLeft
		}
		moved, save := p.Move(d, false)
		if !moved {
			t.Fatalf("step %d did not move", i)
		}
		if save {
			saves++
		}
	}
	if saves != 2 {
		t.Fatalf("expected 2 saves, got %d", saves)
	}
}

func TestBikeRaisesSpeed(t *testing.T) {
	p := NewPlayer()
	p.Grid = world.NewGrid([][]int{{0, 0}})
	p.SetMount(MountBike)
	p.Move(world.DirRight, false)
	if p.Speed != 16 {
		t.Fatalf("expected bike speed 16, got %v", p.Speed)
	}
}

func TestFaceWaterAndOnBattleTile(t *testing.T) {
	p := NewPlayer()
	p.Grid = grassPatch()
	p.Pos = world.Point{X: 2, Y: 2}
	p.Facing = world.DirUp
	if !p.FaceWater() || p.Facing != world.DirDown {
		t.Fatalf("expected to face water below, facing=%v", p.Facing)
	}
	if p.OnBattleTile() {
		t.Fatalf("open ground is not a battle tile")
	}
	p.Pos = world.Point{X: 1, Y: 1}
	if !p.OnBattleTile() {
		t.Fatalf("grass is a battle tile")
	}
	p.SetMount(MountSurf)
	p.Pos = world.Point{X: 3, Y: 3}
	if !p.OnBattleTile() {
		t.Fatalf("water is a battle tile while surfing")
	}
}

func TestBestToolsFollowSkillLevel(t *testing.T) {
	p := NewPlayer()
	p.Inventory = NewInventory([]ItemCount{{"Old Rod", 1}, {"Super Rod", 1}, {"Good Pickaxe", 1}})
	p.FishingLevel = 10
	if rod, ok := p.BestRod(); !ok || rod != "Old Rod" {
		t.Fatalf("expected Old Rod below level 20, got %q", rod)
	}
	p.FishingLevel = 20
	if rod, _ := p.BestRod(); rod != "Super Rod" {
		t.Fatalf("expected Super Rod, got %q", rod)
	}
	if _, ok := p.BestPickaxe(); ok {
		t.Fatalf("mining level 0 cannot use a Good Pickaxe")
	}
}

func TestBestPotionPrefersStrongest(t *testing.T) {
	p := NewPlayer()
	p.Inventory = NewInventory([]ItemCount{{"Potion", 3}, {"Super Potion", 1}})
	if name, _ := p.BestPotion(); name != "Super Potion" {
		t.Fatalf("expected Super Potion, got %q", name)
	}
	p.Inventory = NewInventory([]ItemCount{{"Max Revive", 1}, {"Revive", 1}})
	if name, _ := p.BestRevive(); name != "Revive" {
		t.Fatalf("expected Revive first, got %q", name)
	}
}

func TestCatchingBallResolution(t *testing.T) {
	p := NewPlayer()
	p.Inventory = NewInventory([]ItemCount{
		{"Potion", 1},
		{"Great Ball", 2},
		{"Great Ball (Untradeable)", 1},
	})
	name, idx, ok := p.CatchingBall(AnyBall)
	if !ok || name != "Great Ball (Untradeable)" || idx != 2 {
		t.Fatalf("unexpected any-ball resolution %q %d %v", name, idx, ok)
	}
	if _, _, ok := p.CatchingBall("Ultra Ball"); ok {
		t.Fatalf("ultra ball is not held")
	}
}

func TestEnsureActiveAlive(t *testing.T) {
	p := NewPlayer()
	p.Team = []Pokemon{
		{Name: "A", CurrentHP: 0, Stats: Stats{HP: 10}},
		{Name: "B", CurrentHP: 4, Stats: Stats{HP: 10}},
	}
	if !p.EnsureActiveAlive() || p.Active != 1 {
		t.Fatalf("expected active slot 1, got %d", p.Active)
	}
	p.Team[1].CurrentHP = 0
	if p.EnsureActiveAlive() || p.HasUsablePokemon() {
		t.Fatalf("expected no usable member")
	}
}

func TestStateSnapshotIsDeepCopy(t *testing.T) {
	s := NewState()
	s.Update(func(p *Player) {
		p.Team = []Pokemon{{Name: "Pikachu", Moves: []Move{{Name: "Thunder Shock"}}}}
		p.Rocks[world.Point{X: 1, Y: 1}] = world.Rock{Available: true}
	})
	snap := s.Snapshot()
	snap.Team[0].Moves[0].Name = "Tackle"
	delete(snap.Rocks, world.Point{X: 1, Y: 1})

	s.View(func(p *Player) {
		if p.Team[0].Moves[0].Name != "Thunder Shock" || len(p.Rocks) != 1 {
			t.Fatalf("snapshot leaked into state")
		}
	})
	s.Reset()
	if got := s.Snapshot(); len(got.Team) != 0 || got.Speed != 8 {
		t.Fatalf("reset did not restore defaults: %+v", got)
	}
}

func TestEncounterHPPercentTruncates(t *testing.T) {
	w := WildEncounter{CurrentHP: 1, MaxHP: 3}
	if w.HPPercent() != 33 {
		t.Fatalf("expected 33, got %d", w.HPPercent())
	}
	w.Apply(EncounterUpdate{Ailment: "sleep", CurrentHP: 0})
	if w.HPPercent() != 0 || w.Ailment != "sleep" || w.MaxHP != 3 {
		t.Fatalf("unexpected apply result %+v", w)
	}
}

func TestTalliesClone(t *testing.T) {
	tl := NewTallies("ash")
	tl.AddEncounter("[S]Pidgey")
	tl.AddItem("Potion", 2)
	tl.AddItem("Potion", -1)
	c := tl.Clone()
	c.Species["Rattata"] = 1
	if tl.Battles != 1 || tl.Items["Potion"] != 2 || len(tl.Species) != 1 {
		t.Fatalf("unexpected tallies %+v", tl)
	}
}
