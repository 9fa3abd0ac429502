package status

import (
	"context"
	"testing"
	"time"

	"planetbot/internal/domain/game"
	"planetbot/internal/domain/world"
)

type fakeSource struct {
	snap Snapshot
}

func (f fakeSource) Snapshot() Snapshot { return f.snap }

func TestUseCase_ProjectsConnectedSession(t *testing.T) {
	p := game.NewPlayer()
	p.Map = "Route 1"
	p.Pos = world.Point{X: 3, Y: 4}
	p.Money = 900
	p.Inventory = game.NewInventory([]game.ItemCount{{Name: "Potion", Count: 2}})
	p.Players["2"] = game.NearbyPlayer{ID: "2", Name: "misty"}
	p.Players["1"] = game.NearbyPlayer{ID: "1", Name: "brock"}
	p.Rocks[world.Point{X: 5, Y: 1}] = world.Rock{At: world.Point{X: 5, Y: 1}, Available: true}
	p.Rocks[world.Point{X: 2, Y: 1}] = world.Rock{At: world.Point{X: 2, Y: 1}}

	start := time.Unix(1700000000, 0)
	uc := UseCase{
		Session: fakeSource{snap: Snapshot{
			Phase: "connected", Connected: true, Account: "ash", Running: true,
			StartedAt: start, Player: p, Tallies: game.NewTallies("ash"),
		}},
		Now: func() time.Time { return start.Add(90 * time.Second) },
	}
	resp, err := uc.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if !resp.Connected || !resp.Running || resp.Account != "ash" {
		t.Fatalf("unexpected flags: %+v", resp)
	}
	if resp.UptimeSeconds != 90 {
		t.Fatalf("expected 90s uptime, got %d", resp.UptimeSeconds)
	}
	if resp.Player.X != 3 || resp.Player.Y != 4 || resp.Player.Map != "Route 1" || resp.Player.Facing != "down" {
		t.Fatalf("unexpected position: %+v", resp.Player)
	}
	if len(resp.Player.Players) != 2 || resp.Player.Players[0].Name != "brock" {
		t.Fatalf("players not sorted: %+v", resp.Player.Players)
	}
	if len(resp.Player.Rocks) != 2 || resp.Player.Rocks[0].At.X != 2 {
		t.Fatalf("rocks not sorted: %+v", resp.Player.Rocks)
	}
	if len(resp.Player.Inventory) != 1 || resp.Player.Inventory[0].Count != 2 {
		t.Fatalf("unexpected inventory: %+v", resp.Player.Inventory)
	}
}

func TestUseCase_DisconnectedHasEmptyCollections(t *testing.T) {
	uc := UseCase{Session: fakeSource{snap: Snapshot{Phase: "disconnected", Player: game.NewPlayer()}}}
	resp, err := uc.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if resp.Connected || resp.UptimeSeconds != 0 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Player.Team == nil || resp.Player.Inventory == nil || resp.Player.Players == nil {
		t.Fatalf("collections must encode as empty arrays")
	}
}
