package yamlfs

import (
	"context"
	"errors"
	"testing"

	"planetbot/internal/app/ports"
	"planetbot/internal/domain/world"
)

type countingCache struct {
	saved map[string]world.MapData
	gets  int
}

func (c *countingCache) Get(_ context.Context, name string) (world.MapData, error) {
	c.gets++
	m, ok := c.saved[name]
	if !ok {
		return world.MapData{}, ports.ErrNotFound
	}
	return m, nil
}

func (c *countingCache) Save(_ context.Context, m world.MapData) error {
	c.saved[world.MapKey(m.Name)] = m
	return nil
}

func TestProviderLoadsMapWithOverlay(t *testing.T) {
	p := New("testdata")
	m, err := p.Map(context.Background(), "Route 1 (Night)")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.Name != "Route 1" || m.Region != "Kanto" {
		t.Fatalf("unexpected header %q %q", m.Name, m.Region)
	}
	if !m.Grid.Is(world.Point{X: 1, Y: 1}, world.TerrainNPC) {
		t.Fatalf("npc cell must be blocked")
	}
	if !m.Grid.Is(world.Point{X: 3, Y: 2}, world.TerrainWater) {
		t.Fatalf("expected water at 3,2")
	}
	exit, ok := m.ExitAt(world.Point{X: 2, Y: 4})
	if !ok || exit.Map != "Viridian City" || exit.Dest != (world.Point{X: 7, Y: 1}) {
		t.Fatalf("unexpected exit %+v %v", exit, ok)
	}
}

func TestProviderMissingMap(t *testing.T) {
	p := New("testdata")
	if _, err := p.Map(context.Background(), "Nowhere"); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := p.Map(context.Background(), "Broken"); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for empty grid, got %v", err)
	}
}

func TestProviderWritesThroughCache(t *testing.T) {
	cache := &countingCache{saved: map[string]world.MapData{}}
	p := New("testdata")
	p.Cache = cache

	if _, err := p.Map(context.Background(), "Route 1"); err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, ok := cache.saved["Route_1"]; !ok {
		t.Fatalf("expected map to be cached")
	}

	fresh := NewFS(nil)
	fresh.Cache = cache
	m, err := fresh.Map(context.Background(), "Route 1")
	if err != nil {
		t.Fatalf("cached load: %v", err)
	}
	if m.Grid.Width() != 5 {
		t.Fatalf("expected cached grid, got width %d", m.Grid.Width())
	}
}
