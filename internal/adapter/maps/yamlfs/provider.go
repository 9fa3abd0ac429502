package yamlfs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"planetbot/internal/app/ports"
	"planetbot/internal/domain/world"
)

type mapFile struct {
	Name      string       `yaml:"name"`
	Region    string       `yaml:"region"`
	Collision [][]int      `yaml:"collision"`
	Exits     []world.Exit `yaml:"exits"`
	NPCs      []world.NPC  `yaml:"npcs"`
}

// Provider reads one YAML file per map, named after world.MapKey. Decoded maps
// are memoized and, when Cache is set, written through to it.
type Provider struct {
	fsys  fs.FS
	Cache ports.MapCacheRepository

	mu     sync.RWMutex
	loaded map[string]world.MapData
}

func New(dir string) *Provider {
	return NewFS(os.DirFS(dir))
}

func NewFS(fsys fs.FS) *Provider {
	return &Provider{fsys: fsys, loaded: map[string]world.MapData{}}
}

func (p *Provider) Map(ctx context.Context, name string) (world.MapData, error) {
	key := world.MapKey(name)
	p.mu.RLock()
	m, ok := p.loaded[key]
	p.mu.RUnlock()
	if ok {
		return m, nil
	}

	if p.Cache != nil {
		cached, err := p.Cache.Get(ctx, key)
		if err == nil {
			p.remember(key, cached)
			return cached, nil
		}
		if !errors.Is(err, ports.ErrNotFound) {
			return world.MapData{}, err
		}
	}

	m, err := p.read(key)
	if err != nil {
		return world.MapData{}, err
	}
	if p.Cache != nil {
		if err := p.Cache.Save(ctx, m); err != nil {
			return world.MapData{}, fmt.Errorf("cache map %s: %w", key, err)
		}
	}
	p.remember(key, m)
	return m, nil
}

func (p *Provider) remember(key string, m world.MapData) {
	p.mu.Lock()
	p.loaded[key] = m
	p.mu.Unlock()
}

func (p *Provider) read(key string) (world.MapData, error) {
	raw, err := fs.ReadFile(p.fsys, key+".yaml")
	if errors.Is(err, fs.ErrNotExist) {
		return world.MapData{}, fmt.Errorf("map %s: %w", key, ports.ErrNotFound)
	}
	if err != nil {
		return world.MapData{}, err
	}
	var f mapFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return world.MapData{}, fmt.Errorf("decode map %s: %w", key, err)
	}
	if len(f.Collision) == 0 {
		return world.MapData{}, fmt.Errorf("map %s has no collision grid: %w", key, ports.ErrNotFound)
	}
	m := world.MapData{
		Name:   f.Name,
		Region: f.Region,
		Grid:   world.NewGrid(f.Collision),
		Exits:  f.Exits,
		NPCs:   f.NPCs,
	}
	if m.Name == "" {
		m.Name = world.CleanMapName(key)
	}
	return m.WithNPCOverlay(), nil
}
