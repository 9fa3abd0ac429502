package memory

import (
	"context"

	"planetbot/internal/app/ports"
	"planetbot/internal/domain/world"
)

type MapCacheRepo struct {
	store *Store
}

func NewMapCacheRepo(store *Store) MapCacheRepo {
	return MapCacheRepo{store: store}
}

func (r MapCacheRepo) Get(_ context.Context, name string) (world.MapData, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	m, ok := r.store.maps[world.MapKey(name)]
	if !ok {
		return world.MapData{}, ports.ErrNotFound
	}
	return m, nil
}

func (r MapCacheRepo) Save(_ context.Context, m world.MapData) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.maps[world.MapKey(m.Name)] = m
	return nil
}
