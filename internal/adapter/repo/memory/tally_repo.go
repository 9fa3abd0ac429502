package memory

import (
	"context"

	"planetbot/internal/app/ports"
	"planetbot/internal/domain/game"
)

type TallyRepo struct {
	store *Store
}

func NewTallyRepo(store *Store) TallyRepo {
	return TallyRepo{store: store}
}

func (r TallyRepo) Save(_ context.Context, t game.Tallies) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.tallies[t.Account] = t.Clone()
	return nil
}

func (r TallyRepo) Get(_ context.Context, account string) (game.Tallies, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	t, ok := r.store.tallies[account]
	if !ok {
		return game.Tallies{}, ports.ErrNotFound
	}
	return t.Clone(), nil
}
