package memory

import (
	"context"

	"planetbot/internal/app/ports"
)

type AccountRepo struct {
	store *Store
}

func NewAccountRepo(store *Store) AccountRepo {
	return AccountRepo{store: store}
}

func (r AccountRepo) Create(_ context.Context, account ports.AccountRecord) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.accounts[account.Username]; ok {
		return ports.ErrConflict
	}
	r.store.accounts[account.Username] = account
	return nil
}

func (r AccountRepo) GetByUsername(_ context.Context, username string) (ports.AccountRecord, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	a, ok := r.store.accounts[username]
	if !ok {
		return ports.AccountRecord{}, ports.ErrNotFound
	}
	return a, nil
}
