package memory

import (
	"context"

	"planetbot/internal/app/ports"
	"planetbot/internal/domain/game"
)

type EventRepo struct {
	store *Store
}

func NewEventRepo(store *Store) EventRepo {
	return EventRepo{store: store}
}

func (r EventRepo) Append(_ context.Context, account string, events []game.DomainEvent) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.events[account] = append(r.store.events[account], events...)
	return nil
}

// ListByAccount returns newest first, filtered by the query window.
func (r EventRepo) ListByAccount(_ context.Context, account string, q ports.EventQuery) ([]game.DomainEvent, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	all := r.store.events[account]
	out := make([]game.DomainEvent, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		e := all[i]
		if q.OccurredFrom != nil && e.OccurredAt.Before(*q.OccurredFrom) {
			continue
		}
		if q.OccurredTo != nil && e.OccurredAt.After(*q.OccurredTo) {
			continue
		}
		out = append(out, e)
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	if len(out) == 0 {
		return nil, ports.ErrNotFound
	}
	return out, nil
}
