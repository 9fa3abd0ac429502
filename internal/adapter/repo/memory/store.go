package memory

import (
	"sync"

	"planetbot/internal/app/ports"
	"planetbot/internal/domain/game"
	"planetbot/internal/domain/world"
)

// Store backs every in-memory repository. Repositories take mu themselves;
// txMu only serializes RunInTx callers.
type Store struct {
	txMu sync.Mutex

	mu       sync.RWMutex
	events   map[string][]game.DomainEvent
	tallies  map[string]game.Tallies
	accounts map[string]ports.AccountRecord
	maps     map[string]world.MapData
}

func NewStore() *Store {
	return &Store{
		events:   make(map[string][]game.DomainEvent),
		tallies:  make(map[string]game.Tallies),
		accounts: make(map[string]ports.AccountRecord),
		maps:     make(map[string]world.MapData),
	}
}
