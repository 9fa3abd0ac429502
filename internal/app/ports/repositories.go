package ports

import (
	"context"
	"time"

	"planetbot/internal/domain/game"
	"planetbot/internal/domain/world"
)

type EventQuery struct {
	Limit        int
	OccurredFrom *time.Time
	OccurredTo   *time.Time
}

type EventRepository interface {
	Append(ctx context.Context, account string, events []game.DomainEvent) error
	ListByAccount(ctx context.Context, account string, q EventQuery) ([]game.DomainEvent, error)
}

type TallyRepository interface {
	Save(ctx context.Context, t game.Tallies) error
	Get(ctx context.Context, account string) (game.Tallies, error)
}

type AccountRecord struct {
	Username     string
	UserID       string
	HashPassword string
	PasswordSalt []byte
	PasswordHash []byte
	CreatedAt    time.Time
}

type AccountRepository interface {
	Create(ctx context.Context, account AccountRecord) error
	GetByUsername(ctx context.Context, username string) (AccountRecord, error)
}

// MapCacheRepository keeps decoded maps so restarts skip the file scan.
type MapCacheRepository interface {
	Get(ctx context.Context, name string) (world.MapData, error)
	Save(ctx context.Context, data world.MapData) error
}
