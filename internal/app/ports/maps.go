package ports

import (
	"context"

	"planetbot/internal/domain/world"
)

// MapProvider loads static map data by clean map name.
type MapProvider interface {
	Map(ctx context.Context, name string) (world.MapData, error)
}
