package gormrepo

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"planetbot/internal/app/ports"
	"planetbot/internal/domain/world"
)

// MapCacheRepo stores decoded maps keyed by world.MapKey.
type MapCacheRepo struct {
	db *gorm.DB
}

func NewMapCacheRepo(db *gorm.DB) MapCacheRepo {
	return MapCacheRepo{db: db}
}

func (r MapCacheRepo) Get(ctx context.Context, name string) (world.MapData, error) {
	var row mapCacheRow
	err := getDBFromCtx(ctx, r.db).Where("name = ?", world.MapKey(name)).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return world.MapData{}, ports.ErrNotFound
		}
		return world.MapData{}, err
	}
	var rows [][]int
	if err := json.Unmarshal(row.Grid, &rows); err != nil {
		return world.MapData{}, err
	}
	m := world.MapData{Name: strings.ReplaceAll(row.Name, "_", " "), Region: row.Region, Grid: world.NewGrid(rows)}
	if len(row.Exits) > 0 {
		if err := json.Unmarshal(row.Exits, &m.Exits); err != nil {
			return world.MapData{}, err
		}
	}
	if len(row.NPCs) > 0 {
		if err := json.Unmarshal(row.NPCs, &m.NPCs); err != nil {
			return world.MapData{}, err
		}
	}
	return m, nil
}

// Save stores the grid with the NPC overlay already applied.
func (r MapCacheRepo) Save(ctx context.Context, m world.MapData) error {
	grid, err := json.Marshal(m.Grid.Rows())
	if err != nil {
		return err
	}
	exits, err := json.Marshal(m.Exits)
	if err != nil {
		return err
	}
	npcs, err := json.Marshal(m.NPCs)
	if err != nil {
		return err
	}
	row := mapCacheRow{
		Name:      world.MapKey(m.Name),
		Region:    m.Region,
		Grid:      grid,
		Exits:     exits,
		NPCs:      npcs,
		UpdatedAt: time.Now().UTC(),
	}
	return getDBFromCtx(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"region", "grid", "exits", "npcs", "updated_at"}),
	}).Create(&row).Error
}
