package gormrepo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"planetbot/internal/app/ports"
	"planetbot/internal/domain/game"
)

type TallyRepo struct {
	db *gorm.DB
}

func NewTallyRepo(db *gorm.DB) TallyRepo {
	return TallyRepo{db: db}
}

// Save upserts the account's tallies.
func (r TallyRepo) Save(ctx context.Context, t game.Tallies) error {
	species, err := json.Marshal(t.Species)
	if err != nil {
		return err
	}
	items, err := json.Marshal(t.Items)
	if err != nil {
		return err
	}
	updated := t.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	row := sessionTallyRow{
		Account:     t.Account,
		Battles:     t.Battles,
		MoneyEarned: t.MoneyEarned,
		Species:     species,
		Items:       items,
		UpdatedAt:   updated,
	}
	return getDBFromCtx(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account"}},
		DoUpdates: clause.AssignmentColumns([]string{"battles", "money_earned", "species", "items", "updated_at"}),
	}).Create(&row).Error
}

func (r TallyRepo) Get(ctx context.Context, account string) (game.Tallies, error) {
	var row sessionTallyRow
	if err := getDBFromCtx(ctx, r.db).Where("account = ?", account).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return game.Tallies{}, ports.ErrNotFound
		}
		return game.Tallies{}, err
	}
	t := game.NewTallies(row.Account)
	t.Battles = row.Battles
	t.MoneyEarned = row.MoneyEarned
	t.UpdatedAt = row.UpdatedAt
	if len(row.Species) > 0 {
		if err := json.Unmarshal(row.Species, &t.Species); err != nil {
			return game.Tallies{}, err
		}
	}
	if len(row.Items) > 0 {
		if err := json.Unmarshal(row.Items, &t.Items); err != nil {
			return game.Tallies{}, err
		}
	}
	return t, nil
}
