package gormrepo

import (
	"context"
	"encoding/json"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"planetbot/internal/app/ports"
	"planetbot/internal/domain/game"
)

type EventRepo struct {
	db *gorm.DB
}

func NewEventRepo(db *gorm.DB) EventRepo {
	return EventRepo{db: db}
}

func (r EventRepo) Append(ctx context.Context, account string, events []game.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	rows := make([]botEventRow, 0, len(events))
	for _, e := range events {
		b, err := json.Marshal(e.Payload)
		if err != nil {
			return err
		}
		rows = append(rows, botEventRow{
			Account:    account,
			SessionID:  e.SessionID,
			Type:       e.Type,
			OccurredAt: e.OccurredAt,
			Payload:    b,
		})
	}
	return getDBFromCtx(ctx, r.db).Create(&rows).Error
}

// ListByAccount returns newest first.
func (r EventRepo) ListByAccount(ctx context.Context, account string, q ports.EventQuery) ([]game.DomainEvent, error) {
	rows := []botEventRow{}
	query := getDBFromCtx(ctx, r.db).
		Where("account = ?", account).
		Clauses(clause.OrderBy{
			Columns: []clause.OrderByColumn{
				{Column: clause.Column{Name: "occurred_at"}, Desc: true},
				{Column: clause.Column{Name: "id"}, Desc: true},
			},
		})
	if q.OccurredFrom != nil {
		query = query.Where("occurred_at >= ?", *q.OccurredFrom)
	}
	if q.OccurredTo != nil {
		query = query.Where("occurred_at <= ?", *q.OccurredTo)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ports.ErrNotFound
	}

	out := make([]game.DomainEvent, 0, len(rows))
	for _, row := range rows {
		var payload map[string]any
		if len(row.Payload) > 0 {
			_ = json.Unmarshal(row.Payload, &payload)
		}
		out = append(out, game.DomainEvent{
			Type:       row.Type,
			SessionID:  row.SessionID,
			OccurredAt: row.OccurredAt,
			Payload:    payload,
		})
	}
	return out, nil
}
