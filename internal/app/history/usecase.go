package history

import (
	"context"
	"errors"
	"strings"
	"time"

	"planetbot/internal/app/ports"
	"planetbot/internal/domain/game"
)

var ErrInvalidRequest = errors.New("invalid history request")

const (
	defaultLimit = 100
	maxLimit     = 1000
)

type UseCase struct {
	Events  ports.EventRepository
	Tallies ports.TallyRepository
}

func (u UseCase) Execute(ctx context.Context, req Request) (Response, error) {
	if strings.TrimSpace(req.Account) == "" || req.Limit < 0 {
		return Response{}, ErrInvalidRequest
	}
	if req.OccurredFrom > 0 && req.OccurredTo > 0 && req.OccurredFrom > req.OccurredTo {
		return Response{}, ErrInvalidRequest
	}
	q := ports.EventQuery{Limit: clampLimit(req.Limit)}
	if req.OccurredFrom > 0 {
		from := time.Unix(req.OccurredFrom, 0).UTC()
		q.OccurredFrom = &from
	}
	if req.OccurredTo > 0 {
		to := time.Unix(req.OccurredTo, 0).UTC()
		q.OccurredTo = &to
	}
	events, err := u.Events.ListByAccount(ctx, req.Account, q)
	switch {
	case errors.Is(err, ports.ErrNotFound):
		events = []game.DomainEvent{}
	case err != nil:
		return Response{}, err
	}

	tallies, err := u.Tallies.Get(ctx, req.Account)
	switch {
	case errors.Is(err, ports.ErrNotFound):
		tallies = game.NewTallies(req.Account)
	case err != nil:
		return Response{}, err
	}
	return Response{Events: events, Tallies: tallies, Summary: summarize(events)}, nil
}

func clampLimit(n int) int {
	switch {
	case n == 0:
		return defaultLimit
	case n > maxLimit:
		return maxLimit
	default:
		return n
	}
}

func summarize(events []game.DomainEvent) Summary {
	s := Summary{ByType: map[string]int{}}
	for _, evt := range events {
		s.ByType[evt.Type]++
		if evt.Type == game.EventBattleWon {
			s.MoneyEarned += int(num(evt.Payload["money"]))
		}
		ts := evt.OccurredAt.Unix()
		if s.FirstAt == 0 || ts < s.FirstAt {
			s.FirstAt = ts
		}
		if ts > s.LastAt {
			s.LastAt = ts
		}
	}
	return s
}

// num reads a payload number whether it came from memory or from JSON.
func num(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}
