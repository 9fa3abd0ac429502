package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"planetbot/internal/adapter/repo/memory"
	"planetbot/internal/app/ports"
	"planetbot/internal/domain/game"
)

func TestUseCase_FiltersByOccurredTimeWindow(t *testing.T) {
	store := memory.NewStore()
	events := memory.NewEventRepo(store)
	ctx := context.Background()

	seed := []game.DomainEvent{
		{Type: game.EventBattleStarted, OccurredAt: time.Unix(1700000000, 0)},
		{Type: game.EventBattleWon, OccurredAt: time.Unix(1700000100, 0), Payload: map[string]any{"money": 120}},
		{Type: game.EventBattleWon, OccurredAt: time.Unix(1700003600, 0), Payload: map[string]any{"money": 80.0}},
	}
	if err := events.Append(ctx, "ash", seed); err != nil {
		t.Fatalf("append: %v", err)
	}

	uc := UseCase{Events: events, Tallies: memory.NewTallyRepo(store)}
	out, err := uc.Execute(ctx, Request{Account: "ash", OccurredFrom: 1700000050, OccurredTo: 1700003700})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if len(out.Events) != 2 {
		t.Fatalf("expected 2 events in window, got %d", len(out.Events))
	}
	if out.Summary.ByType[game.EventBattleWon] != 2 || out.Summary.MoneyEarned != 200 {
		t.Fatalf("unexpected summary: %+v", out.Summary)
	}
	if out.Summary.FirstAt != 1700000100 || out.Summary.LastAt != 1700003600 {
		t.Fatalf("unexpected bounds: %+v", out.Summary)
	}
	if out.Tallies.Account != "ash" || out.Tallies.Battles != 0 {
		t.Fatalf("expected empty tallies for a fresh account, got %+v", out.Tallies)
	}
}

func TestUseCase_ReturnsPersistedTallies(t *testing.T) {
	store := memory.NewStore()
	tallies := memory.NewTallyRepo(store)
	ctx := context.Background()

	tl := game.NewTallies("ash")
	tl.AddEncounter("Pidgey")
	tl.AddItem("Potion", 2)
	if err := tallies.Save(ctx, tl); err != nil {
		t.Fatalf("save: %v", err)
	}

	uc := UseCase{Events: memory.NewEventRepo(store), Tallies: tallies}
	out, err := uc.Execute(ctx, Request{Account: "ash"})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if out.Tallies.Battles != 1 || out.Tallies.Species["Pidgey"] != 1 || out.Tallies.Items["Potion"] != 2 {
		t.Fatalf("unexpected tallies: %+v", out.Tallies)
	}
}

func TestUseCase_RejectsInvalidRequests(t *testing.T) {
	uc := UseCase{}
	for _, req := range []Request{
		{},
		{Account: "ash", Limit: -1},
		{Account: "ash", OccurredFrom: 20, OccurredTo: 10},
	} {
		if _, err := uc.Execute(context.Background(), req); !errors.Is(err, ErrInvalidRequest) {
			t.Fatalf("expected ErrInvalidRequest for %+v, got %v", req, err)
		}
	}
}

func TestUseCase_PropagatesRepoError(t *testing.T) {
	wantErr := errors.New("db down")
	uc := UseCase{Events: failingEvents{err: wantErr}}
	if _, err := uc.Execute(context.Background(), Request{Account: "ash"}); !errors.Is(err, wantErr) {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}
}

func TestClampLimit(t *testing.T) {
	if got := clampLimit(0); got != defaultLimit {
		t.Fatalf("expected default limit, got %d", got)
	}
	if got := clampLimit(5000); got != maxLimit {
		t.Fatalf("expected max limit, got %d", got)
	}
}

type failingEvents struct {
	err error
}

func (f failingEvents) Append(context.Context, string, []game.DomainEvent) error { return f.err }

func (f failingEvents) ListByAccount(context.Context, string, ports.EventQuery) ([]game.DomainEvent, error) {
	return nil, f.err
}
