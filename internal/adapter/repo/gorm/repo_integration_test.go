package gormrepo

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"gorm.io/gorm"

	"planetbot/internal/app/ports"
	"planetbot/internal/domain/game"
	"planetbot/internal/domain/world"
)

func requireDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("PLANETBOT_DB_DSN")
	if dsn == "" {
		t.Skip("PLANETBOT_DB_DSN is required for integration test")
	}
	return dsn
}

func openMigrated(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := OpenPostgres(requireDSN(t))
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	_, file, _, _ := runtime.Caller(0)
	dir := filepath.Join(filepath.Dir(file), "..", "..", "..", "..", "migrations")
	if err := ApplyMigrations(context.Background(), db, dir); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestEventRepo_TimeWindowNewestFirst(t *testing.T) {
	db := openMigrated(t)
	ctx := context.Background()
	account := "it-events"
	_ = db.Exec("DELETE FROM bot_events WHERE account = ?", account).Error

	base := time.Date(2026, 1, 2, 3, 0, 0, 0, time.UTC)
	repo := NewEventRepo(db)
	events := []game.DomainEvent{
		{Type: game.EventBattleStarted, SessionID: "s1", OccurredAt: base, Payload: map[string]any{"species": "Pidgey"}},
		{Type: game.EventBattleWon, SessionID: "s1", OccurredAt: base.Add(time.Minute)},
		{Type: game.EventFled, SessionID: "s1", OccurredAt: base.Add(2 * time.Minute)},
	}
	if err := repo.Append(ctx, account, events); err != nil {
		t.Fatalf("append: %v", err)
	}

	from := base.Add(30 * time.Second)
	got, err := repo.ListByAccount(ctx, account, ports.EventQuery{OccurredFrom: &from, Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].Type != game.EventFled || got[1].Type != game.EventBattleWon {
		t.Fatalf("unexpected events %+v", got)
	}

	if _, err := repo.ListByAccount(ctx, "it-nobody", ports.EventQuery{}); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTallyRepo_Upsert(t *testing.T) {
	db := openMigrated(t)
	ctx := context.Background()
	account := "it-tallies"
	_ = db.Exec("DELETE FROM session_tallies WHERE account = ?", account).Error

	repo := NewTallyRepo(db)
	tallies := game.NewTallies(account)
	tallies.AddEncounter("Pidgey")
	if err := repo.Save(ctx, tallies); err != nil {
		t.Fatalf("save: %v", err)
	}
	tallies.AddEncounter("[S]Pidgey")
	tallies.AddItem("Pearl", 2)
	tallies.MoneyEarned = 120
	if err := repo.Save(ctx, tallies); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := repo.Get(ctx, account)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Battles != 2 || got.MoneyEarned != 120 || got.Species["[S]Pidgey"] != 1 || got.Items["Pearl"] != 2 {
		t.Fatalf("unexpected tallies %+v", got)
	}
}

func TestAccountRepo_Conflict(t *testing.T) {
	db := openMigrated(t)
	ctx := context.Background()
	_ = db.Exec("DELETE FROM accounts WHERE username = ?", "it-ash").Error

	repo := NewAccountRepo(db)
	rec := ports.AccountRecord{
		Username:     "it-ash",
		UserID:       "42",
		HashPassword: "abc",
		PasswordSalt: []byte("salt"),
		PasswordHash: []byte("hash"),
		CreatedAt:    time.Now().UTC(),
	}
	if err := repo.Create(ctx, rec); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Create(ctx, rec); !errors.Is(err, ports.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	got, err := repo.GetByUsername(ctx, "it-ash")
	if err != nil || got.UserID != "42" {
		t.Fatalf("unexpected account %+v %v", got, err)
	}
}

func TestMapCacheRepo_RoundTrip(t *testing.T) {
	db := openMigrated(t)
	ctx := context.Background()
	repo := NewMapCacheRepo(db)

	m := world.MapData{
		Name:   "Route 1",
		Region: "Kanto",
		Grid:   world.NewGrid([][]int{{0, 1}, {2, 98}}),
		Exits:  []world.Exit{{At: world.Point{X: 0, Y: 0}, Map: "Pallet Town", Dest: world.Point{X: 3, Y: 4}}},
	}
	if err := repo.Save(ctx, m); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := repo.Get(ctx, "Route 1 (Night)")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Route 1" || !got.Grid.Is(world.Point{X: 1, Y: 1}, world.TerrainNPC) || len(got.Exits) != 1 {
		t.Fatalf("unexpected map %+v", got)
	}
}

func TestTxManager_RollsBack(t *testing.T) {
	db := openMigrated(t)
	ctx := context.Background()
	account := "it-tx"
	_ = db.Exec("DELETE FROM bot_events WHERE account = ?", account).Error

	repo := NewEventRepo(db)
	boom := errors.New("boom")
	err := NewTxManager(db).RunInTx(ctx, func(ctx context.Context) error {
		if err := repo.Append(ctx, account, []game.DomainEvent{{Type: game.EventConnected, OccurredAt: time.Now().UTC()}}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, err := repo.ListByAccount(ctx, account, ports.EventQuery{}); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("rolled back event must not persist, got %v", err)
	}
}
