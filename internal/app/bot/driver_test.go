package bot

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"planetbot/internal/adapter/protocol"
	"planetbot/internal/domain/game"
	"planetbot/internal/domain/rules"
	"planetbot/internal/domain/world"
)

type fakeHost struct {
	state *game.State

	mu          sync.Mutex
	connected   bool
	sent        []protocol.Command
	disconnects []string
	exits       []world.Exit
	events      []string
}

func newFakeHost() *fakeHost {
	return &fakeHost{state: game.NewState(), connected: true}
}

func (h *fakeHost) Connected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.connected
}

func (h *fakeHost) State() *game.State { return h.state }

func (h *fakeHost) Send(ctx context.Context, cmd protocol.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent = append(h.sent, cmd)
	return nil
}

func (h *fakeHost) SendWhenIdle(ctx context.Context, cmd protocol.Command) error {
	return h.Send(ctx, cmd)
}

func (h *fakeHost) Disconnect(reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.disconnects = append(h.disconnects, reason)
}

func (h *fakeHost) TakeExit(_ context.Context, exit world.Exit) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.exits = append(h.exits, exit)
	return nil
}

func (h *fakeHost) Record(eventType string, _ map[string]any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, eventType)
}

func (h *fakeHost) commands() []protocol.Command {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]protocol.Command(nil), h.sent...)
}

func (h *fakeHost) sentNamed(name string) []protocol.Command {
	var out []protocol.Command
	for _, c := range h.commands() {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

func newTestDriver(h *fakeHost) *Driver {
	pacer := NewPacer(rand.New(rand.NewSource(3)))
	pacer.Scale = 0.0001
	return NewDriver(h, stubCatalog{}, nil, nil, nil, pacer)
}

func grassField(h *fakeHost) {
	h.state.Update(func(p *game.Player) {
		p.Username = "ash"
		p.Map = "Route 1"
		p.Grid = world.NewGrid([][]int{{3, 3, 3}, {3, 3, 3}, {3, 3, 3}})
		p.Pos = world.Point{X: 0, Y: 0}
		p.Team = []game.Pokemon{{Name: "Pikachu", Level: 12, CurrentHP: 35, Stats: game.Stats{HP: 35}}}
		p.SetSelectedTiles([]world.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}})
	})
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestBattleModeWalksUntilWildBattle(t *testing.T) {
	h := newFakeHost()
	grassField(h)
	d := newTestDriver(h)

	if err := d.Start(rules.Default()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer d.Stop()

	waitFor(t, "wild battle", func() bool { return h.state.Snapshot().Battle })

	if len(h.sentNamed(protocol.CmdWildBattle)) != 1 {
		t.Fatalf("expected exactly one wild battle request")
	}
	moves := h.sentNamed(protocol.CmdMove)
	if len(moves) == 0 {
		t.Fatalf("expected at least one move before the encounter")
	}
	pos := h.state.Snapshot().Pos
	if pos.X > 1 || pos.Y > 1 {
		t.Fatalf("walked outside the selected tiles: %v", pos)
	}
	wild := h.sentNamed(protocol.CmdWildBattle)[0]
	if wild.Args[0] != "Route 1" || wild.Args[2] != protocol.MD5Hex("Route 1dlod02jhznpd02jdhggyambya8201201nfbmj209ahao8rh2pb"+"ash") {
		t.Fatalf("unexpected wild battle args %v", wild.Args)
	}
}

func TestStartAndWalkAreMutuallyExclusive(t *testing.T) {
	h := newFakeHost()
	grassField(h)
	d := newTestDriver(h)

	if err := d.Start(rules.Default()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := d.Walk([]world.Point{{X: 1, Y: 0}}); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
	if err := d.Start(rules.Default()); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
	d.Stop()
	if d.Running() {
		t.Fatalf("expected stopped")
	}

	h.state.Update(func(p *game.Player) { p.Battle = false })
	if err := d.Walk([]world.Point{{X: 0, Y: 1}, {X: 0, Y: 2}}); err != nil {
		t.Fatalf("walk: %v", err)
	}
	if err := d.Start(rules.Default()); err != nil && !errors.Is(err, ErrWalkInProgress) {
		t.Fatalf("unexpected error %v", err)
	}
	d.Stop()
}

func TestWalkFollowsPathAndTakesExit(t *testing.T) {
	h := newFakeHost()
	grassField(h)
	exit := world.Exit{At: world.Point{X: 2, Y: 0}, Map: "Viridian City", Dest: world.Point{X: 5, Y: 5}}
	h.state.Update(func(p *game.Player) { p.Exits = []world.Exit{exit} })
	d := newTestDriver(h)

	if err := d.Walk([]world.Point{{X: 1, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 1}}); err != nil {
		t.Fatalf("walk: %v", err)
	}
	waitFor(t, "walk to finish", func() bool { return !d.Walking() })

	if got := len(h.sentNamed(protocol.CmdMove)); got != 2 {
		t.Fatalf("expected 2 moves before the exit, got %d", got)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.exits) != 1 || h.exits[0].Map != "Viridian City" {
		t.Fatalf("expected exit taken, got %+v", h.exits)
	}
}

func TestCatchTurnAttacksThenThrows(t *testing.T) {
	h := newFakeHost()
	d := newTestDriver(h)
	rule := rules.CatchRule{Name: "Dratini", Move: 1, Status: rules.AnyStatus, Health: 30, Pokeball: game.AnyBall}
	r := rules.Default()
	r.CatchRules = map[string]rules.CatchRule{"Dratini": rule}

	h.state.Update(func(p *game.Player) { *p = catchingPlayer(50) })
	if err := d.catchTurn(context.Background(), r, rule); err != nil {
		t.Fatalf("first tick: %v", err)
	}
	h.state.Update(func(p *game.Player) { p.Encounter.CurrentHP = 20 })
	if err := d.catchTurn(context.Background(), r, rule); err != nil {
		t.Fatalf("second tick: %v", err)
	}

	cmds := h.sentNamed(protocol.CmdBattleAction)
	if len(cmds) != 2 {
		t.Fatalf("expected two battle actions, got %d", len(cmds))
	}
	if cmds[0].Args[0] != "1" || cmds[0].Args[1] != "z" {
		t.Fatalf("first tick should attack with move 1, got %v", cmds[0].Args)
	}
	if cmds[1].Args[1] != "i" || cmds[1].Args[2] != "1" {
		t.Fatalf("second tick should throw the ball at inventory index 1, got %v", cmds[1].Args)
	}
}

func TestStopRuleDisconnectsWhenConfigured(t *testing.T) {
	h := newFakeHost()
	d := newTestDriver(h)
	h.state.Update(func(p *game.Player) { *p = catchingPlayer(80) })

	r := rules.Default()
	r.Advance.StopCatchLogout = true
	if err := d.catchTurn(context.Background(), r, rules.CatchRule{Stop: true}); err != nil {
		t.Fatalf("catch turn: %v", err)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.disconnects) != 1 {
		t.Fatalf("expected a disconnect, got %v", h.disconnects)
	}
}

func TestHookedAndRockDepleted(t *testing.T) {
	h := newFakeHost()
	d := newTestDriver(h)
	rock := world.Point{X: 4, Y: 4}
	h.state.Update(func(p *game.Player) {
		p.Mining = true
		p.CurrentRock = &rock
	})

	d.RockDepleted(world.Point{X: 1, Y: 1})
	if !h.state.Snapshot().Mining {
		t.Fatalf("another rock must not stop mining")
	}
	d.RockDepleted(rock)
	if h.state.Snapshot().Mining {
		t.Fatalf("expected mining stopped")
	}
	if len(h.sentNamed(protocol.CmdStopMineAnim)) != 1 {
		t.Fatalf("expected stop animation")
	}

	d.Hooked()
	if h.state.Snapshot().Hooked {
		t.Fatalf("a bite with no run must be ignored")
	}

	d.mu.Lock()
	_, gen := d.beginLocked(botting)
	d.rules.Mode = rules.ModeBattle
	d.mu.Unlock()
	d.Hooked()
	if h.state.Snapshot().Hooked {
		t.Fatalf("a bite during a battle run must be ignored")
	}

	d.mu.Lock()
	d.rules.Mode = rules.ModeFish
	d.mu.Unlock()
	d.Hooked()
	if !h.state.Snapshot().Hooked {
		t.Fatalf("expected hooked while fishing")
	}
	d.end(gen)
}

func TestAbortFromEarlierRunLeavesCurrentRunAlone(t *testing.T) {
	h := newFakeHost()
	d := newTestDriver(h)

	d.mu.Lock()
	oldCtx, oldGen := d.beginLocked(walking)
	d.mu.Unlock()
	d.end(oldGen)

	d.mu.Lock()
	newCtx, _ := d.beginLocked(walking)
	d.mu.Unlock()

	d.abort(oldCtx, AbortNoPath)
	if !d.Walking() {
		t.Fatalf("stale abort stopped the current run")
	}
	if newCtx.Err() != nil {
		t.Fatalf("current run context cancelled by stale abort")
	}
	for _, ev := range h.events {
		if ev == game.EventBotAborted {
			t.Fatalf("stale abort recorded an event: %v", h.events)
		}
	}

	d.abort(newCtx, AbortNoPath)
	if d.Walking() {
		t.Fatalf("abort did not end the current run")
	}
	if newCtx.Err() == nil {
		t.Fatalf("expected the current run context to be cancelled")
	}
}

func TestPickDirectionRepeatsLastFourInFive(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	options := []world.Direction{world.DirUp, world.DirDown, world.DirLeft, world.DirRight}

	const draws = 20000
	same := 0
	for i := 0; i < draws; i++ {
		if pickDirection(options, world.DirLeft, rng.Intn) == world.DirLeft {
			same++
		}
	}
	// 4/5 kept plus 1/4 of the uniform fallback.
	if got := float64(same) / draws; got < 0.82 || got > 0.88 {
		t.Fatalf("last direction kept %.3f of the time, want about 0.85", got)
	}

	if got := pickDirection([]world.Direction{world.DirUp}, world.DirLeft, rng.Intn); got != world.DirUp {
		t.Fatalf("unwalkable last direction must not be kept, got %v", got)
	}
}
