package httpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"planetbot/internal/adapter/repo/memory"
	"planetbot/internal/app/auth"
	"planetbot/internal/app/history"
	"planetbot/internal/app/ports"
	"planetbot/internal/app/session"
	"planetbot/internal/app/status"
	"planetbot/internal/domain/game"
	"planetbot/internal/domain/rules"
	"planetbot/internal/domain/world"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

type fakeSession struct {
	err   error
	snap  status.Snapshot
	calls []string

	tiles []world.Point
	rules rules.BotRules
	path  []world.Point
	dest  world.Point
}

func (f *fakeSession) Login(_ context.Context, username, password string) error {
	f.calls = append(f.calls, "login:"+username+":"+password)
	return f.err
}

func (f *fakeSession) Logout() error {
	f.calls = append(f.calls, "logout")
	return f.err
}

func (f *fakeSession) StartBot(tiles []world.Point, r rules.BotRules) error {
	f.calls = append(f.calls, "start")
	f.tiles, f.rules = tiles, r
	return f.err
}

func (f *fakeSession) StopBot() { f.calls = append(f.calls, "stop") }

func (f *fakeSession) Walk(path []world.Point) error {
	f.path = path
	return f.err
}

func (f *fakeSession) WalkTo(dest world.Point) error {
	f.dest = dest
	return f.err
}

func (f *fakeSession) GiveItem(item string, slot int) error {
	f.calls = append(f.calls, fmt.Sprintf("give:%s:%d", item, slot))
	return f.err
}

func (f *fakeSession) RemoveItem(slot int) error {
	f.calls = append(f.calls, fmt.Sprintf("remove:%d", slot))
	return f.err
}

func (f *fakeSession) Reorder(from, to int) error {
	f.calls = append(f.calls, fmt.Sprintf("reorder:%d:%d", from, to))
	return f.err
}

func (f *fakeSession) SetLocation(_ context.Context, mapName string, at world.Point) error {
	f.calls = append(f.calls, fmt.Sprintf("location:%s:%s", mapName, at))
	return f.err
}

func (f *fakeSession) SendChat(target, text string) error {
	f.calls = append(f.calls, "chat:"+target+":"+text)
	return f.err
}

func (f *fakeSession) Snapshot() status.Snapshot { return f.snap }

func newHandler(s *fakeSession) Handler {
	return Handler{
		Session:  s,
		StatusUC: status.UseCase{Session: s, Now: func() time.Time { return time.Unix(1700000100, 0) }},
	}
}

func request(body string) *app.RequestContext {
	ctx := &app.RequestContext{}
	if body != "" {
		ctx.Request.SetBody([]byte(body))
	}
	return ctx
}

func errorCode(t *testing.T, ctx *app.RequestContext) string {
	t.Helper()
	var body map[string]map[string]string
	if err := json.Unmarshal(ctx.Response.Body(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	return body["error"]["code"]
}

func TestWriteError_MapsSessionErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{session.ErrNotConnected, consts.StatusConflict, "not_connected"},
		{session.ErrAlreadyConnected, consts.StatusConflict, "already_connected"},
		{session.ErrTooFewTiles, consts.StatusBadRequest, "too_few_tiles"},
		{session.ErrMoving, consts.StatusConflict, "moving"},
		{session.ErrNoPath, consts.StatusUnprocessableEntity, "no_path"},
		{session.ErrUnknownLocation, consts.StatusNotFound, "unknown_location"},
		{fmt.Errorf("authenticate: %w", auth.ErrInvalidCredentials), consts.StatusUnauthorized, "invalid_credentials"},
		{history.ErrInvalidRequest, consts.StatusBadRequest, "bad_request"},
		{ports.ErrConflict, consts.StatusConflict, "conflict"},
		{fmt.Errorf("boom"), consts.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		ctx := &app.RequestContext{}
		writeError(ctx, tc.err)
		if got := ctx.Response.StatusCode(); got != tc.status {
			t.Fatalf("%v: status mismatch: got=%d want=%d", tc.err, got, tc.status)
		}
		if got := errorCode(t, ctx); got != tc.code {
			t.Fatalf("%v: error code mismatch: got=%q want=%q", tc.err, got, tc.code)
		}
	}
}

func TestLogin_PassesCredentialsAndReturnsStatus(t *testing.T) {
	s := &fakeSession{snap: status.Snapshot{Phase: "awaiting_policy", Account: "ash"}}
	h := newHandler(s)
	ctx := request(`{"username":" ash ","password":"pw"}`)

	h.login(context.Background(), ctx)

	if got, want := ctx.Response.StatusCode(), consts.StatusAccepted; got != want {
		t.Fatalf("status mismatch: got=%d want=%d body=%s", got, want, ctx.Response.Body())
	}
	if len(s.calls) != 1 || s.calls[0] != "login:ash:pw" {
		t.Fatalf("unexpected calls: %v", s.calls)
	}
	var resp status.Response
	if err := json.Unmarshal(ctx.Response.Body(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Phase != "awaiting_policy" || resp.Account != "ash" {
		t.Fatalf("unexpected status: %+v", resp)
	}
}

func TestLogin_InvalidJSON(t *testing.T) {
	h := newHandler(&fakeSession{})
	ctx := request(`{"username":`)

	h.login(context.Background(), ctx)

	if got, want := ctx.Response.StatusCode(), consts.StatusBadRequest; got != want {
		t.Fatalf("status mismatch: got=%d want=%d", got, want)
	}
	if got := errorCode(t, ctx); got != "invalid_json" {
		t.Fatalf("error code mismatch: got=%q", got)
	}
}

func TestStartBot_UsesDefaultRulesWhenOmitted(t *testing.T) {
	s := &fakeSession{}
	h := newHandler(s)
	h.Rules.Mode = "fish"
	ctx := request(`{"tiles":[{"x":1,"y":2}]}`)

	h.startBot(context.Background(), ctx)

	if got, want := ctx.Response.StatusCode(), consts.StatusOK; got != want {
		t.Fatalf("status mismatch: got=%d want=%d body=%s", got, want, ctx.Response.Body())
	}
	if s.rules.Mode != rules.ModeFish {
		t.Fatalf("expected fish mode from handler defaults, got %v", s.rules.Mode)
	}
	if len(s.tiles) != 1 || s.tiles[0] != (world.Point{X: 1, Y: 2}) {
		t.Fatalf("unexpected tiles: %v", s.tiles)
	}
}

func TestStartBot_RequestRulesOverrideDefaults(t *testing.T) {
	s := &fakeSession{}
	h := newHandler(s)
	h.Rules.Mode = "fish"
	ctx := request(`{"tiles":[],"rules":{"mode":"mine","speed":5}}`)

	h.startBot(context.Background(), ctx)

	if s.rules.Mode != rules.ModeMine || s.rules.Speed != 5 {
		t.Fatalf("unexpected rules: %+v", s.rules)
	}
}

func TestStartBot_RejectsInvalidRules(t *testing.T) {
	s := &fakeSession{}
	h := newHandler(s)
	ctx := request(`{"rules":{"mode":"dance"}}`)

	h.startBot(context.Background(), ctx)

	if got, want := ctx.Response.StatusCode(), consts.StatusBadRequest; got != want {
		t.Fatalf("status mismatch: got=%d want=%d", got, want)
	}
	if got := errorCode(t, ctx); got != "invalid_rules" {
		t.Fatalf("error code mismatch: got=%q", got)
	}
	if len(s.calls) != 0 {
		t.Fatalf("session should not be called: %v", s.calls)
	}
}

func TestStartBot_SessionErrorIsMapped(t *testing.T) {
	s := &fakeSession{err: session.ErrTooFewTiles}
	h := newHandler(s)
	ctx := request(`{"tiles":[{"x":1,"y":1}]}`)

	h.startBot(context.Background(), ctx)

	if got := errorCode(t, ctx); got != "too_few_tiles" {
		t.Fatalf("error code mismatch: got=%q", got)
	}
}

func TestWalk_RejectsEmptyPath(t *testing.T) {
	h := newHandler(&fakeSession{})
	ctx := request(`{"path":[]}`)

	h.walk(context.Background(), ctx)

	if got, want := ctx.Response.StatusCode(), consts.StatusBadRequest; got != want {
		t.Fatalf("status mismatch: got=%d want=%d", got, want)
	}
}

func TestWalkTo_ForwardsDestination(t *testing.T) {
	s := &fakeSession{}
	h := newHandler(s)
	ctx := request(`{"x":4,"y":9}`)

	h.walkTo(context.Background(), ctx)

	if got, want := ctx.Response.StatusCode(), consts.StatusOK; got != want {
		t.Fatalf("status mismatch: got=%d want=%d", got, want)
	}
	if s.dest != (world.Point{X: 4, Y: 9}) {
		t.Fatalf("unexpected destination: %v", s.dest)
	}
}

func TestTeamRoutes(t *testing.T) {
	s := &fakeSession{}
	h := newHandler(s)

	h.giveItem(context.Background(), request(`{"item":"Leftovers","slot":2}`))
	h.removeItem(context.Background(), request(`{"slot":1}`))
	h.reorder(context.Background(), request(`{"from":0,"to":3}`))

	want := []string{"give:Leftovers:2", "remove:1", "reorder:0:3"}
	if fmt.Sprint(s.calls) != fmt.Sprint(want) {
		t.Fatalf("calls mismatch: got=%v want=%v", s.calls, want)
	}
}

func TestLocation_RequiresMap(t *testing.T) {
	s := &fakeSession{}
	h := newHandler(s)
	ctx := request(`{"x":1,"y":1}`)

	h.location(context.Background(), ctx)

	if got, want := ctx.Response.StatusCode(), consts.StatusBadRequest; got != want {
		t.Fatalf("status mismatch: got=%d want=%d", got, want)
	}

	ctx = request(`{"map":"Route 1","x":3,"y":4}`)
	h.location(context.Background(), ctx)
	if len(s.calls) != 1 || s.calls[0] != "location:Route 1:3,4" {
		t.Fatalf("unexpected calls: %v", s.calls)
	}
}

func TestChat_NotConnected(t *testing.T) {
	s := &fakeSession{err: session.ErrNotConnected}
	h := newHandler(s)
	ctx := request(`{"target":"<cl>","text":"hi"}`)

	h.chat(context.Background(), ctx)

	if got, want := ctx.Response.StatusCode(), consts.StatusConflict; got != want {
		t.Fatalf("status mismatch: got=%d want=%d", got, want)
	}
	if s.calls[0] != "chat:<cl>:hi" {
		t.Fatalf("unexpected calls: %v", s.calls)
	}
}

func TestRegister_CreatesAccount(t *testing.T) {
	store := memory.NewStore()
	h := newHandler(&fakeSession{})
	h.RegisterUC = auth.RegisterUseCase{
		Accounts:  memory.NewAccountRepo(store),
		TxManager: memory.NewTxManager(store),
		Now:       func() time.Time { return time.Unix(1700000000, 0) },
	}
	body := `{"username":"ash","password":"pw","user_id":"77","hash_password":"h4sh"}`

	ctx := request(body)
	h.register(context.Background(), ctx)
	if got, want := ctx.Response.StatusCode(), consts.StatusCreated; got != want {
		t.Fatalf("status mismatch: got=%d want=%d body=%s", got, want, ctx.Response.Body())
	}

	ctx = request(body)
	h.register(context.Background(), ctx)
	if got, want := ctx.Response.StatusCode(), consts.StatusConflict; got != want {
		t.Fatalf("duplicate status mismatch: got=%d want=%d", got, want)
	}
}

func TestHistory_DefaultsToSessionAccount(t *testing.T) {
	store := memory.NewStore()
	events := memory.NewEventRepo(store)
	at := time.Unix(1700000000, 0).UTC()
	if err := events.Append(context.Background(), "ash", []game.DomainEvent{
		{Type: game.EventConnected, OccurredAt: at},
		{Type: game.EventConnected, OccurredAt: at.Add(time.Minute)},
	}); err != nil {
		t.Fatalf("append: %v", err)
	}
	h := newHandler(&fakeSession{snap: status.Snapshot{Account: "ash"}})
	h.HistoryUC = history.UseCase{Events: events, Tallies: memory.NewTallyRepo(store)}

	ctx := &app.RequestContext{}
	ctx.Request.SetRequestURI("/api/history?limit=1")
	h.history(context.Background(), ctx)

	if got, want := ctx.Response.StatusCode(), consts.StatusOK; got != want {
		t.Fatalf("status mismatch: got=%d want=%d body=%s", got, want, ctx.Response.Body())
	}
	var resp history.Response
	if err := json.Unmarshal(ctx.Response.Body(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(resp.Events) != 1 {
		t.Fatalf("expected limit to apply, got %d events", len(resp.Events))
	}
}

func TestHistory_WithoutAccount(t *testing.T) {
	store := memory.NewStore()
	h := newHandler(&fakeSession{})
	h.HistoryUC = history.UseCase{Events: memory.NewEventRepo(store), Tallies: memory.NewTallyRepo(store)}
	ctx := &app.RequestContext{}
	ctx.Request.SetRequestURI("/api/history")

	h.history(context.Background(), ctx)

	if got, want := ctx.Response.StatusCode(), consts.StatusBadRequest; got != want {
		t.Fatalf("status mismatch: got=%d want=%d", got, want)
	}
}

type fakeKPI struct{}

func (fakeKPI) SnapshotAny() any { return map[string]int{"frames": 3} }

func TestKPI(t *testing.T) {
	ctx := &app.RequestContext{}
	Handler{}.kpi(context.Background(), ctx)
	if got, want := ctx.Response.StatusCode(), consts.StatusNotFound; got != want {
		t.Fatalf("status mismatch: got=%d want=%d", got, want)
	}

	ctx = &app.RequestContext{}
	Handler{KPI: fakeKPI{}}.kpi(context.Background(), ctx)
	if got, want := ctx.Response.StatusCode(), consts.StatusOK; got != want {
		t.Fatalf("status mismatch: got=%d want=%d", got, want)
	}
}
