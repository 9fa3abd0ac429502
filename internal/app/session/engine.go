package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"planetbot/internal/adapter/protocol"
	"planetbot/internal/app/bot"
	"planetbot/internal/app/ports"
	"planetbot/internal/app/schedule"
	"planetbot/internal/domain/game"
	"planetbot/internal/domain/rules"
	"planetbot/internal/domain/world"
)

type Phase int

const (
	PhaseDisconnected Phase = iota
	PhaseAwaitingPolicy
	PhaseAwaitingAuth
	PhaseAwaitingJoin
	PhaseAwaitingMapData
	PhaseConnected
)

func (p Phase) String() string {
	switch p {
	case PhaseAwaitingPolicy:
		return "awaiting_policy"
	case PhaseAwaitingAuth:
		return "awaiting_auth"
	case PhaseAwaitingJoin:
		return "awaiting_join"
	case PhaseAwaitingMapData:
		return "awaiting_map_data"
	case PhaseConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Cause says why a session ended and decides what happens next.
type Cause string

const (
	CauseUser    Cause = "user"
	CauseTimeout Cause = "timeout"
	CauseBreak   Cause = "break"
	CauseFatal   Cause = "fatal"
)

// Scheduled task names.
const (
	taskVersion     = "version"
	taskGameLogin   = "game_login"
	taskMapRequest  = "map_request"
	taskMapEnter    = "map_enter"
	taskHeartbeat   = "heartbeat"
	taskPosition    = "position"
	taskPositionMap = "position_map"
	taskAutosave    = "autosave"
	taskResumeWalk  = "resume_walk"
	taskResumeRules = "resume_rules"
	taskRelogin     = "relogin"
	taskDecline     = "decline"
	taskFollow      = "follow_sprite"

	inboxSize    = 1024
	storeTimeout = 5 * time.Second
)

type Deps struct {
	Dialer   ports.Dialer
	Auth     ports.Authenticator
	Maps     ports.MapProvider
	Catalog  game.Catalog
	Events   ports.EventRepository
	Tallies  ports.TallyRepository
	Notifier ports.Notifier
	Metrics  ports.SessionMetrics
	Log      *zap.SugaredLogger
	// Pacer drives the bot's delays and dice. Optional.
	Pacer *bot.Pacer
	Now   func() time.Time
}

type inbound struct {
	gen   int
	frame string
	lost  bool
	err   error
}

// Engine owns one game session at a time: the login chain, inbound dispatch,
// the periodic timers and the bot driver.
type Engine struct {
	cfg    Config
	deps   Deps
	state  *game.State
	bot    *bot.Driver
	pacer  *bot.Pacer
	timers *schedule.Group
	baseLg *zap.SugaredLogger

	inbox  chan inbound
	closed chan struct{}
	once   sync.Once

	mu           sync.Mutex
	log          *zap.SugaredLogger
	conn         ports.Conn
	gen          int
	phase        Phase
	sessionID    string
	username     string
	password     string
	account      ports.Account
	signer       *protocol.Signer
	policyDone   bool
	startedAt    time.Time
	breakAfter   time.Duration
	timedOut     bool
	onBreak      bool
	resumeWalk   bool
	resumeAt     world.Point
	resumeBot    bool
	resumeRules  rules.BotRules
	tiles        []world.Point
	lastReported world.Point
	tally        game.Tallies
	pmCounts     map[string]int
}

func New(cfg Config, deps Deps) *Engine {
	if deps.Log == nil {
		deps.Log = zap.NewNop().Sugar()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Pacer == nil {
		deps.Pacer = bot.NewPacer(rand.New(rand.NewSource(deps.Now().UnixNano())))
	}
	e := &Engine{
		cfg:      cfg,
		deps:     deps,
		state:    game.NewState(),
		pacer:    deps.Pacer,
		timers:   schedule.NewGroup(),
		baseLg:   deps.Log,
		log:      deps.Log,
		inbox:    make(chan inbound, inboxSize),
		closed:   make(chan struct{}),
		pmCounts: map[string]int{},
	}
	e.bot = bot.NewDriver(host{e}, deps.Catalog, deps.Notifier, deps.Metrics, deps.Log.Named("bot"), deps.Pacer)
	return e
}

// Run dispatches inbound frames in arrival order until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	defer e.once.Do(func() { close(e.closed) })
	for {
		select {
		case <-ctx.Done():
			e.disconnect(CauseUser, "shutdown")
			return nil
		case in := <-e.inbox:
			e.handle(in)
		}
	}
}

func (e *Engine) enqueue(in inbound) {
	select {
	case e.inbox <- in:
	case <-e.closed:
	}
}

func (e *Engine) handle(in inbound) {
	e.mu.Lock()
	current, phase := e.gen, e.phase
	e.mu.Unlock()
	if in.gen != current {
		return
	}
	if in.lost {
		e.onLost(in.err)
		return
	}
	m := protocol.Parse(in.frame)
	if e.deps.Metrics != nil {
		e.deps.Metrics.RecordFrame(m.Kind.String())
	}
	if m.Kind == protocol.KindUnrecognized {
		e.logger().Warnw("dropping unrecognized frame", "frame", clip(in.frame))
		return
	}
	if phase == PhaseConnected {
		e.dispatch(m)
		return
	}
	e.handleLogin(m)
}

func clip(s string) string {
	const limit = 120
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}

// Login authenticates and opens a fresh connection.
func (e *Engine) Login(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return ErrMissingCredentials
	}
	e.mu.Lock()
	if e.phase != PhaseDisconnected {
		e.mu.Unlock()
		return ErrAlreadyConnected
	}
	e.mu.Unlock()

	acct, err := e.deps.Auth.Authenticate(ctx, username, password)
	if err != nil {
		return fmt.Errorf("authenticate %s: %w", username, err)
	}

	now := e.deps.Now()
	e.mu.Lock()
	if e.phase != PhaseDisconnected {
		e.mu.Unlock()
		return ErrAlreadyConnected
	}
	e.username = username
	e.password = password
	e.account = acct
	e.sessionID = uuid.NewString()
	e.startedAt = now
	e.breakAfter = e.between(e.cfg.BreakAfterMin, e.cfg.BreakAfterMax)
	e.signer = protocol.NewSigner(e.cfg.Secret, now, e.deps.Now, nil)
	e.policyDone = false
	e.phase = PhaseAwaitingPolicy
	e.log = e.baseLg.With("session_id", e.sessionID, "user", acct.Username)
	loadTally := e.tally.Account != acct.Username
	e.mu.Unlock()

	e.state.Reset()
	e.state.Update(func(p *game.Player) { p.Username = acct.Username })
	if loadTally {
		e.loadTallies(ctx, acct.Username)
	}

	e.info("Connecting to the game server...")
	if err := e.dial(ctx); err != nil {
		e.mu.Lock()
		e.phase = PhaseDisconnected
		e.mu.Unlock()
		return fmt.Errorf("dial %s: %w", e.cfg.Addr, err)
	}
	return e.send(protocol.PolicyRequest())
}

func (e *Engine) dial(ctx context.Context) error {
	e.mu.Lock()
	e.gen++
	gen := e.gen
	e.mu.Unlock()

	h := ports.FrameHandler{
		OnFrame: func(frame string) { e.enqueue(inbound{gen: gen, frame: frame}) },
		OnLost:  func(err error) { e.enqueue(inbound{gen: gen, lost: true, err: err}) },
	}
	conn, err := e.deps.Dialer.Dial(ctx, e.cfg.Addr, h)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gen != gen || e.phase == PhaseDisconnected {
		_ = conn.Close()
		return ErrNotConnected
	}
	e.conn = conn
	return nil
}

// Logout ends the session on request. A pending reconnect is cancelled too.
func (e *Engine) Logout() error {
	e.mu.Lock()
	active := e.phase != PhaseDisconnected
	e.mu.Unlock()
	if !active {
		if e.timers.Active(taskRelogin) {
			e.timers.CancelAll()
			e.clearResume()
			e.resetTallies()
			return nil
		}
		return ErrNotConnected
	}
	e.disconnect(CauseUser, "logout")
	return nil
}

func (e *Engine) onLost(err error) {
	e.warn("Connection timed out...")
	pos := e.state.Snapshot().Pos
	e.mu.Lock()
	if !e.timedOut && e.phase == PhaseConnected {
		e.resumeWalk = true
		e.resumeAt = pos
		e.resumeBot = e.bot.Running()
		e.resumeRules = e.bot.Rules()
	}
	e.timedOut = true
	e.mu.Unlock()
	reason := "connection lost"
	if err != nil {
		reason = err.Error()
	}
	e.disconnect(CauseTimeout, reason)
}

// initiateBreak logs out for a while when the bot has played long enough.
func (e *Engine) initiateBreak() {
	if !e.bot.Running() {
		return
	}
	e.info("Logging out for a break...")
	pos := e.state.Snapshot().Pos
	e.mu.Lock()
	e.onBreak = true
	e.resumeWalk = true
	e.resumeAt = pos
	e.resumeBot = true
	e.resumeRules = e.bot.Rules()
	e.mu.Unlock()
	e.disconnect(CauseBreak, "scheduled break")
}

// disconnect is the single teardown path. Timers are cancelled before any
// replacement connection is opened.
func (e *Engine) disconnect(cause Cause, reason string) {
	e.mu.Lock()
	if e.phase == PhaseDisconnected && e.conn == nil {
		e.mu.Unlock()
		return
	}
	conn := e.conn
	e.conn = nil
	e.gen++
	e.phase = PhaseDisconnected
	keep := e.timedOut || e.onBreak
	e.mu.Unlock()

	e.timers.CancelAll()
	e.bot.Stop()
	if conn != nil {
		_ = conn.Close()
	}
	e.state.Reset()

	if e.deps.Metrics != nil {
		e.deps.Metrics.RecordDisconnect(string(cause))
	}
	e.record(game.EventDisconnected, map[string]any{"cause": string(cause), "reason": reason})
	e.notify(ports.NotifyConnection, false)
	e.notifyTeam()
	e.notifyInventory()
	e.notifyPosition(keep)
	e.notify(ports.NotifyPlayers, []game.NearbyPlayer{})
	if cause == CauseFatal {
		e.errorf("Disconnected: %s", reason)
	}
	e.info("You have been logged out.")

	switch cause {
	case CauseTimeout:
		e.info("Attempting to reconnect...")
		e.relogin()
	case CauseBreak:
		d := e.between(e.cfg.BreakMin, e.cfg.BreakMax)
		e.info(fmt.Sprintf("Resuming in %s.", d.Round(time.Second)))
		e.timers.Set(taskRelogin, schedule.After(d, e.relogin))
	default:
		e.clearResume()
		e.resetTallies()
	}
}

func (e *Engine) relogin() {
	e.mu.Lock()
	user, pass := e.username, e.password
	e.mu.Unlock()
	if err := e.Login(context.Background(), user, pass); err != nil && !errors.Is(err, ErrAlreadyConnected) {
		e.errorf("Reconnect failed: %v", err)
		e.clearResume()
	}
}

func (e *Engine) clearResume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.timedOut = false
	e.onBreak = false
	e.resumeWalk = false
	e.resumeBot = false
}

// restartBot walks back to the resume point and re-arms the bot after the
// settle delays. Both steps are cancellable tasks.
func (e *Engine) restartBot() {
	e.mu.Lock()
	walk, at := e.resumeWalk, e.resumeAt
	again, r := e.resumeBot, e.resumeRules
	tiles := append([]world.Point(nil), e.tiles...)
	e.timedOut = false
	e.onBreak = false
	e.resumeWalk = false
	e.resumeBot = false
	e.mu.Unlock()

	e.info("Resuming bot...")
	if walk {
		p := e.state.Snapshot()
		path := e.resumePath(p, at)
		e.timers.Set(taskResumeWalk, schedule.After(e.cfg.ResumeWalkDelay, func() {
			if len(path) == 0 {
				return
			}
			if err := e.bot.Walk(path); err != nil {
				e.warn("Could not walk back: " + err.Error())
			}
		}))
	}
	if again {
		e.timers.Set(taskResumeRules, schedule.After(e.cfg.ResumeRulesDelay, func() {
			if err := e.StartBot(tiles, r); err != nil {
				e.warn("Could not resume botting: " + err.Error())
			}
		}))
	}
}

func (e *Engine) send(cmd protocol.Command) error {
	e.mu.Lock()
	conn, signer := e.conn, e.signer
	e.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	var tok protocol.Token
	if cmd.Signed && signer != nil {
		tok = signer.Sign()
	}
	if err := conn.Send(protocol.Encode(cmd, tok)); err != nil {
		return err
	}
	if e.deps.Metrics != nil {
		e.deps.Metrics.RecordCommand(cmd.Name)
	}
	return nil
}

// fire sends cmd and only logs a failure.
func (e *Engine) fire(cmd protocol.Command) {
	if err := e.send(cmd); err != nil {
		e.logger().Debugw("send failed", "cmd", cmd.Name, "error", err)
	}
}

func (e *Engine) sendWhenIdle(ctx context.Context, cmd protocol.Command) error {
	for {
		busy := false
		e.state.View(func(p *game.Player) { busy = p.Busy })
		if !busy {
			break
		}
		if err := sleepCtx(ctx, e.cfg.BusyPoll); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.send(cmd)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (e *Engine) between(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(e.pacer.Intn(int(hi-lo)+1))
}

func (e *Engine) logger() *zap.SugaredLogger {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.log
}

func (e *Engine) isConnected() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase == PhaseConnected
}

func (e *Engine) setPhase(p Phase) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.phase = p
}

func (e *Engine) accountName() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.account.Username
}

// host adapts the engine to the bot driver.
type host struct{ e *Engine }

func (h host) Connected() bool          { return h.e.isConnected() }
func (h host) State() *game.State       { return h.e.state }
func (h host) Disconnect(reason string) { h.e.disconnect(CauseFatal, reason) }

func (h host) Send(ctx context.Context, cmd protocol.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return h.e.send(cmd)
}

func (h host) SendWhenIdle(ctx context.Context, cmd protocol.Command) error {
	return h.e.sendWhenIdle(ctx, cmd)
}

func (h host) TakeExit(ctx context.Context, exit world.Exit) error {
	return h.e.enterMap(ctx, exit.Map, exit.Dest)
}

func (h host) Record(eventType string, payload map[string]any) {
	h.e.record(eventType, payload)
}
