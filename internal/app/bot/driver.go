package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"planetbot/internal/adapter/protocol"
	"planetbot/internal/app/ports"
	"planetbot/internal/app/schedule"
	"planetbot/internal/domain/game"
	"planetbot/internal/domain/rules"
	"planetbot/internal/domain/world"
)

var (
	ErrAlreadyRunning = errors.New("bot loop already running")
	ErrWalkInProgress = errors.New("walk already in progress")
)

// Host is the session the driver acts through.
type Host interface {
	Connected() bool
	State() *game.State
	// Send writes cmd. It fails once ctx is cancelled or the session is gone.
	Send(ctx context.Context, cmd protocol.Command) error
	// SendWhenIdle waits for the server busy flag to clear before sending.
	SendWhenIdle(ctx context.Context, cmd protocol.Command) error
	// Disconnect tears the session down after an unrecoverable condition.
	Disconnect(reason string)
	// TakeExit loads the exit's destination map and announces the change.
	TakeExit(ctx context.Context, exit world.Exit) error
	Record(eventType string, payload map[string]any)
}

type AbortReason string

const (
	AbortNoWater       AbortReason = "not facing water"
	AbortNoRod         AbortReason = "no usable rod"
	AbortNoRock        AbortReason = "not near a rock"
	AbortNoPickaxe     AbortReason = "no usable pickaxe"
	AbortNoPath        AbortReason = "no walkable direction inside the selected tiles"
	AbortStopRule      AbortReason = "encounter with a stop rule"
	AbortUnclassified  AbortReason = "encounter in catch list but no policy"
	AbortNoUsableParty AbortReason = "no usable pokemon"
)

type activity int

const (
	idle activity = iota
	botting
	walking
)

const (
	taskFish = "fish"
	taskMine = "mine"

	idlePoll        = 100 * time.Millisecond
	minTimerSeconds = 0.1
)

// Driver runs either the bot loop or a walk, never both.
type Driver struct {
	Host     Host
	Catalog  game.Catalog
	Notifier ports.Notifier
	Metrics  ports.SessionMetrics
	Log      *zap.SugaredLogger
	Pacer    *Pacer

	mu     sync.Mutex
	act    activity
	gen    int
	cancel context.CancelFunc
	ctx    context.Context
	rules  rules.BotRules
	tasks  *schedule.Group
}

func NewDriver(host Host, cat game.Catalog, notifier ports.Notifier, metrics ports.SessionMetrics, log *zap.SugaredLogger, pacer *Pacer) *Driver {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if pacer == nil {
		pacer = NewPacer(nil)
	}
	d := &Driver{
		Host:     host,
		Catalog:  cat,
		Notifier: notifier,
		Metrics:  metrics,
		Log:      log,
		Pacer:    pacer,
		rules:    rules.Default(),
		tasks:    schedule.NewGroup(),
	}
	if pacer.OnBreak == nil {
		pacer.OnBreak = func(dur time.Duration) {
			d.info(fmt.Sprintf("Taking a random break for %s...", dur.Round(time.Second)))
		}
	}
	return d
}

// Start launches the bot loop with r. The caller validates the tile bound.
func (d *Driver) Start(r rules.BotRules) error {
	d.mu.Lock()
	switch d.act {
	case botting:
		d.mu.Unlock()
		return ErrAlreadyRunning
	case walking:
		d.mu.Unlock()
		return ErrWalkInProgress
	}
	ctx, gen := d.beginLocked(botting)
	d.rules = r.Clone()
	rl := d.rules
	d.mu.Unlock()

	d.notifyRunning(true)
	d.Host.Record(game.EventBotStarted, map[string]any{"mode": rl.Mode.String()})
	go d.run(ctx, gen, rl)
	return nil
}

// Walk follows path one cell at a time. Cells must be adjacent; the walk stops
// at the first blocked step or map exit.
func (d *Driver) Walk(path []world.Point) error {
	d.mu.Lock()
	switch d.act {
	case botting:
		d.mu.Unlock()
		return ErrAlreadyRunning
	case walking:
		d.mu.Unlock()
		return ErrWalkInProgress
	}
	ctx, gen := d.beginLocked(walking)
	rl := d.rules
	d.mu.Unlock()

	steps := append([]world.Point(nil), path...)
	go func() {
		defer d.end(gen)
		d.walk(ctx, rl, steps)
	}()
	return nil
}

type genKey struct{}

func (d *Driver) beginLocked(a activity) (context.Context, int) {
	d.gen++
	ctx, cancel := context.WithCancel(context.WithValue(context.Background(), genKey{}, d.gen))
	d.act = a
	d.ctx = ctx
	d.cancel = cancel
	return ctx, d.gen
}

// Stop cancels the loop or walk. It does not wait for the goroutine; every
// send after this point fails on the cancelled context.
func (d *Driver) Stop() {
	d.mu.Lock()
	gen := d.gen
	d.mu.Unlock()
	d.end(gen)
}

func (d *Driver) end(gen int) {
	d.mu.Lock()
	if gen != d.gen || d.act == idle {
		d.mu.Unlock()
		return
	}
	was := d.act
	d.act = idle
	if d.cancel != nil {
		d.cancel()
	}
	d.mu.Unlock()

	d.tasks.CancelAll()
	d.Host.State().Update(func(p *game.Player) {
		p.Hooked = false
		p.Fishing = game.FishIdle
		p.Mining = false
		p.CurrentRock = nil
		p.Moving = false
	})
	if was == botting {
		d.notifyRunning(false)
		d.Host.Record(game.EventBotStopped, nil)
	}
}

func (d *Driver) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.act == botting
}

func (d *Driver) Walking() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.act == walking
}

// Rules returns the rule set of the current or last run.
func (d *Driver) Rules() rules.BotRules {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rules.Clone()
}

func (d *Driver) currentCtx() context.Context {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ctx == nil {
		return context.Background()
	}
	return d.ctx
}

// Hooked is called when the server reports a bite. Bites outside a fishing
// run are ignored.
func (d *Driver) Hooked() {
	d.mu.Lock()
	fishing := d.act == botting && d.rules.Mode == rules.ModeFish
	d.mu.Unlock()
	if !fishing {
		return
	}
	d.tasks.Cancel(taskFish)
	d.Host.State().Update(func(p *game.Player) { p.Hooked = true })
}

// RockDepleted stops mining when the depleted rock is the one being mined.
func (d *Driver) RockDepleted(at world.Point) {
	stop := false
	var facing world.Direction
	d.Host.State().Update(func(p *game.Player) {
		if p.Mining && p.CurrentRock != nil && *p.CurrentRock == at {
			p.Mining = false
			p.CurrentRock = nil
			facing = p.Facing
			stop = true
		}
	})
	if !stop {
		return
	}
	d.tasks.Cancel(taskMine)
	if err := d.Host.Send(d.currentCtx(), protocol.StopMineAnimation(facing)); err != nil {
		d.Log.Debugw("stop mine animation not sent", "error", err)
	}
}

// abort ends the run that owns ctx. A loop left over from an earlier run
// does nothing.
func (d *Driver) abort(ctx context.Context, reason AbortReason) {
	gen, _ := ctx.Value(genKey{}).(int)
	d.mu.Lock()
	current := gen == d.gen && d.act != idle
	d.mu.Unlock()
	if !current {
		return
	}
	d.warn("STOP! " + string(reason))
	d.Host.Record(game.EventBotAborted, map[string]any{"reason": string(reason)})
	d.end(gen)
}

func (d *Driver) notifyRunning(running bool) {
	if d.Notifier != nil {
		d.Notifier.Notify(ports.Notification{Type: ports.NotifyRunning, Payload: running})
	}
}

func (d *Driver) notifyPosition(p game.Player) {
	if d.Notifier == nil {
		return
	}
	d.Notifier.Notify(ports.Notification{Type: ports.NotifyPosition, Payload: PositionPayload(p, false)})
}

// Position is the payload of position notifications.
type Position struct {
	Map    string `json:"map"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Facing string `json:"facing"`
	// KeepSelection asks the UI to keep the tile bound across a reconnect.
	KeepSelection bool `json:"keep_selection"`
}

func PositionPayload(p game.Player, keep bool) Position {
	return Position{Map: p.Map, X: p.Pos.X, Y: p.Pos.Y, Facing: p.Facing.String(), KeepSelection: keep}
}

// LogLine is the payload of log notifications.
type LogLine struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

func (d *Driver) emitLog(level, text string) {
	if d.Notifier != nil {
		d.Notifier.Notify(ports.Notification{Type: ports.NotifyLog, Payload: LogLine{Level: level, Text: text}})
	}
}

func (d *Driver) info(text string) {
	d.Log.Info(text)
	d.emitLog("info", text)
}

func (d *Driver) warn(text string) {
	d.Log.Warn(text)
	d.emitLog("warn", text)
}
