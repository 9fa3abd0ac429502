package session

import (
	"context"
	"fmt"
	"strings"

	"planetbot/internal/adapter/protocol"
	"planetbot/internal/app/schedule"
	"planetbot/internal/app/status"
	"planetbot/internal/domain/game"
	"planetbot/internal/domain/rules"
	"planetbot/internal/domain/world"
)

// Snapshot is a point-in-time view of the session for the read model.
func (e *Engine) Snapshot() status.Snapshot {
	e.mu.Lock()
	s := status.Snapshot{
		Phase:     e.phase.String(),
		Connected: e.phase == PhaseConnected,
		SessionID: e.sessionID,
		Account:   e.account.Username,
		Resuming:  e.timedOut || e.onBreak,
		StartedAt: e.startedAt,
		Tallies:   e.tally.Clone(),
	}
	e.mu.Unlock()
	s.Running = e.bot.Running()
	s.Walking = e.bot.Walking()
	s.Player = e.state.Snapshot()
	return s
}

// StartBot installs the tile bound and starts the loop with r.
func (e *Engine) StartBot(tiles []world.Point, r rules.BotRules) error {
	if !e.isConnected() {
		return ErrNotConnected
	}
	if err := r.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRules, err)
	}
	ok := true
	e.state.Update(func(p *game.Player) {
		if r.Mode != rules.ModeBattle && len(tiles) < game.MinSelectedTiles {
			p.SelectedTiles = nil
			return
		}
		ok = p.SetSelectedTiles(tiles)
	})
	if !ok {
		return ErrTooFewTiles
	}
	if err := e.bot.Start(r); err != nil {
		return err
	}
	e.mu.Lock()
	e.tiles = append([]world.Point(nil), tiles...)
	e.mu.Unlock()
	return nil
}

// StopBot stops the loop and any pending resume.
func (e *Engine) StopBot() {
	e.timers.Cancel(taskResumeWalk)
	e.timers.Cancel(taskResumeRules)
	e.mu.Lock()
	e.resumeBot = false
	e.mu.Unlock()
	e.bot.Stop()
}

// Walk follows path, one adjacent cell per step.
func (e *Engine) Walk(path []world.Point) error {
	if !e.isConnected() {
		return ErrNotConnected
	}
	return e.bot.Walk(path)
}

// WalkTo plans a path from the current cell to dest and walks it.
func (e *Engine) WalkTo(dest world.Point) error {
	if !e.isConnected() {
		return ErrNotConnected
	}
	path := findPath(e.state.Snapshot(), dest)
	if path == nil {
		return ErrNoPath
	}
	return e.bot.Walk(path[1:])
}

// checkIdle guards commands that must not race the bot or a walk.
func (e *Engine) checkIdle() error {
	if !e.isConnected() {
		return ErrNotConnected
	}
	if e.bot.Running() {
		return ErrBotRunning
	}
	moving := false
	e.state.View(func(p *game.Player) { moving = p.Moving })
	if moving || e.bot.Walking() {
		return ErrMoving
	}
	return nil
}

func (e *Engine) GiveItem(item string, slot int) error {
	if err := e.checkIdle(); err != nil {
		return err
	}
	p := e.state.Snapshot()
	if slot < 0 || slot >= len(p.Team) {
		return ErrBadSlot
	}
	idx := p.Inventory.Index(item)
	if idx < 0 {
		return ErrNoItem
	}
	if p.Team[slot].HoldsItem() {
		return ErrSlotHasItem
	}
	e.info(fmt.Sprintf("Giving %s to %s.", item, p.Team[slot].Name))
	return e.send(protocol.GiveItem(slot, idx))
}

func (e *Engine) RemoveItem(slot int) error {
	if err := e.checkIdle(); err != nil {
		return err
	}
	p := e.state.Snapshot()
	if slot < 0 || slot >= len(p.Team) {
		return ErrBadSlot
	}
	if !p.Team[slot].HoldsItem() {
		return ErrSlotEmpty
	}
	e.info(fmt.Sprintf("Taking %s from %s.", p.Team[slot].Item, p.Team[slot].Name))
	return e.send(protocol.TakeItem(slot))
}

// Reorder swaps team slots from and to, both zero based. The wire command
// carries the destination one based.
func (e *Engine) Reorder(from, to int) error {
	if !e.isConnected() {
		return ErrNotConnected
	}
	if e.bot.Running() {
		return ErrBotRunning
	}
	var (
		p      game.Player
		bad    bool
		battle bool
		alive  = true
	)
	e.state.Update(func(pl *game.Player) {
		if pl.Battle {
			battle = true
			return
		}
		if from < 0 || to < 0 || from >= len(pl.Team) || to >= len(pl.Team) {
			bad = true
			return
		}
		pl.Team[to], pl.Team[from] = pl.Team[from], pl.Team[to]
		alive = pl.EnsureActiveAlive()
		p = pl.Clone()
	})
	switch {
	case battle:
		return ErrInBattle
	case bad:
		return ErrBadSlot
	}
	if err := e.send(protocol.Reorder(from, to+1)); err != nil {
		return err
	}
	e.notifyTeam()
	if from == 0 || to == 0 {
		lead := p.Team[0].ID
		e.after(taskFollow, e.between(e.cfg.FollowSprite[0], e.cfg.FollowSprite[1]), func() {
			e.fire(protocol.FollowSprite(lead))
		})
	}
	if !alive {
		e.disconnect(CauseFatal, "no usable pokemon")
	}
	return nil
}

// SetLocation teleports the local view to a map and cell.
func (e *Engine) SetLocation(ctx context.Context, mapName string, at world.Point) error {
	if err := e.checkIdle(); err != nil {
		return err
	}
	if err := e.enterMap(ctx, mapName, at); err != nil {
		return err
	}
	e.info("Successfully loaded location!")
	return nil
}

// enterMap loads a map, swaps it in and replays the map change handshake.
func (e *Engine) enterMap(ctx context.Context, raw string, at world.Point) error {
	clean := world.CleanMapName(raw)
	data, err := e.deps.Maps.Map(ctx, clean)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUnknownLocation, clean)
	}
	e.state.Update(func(p *game.Player) { p.EnterMap(raw, data, at) })
	e.notifyPosition(false)
	e.info("Entering " + clean + ".")

	username := e.currentAccount().Username
	e.fire(protocol.MapInfo(username))
	if err := sleepCtx(ctx, e.cfg.MapChangeDelays[0]); err != nil {
		return err
	}
	e.autoMount()
	if err := sleepCtx(ctx, e.cfg.MapChangeDelays[1]); err != nil {
		return err
	}
	e.state.Update(func(p *game.Player) { p.Players = map[string]game.NearbyPlayer{} })
	e.notifyPlayers()
	p := e.state.Snapshot()
	e.fire(protocol.MapEnter(p.Pos, p.Map))
	if err := sleepCtx(ctx, e.cfg.MapChangeDelays[2]); err != nil {
		return err
	}
	e.fire(protocol.Announce(presence(e.state.Snapshot())))
	e.timers.Set(taskPositionMap, schedule.EveryFixed(e.cfg.Position, e.reportPosition))
	return nil
}

// SendChat routes text by target: empty is local chat or a slash command,
// "<cl>" is the clan channel and anything else is a private message.
func (e *Engine) SendChat(target, text string) error {
	if !e.isConnected() {
		return ErrNotConnected
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}
	switch {
	case target == "" && strings.HasPrefix(text, "/"):
		return e.send(protocol.ChatCommand(strings.TrimPrefix(text, "/")))
	case target == "":
		return e.send(protocol.Chat(text))
	case target == protocol.ChannelClan:
		return e.send(protocol.ClanChat(text))
	default:
		return e.send(protocol.PrivateMessage(target, text))
	}
}

// PrivateMessageCounts returns how many private messages each sender sent this session.
func (e *Engine) PrivateMessageCounts() map[string]int {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]int, len(e.pmCounts))
	for k, v := range e.pmCounts {
		out[k] = v
	}
	return out
}
