package session

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"planetbot/internal/adapter/protocol"
	"planetbot/internal/app/bot"
	"planetbot/internal/app/ports"
	"planetbot/internal/domain/game"
	"planetbot/internal/domain/world"
)

// InventoryView is the payload of inventory notifications.
type InventoryView struct {
	Money   int              `json:"money"`
	Credits int              `json:"credits"`
	Items   []game.ItemCount `json:"items"`
}

func (e *Engine) notify(typ string, payload any) {
	if e.deps.Notifier == nil {
		return
	}
	e.deps.Notifier.Notify(ports.Notification{Type: typ, Payload: payload})
}

func (e *Engine) notifyTeam() {
	e.notify(ports.NotifyTeam, e.state.Snapshot().Team)
}

func (e *Engine) notifyInventory() {
	p := e.state.Snapshot()
	e.notify(ports.NotifyInventory, InventoryView{Money: p.Money, Credits: p.Credits, Items: p.Inventory.Items()})
}

func (e *Engine) notifyPosition(keep bool) {
	e.notify(ports.NotifyPosition, bot.PositionPayload(e.state.Snapshot(), keep))
}

func (e *Engine) notifyPlayers() {
	p := e.state.Snapshot()
	out := make([]game.NearbyPlayer, 0, len(p.Players))
	for _, np := range p.Players {
		out = append(out, np)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	e.notify(ports.NotifyPlayers, out)
}

func (e *Engine) notifyRocks() {
	rocks := e.state.Snapshot().RockList()
	sort.Slice(rocks, func(i, j int) bool {
		if rocks[i].At.Y != rocks[j].At.Y {
			return rocks[i].At.Y < rocks[j].At.Y
		}
		return rocks[i].At.X < rocks[j].At.X
	})
	e.notify(ports.NotifyRocks, rocks)
}

func (e *Engine) notifyTallies() {
	e.notify(ports.NotifyTallies, e.Tallies())
}

func (e *Engine) emitLog(level, text string) {
	e.notify(ports.NotifyLog, bot.LogLine{Level: level, Text: text})
}

func (e *Engine) info(text string) {
	e.logger().Info(text)
	e.emitLog("info", text)
}

func (e *Engine) warn(text string) {
	e.logger().Warn(text)
	e.emitLog("warn", text)
}

func (e *Engine) errorf(format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	e.logger().Error(text)
	e.emitLog("error", text)
}

// record persists a domain event for the current account.
func (e *Engine) record(eventType string, payload map[string]any) {
	if e.deps.Events == nil {
		return
	}
	e.mu.Lock()
	account, sid := e.account.Username, e.sessionID
	e.mu.Unlock()
	if account == "" {
		return
	}
	ev := game.DomainEvent{Type: eventType, SessionID: sid, OccurredAt: e.deps.Now().UTC(), Payload: payload}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := e.deps.Events.Append(ctx, account, []game.DomainEvent{ev}); err != nil {
		e.logger().Warnw("append event failed", "type", eventType, "error", err)
	}
}

// Tallies returns a copy of the current session counters.
func (e *Engine) Tallies() game.Tallies {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tally.Clone()
}

func (e *Engine) updateTallies(fn func(t *game.Tallies)) {
	e.mu.Lock()
	fn(&e.tally)
	e.tally.UpdatedAt = e.deps.Now().UTC()
	t := e.tally.Clone()
	e.mu.Unlock()
	e.saveTallies(t)
	e.notify(ports.NotifyTallies, t)
}

func (e *Engine) saveTallies(t game.Tallies) {
	if e.deps.Tallies == nil || t.Account == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := e.deps.Tallies.Save(ctx, t); err != nil {
		e.logger().Warnw("save tallies failed", "error", err)
	}
}

func (e *Engine) loadTallies(ctx context.Context, account string) {
	t := game.NewTallies(account)
	if e.deps.Tallies != nil {
		if got, err := e.deps.Tallies.Get(ctx, account); err == nil {
			t = got
		}
	}
	e.mu.Lock()
	e.tally = t
	e.mu.Unlock()
}

func (e *Engine) resetTallies() {
	e.mu.Lock()
	e.tally = game.NewTallies(e.account.Username)
	e.tally.UpdatedAt = e.deps.Now().UTC()
	t := e.tally.Clone()
	e.pmCounts = map[string]int{}
	e.mu.Unlock()
	e.saveTallies(t)
	e.notify(ports.NotifyTallies, t)
}

// presence builds the announce payload. The mount is sent as a title.
func presence(p game.Player) protocol.Presence {
	mount := "0"
	if p.MoveType != "" {
		mount = cases.Title(language.English).String(p.MoveType)
	}
	return protocol.Presence{
		At:       p.Pos,
		Facing:   p.Facing,
		MoveType: p.MoveType,
		RawMap:   p.RawMap,
		Fishing:  int(p.Fishing),
		Mount:    mount,
	}
}

// addBackPresence carries the raw mount instead of the title.
func addBackPresence(p game.Player) protocol.Presence {
	pr := presence(p)
	pr.Mount = p.Mount
	if pr.Mount == "" {
		pr.Mount = "0"
	}
	return pr
}

func (e *Engine) changeMount(mount string) {
	e.state.Update(func(p *game.Player) { p.SetMount(mount) })
	if mount == "" {
		e.info("Dismounting.")
	} else {
		e.info("Changing mount to " + mount + ".")
	}
	e.fire(protocol.Mount(mount))
	e.notify(ports.NotifyMount, mount)
}

// autoMount picks the mount for the current cell: surf in water, otherwise
// the bike when one is held and no battle is running.
func (e *Engine) autoMount() {
	p := e.state.Snapshot()
	switch {
	case p.InWater():
		if !p.Surfing() {
			e.changeMount(game.MountSurf)
		}
	case p.Inventory.Has(game.MountBike) && !p.Battle && !strings.EqualFold(p.Mount, game.MountBike):
		e.changeMount(game.MountBike)
	}
}

// reportPosition sends the signed coordinates when they moved since the last report.
func (e *Engine) reportPosition() {
	p := e.state.Snapshot()
	e.mu.Lock()
	changed := p.Pos != e.lastReported
	e.lastReported = p.Pos
	e.mu.Unlock()
	if !changed {
		return
	}
	e.fire(protocol.Position(p.Pos, e.cfg.PositionKey, p.Username, p.Map))
}

func (e *Engine) resumePath(p game.Player, to world.Point) []world.Point {
	path := findPath(p, to)
	if len(path) > 0 {
		path = path[1:]
	}
	return path
}
