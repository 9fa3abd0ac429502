package session

import (
	"context"
	"time"

	"planetbot/internal/adapter/protocol"
	"planetbot/internal/app/pathfind"
	"planetbot/internal/app/ports"
	"planetbot/internal/app/schedule"
	"planetbot/internal/domain/game"
	"planetbot/internal/domain/world"
)

// handleLogin advances the login chain. Each step answers one server reply.
func (e *Engine) handleLogin(m protocol.Message) {
	switch {
	case m.Kind == protocol.KindPolicy:
		e.onPolicy()
	case m.Action == protocol.ActionApiOK:
		e.setPhase(PhaseAwaitingAuth)
		e.after(taskGameLogin, e.cfg.StepDelay, func() {
			acct := e.currentAccount()
			e.fire(protocol.Login(acct.Username, acct.HashPassword))
		})
	case m.Action == protocol.ActionLogin && m.Code == protocol.CodeOK:
		e.after(taskGameLogin, e.cfg.StepDelay, func() { e.fire(protocol.RoomList()) })
	case m.Action == protocol.ActionRoomList:
		e.after(taskGameLogin, e.cfg.StepDelay, func() { e.fire(protocol.AutoJoin()) })
	case m.Action == protocol.ActionJoinOK:
		e.setPhase(PhaseAwaitingJoin)
		e.after(taskGameLogin, e.cfg.StepDelay, func() {
			acct := e.currentAccount()
			e.fire(protocol.GameLogin(acct.HashPassword, acct.UserID))
		})
	case m.Action == protocol.ActionBootstrap:
		e.onBootstrap(m)
	case m.Action == protocol.ActionMapInfo && m.Code == protocol.CodeOK:
		e.onMapInfo()
	case m.Action == protocol.ActionMapUpdate && m.Code == protocol.CodeOK:
		e.onJoined(m)
	case m.Action == protocol.ActionWildResume:
		e.newBattle(m)
	default:
		e.logger().Debugw("ignored during login", "action", m.Action, "kind", m.Kind.String())
	}
}

// onPolicy reconnects once on the first policy answer and then starts the
// version handshake on the fresh connection.
func (e *Engine) onPolicy() {
	e.mu.Lock()
	first := !e.policyDone
	e.policyDone = true
	conn := e.conn
	if first {
		e.conn = nil
	}
	e.mu.Unlock()

	if first {
		if conn != nil {
			_ = conn.Close()
		}
		if err := e.dial(context.Background()); err != nil {
			e.errorf("Reconnect after policy failed: %v", err)
			e.disconnect(CauseFatal, "policy reconnect failed")
			return
		}
	}
	e.after(taskVersion, e.cfg.PolicyDelay, func() { e.fire(protocol.VersionCheck(e.cfg.Version)) })
}

func (e *Engine) onBootstrap(m protocol.Message) {
	b, err := protocol.DecodeBootstrap(m, e.deps.Catalog)
	if err != nil {
		e.errorf("Could not read player data: %v", err)
		e.disconnect(CauseFatal, "malformed player data")
		return
	}
	e.setPhase(PhaseAwaitingMapData)

	clean := world.CleanMapName(b.RawMap)
	data, err := e.deps.Maps.Map(context.Background(), clean)
	if err != nil {
		e.warn("Unknown map " + clean + ".")
		data = world.MapData{Name: clean}
	}

	e.state.Update(func(p *game.Player) {
		p.Money = b.Money
		p.Credits = b.Credits
		p.Inventory = game.NewInventory(b.Inventory)
		p.Badges = b.Badges
		p.EnterMap(b.RawMap, data, b.Pos)
		p.CreationEpoch = b.CreationEpoch
		p.CharacterCreated = b.CharacterCreated
		p.Membership = b.Membership
		p.MembershipTime = b.MembershipTime
		p.Clan = b.Clan
		p.Team = b.Team
		p.SpeedMod = b.SpeedMod
		p.Speed = 8 * b.SpeedMod
		p.FishingLevel = b.FishingLevel
		p.FishingExp = b.FishingExp
		p.MiningLevel = b.MiningLevel
		if next := p.NextAlive(); next >= 0 {
			p.Active = next
		}
	})
	e.mu.Lock()
	e.lastReported = b.Pos
	e.mu.Unlock()

	e.timers.Set(taskPosition, schedule.EveryFixed(e.cfg.Position, e.reportPosition))
	e.timers.Set(taskPositionMap, schedule.EveryFixed(e.cfg.Position, e.reportPosition))
	e.timers.Set(taskAutosave, schedule.EveryFixed(e.cfg.Autosave, func() { e.fire(protocol.Save()) }))

	e.after(taskMapRequest, e.cfg.MapRequestDelay, func() {
		e.fire(protocol.MapInfo(e.currentAccount().Username))
	})
}

func (e *Engine) onMapInfo() {
	p := e.state.Snapshot()
	if p.Grid.Empty() {
		e.errorf("Map %s is not available.", p.Map)
		e.disconnect(CauseFatal, "map not available")
		return
	}
	if p.InWater() {
		e.changeMount(game.MountSurf)
	}
	e.after(taskMapEnter, e.cfg.StepDelay, func() {
		p := e.state.Snapshot()
		e.fire(protocol.MapEnter(p.Pos, p.Map))
	})
}

// onJoined completes the login chain.
func (e *Engine) onJoined(m protocol.Message) {
	e.fire(protocol.Announce(presence(e.state.Snapshot())))
	e.setPhase(PhaseConnected)
	e.timers.Set(taskHeartbeat, schedule.EveryFixed(e.cfg.Heartbeat, func() { e.fire(protocol.Heartbeat()) }))

	e.mu.Lock()
	keep := e.timedOut || e.onBreak
	resume := keep
	e.mu.Unlock()

	e.applyRocks(m)
	e.autoMount()

	e.info("Connected.")
	e.record(game.EventConnected, map[string]any{"map": e.state.Snapshot().Map})
	e.notifyTeam()
	e.notifyInventory()
	e.notifyPosition(keep)
	e.notify(ports.NotifyConnection, true)
	e.notifyTallies()

	if resume {
		e.restartBot()
	}
}

func (e *Engine) applyRocks(m protocol.Message) {
	rocks, err := protocol.DecodeRocks(m)
	if err != nil {
		e.logger().Warnw("bad rock overlay", "error", err)
		return
	}
	e.state.Update(func(p *game.Player) {
		p.Rocks = make(map[world.Point]world.Rock, len(rocks))
		for _, r := range rocks {
			p.Rocks[r.At] = r
		}
	})
	e.notifyRocks()
}

func (e *Engine) after(name string, d time.Duration, fn func()) {
	e.timers.Set(name, schedule.After(d, fn))
}

func (e *Engine) currentAccount() ports.Account {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.account
}

func findPath(p game.Player, to world.Point) []world.Point {
	return pathfind.FindPath(p.Grid, p.Pos, to, p.InWater())
}
