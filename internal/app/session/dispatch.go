package session

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"planetbot/internal/adapter/protocol"
	"planetbot/internal/app/ports"
	"planetbot/internal/domain/game"
	"planetbot/internal/domain/rules"
)

const noticeFinishFirst = "Please finish what you are doing first."

// dispatch routes a message received while connected.
func (e *Engine) dispatch(m protocol.Message) {
	switch m.Action {
	case protocol.ActionPublicChat, protocol.ActionPrivateChat, protocol.ActionClanChat:
		e.onChat(m)
	case protocol.ActionPlayerAdd, protocol.ActionPlayerBack:
		e.onPlayer(m)
	case protocol.ActionWild, protocol.ActionWildResume:
		e.newBattle(m)
	case protocol.ActionBattleTurn:
		e.battleTurn(m)
	case protocol.ActionNotice:
		e.onNotice(m)
	case protocol.ActionExtResponse:
		e.onExtension(m)
	case protocol.ActionTeamUpdate:
		u, err := protocol.DecodeTeamUpdate(m, e.deps.Catalog)
		if err != nil {
			e.logger().Warnw("bad team update", "error", err)
			return
		}
		e.state.Update(func(p *game.Player) {
			p.Inventory = game.NewInventory(u.Inventory)
			p.Team = u.Team
		})
		e.notifyTeam()
		e.notifyInventory()
	case protocol.ActionItemGiven, protocol.ActionItemTaken:
		e.onHeldItem(m)
	case protocol.ActionPlayerLeft:
		name, _ := m.Segment(4)
		e.state.Update(func(p *game.Player) {
			for id, np := range p.Players {
				if foldEqual(np.Name, name) {
					delete(p.Players, id)
				}
			}
		})
		e.notifyPlayers()
	case protocol.ActionMapUpdate:
		e.applyRocks(m)
	case protocol.ActionHook:
		e.bot.Hooked()
	case protocol.ActionItemAdd, protocol.ActionItemRemove:
		e.onItemDelta(m)
	case protocol.ActionFullHeal:
		e.state.Update(func(p *game.Player) {
			for i := range p.Team {
				p.Team[i].CurrentHP = p.Team[i].MaxHP()
			}
		})
		e.info("Your team has been healed.")
		e.notifyTeam()
	case protocol.ActionRockEmpty, protocol.ActionRockRefill:
		e.onRock(m)
	case protocol.ActionBattleReq:
		e.decline("battle", e.cfg.DeclineBattle, protocol.DeclineBattle())
	case protocol.ActionTradeReq:
		e.decline("trade", e.cfg.DeclineTrade, protocol.DeclineTrade())
	case protocol.ActionUserGone:
		id, err := m.UserID()
		if err != nil {
			return
		}
		e.state.Update(func(p *game.Player) { delete(p.Players, id) })
		e.notifyPlayers()
	default:
		e.logger().Debugw("unhandled action", "action", m.Action, "kind", m.Kind.String())
	}
}

// activeRules falls back to the defaults when the bot never started.
func (e *Engine) activeRules() rules.BotRules {
	r := e.bot.Rules()
	if r.Speed == 0 {
		return rules.Default()
	}
	return r
}

func foldEqual(a, b string) bool {
	c := cases.Fold()
	return c.String(a) == c.String(b)
}

func (e *Engine) onChat(m protocol.Message) {
	line, err := protocol.DecodeChat(m)
	if err != nil {
		e.logger().Debugw("bad chat frame", "error", err)
		return
	}
	if line.Channel == protocol.ChannelLocal {
		if protocol.LocalMapTag(line.Text) != e.state.Snapshot().Map {
			return
		}
	}
	if line.Channel == protocol.ChannelPrivate {
		key := cases.Fold().String(line.Sender)
		e.mu.Lock()
		e.pmCounts[key]++
		e.mu.Unlock()
	}
	e.notify(ports.NotifyChat, line)
}

func (e *Engine) onPlayer(m protocol.Message) {
	np, err := protocol.DecodePlayer(m)
	if err != nil {
		e.logger().Debugw("bad player frame", "error", err)
		return
	}
	var (
		p     game.Player
		added bool
	)
	e.state.Update(func(pl *game.Player) {
		if _, ok := pl.Players[np.ID]; !ok {
			pl.Players[np.ID] = np
			added = true
		}
		p = pl.Clone()
	})
	if m.Action == protocol.ActionPlayerAdd && p.CharacterCreated != 0 {
		offset := 0.0
		if p.Moving {
			offset = 64 - p.MapMovements
		}
		e.fire(protocol.AddBack(addBackPresence(p), strings.ToLower(np.Name), offset))
	}
	if added {
		e.notifyPlayers()
	}
}

func (e *Engine) newBattle(m protocol.Message) {
	enc, err := protocol.DecodeEncounter(m, e.deps.Catalog)
	if err != nil {
		e.warn("Could not read the wild encounter: " + err.Error())
		return
	}
	alive := true
	e.state.Update(func(p *game.Player) {
		p.Encounter = &enc
		p.MyTurn = true
		p.Battle = true
		p.BattleWon = false
		if next := p.NextAlive(); next >= 0 {
			p.Active = next
		} else {
			alive = false
		}
	})
	if !alive {
		e.disconnect(CauseFatal, "no usable pokemon")
		return
	}
	name := enc.DisplayName()
	e.updateTallies(func(t *game.Tallies) { t.AddEncounter(name) })
	if e.deps.Metrics != nil {
		e.deps.Metrics.RecordBattle()
	}
	e.record(game.EventBattleStarted, map[string]any{"pokemon": name, "level": enc.Level})
	e.info(fmt.Sprintf("Battle! Pokemon:[%s][%d]", name, enc.Level))
}

func (e *Engine) battleTurn(m protocol.Message) {
	t, err := protocol.DecodeBattleTurn(m, e.deps.Catalog)
	if err != nil {
		e.warn("Could not read the battle turn: " + err.Error())
		return
	}
	earned := 0
	alive := true
	e.state.Update(func(p *game.Player) {
		p.Team = t.Team
		if p.Encounter != nil {
			p.Encounter.Apply(t.Update)
		}
		switch t.Outcome {
		case protocol.OutcomeWon:
			if t.Money != 0 {
				earned = t.Money - p.Money
				p.Money = t.Money
			}
			p.BattleWon = true
			p.MyTurn = false
			p.Battle = false
			p.Encounter = nil
			if next := p.NextAlive(); next >= 0 {
				p.Active = next
			} else {
				alive = false
			}
		case protocol.OutcomeLost:
			p.MyTurn = false
			p.Battle = false
			p.Encounter = nil
		default:
			p.MyTurn = true
		}
	})
	for _, l := range t.Log {
		text := l.Text
		if l.Damage != "" {
			text += " Dealing " + l.Damage + " damage."
		}
		e.info(text)
	}
	e.notifyTeam()

	switch t.Outcome {
	case protocol.OutcomeWon:
		e.info("Battle WON!")
		if earned != 0 {
			e.updateTallies(func(tl *game.Tallies) { tl.MoneyEarned += earned })
			e.info("Earned " + strconv.Itoa(earned) + " money.")
			e.notifyInventory()
		}
		e.record(game.EventBattleWon, map[string]any{"money": earned})
		if !alive {
			e.disconnect(CauseFatal, "no usable pokemon")
			return
		}
		e.maybeBreak()
	case protocol.OutcomeLost:
		e.info("Battle LOST!")
		e.record(game.EventBattleLost, nil)
	}
}

// maybeBreak logs out for a break once the bot has run long enough.
func (e *Engine) maybeBreak() {
	if !e.bot.Running() || !e.bot.Rules().Advance.TakeLogoutBreak {
		return
	}
	e.mu.Lock()
	due := e.deps.Now().Sub(e.startedAt) >= e.breakAfter
	e.mu.Unlock()
	if due {
		e.initiateBreak()
	}
}

func (e *Engine) onNotice(m protocol.Message) {
	text, _ := m.Segment(4)
	if strings.Contains(text, noticeFinishFirst) {
		e.state.Update(func(p *game.Player) {
			if p.Battle && p.Busy {
				p.Battle = false
			}
		})
	}
	if text != "" {
		e.warn(text)
	}
}

func (e *Engine) onExtension(m protocol.Message) {
	switch m.Cmd {
	case protocol.ExtAskEvolve:
		accept := e.activeRules().Evolve
		if accept {
			e.info("Evolving.")
		} else {
			e.info("Cancelling evolution.")
		}
		e.fire(protocol.Evolve(accept))
	case protocol.ExtLearnMove:
		e.onLearnMove(m)
	case protocol.ExtClanRequest:
		e.decline("clan", e.cfg.DeclineClan, protocol.DeclineClan(e.currentAccount().Username))
	case protocol.ExtUpdateInventory, protocol.ExtBuyItem:
		d, err := protocol.DecodeInventoryDelta(m)
		if err != nil {
			e.logger().Warnw("bad inventory delta", "error", err)
			return
		}
		e.state.Update(func(p *game.Player) { p.Inventory.Add(d.Item, d.Amount) })
		if d.Amount > 0 && m.Cmd == protocol.ExtUpdateInventory {
			e.updateTallies(func(t *game.Tallies) { t.AddItem(d.Item, d.Amount) })
			e.record(game.EventItemObtained, map[string]any{"item": d.Item, "count": d.Amount})
		}
		if d.Message != "" {
			e.info(d.Message)
		}
		e.notifyInventory()
	case protocol.ExtWatchOn:
		e.warn("Server side bot watch enabled.")
	case protocol.ExtWatchOff:
		e.info("Server side bot watch disabled.")
	default:
		e.logger().Debugw("unhandled extension response", "cmd", m.Cmd)
	}
}

func (e *Engine) onLearnMove(m protocol.Message) {
	raw, err := m.Field("slot")
	if err != nil {
		return
	}
	slot, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return
	}
	known := 0
	e.state.View(func(p *game.Player) {
		if slot >= 0 && slot < len(p.Team) {
			known = len(p.Team[slot].Moves)
		}
	})
	moveNum := e.activeRules().LearnMove
	if known >= 1 && known <= 3 {
		moveNum = known
	}
	e.info("Learning a new move.")
	e.fire(protocol.LearnMove(moveNum))
}

func (e *Engine) onHeldItem(m protocol.Message) {
	c, err := protocol.DecodeHeldItem(m)
	if err != nil {
		e.logger().Warnw("bad held item frame", "error", err)
		return
	}
	e.state.Update(func(p *game.Player) {
		if c.Slot < 0 || c.Slot >= len(p.Team) {
			return
		}
		if m.Action == protocol.ActionItemGiven {
			item, ok := p.Inventory.At(c.InventoryIndex)
			if !ok {
				return
			}
			p.Team[c.Slot].Item = item
			p.Inventory.Add(item, -1)
			return
		}
		item := p.Team[c.Slot].Item
		if item != "" && item != game.NoItem {
			p.Inventory.Add(item, 1)
		}
		p.Team[c.Slot].Item = game.NoItem
	})
	e.notifyTeam()
	e.notifyInventory()
}

func (e *Engine) onItemDelta(m protocol.Message) {
	d, err := protocol.DecodeItemDelta(m)
	if err != nil {
		e.logger().Warnw("bad item delta", "error", err)
		return
	}
	if m.Action == protocol.ActionItemRemove {
		e.state.Update(func(p *game.Player) { p.Inventory.Add(d.Name, -d.Count) })
		e.notifyInventory()
		return
	}
	e.state.Update(func(p *game.Player) { p.Inventory.Add(d.Name, d.Count) })
	if d.Count > 0 {
		e.updateTallies(func(t *game.Tallies) { t.AddItem(d.Name, d.Count) })
		e.record(game.EventItemObtained, map[string]any{"item": d.Name, "count": d.Count})
		e.info(fmt.Sprintf("Obtained %d %s.", d.Count, d.Name))
	}
	e.notifyInventory()
}

func (e *Engine) onRock(m protocol.Message) {
	at, err := protocol.DecodeRockEvent(m)
	if err != nil {
		e.logger().Warnw("bad rock event", "error", err)
		return
	}
	available := m.Action == protocol.ActionRockRefill
	e.state.Update(func(p *game.Player) {
		if r, ok := p.Rocks[at]; ok {
			r.Available = available
			p.Rocks[at] = r
		}
	})
	e.notifyRocks()
	if !available {
		e.bot.RockDepleted(at)
	}
}

// decline marks the player busy and refuses a request after a human delay.
func (e *Engine) decline(what string, window [2]time.Duration, cmd protocol.Command) {
	e.state.Update(func(p *game.Player) { p.Busy = true })
	e.warn("Denying a " + what + " request!")
	e.after(taskDecline+"_"+what, e.between(window[0], window[1]), func() {
		e.fire(cmd)
		e.state.Update(func(p *game.Player) { p.Busy = false })
	})
}
