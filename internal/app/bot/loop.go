package bot

import (
	"context"
	"fmt"
	"time"

	"planetbot/internal/adapter/protocol"
	"planetbot/internal/app/schedule"
	"planetbot/internal/domain/game"
	"planetbot/internal/domain/rules"
	"planetbot/internal/domain/world"
)

// lastDirOdds out of lastDirRoll keep walking the same way.
const (
	lastDirOdds     = 4
	lastDirRoll     = 5
	hookFailOdds    = 50
	perfectHookOdds = 3
)

type loopState struct {
	lastDir     world.Direction
	resendCast  bool
	lastMissing string
}

func (d *Driver) run(ctx context.Context, gen int, r rules.BotRules) {
	defer d.end(gen)
	ls := &loopState{lastDir: world.DirDown}
	for ctx.Err() == nil {
		if !d.Host.Connected() {
			return
		}
		p := d.Host.State().Snapshot()
		if !p.HasUsablePokemon() {
			d.abort(ctx, AbortNoUsableParty)
			return
		}
		if err := d.tick(ctx, r, p, ls); err != nil {
			if ctx.Err() == nil {
				d.Log.Debugw("bot loop ended", "error", err)
			}
			return
		}
	}
}

func (d *Driver) tick(ctx context.Context, r rules.BotRules, p game.Player, ls *loopState) error {
	onBike := p.MoveType == "bike"
	switch {
	case !p.Battle && !p.Busy:
		if p.BattleWon {
			if err := d.Pacer.Sleep(ctx, PaceBattleEnd, r.Speed, onBike); err != nil {
				return err
			}
			if err := d.Host.Send(ctx, protocol.BattleAck()); err != nil {
				return err
			}
			d.Host.State().Update(func(p *game.Player) { p.BattleWon = false })
		}
		healed, err := d.healOutside(ctx, r, p, ls)
		if err != nil || healed {
			return err
		}
		switch r.Mode {
		case rules.ModeFish:
			return d.fishStep(ctx, r, ls)
		case rules.ModeMine:
			return d.mineStep(ctx, r)
		default:
			return d.battleModeStep(ctx, r, ls)
		}
	case p.Battle && p.MyTurn && !p.Busy:
		return d.battleTurn(ctx, r, p)
	default:
		return sleepCtx(ctx, idlePoll)
	}
}

func (d *Driver) battleModeStep(ctx context.Context, r rules.BotRules, ls *loopState) error {
	var (
		moved, saveDue bool
		dir            world.Direction
		after          game.Player
	)
	d.Host.State().Update(func(p *game.Player) {
		options := p.WalkableDirections(true)
		if len(options) == 0 {
			return
		}
		dir = pickDirection(options, ls.lastDir, d.Pacer.Intn)
		moved, saveDue = p.Move(dir, true)
		after = p.Clone()
	})
	if !moved {
		d.abort(ctx, AbortNoPath)
		return nil
	}
	ls.lastDir = dir
	if err := d.sendMove(ctx, after, dir, saveDue); err != nil {
		return err
	}
	if err := d.checkForBattle(ctx, after); err != nil {
		return err
	}
	return d.Pacer.Sleep(ctx, PaceMove, r.Speed, after.MoveType == "bike")
}

// pickDirection keeps last lastDirOdds times in lastDirRoll when it is still
// walkable and otherwise picks uniformly from options.
func pickDirection(options []world.Direction, last world.Direction, intn func(n int) int) world.Direction {
	dir := options[intn(len(options))]
	if intn(lastDirRoll) < lastDirOdds && containsDir(options, last) {
		dir = last
	}
	return dir
}

func containsDir(options []world.Direction, want world.Direction) bool {
	for _, o := range options {
		if o == want {
			return true
		}
	}
	return false
}

func (d *Driver) sendMove(ctx context.Context, p game.Player, dir world.Direction, saveDue bool) error {
	if err := d.Host.SendWhenIdle(ctx, protocol.Move(dir, protocol.MoveFlag(p.MoveType, p.Speed))); err != nil {
		return err
	}
	if saveDue {
		if err := d.Host.Send(ctx, protocol.StepsSaved()); err != nil {
			return err
		}
	}
	d.notifyPosition(p)
	return nil
}

func (d *Driver) checkForBattle(ctx context.Context, p game.Player) error {
	if !p.OnBattleTile() || !p.HasUsablePokemon() || len(p.Team) == 0 {
		return nil
	}
	if !WildTrigger(p.Team[0].Ability.ID, d.Pacer.Intn) {
		return nil
	}
	if err := d.Host.SendWhenIdle(ctx, protocol.WildBattle(p.Map, p.MoveType, p.Username)); err != nil {
		return err
	}
	d.Host.State().Update(func(p *game.Player) { p.Battle = true })
	return nil
}

func (d *Driver) fishStep(ctx context.Context, r rules.BotRules, ls *loopState) error {
	var (
		facing bool
		p      game.Player
	)
	d.Host.State().Update(func(pl *game.Player) {
		facing = pl.NearWater() && pl.FaceWater()
		p = pl.Clone()
	})
	if !facing {
		d.abort(ctx, AbortNoWater)
		return nil
	}
	d.notifyPosition(p)
	interval := timerInterval(FishingInterval(p.FishingLevel, r.Advance.FastFish))

	switch {
	case p.Fishing == game.FishIdle && !d.tasks.Active(taskFish) && !p.Hooked:
		rod, ok := p.BestRod()
		if !ok {
			d.abort(ctx, AbortNoRod)
			return nil
		}
		if err := d.startCasting(ctx, rod, interval); err != nil {
			return err
		}
		if err := d.Host.Send(ctx, protocol.FishAnimation(p.Facing)); err != nil {
			return err
		}
		d.Host.State().Update(func(p *game.Player) { p.Fishing = game.FishCasting })
		d.info("Casting using: " + rod)
	case ls.resendCast:
		rod, ok := p.BestRod()
		if !ok {
			d.abort(ctx, AbortNoRod)
			return nil
		}
		if err := d.startCasting(ctx, rod, interval); err != nil {
			return err
		}
		ls.resendCast = false
	case p.Fishing == game.FishCasting && p.Hooked:
		if d.Pacer.Intn(hookFailOdds) != 0 {
			if err := d.Pacer.Sleep(ctx, PaceFish, r.Speed, false); err != nil {
				return err
			}
			d.info("Successfully hooked a pokemon!")
			if err := d.Host.Send(ctx, protocol.Hook(d.Pacer.Intn(perfectHookOdds) == 0)); err != nil {
				return err
			}
			ls.resendCast = true
			d.Host.State().Update(func(p *game.Player) { p.Hooked = false })
		} else {
			d.info("Failed to hook a pokemon!")
			d.tasks.Cancel(taskFish)
			d.Host.State().Update(func(p *game.Player) {
				p.Hooked = false
				p.Fishing = game.FishIdle
			})
			if err := d.Pacer.Sleep(ctx, PaceFish, r.Speed, false); err != nil {
				return err
			}
		}
	}
	return d.Pacer.Sleep(ctx, PaceBattleStep, r.Speed, false)
}

// startCasting casts now and keeps re-casting every interval until hooked.
func (d *Driver) startCasting(ctx context.Context, rod string, interval time.Duration) error {
	d.tasks.Set(taskFish, schedule.EveryFixed(interval, func() {
		if err := d.Host.Send(ctx, protocol.Cast(rod)); err != nil {
			d.tasks.Cancel(taskFish)
		}
	}))
	return d.Host.Send(ctx, protocol.Cast(rod))
}

func (d *Driver) mineStep(ctx context.Context, r rules.BotRules) error {
	p := d.Host.State().Snapshot()
	if !p.NearRock() {
		d.abort(ctx, AbortNoRock)
		return nil
	}
	if !p.Mining && !d.tasks.Active(taskMine) {
		var (
			rock  world.Rock
			found bool
		)
		d.Host.State().Update(func(pl *game.Player) {
			rock, found = pl.FaceAvailableRock()
			p = pl.Clone()
		})
		if found {
			pickaxe, ok := p.BestPickaxe()
			if !ok {
				d.abort(ctx, AbortNoPickaxe)
				return nil
			}
			if err := d.Host.Send(ctx, protocol.MineAnimation(p.Facing)); err != nil {
				return err
			}
			at := rock.At
			interval := timerInterval(MiningInterval(p.MiningLevel, r.Advance.FastMine))
			d.tasks.Set(taskMine, schedule.EveryFixed(interval, func() {
				if err := d.Host.Send(ctx, protocol.Mine(pickaxe, at)); err != nil {
					d.tasks.Cancel(taskMine)
				}
			}))
			d.Host.State().Update(func(pl *game.Player) {
				pl.Mining = true
				pl.CurrentRock = &at
			})
			d.notifyPosition(p)
			d.info("Mining using: " + pickaxe)
		}
	}
	return d.Pacer.Sleep(ctx, PaceBattleStep, r.Speed, false)
}

func timerInterval(seconds float64) time.Duration {
	if seconds < minTimerSeconds {
		seconds = minTimerSeconds
	}
	return time.Duration(seconds * float64(time.Second))
}

func (d *Driver) battleTurn(ctx context.Context, r rules.BotRules, p game.Player) error {
	if p.Encounter == nil {
		d.Host.State().Update(func(p *game.Player) {
			p.Battle = false
			p.MyTurn = false
		})
		return nil
	}
	enc := *p.Encounter
	fight := r.CanBattle(enc)
	catchRule, catching := r.CatchRule(enc)

	if fight || catching {
		acted, err := d.healInBattle(ctx, r, p)
		if err != nil || acted {
			if err == nil {
				err = d.Pacer.Sleep(ctx, PaceBattleStep, r.Speed, false)
			}
			return err
		}
	}

	switch {
	case fight:
		if err := d.Pacer.Sleep(ctx, PaceBattleStep, r.Speed, false); err != nil {
			return err
		}
		if err := d.smartAttack(ctx); err != nil {
			return err
		}
	case catching:
		if err := d.Pacer.Sleep(ctx, PaceBattleStep, r.Speed, false); err != nil {
			return err
		}
		if err := d.catchTurn(ctx, r, catchRule); err != nil {
			return err
		}
	case r.ShouldFlee(enc):
		if err := d.Pacer.Sleep(ctx, PaceBattleStep, r.Speed, false); err != nil {
			return err
		}
		if err := d.Host.Send(ctx, protocol.Flee()); err != nil {
			return err
		}
		d.Host.State().Update(func(p *game.Player) {
			p.MyTurn = false
			p.Battle = false
			p.Encounter = nil
		})
		d.Host.Record(game.EventFled, map[string]any{"pokemon": enc.DisplayName()})
		d.info("Running away from battle!")
		return d.Pacer.Sleep(ctx, PaceBattleEnd, r.Speed, false)
	default:
		d.abort(ctx, AbortUnclassified)
		return nil
	}
	d.Host.State().Update(func(p *game.Player) { p.MyTurn = false })
	return nil
}

// smartAttack sends the best move of the active member.
func (d *Driver) smartAttack(ctx context.Context) error {
	p := d.Host.State().Snapshot()
	if p.Encounter == nil || p.Encounter.CurrentHP == 0 {
		d.Host.State().Update(func(p *game.Player) {
			p.Battle = false
			p.MyTurn = false
		})
		return nil
	}
	member, ok := p.ActiveMember()
	if !ok {
		return nil
	}
	choice, ok := BestAttack(member, *p.Encounter, d.Catalog)
	if !ok {
		d.warn(fmt.Sprintf("%s has no suitable move, using its first move", member.Name))
		choice = AttackChoice{Slot: 0}
	} else {
		d.info(fmt.Sprintf("Using: [%s] with effectiveness of: [%g]", choice.Move.Name, choice.Effectiveness))
	}
	return d.Host.Send(ctx, protocol.Attack(choice.Slot))
}

func (d *Driver) catchTurn(ctx context.Context, r rules.BotRules, rule rules.CatchRule) error {
	p := d.Host.State().Snapshot()
	dec := DecideCatch(p, rule)
	switch dec.Step {
	case CatchStop:
		if r.Advance.StopCatchLogout {
			d.warn("STOP! " + string(AbortStopRule) + ", logging out")
			d.Host.Record(game.EventBotAborted, map[string]any{"reason": string(AbortStopRule)})
			d.Host.Disconnect(string(AbortStopRule))
			return nil
		}
		d.abort(ctx, AbortStopRule)
	case CatchFaintedCatcher:
		d.Host.Disconnect("catching pokemon is fainted")
	case CatchSwitch:
		if err := d.Host.Send(ctx, protocol.SwitchPokemon(dec.Slot)); err != nil {
			return err
		}
		d.Host.State().Update(func(p *game.Player) { p.Active = dec.Slot })
		d.info(fmt.Sprintf("Switching pokemon to %s!", p.Team[dec.Slot].Name))
	case CatchAttack:
		return d.Host.Send(ctx, protocol.Attack(dec.Move))
	case CatchThrow:
		if err := d.Host.Send(ctx, protocol.BattleItem(dec.BallIndex)); err != nil {
			return err
		}
		name := ""
		if p.Encounter != nil {
			name = p.Encounter.DisplayName()
		}
		if d.Metrics != nil {
			d.Metrics.RecordCatchAttempt()
		}
		d.Host.Record(game.EventCatchAttempt, map[string]any{"pokemon": name, "ball": dec.Ball})
		d.info(fmt.Sprintf("Throwing a %s to catch %s!", dec.Ball, name))
	case CatchNoBall:
		d.Host.Disconnect(fmt.Sprintf("no %s available", dec.Ball))
	}
	return nil
}

// healInBattle reports whether the turn was spent.
func (d *Driver) healInBattle(ctx context.Context, r rules.BotRules, p game.Player) (bool, error) {
	h := DecideBattleHeal(p, r)
	switch h.Step {
	case HealSwitch:
		if err := d.Host.Send(ctx, protocol.SwitchPokemon(h.Slot)); err != nil {
			return false, err
		}
		d.Host.State().Update(func(p *game.Player) { p.Active = h.Slot })
		d.info(fmt.Sprintf("Switching pokemon to %s!", p.Team[h.Slot].Name))
		return true, nil
	case HealNoneAlive:
		d.Host.Disconnect("every pokemon has fainted")
		return true, nil
	case HealPotion:
		if err := d.Host.Send(ctx, protocol.BattleItem(h.InventoryIndex)); err != nil {
			return false, err
		}
		d.info(fmt.Sprintf("Using a %s on %s.", h.Item, p.Team[h.Slot].Name))
		return true, nil
	}
	return false, nil
}

// healOutside reports whether an item was used, which skips movement this tick.
func (d *Driver) healOutside(ctx context.Context, r rules.BotRules, p game.Player, ls *loopState) (bool, error) {
	h := DecideOutsideHeal(p, r)
	switch h.Step {
	case HealRevive, HealPotion:
		ls.lastMissing = ""
		if err := d.Host.Send(ctx, protocol.UseItem(h.Slot, h.Item)); err != nil {
			return false, err
		}
		d.info(fmt.Sprintf("Using a %s on %s.", h.Item, p.Team[h.Slot].Name))
		return true, d.Pacer.Sleep(ctx, PaceBattleStep, r.Speed, false)
	case HealMissingItem:
		if ls.lastMissing != h.Item {
			ls.lastMissing = h.Item
			d.warn(fmt.Sprintf("No %s left to heal %s.", h.Item, p.Team[h.Slot].Name))
		}
	}
	return false, nil
}

func (d *Driver) walk(ctx context.Context, r rules.BotRules, path []world.Point) {
	for {
		if ctx.Err() != nil || !d.Host.Connected() {
			return
		}
		p := d.Host.State().Snapshot()
		if !p.Battle {
			break
		}
		if !p.MyTurn || p.Busy {
			if sleepCtx(ctx, idlePoll) != nil {
				return
			}
			continue
		}
		acted, err := d.healInBattle(ctx, r, p)
		if err != nil {
			return
		}
		if !acted {
			if err := d.smartAttack(ctx); err != nil {
				return
			}
			d.Host.State().Update(func(p *game.Player) { p.MyTurn = false })
		}
		if d.Pacer.Sleep(ctx, PaceBattleStep, r.Speed, false) != nil {
			return
		}
	}

	d.Host.State().Update(func(p *game.Player) { p.Moving = true })
	for _, step := range path {
		var (
			moved, saveDue bool
			dir            world.Direction
			after          game.Player
		)
		d.Host.State().Update(func(p *game.Player) {
			var ok bool
			if dir, ok = p.Pos.DirectionTo(step); !ok {
				return
			}
			moved, saveDue = p.Move(dir, false)
			after = p.Clone()
		})
		if !moved {
			return
		}
		if d.sendMove(ctx, after, dir, saveDue) != nil {
			return
		}
		if d.Pacer.Sleep(ctx, PaceWalk, r.Speed, after.MoveType == "bike") != nil {
			return
		}
		if exit, ok := after.ExitHere(); ok {
			if err := d.Host.TakeExit(ctx, exit); err != nil {
				d.warn(fmt.Sprintf("No map file for: %s", exit.Map))
			}
			return
		}
	}
}
