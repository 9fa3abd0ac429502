package bot

import (
	"planetbot/internal/domain/game"
	"planetbot/internal/domain/rules"
)

const (
	minAccuracy = 85
	// Elite encounters heal earlier in battle.
	eliteHealThreshold = 0.50
	// Catching members are kept close to full health between battles.
	catcherHealThreshold = 0.95
	fixedDamageMove      = "Night Shade"
)

// Moves that hurt the user or cannot finish the opponent.
var avoidedMoves = map[string]bool{
	"False Swipe":   true,
	"Dream Eater":   true,
	"Double Edge":   true,
	"Brave Bird":    true,
	"Flare Blitz":   true,
	"Head Charge":   true,
	"Head Smash":    true,
	"Light Of Ruin": true,
	"Shadow End":    true,
	"Steel Beam":    true,
	"Struggle":      true,
	"Submission":    true,
	"Take Down":     true,
	"Volt Tackle":   true,
	"Wild Charge":   true,
	"Wood Hammer":   true,
}

// Abilities that absorb a move type entirely.
var nullifiedBy = map[string]string{
	"Dry Skin":      "Water",
	"Sap Sipper":    "Grass",
	"Lightning Rod": "Electric",
	"Levitate":      "Ground",
}

// AttackChoice is the move picked by BestAttack.
type AttackChoice struct {
	Slot          int
	Move          game.Move
	Effectiveness float64
	Score         float64
}

// BestAttack scores the usable moves of member against enc. Moves below the
// accuracy floor, self-harming moves and moves the opponent's ability absorbs
// are excluded before scoring. Ties keep the earlier move.
func BestAttack(member game.Pokemon, enc game.WildEncounter, cat game.Catalog) (AttackChoice, bool) {
	best := AttackChoice{Slot: -1, Score: -1}
	for i, mv := range member.Moves {
		if mv.Accuracy < minAccuracy || avoidedMoves[mv.Name] {
			continue
		}
		if t, ok := nullifiedBy[enc.Ability.Name]; ok && t == mv.Type.Name {
			continue
		}
		power := float64(mv.Power)
		if mv.Name == fixedDamageMove {
			power = float64(member.Level) / 3
		}
		effect := enc.Effectiveness(cat, mv.Type)
		if score := effect * power; score > best.Score {
			best = AttackChoice{Slot: i, Move: mv, Effectiveness: effect, Score: score}
		}
	}
	return best, best.Slot >= 0
}

// WildTrigger rolls the chance of a wild encounter for a step on a battle
// tile. The odds depend on the lead member's ability.
func WildTrigger(abilityID int, intn func(n int) int) bool {
	switch abilityID {
	case 1, 73, 95:
		return intn(14) == 6
	case 35, 71:
		return intn(9) < 2
	case 99:
		return intn(90) < 15
	default:
		return intn(9) == 6
	}
}

type CatchStep int

const (
	CatchStop CatchStep = iota
	CatchFaintedCatcher
	CatchSwitch
	CatchAttack
	CatchThrow
	CatchNoBall
)

type CatchDecision struct {
	Step      CatchStep
	Slot      int
	Move      int
	Ball      string
	BallIndex int
}

// DecideCatch is one turn of the catching procedure for rule.
func DecideCatch(p game.Player, rule rules.CatchRule) CatchDecision {
	if rule.Stop {
		return CatchDecision{Step: CatchStop}
	}
	if rule.Pokemon >= len(p.Team) || p.Team[rule.Pokemon].Fainted() {
		return CatchDecision{Step: CatchFaintedCatcher, Slot: rule.Pokemon}
	}
	if p.Active != rule.Pokemon {
		return CatchDecision{Step: CatchSwitch, Slot: rule.Pokemon}
	}
	if p.Encounter != nil && p.Encounter.HPPercent() > rule.Health {
		return CatchDecision{Step: CatchAttack, Move: rule.Move}
	}
	ailment := ""
	if p.Encounter != nil {
		ailment = p.Encounter.Ailment
	}
	if !rule.StatusMatches(ailment) {
		return CatchDecision{Step: CatchAttack, Move: rule.Move}
	}
	ball, idx, ok := p.CatchingBall(rule.Pokeball)
	if !ok {
		return CatchDecision{Step: CatchNoBall, Ball: rule.Pokeball}
	}
	return CatchDecision{Step: CatchThrow, Ball: ball, BallIndex: idx}
}

type HealStep int

const (
	HealNone HealStep = iota
	// HealSwitch replaces a fainted active member in battle.
	HealSwitch
	// HealNoneAlive means the whole team has fainted.
	HealNoneAlive
	HealPotion
	HealRevive
	// HealMissingItem means a member needs healing but nothing usable is held.
	HealMissingItem
)

type Heal struct {
	Step           HealStep
	Slot           int
	Item           string
	InventoryIndex int
}

// DecideBattleHeal checks the active member during a battle. A member at or
// below the threshold is healed.
func DecideBattleHeal(p game.Player, r rules.BotRules) Heal {
	member, ok := p.ActiveMember()
	if !ok {
		return Heal{Step: HealNone}
	}
	if member.Fainted() {
		next := p.NextAlive()
		if next < 0 {
			return Heal{Step: HealNoneAlive}
		}
		return Heal{Step: HealSwitch, Slot: next}
	}
	threshold := r.HealThreshold
	if p.Encounter != nil && p.Encounter.Elite {
		threshold = eliteHealThreshold
	}
	if member.HPFraction() > threshold {
		return Heal{Step: HealNone}
	}
	potion, ok := p.BestPotion()
	if !ok {
		return Heal{Step: HealNone}
	}
	return Heal{Step: HealPotion, Slot: p.Active, Item: potion, InventoryIndex: p.Inventory.Index(potion)}
}

// DecideOutsideHeal walks the used members in team order and reports the
// first one needing care. Only a member strictly below its threshold gets a
// potion.
func DecideOutsideHeal(p game.Player, r rules.BotRules) Heal {
	// A member we lack the item for does not block healing a later one.
	missing := Heal{Step: HealNone}
	for slot, member := range p.Team {
		if !r.IsUsed(slot) {
			continue
		}
		threshold := r.HealThreshold
		if slot != 0 {
			threshold = catcherHealThreshold
		}
		if member.Fainted() {
			if revive, ok := p.BestRevive(); ok {
				return Heal{Step: HealRevive, Slot: slot, Item: revive}
			}
			if missing.Step == HealNone {
				missing = Heal{Step: HealMissingItem, Slot: slot, Item: "Revive"}
			}
			continue
		}
		if member.HPFraction() < threshold {
			if potion, ok := p.BestPotion(); ok {
				return Heal{Step: HealPotion, Slot: slot, Item: potion}
			}
			if missing.Step == HealNone {
				missing = Heal{Step: HealMissingItem, Slot: slot, Item: "Potion"}
			}
		}
	}
	return missing
}

// FishingInterval is the cast repeat period in seconds.
func FishingInterval(level int, fast bool) float64 {
	l := float64(level)
	if fast {
		l *= 2
	}
	return 2.1 - l*0.01
}

// MiningInterval is the mine tick period in seconds.
func MiningInterval(level int, fast bool) float64 {
	l := float64(level)
	if fast {
		l *= 1.9
	}
	return 2.5 - l*0.012
}
