package rules

import (
	"fmt"
	"sort"
	"strings"

	"planetbot/internal/domain/game"
)

type Mode int

const (
	ModeBattle Mode = iota
	ModeFish
	ModeMine
)

func (m Mode) String() string {
	switch m {
	case ModeFish:
		return "Fish"
	case ModeMine:
		return "Mine"
	default:
		return "Battle"
	}
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "battle":
		return ModeBattle, nil
	case "fish":
		return ModeFish, nil
	case "mine":
		return ModeMine, nil
	default:
		return ModeBattle, fmt.Errorf("unknown bot mode %q", s)
	}
}

// ShinyKey is the catch-rule key matching any shiny encounter.
const ShinyKey = "Shiny"

// AnyStatus accepts an encounter regardless of its ailment.
const AnyStatus = "none"

// CatchRule is the per-species catching policy.
type CatchRule struct {
	Name     string `json:"name" yaml:"name"`
	Stop     bool   `json:"stop" yaml:"stop"`
	Sync     bool   `json:"sync" yaml:"sync"`
	Pokemon  int    `json:"pokemon" yaml:"pokemon"`
	Move     int    `json:"move" yaml:"move"`
	Status   string `json:"status" yaml:"status"`
	Health   int    `json:"health" yaml:"health"`
	Pokeball string `json:"pokeball" yaml:"pokeball"`
}

// StatusMatches reports whether the encounter ailment satisfies the rule.
func (r CatchRule) StatusMatches(ailment string) bool {
	return r.Status == "" || r.Status == AnyStatus || r.Status == ailment
}

type AdvanceRules struct {
	StopCatchLogout bool `json:"stop_catch_logout" yaml:"stop_catch_logout"`
	TakeLogoutBreak bool `json:"take_logout_break" yaml:"take_logout_break"`
	FastFish        bool `json:"fast_fish" yaml:"fast_fish"`
	FastMine        bool `json:"fast_mine" yaml:"fast_mine"`
}

func DefaultAdvance() AdvanceRules {
	return AdvanceRules{StopCatchLogout: true}
}

// BotRules is replaced wholesale on every bot start. Treat values as immutable
// once handed to the bot loop.
type BotRules struct {
	Mode          Mode
	Evolve        bool
	HealThreshold float64
	Speed         float64
	LearnMove     int
	AvoidElite    bool
	CatchRules    map[string]CatchRule
	Avoid         []string
	Advance       AdvanceRules
}

func Default() BotRules {
	return BotRules{
		Mode:          ModeBattle,
		HealThreshold: 0.50,
		Speed:         3,
		LearnMove:     4,
		CatchRules:    map[string]CatchRule{},
		Advance:       DefaultAdvance(),
	}
}

// Avoids reports whether the species is on the avoid list.
func (r BotRules) Avoids(name string) bool {
	for _, a := range r.Avoid {
		if a == name {
			return true
		}
	}
	return false
}

// CanBattle is true when the encounter should be fought: not avoided, no
// catch rule, and not an elite the rules skip.
func (r BotRules) CanBattle(w game.WildEncounter) bool {
	return !r.Avoids(w.Name) && !r.HasCatchRule(w) && !(w.Elite && r.AvoidElite)
}

// ShouldFlee is true for avoided species and avoided elites.
func (r BotRules) ShouldFlee(w game.WildEncounter) bool {
	return r.Avoids(w.Name) || (w.Elite && r.AvoidElite)
}

func (r BotRules) HasCatchRule(w game.WildEncounter) bool {
	_, ok := r.CatchRule(w)
	return ok
}

// CatchRule looks the encounter up by species name, falling back to the
// Shiny rule for shiny encounters. A sync-only rule does not apply to
// encounters without sync.
func (r BotRules) CatchRule(w game.WildEncounter) (CatchRule, bool) {
	if rule, ok := r.CatchRules[w.Name]; ok && (!rule.Sync || w.Sync) {
		return rule, true
	}
	if w.Shiny {
		if rule, ok := r.CatchRules[ShinyKey]; ok {
			return rule, true
		}
	}
	return CatchRule{}, false
}

// UsedPokemon lists team slots that take part in battles: slot 0 plus every
// non-stop rule's switch target, ordered by rule key.
func (r BotRules) UsedPokemon() []int {
	out := []int{0}
	seen := map[int]bool{0: true}
	keys := make([]string, 0, len(r.CatchRules))
	for k := range r.CatchRules {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		rule := r.CatchRules[k]
		if rule.Stop || seen[rule.Pokemon] {
			continue
		}
		seen[rule.Pokemon] = true
		out = append(out, rule.Pokemon)
	}
	return out
}

func (r BotRules) IsUsed(slot int) bool {
	for _, s := range r.UsedPokemon() {
		if s == slot {
			return true
		}
	}
	return false
}

// Validate checks ranges a caller could get wrong.
func (r BotRules) Validate() error {
	if r.HealThreshold < 0 || r.HealThreshold > 1 {
		return fmt.Errorf("heal threshold %.2f out of range", r.HealThreshold)
	}
	if r.Speed <= 0 {
		return fmt.Errorf("speed must be positive")
	}
	for key, rule := range r.CatchRules {
		if rule.Pokemon < 0 || rule.Pokemon >= game.MaxTeamSize {
			return fmt.Errorf("catch rule %q: team slot %d out of range", key, rule.Pokemon)
		}
		if rule.Move < 0 || rule.Move > 3 {
			return fmt.Errorf("catch rule %q: move slot %d out of range", key, rule.Move)
		}
	}
	return nil
}

// Clone returns a copy that shares nothing with r.
func (r BotRules) Clone() BotRules {
	out := r
	out.CatchRules = make(map[string]CatchRule, len(r.CatchRules))
	for k, v := range r.CatchRules {
		out.CatchRules[k] = v
	}
	out.Avoid = append([]string(nil), r.Avoid...)
	return out
}
