package game

// WildEncounter is the opponent of the current wild battle.
type WildEncounter struct {
	ID        int     `json:"id"`
	Name      string  `json:"name"`
	Level     int     `json:"level"`
	CurrentHP int     `json:"current_hp"`
	MaxHP     int     `json:"max_hp"`
	Shiny     bool    `json:"shiny"`
	Elite     bool    `json:"elite"`
	Sync      bool    `json:"sync"`
	Ability   Ability `json:"ability"`
	Ailment   string  `json:"ailment"`
	Form      string  `json:"form"`
	Type1     Type    `json:"type1"`
	Type2     Type    `json:"type2"`
}

// HPPercent is the truncated integer percentage of remaining health.
func (w WildEncounter) HPPercent() int {
	if w.MaxHP <= 0 {
		return 0
	}
	return w.CurrentHP * 100 / w.MaxHP
}

// DisplayName prefixes shiny and elite encounters the way tallies key them.
func (w WildEncounter) DisplayName() string {
	switch {
	case w.Shiny:
		return "[S]" + w.Name
	case w.Elite:
		return "[E]" + w.Name
	default:
		return w.Name
	}
}

// Effectiveness multiplies the attack type against both defending types.
func (w WildEncounter) Effectiveness(cat Catalog, attack Type) float64 {
	e := cat.Effectiveness(attack.ID, w.Type1.ID)
	if w.Type2.ID != 0 {
		e *= cat.Effectiveness(attack.ID, w.Type2.ID)
	}
	return e
}

// EncounterUpdate is the opponent delta carried by a battle turn.
type EncounterUpdate struct {
	Ailment   string
	Name      string
	MaxHP     int
	CurrentHP int
}

func (w *WildEncounter) Apply(u EncounterUpdate) {
	w.Ailment = u.Ailment
	if u.Name != "" {
		w.Name = u.Name
	}
	if u.MaxHP > 0 {
		w.MaxHP = u.MaxHP
	}
	w.CurrentHP = u.CurrentHP
}
