package game

type Type struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Ability struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Move struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Type     Type   `json:"type"`
	Power    int    `json:"power"`
	Accuracy int    `json:"accuracy"`
	PP       int    `json:"pp"`
}

type Stats struct {
	HP      int `json:"hp"`
	Attack  int `json:"attack"`
	Defense int `json:"defense"`
	SpAtk   int `json:"sp_atk"`
	SpDef   int `json:"sp_def"`
	Speed   int `json:"speed"`
}

// NoItem is the held-item value the server uses for an empty slot.
const NoItem = "none"

// Pokemon is a team member as last pushed by the server.
type Pokemon struct {
	UUID      int64   `json:"uuid"`
	ID        int     `json:"id"`
	Name      string  `json:"name"`
	Level     int     `json:"level"`
	Happiness int     `json:"happiness"`
	Nature    string  `json:"nature"`
	Stats     Stats   `json:"stats"`
	EVs       Stats   `json:"evs"`
	IVs       Stats   `json:"ivs"`
	CurrentHP int     `json:"current_hp"`
	TotalExp  int     `json:"total_exp"`
	LevelExp  int     `json:"level_exp"`
	Moves     []Move  `json:"moves"`
	Type1     Type    `json:"type1"`
	Type2     Type    `json:"type2"`
	Shiny     bool    `json:"shiny"`
	Item      string  `json:"item"`
	Ability   Ability `json:"ability"`
	Ailment   string  `json:"ailment"`
	Catcher   string  `json:"catcher"`
}

func (p Pokemon) MaxHP() int {
	return p.Stats.HP
}

// HPFraction is current/max health in [0,1].
func (p Pokemon) HPFraction() float64 {
	if p.Stats.HP <= 0 {
		return 0
	}
	return float64(p.CurrentHP) / float64(p.Stats.HP)
}

func (p Pokemon) Fainted() bool {
	return p.CurrentHP < 1
}

func (p Pokemon) HoldsItem() bool {
	return p.Item != "" && p.Item != NoItem
}

func (p Pokemon) MoveIndex(name string) int {
	for i, m := range p.Moves {
		if m.Name == name {
			return i
		}
	}
	return -1
}

func (p Pokemon) clone() Pokemon {
	p.Moves = append([]Move(nil), p.Moves...)
	return p
}
