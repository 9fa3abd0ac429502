package game

import "time"

// Tallies are the per-account session counters shown in history.
type Tallies struct {
	Account     string         `json:"account"`
	Battles     int            `json:"battles"`
	MoneyEarned int            `json:"money_earned"`
	Species     map[string]int `json:"species"`
	Items       map[string]int `json:"items"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func NewTallies(account string) Tallies {
	return Tallies{
		Account: account,
		Species: map[string]int{},
		Items:   map[string]int{},
	}
}

func (t *Tallies) AddEncounter(displayName string) {
	t.Battles++
	if t.Species == nil {
		t.Species = map[string]int{}
	}
	t.Species[displayName]++
}

func (t *Tallies) AddItem(name string, count int) {
	if count <= 0 {
		return
	}
	if t.Items == nil {
		t.Items = map[string]int{}
	}
	t.Items[name] += count
}

func (t Tallies) Clone() Tallies {
	out := t
	out.Species = make(map[string]int, len(t.Species))
	for k, v := range t.Species {
		out.Species[k] = v
	}
	out.Items = make(map[string]int, len(t.Items))
	for k, v := range t.Items {
		out.Items[k] = v
	}
	return out
}
