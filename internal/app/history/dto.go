package history

import "planetbot/internal/domain/game"

type Request struct {
	Account string
	Limit   int
	// Unix seconds; zero leaves that side of the window open.
	OccurredFrom int64
	OccurredTo   int64
}

type Response struct {
	Events  []game.DomainEvent `json:"events"`
	Tallies game.Tallies       `json:"tallies"`
	Summary Summary            `json:"summary"`
}

// Summary folds the listed events into per-type counts.
type Summary struct {
	ByType      map[string]int `json:"by_type"`
	MoneyEarned int            `json:"money_earned"`
	FirstAt     int64          `json:"first_at,omitempty"`
	LastAt      int64          `json:"last_at,omitempty"`
}
