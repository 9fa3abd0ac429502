package status

import (
	"time"

	"planetbot/internal/domain/game"
	"planetbot/internal/domain/world"
)

type Response struct {
	Phase     string `json:"phase"`
	Connected bool   `json:"connected"`
	SessionID string `json:"session_id,omitempty"`
	Account   string `json:"account,omitempty"`
	Running   bool   `json:"running"`
	Walking   bool   `json:"walking"`
	Resuming  bool   `json:"resuming"`
	// UptimeSeconds counts from the last login.
	UptimeSeconds int64 `json:"uptime_seconds"`

	Player  PlayerView   `json:"player"`
	Tallies game.Tallies `json:"tallies"`
}

type PlayerView struct {
	Map       string              `json:"map"`
	X         int                 `json:"x"`
	Y         int                 `json:"y"`
	Facing    string              `json:"facing"`
	Mount     string              `json:"mount"`
	Money     int                 `json:"money"`
	Credits   int                 `json:"credits"`
	Battle    bool                `json:"battle"`
	Busy      bool                `json:"busy"`
	Encounter *game.WildEncounter `json:"encounter,omitempty"`
	Active    int                 `json:"active"`
	Team      []game.Pokemon      `json:"team"`
	Inventory []game.ItemCount    `json:"inventory"`
	Players   []game.NearbyPlayer `json:"players"`
	Rocks     []world.Rock        `json:"rocks"`

	FishingLevel int `json:"fishing_level"`
	MiningLevel  int `json:"mining_level"`
}

// Snapshot is what the session hands to the read model.
type Snapshot struct {
	Phase     string
	Connected bool
	SessionID string
	Account   string
	Running   bool
	Walking   bool
	Resuming  bool
	StartedAt time.Time
	Player    game.Player
	Tallies   game.Tallies
}
