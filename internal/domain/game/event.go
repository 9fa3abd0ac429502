package game

import "time"

type DomainEvent struct {
	Type       string         `json:"type"`
	SessionID  string         `json:"session_id,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload,omitempty"`
}

const (
	EventConnected     = "connected"
	EventDisconnected  = "disconnected"
	EventBattleStarted = "battle_started"
	EventBattleWon     = "battle_won"
	EventBattleLost    = "battle_lost"
	EventFled          = "fled"
	EventCatchAttempt  = "catch_attempt"
	EventItemObtained  = "item_obtained"
	EventBotStarted    = "bot_started"
	EventBotStopped    = "bot_stopped"
	EventBotAborted    = "bot_aborted"
)
