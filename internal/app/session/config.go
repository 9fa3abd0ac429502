package session

import "time"

// Config carries the game endpoint, its keys and the protocol timings.
type Config struct {
	Addr        string
	Version     string
	Secret      string
	PositionKey string

	Heartbeat time.Duration
	Position  time.Duration
	Autosave  time.Duration

	PolicyDelay     time.Duration
	StepDelay       time.Duration
	MapRequestDelay time.Duration
	// MapChangeDelays are the pauses after b74, after the mount change and
	// after b5 when entering a new map.
	MapChangeDelays [3]time.Duration

	ResumeWalkDelay  time.Duration
	ResumeRulesDelay time.Duration

	BreakMin      time.Duration
	BreakMax      time.Duration
	BreakAfterMin time.Duration
	BreakAfterMax time.Duration

	BusyPoll time.Duration

	// Incoming requests are declined after a random delay in these ranges.
	DeclineBattle [2]time.Duration
	DeclineClan   [2]time.Duration
	DeclineTrade  [2]time.Duration
	FollowSprite  [2]time.Duration
}

func DefaultConfig() Config {
	return Config{
		Addr:    "127.0.0.1:9339",
		Version: "157",

		Heartbeat: 30 * time.Second,
		Position:  8 * time.Second,
		Autosave:  1800 * time.Second,

		PolicyDelay:     200 * time.Millisecond,
		StepDelay:       200 * time.Millisecond,
		MapRequestDelay: 900 * time.Millisecond,
		MapChangeDelays: [3]time.Duration{300 * time.Millisecond, 100 * time.Millisecond, 300 * time.Millisecond},

		ResumeWalkDelay:  5 * time.Second,
		ResumeRulesDelay: 50 * time.Second,

		BreakMin:      180 * time.Second,
		BreakMax:      500 * time.Second,
		BreakAfterMin: 10800 * time.Second,
		BreakAfterMax: 14000 * time.Second,

		BusyPoll: 500 * time.Millisecond,

		DeclineBattle: [2]time.Duration{3 * time.Second, 9 * time.Second},
		DeclineClan:   [2]time.Duration{2 * time.Second, 7 * time.Second},
		DeclineTrade:  [2]time.Duration{2 * time.Second, 10 * time.Second},
		FollowSprite:  [2]time.Duration{300 * time.Millisecond, 800 * time.Millisecond},
	}
}
