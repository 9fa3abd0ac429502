package session

import "errors"

var (
	ErrNotConnected       = errors.New("not connected to the game server")
	ErrAlreadyConnected   = errors.New("already connected")
	ErrBotRunning         = errors.New("stop the bot first")
	ErrMoving             = errors.New("player is moving")
	ErrInBattle           = errors.New("player is in a battle")
	ErrTooFewTiles        = errors.New("battle mode requires at least 4 selected tiles")
	ErrNoItem             = errors.New("item not in inventory")
	ErrSlotHasItem        = errors.New("team member already holds an item")
	ErrSlotEmpty          = errors.New("team member holds no item")
	ErrUnknownLocation    = errors.New("no map data for location")
	ErrMissingCredentials = errors.New("username and password are required")
	ErrBadSlot            = errors.New("team slot out of range")
	ErrNoPath             = errors.New("no path to destination")
	ErrInvalidRules       = errors.New("invalid bot rules")
	ErrEmptyMessage       = errors.New("message is empty")
)
