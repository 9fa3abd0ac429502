package ports

// Notification kinds pushed to collaborators.
const (
	NotifyConnection = "connection"
	NotifyTeam       = "team"
	NotifyInventory  = "inventory"
	NotifyPosition   = "position"
	NotifyChat       = "chat"
	NotifyTallies    = "tallies"
	NotifyRunning    = "running"
	NotifyMount      = "mount"
	NotifyRocks      = "rocks"
	NotifyPlayers    = "players"
	NotifyLog        = "log"
)

type Notification struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type Notifier interface {
	Notify(n Notification)
}
