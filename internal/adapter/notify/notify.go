package notify

import (
	"go.uber.org/zap"

	"planetbot/internal/app/ports"
)

// Fanout forwards every notification to each target in order.
type Fanout []ports.Notifier

func (f Fanout) Notify(n ports.Notification) {
	for _, t := range f {
		if t != nil {
			t.Notify(n)
		}
	}
}

// Log writes notifications to the logger at debug level. Log lines already
// carry their own severity and are skipped.
type Log struct {
	L *zap.SugaredLogger
}

func (l Log) Notify(n ports.Notification) {
	if l.L == nil || n.Type == ports.NotifyLog {
		return
	}
	l.L.Debugw("notify", "type", n.Type, "payload", n.Payload)
}

// Recorder keeps every notification; used by tests and the status view.
type Recorder struct {
	ch chan ports.Notification
}

func NewRecorder(buffer int) *Recorder {
	return &Recorder{ch: make(chan ports.Notification, buffer)}
}

// Notify drops the notification when the buffer is full.
func (r *Recorder) Notify(n ports.Notification) {
	select {
	case r.ch <- n:
	default:
	}
}

func (r *Recorder) C() <-chan ports.Notification {
	return r.ch
}
