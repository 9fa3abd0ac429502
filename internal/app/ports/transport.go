package ports

import "context"

// FrameHandler receives transport events. OnLost fires at most once per
// connection and never after a local Close.
type FrameHandler struct {
	OnFrame func(frame string)
	OnLost  func(err error)
}

type Conn interface {
	Send(frame []byte) error
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context, addr string, h FrameHandler) (Conn, error)
}
