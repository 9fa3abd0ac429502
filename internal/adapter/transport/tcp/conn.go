package tcp

import (
	"bytes"
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"planetbot/internal/app/ports"
)

var ErrClosed = errors.New("connection closed")

const (
	DefaultReadTimeout = 10 * time.Second
	DefaultDialTimeout = 15 * time.Second

	readChunk  = 4096
	terminator = 0
)

// Dialer opens NUL framed connections.
type Dialer struct {
	ReadTimeout time.Duration
	DialTimeout time.Duration
	Log         *zap.SugaredLogger
}

func (d Dialer) Dial(ctx context.Context, addr string, h ports.FrameHandler) (ports.Conn, error) {
	timeout := d.DialTimeout
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}
	nd := net.Dialer{Timeout: timeout}
	nc, err := nd.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return Wrap(nc, h, d.ReadTimeout, d.Log), nil
}

// Conn owns one socket with a reader and a writer goroutine. Frames are
// delivered to the handler in arrival order from the reader goroutine.
type Conn struct {
	nc          net.Conn
	h           ports.FrameHandler
	readTimeout time.Duration
	log         *zap.SugaredLogger

	mu     sync.Mutex
	queue  [][]byte
	closed bool
	done   chan struct{}
	wake   chan struct{}
}

// Wrap starts the read and write loops over an established connection.
// A zero readTimeout means DefaultReadTimeout.
func Wrap(nc net.Conn, h ports.FrameHandler, readTimeout time.Duration, log *zap.SugaredLogger) *Conn {
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	c := &Conn{
		nc:          nc,
		h:           h,
		readTimeout: readTimeout,
		log:         log.With("remote", remoteAddr(nc)),
		done:        make(chan struct{}),
		wake:        make(chan struct{}, 1),
	}
	go c.readLoop()
	go c.writeLoop()
	return c
}

func remoteAddr(nc net.Conn) string {
	if a := nc.RemoteAddr(); a != nil {
		return a.String()
	}
	return ""
}

// Send queues frame for writing. The queue is unbounded.
func (c *Conn) Send(frame []byte) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.queue = append(c.queue, frame)
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
	return nil
}

// Close shuts the socket down. A second call returns ErrClosed. No lost event
// is reported for a local close.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.closed = true
	c.queue = nil
	close(c.done)
	c.mu.Unlock()
	return c.nc.Close()
}

func (c *Conn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// lost tears the connection down after a read or write failure and reports
// it once.
func (c *Conn) lost(err error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.queue = nil
	close(c.done)
	c.mu.Unlock()

	_ = c.nc.Close()
	c.log.Infow("connection lost", "error", err)
	if c.h.OnLost != nil {
		c.h.OnLost(err)
	}
}

func (c *Conn) readLoop() {
	buf := make([]byte, readChunk)
	var pending []byte
	for {
		if err := c.nc.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
			c.lost(err)
			return
		}
		n, err := c.nc.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			for {
				i := bytes.IndexByte(pending, terminator)
				if i < 0 {
					break
				}
				frame := string(pending[:i])
				pending = pending[i+1:]
				if frame == "" {
					continue
				}
				if c.isClosed() {
					return
				}
				if c.h.OnFrame != nil {
					c.h.OnFrame(frame)
				}
			}
			if len(pending) == 0 {
				pending = nil
			}
		}
		if err != nil {
			c.lost(err)
			return
		}
	}
}

func (c *Conn) drain() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	batch := c.queue
	c.queue = nil
	return batch
}

func (c *Conn) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case <-c.wake:
		}
		for batch := c.drain(); len(batch) > 0; batch = c.drain() {
			for _, frame := range batch {
				if _, err := c.nc.Write(frame); err != nil {
					c.lost(err)
					return
				}
			}
		}
	}
}
