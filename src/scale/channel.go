package scale

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Channel holds the latest measurement and signals its arrival. There is one
// writer (the decoder) and any number of readers.
type Channel struct {
	mu     sync.RWMutex
	latest Measurement
	ready  chan struct{}

	writeMu sync.Mutex
	w       io.Writer
}

// NewChannel creates a channel whose commands are written to w
func NewChannel(w io.Writer) *Channel {
	return &Channel{
		latest: Invalid(),
		ready:  make(chan struct{}, 1),
		w:      w,
	}
}

// Publish stores m and raises the ready signal. Raising an already raised
// signal does nothing.
func (c *Channel) Publish(m Measurement) {
	c.mu.Lock()
	c.latest = m
	c.mu.Unlock()

	select {
	case c.ready <- struct{}{}:
	default:
	}
}

// WaitForNext blocks until a measurement is published, timeout elapses or
// ctx is done. A zero timeout waits indefinitely. ok is false when no
// measurement arrived.
func (c *Channel) WaitForNext(ctx context.Context, timeout time.Duration) (Measurement, bool) {
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case <-c.ready:
		return c.Current(), true
	case <-expired:
		return Measurement{}, false
	case <-ctx.Done():
		return Measurement{}, false
	}
}

// Current returns the latest measurement without waiting
func (c *Channel) Current() Measurement {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.latest
}

// SendCommand writes b to the balance. Writes are serialized against each other.
func (c *Channel) SendCommand(b []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if _, err := c.w.Write(b); err != nil {
		return errors.Wrap(err, "write scale command")
	}
	return nil
}
