package scale

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannel_WaitReturnsPublished(t *testing.T) {
	c := NewChannel(&bytes.Buffer{})
	c.Publish(Weight(1.25))

	m, ok := c.WaitForNext(context.Background(), time.Second)
	require.True(t, ok)
	assert.Equal(t, Weight(1.25), m)
}

func TestChannel_WaitTimesOut(t *testing.T) {
	c := NewChannel(&bytes.Buffer{})
	c.Publish(Weight(2))
	_, _ = c.WaitForNext(context.Background(), time.Second)

	start := time.Now()
	_, ok := c.WaitForNext(context.Background(), 20*time.Millisecond)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	// Timing out leaves the stored value alone
	assert.Equal(t, Weight(2), c.Current())
}

func TestChannel_SignalDoesNotAccumulate(t *testing.T) {
	c := NewChannel(&bytes.Buffer{})
	c.Publish(Weight(1))
	c.Publish(Weight(2))
	c.Publish(Weight(3))

	m, ok := c.WaitForNext(context.Background(), time.Second)
	require.True(t, ok)
	assert.Equal(t, 3.0, m.Value, "Waiter sees the latest value")

	_, ok = c.WaitForNext(context.Background(), 10*time.Millisecond)
	assert.False(t, ok, "Three publishes raise the signal once")
}

func TestChannel_IndefiniteWaitHonoursContext(t *testing.T) {
	c := NewChannel(&bytes.Buffer{})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, ok := c.WaitForNext(ctx, 0)
	assert.False(t, ok)
}

func TestChannel_IndefiniteWaitWakesOnPublish(t *testing.T) {
	c := NewChannel(&bytes.Buffer{})

	go func() {
		time.Sleep(10 * time.Millisecond)
		c.Publish(Weight(4))
	}()

	m, ok := c.WaitForNext(context.Background(), 0)
	require.True(t, ok)
	assert.Equal(t, 4.0, m.Value)
}

func TestChannel_CurrentStartsInvalid(t *testing.T) {
	c := NewChannel(&bytes.Buffer{})
	assert.False(t, c.Current().Valid)
}

// lockedWriter records each Write call as one entry
type lockedWriter struct {
	mu     sync.Mutex
	writes []string
}

func (w *lockedWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writes = append(w.writes, string(p))
	return len(p), nil
}

func TestChannel_SendCommandSerializes(t *testing.T) {
	w := &lockedWriter{}
	c := NewChannel(w)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, c.SendCommand([]byte("Z\r\n")))
		}()
	}
	wg.Wait()

	require.Len(t, w.writes, 20)
	for _, s := range w.writes {
		assert.Equal(t, "Z\r\n", s)
	}
}
