package scale

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePort replays input then reports EOF, recording everything written
type fakePort struct {
	r io.Reader

	mu      sync.Mutex
	written bytes.Buffer
}

func (p *fakePort) Read(b []byte) (int, error) {
	return p.r.Read(b)
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.Write(b)
}

func (p *fakePort) Written() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.String()
}

func TestScale_RunPublishesFrames(t *testing.T) {
	port := &fakePort{r: bytes.NewBufferString("+0142.02 GN \r\n+0143.00 GN \r\n")}
	s := New(DriverCreedmoor, port)

	require.NoError(t, s.Run(context.Background()))

	m, ok := s.WaitForNext(context.Background(), time.Second)
	require.True(t, ok)
	assert.InDelta(t, 143.0, m.Value, 1e-9)
}

func TestScale_ForceZero(t *testing.T) {
	port := &fakePort{r: &bytes.Buffer{}}
	s := New(DriverAndFXi, port)

	require.NoError(t, s.ForceZero())
	assert.Equal(t, "Z\r\n", port.Written())
}

func TestScale_ForceZeroUnsupported(t *testing.T) {
	port := &fakePort{r: &bytes.Buffer{}}
	s := New(DriverUSSolid, port)

	assert.ErrorIs(t, s.ForceZero(), ErrUnsupportedCommand)
	assert.Empty(t, port.Written())
}

// idlePort never returns data, like a serial port with a read timeout
type idlePort struct {
	fakePort
}

func (p *idlePort) Read(b []byte) (int, error) {
	time.Sleep(5 * time.Millisecond)
	return 0, nil
}

func TestScale_PolledDriverSendsPollCommand(t *testing.T) {
	port := &idlePort{}
	s := New(DriverGnG, port)

	ctx, cancel := context.WithTimeout(context.Background(), 600*time.Millisecond)
	defer cancel()
	require.NoError(t, s.Run(ctx))

	assert.Contains(t, port.Written(), "!p\r\n!p\r\n")
}

// failingPort is idle until failAfter reads, then returns a read error
type failingPort struct {
	fakePort
	reads     int
	failAfter int
}

func (p *failingPort) Read(b []byte) (int, error) {
	time.Sleep(5 * time.Millisecond)
	p.reads++
	if p.reads > p.failAfter {
		return 0, errors.New("device disconnected")
	}
	return 0, nil
}

func TestScale_PollingStopsWithReader(t *testing.T) {
	port := &failingPort{failAfter: 60}
	s := New(DriverGnG, port)

	err := s.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "device disconnected")

	written := port.Written()
	assert.Contains(t, written, "!p\r\n", "Polled while the reader ran")

	time.Sleep(3 * DriverGnG.PollInterval())
	assert.Equal(t, written, port.Written(), "No polls after Run returned")
}
