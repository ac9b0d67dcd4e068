package scale

import (
	"context"
	"io"
	"log"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Scale is the attached balance: a driver, the port it talks on and the
// channel its readings are published to.
type Scale struct {
	*Channel
	driver Driver
	port   io.ReadWriter
}

// New binds driver to port
func New(driver Driver, port io.ReadWriter) *Scale {
	return &Scale{
		Channel: NewChannel(port),
		driver:  driver,
		port:    port,
	}
}

// Driver returns the configured wire format
func (s *Scale) Driver() Driver {
	return s.driver
}

// ForceZero asks the balance to re-zero
func (s *Scale) ForceZero() error {
	return s.Send(CommandZero, 0)
}

// Send encodes cmd for this balance and writes it
func (s *Scale) Send(cmd Command, arg float64) error {
	b, err := s.driver.Encode(cmd, arg)
	if err != nil {
		return err
	}
	return s.SendCommand(b)
}

// Run reads the port and publishes every decoded frame until ctx is done or
// the port reaches EOF. Polled balances are polled from a second goroutine
// that stops before Run returns.
func (s *Scale) Run(ctx context.Context) error {
	log.Printf("Scale reader started (%s)\n", s.driver)
	defer log.Println("Scale reader stopped")

	if s.driver.PollInterval() > 0 {
		pollCtx, cancel := context.WithCancel(ctx)
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.pollLoop(pollCtx)
		}()
		defer wg.Wait()
		defer cancel()
	}

	decoder := s.driver.NewDecoder()
	buf := make([]byte, 64)
	for {
		if ctx.Err() != nil {
			return nil
		}

		// A serial port opened with a read timeout returns 0, nil when idle
		n, err := s.port.Read(buf)
		for _, b := range buf[:n] {
			if m, ok := decoder.Feed(b); ok {
				s.Publish(m)
			}
		}

		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "read scale")
		}
	}
}

func (s *Scale) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(s.driver.PollInterval())
	defer ticker.Stop()

	cmd := s.driver.PollCommand()
	for {
		select {
		case <-ticker.C:
			if err := s.SendCommand(cmd); err != nil {
				log.Printf("Scale poll failed: %v\n", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
