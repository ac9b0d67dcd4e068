package stepper

import (
	"context"
	"log"
	"time"

	"github.com/ryansname/chargectl/src/governor"
)

// Sink is the pulse hardware for one motor
type Sink interface {
	SetPeriod(period uint32) error
	SetDirection(forward bool) error
}

// Enabler switches a motor driver's outputs on or off
type Enabler interface {
	SetEnabled(enabled bool) error
}

// PulseGenerator applies deltas to a Sink, sampling each ramp every Tick
type PulseGenerator struct {
	config Config
	sink   Sink
	clock  governor.Clock
}

// NewPulseGenerator creates a generator driving sink
func NewPulseGenerator(config Config, sink Sink, clock governor.Clock) *PulseGenerator {
	if config.Tick <= 0 {
		config.Tick = time.Millisecond
	}
	return &PulseGenerator{config: config, sink: sink, clock: clock}
}

// Run applies deltas in order until ctx is done, signalling applied after
// each one
func (g *PulseGenerator) Run(ctx context.Context, deltas <-chan MotionDelta, applied chan<- struct{}) {
	log.Printf("%s pulse generator started\n", g.config.Name)

	for {
		select {
		case d := <-deltas:
			if err := g.apply(ctx, d); err != nil {
				log.Printf("%s: dropping motion %+v: %v\n", g.config.Name, d, err)
			}
			select {
			case applied <- struct{}{}:
			case <-ctx.Done():
			}
		case <-ctx.Done():
			_ = g.sink.SetPeriod(0)
			log.Printf("%s pulse generator stopped\n", g.config.Name)
			return
		}
	}
}

// apply walks one ramp. The direction pin only changes before the ramp starts.
func (g *PulseGenerator) apply(ctx context.Context, d MotionDelta) error {
	ramp, err := governor.NewRamp(d.From, d.To, d.RampRate)
	if err != nil {
		return err
	}

	if d.Direction != DirectionUnchanged {
		forward := d.Direction == DirectionForward
		if g.config.Inverted {
			forward = !forward
		}
		if err := g.sink.SetDirection(forward); err != nil {
			return err
		}
	}

	duration := ramp.Duration()
	start := g.clock.Now()
	for {
		elapsed := g.clock.Now().Sub(start)
		if elapsed >= duration {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		period := governor.PulsePeriod(ramp.SpeedAt(elapsed), g.config.Pulse)
		if err := g.sink.SetPeriod(period); err != nil {
			return err
		}
		g.clock.Sleep(g.config.Tick)
	}

	return g.sink.SetPeriod(governor.PulsePeriod(d.To, g.config.Pulse))
}
