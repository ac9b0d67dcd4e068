package stepper

import (
	"context"

	"github.com/ryansname/chargectl/src/governor"
)

// Select picks one of the two tricklers
type Select int

const (
	Coarse Select = iota
	Fine
)

func (s Select) String() string {
	if s == Fine {
		return "fine"
	}
	return "coarse"
}

// Motor ties a sequencer and pulse generator to one driver
type Motor struct {
	*Sequencer
	config    Config
	generator *PulseGenerator
	enabler   Enabler
}

// NewMotor creates a motor. RunSequencer and RunPulses must both be started.
func NewMotor(config Config, sink Sink, enabler Enabler, clock governor.Clock) *Motor {
	return &Motor{
		Sequencer: NewSequencer(config),
		config:    config,
		generator: NewPulseGenerator(config, sink, clock),
		enabler:   enabler,
	}
}

// Config returns the motor's configuration
func (m *Motor) Config() Config {
	return m.config
}

// RunSequencer runs the request side until ctx is done
func (m *Motor) RunSequencer(ctx context.Context) {
	m.Sequencer.Run(ctx)
}

// RunPulses runs the pulse side until ctx is done
func (m *Motor) RunPulses(ctx context.Context) {
	m.generator.Run(ctx, m.Deltas(), m.Applied())
}

// SetSpeed ramps to speed at the configured rate
func (m *Motor) SetSpeed(ctx context.Context, speed float64) error {
	return m.Submit(ctx, MotionRequest{Speed: speed, RampRate: m.config.RampRate})
}

// Stop ramps to zero at the stop rate once the ramp in flight finishes,
// replacing any pending speed update. It returns when the motor is stationary.
func (m *Motor) Stop(ctx context.Context) error {
	done, err := m.halt()
	if err != nil {
		return err
	}
	return waitStopped(ctx, done)
}

func (m *Motor) halt() (<-chan struct{}, error) {
	return m.Preempt(MotionRequest{Speed: 0, RampRate: m.config.StopRampRate})
}

func waitStopped(ctx context.Context, done <-chan struct{}) error {
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetEnabled switches the driver outputs
func (m *Motor) SetEnabled(enabled bool) error {
	return m.enabler.SetEnabled(enabled)
}

// Pair is the coarse and fine trickler
type Pair struct {
	Coarse *Motor
	Fine   *Motor
}

// Motor returns the selected motor
func (p Pair) Motor(s Select) *Motor {
	if s == Fine {
		return p.Fine
	}
	return p.Coarse
}

// SetSpeed ramps the selected motor to speed
func (p Pair) SetSpeed(ctx context.Context, s Select, speed float64) error {
	return p.Motor(s).SetSpeed(ctx, speed)
}

// Limits returns the driver speed limits of the selected motor
func (p Pair) Limits(s Select) (minSpeed, maxSpeed float64) {
	c := p.Motor(s).Config()
	return c.MinSpeed, c.MaxSpeed
}

// Stop ramps both motors to zero together and waits for both
func (p Pair) Stop(ctx context.Context) error {
	coarse, err := p.Coarse.halt()
	if err != nil {
		return err
	}
	fine, err := p.Fine.halt()
	if err != nil {
		return err
	}
	if err := waitStopped(ctx, coarse); err != nil {
		return err
	}
	return waitStopped(ctx, fine)
}

// SetEnabled switches both drivers
func (p Pair) SetEnabled(enabled bool) error {
	if err := p.Coarse.SetEnabled(enabled); err != nil {
		return err
	}
	return p.Fine.SetEnabled(enabled)
}
