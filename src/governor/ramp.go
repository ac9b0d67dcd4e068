// Package governor provides the control algorithms used to drive the tricklers:
// speed ramps, stability detection and PID terms.
package governor

import (
	"math"
	"time"

	"github.com/pkg/errors"
)

// ErrInvalidRampRate is returned for a ramp rate that is not strictly positive
var ErrInvalidRampRate = errors.New("ramp rate must be greater than zero")

// idleSpeed is the speed (rev/s) below which a motor emits no pulses
const idleSpeed = 1e-3

// Ramp is a linear speed trajectory from From to To at Rate (rev/s per second).
type Ramp struct {
	From float64
	To   float64
	Rate float64
}

// NewRamp validates the rate and returns the ramp between two speeds
func NewRamp(from, to, rate float64) (Ramp, error) {
	if !(rate > 0) {
		return Ramp{}, errors.Wrapf(ErrInvalidRampRate, "rate %v", rate)
	}
	return Ramp{From: from, To: to, Rate: rate}, nil
}

// Duration is |To - From| / Rate
func (r Ramp) Duration() time.Duration {
	seconds := math.Abs(r.To-r.From) / r.Rate
	return time.Duration(seconds * float64(time.Second))
}

// SpeedAt interpolates the speed t after the ramp started.
// Values outside the ramp window are clamped to the end points.
func (r Ramp) SpeedAt(t time.Duration) float64 {
	d := r.Duration()
	if t <= 0 || d <= 0 {
		if d <= 0 {
			return r.To
		}
		return r.From
	}
	if t >= d {
		return r.To
	}
	return r.From + (r.To-r.From)*(float64(t)/float64(d))
}

// PulseConfig describes how a speed maps onto pulse generator periods
type PulseConfig struct {
	ClockHz         float64 // Pulse generator input clock
	FullStepsPerRev float64 // e.g. 200 for a 1.8° motor
	Microsteps      float64
	Overhead        uint32 // Fixed per-pulse cycles subtracted from every period
}

// PulsePeriod converts a speed in rev/s into a pulse period in clock cycles.
// A period of 0 means the motor is idle.
func PulsePeriod(speed float64, config PulseConfig) uint32 {
	speed = math.Abs(speed)
	if speed < idleSpeed || config.FullStepsPerRev <= 0 || config.Microsteps <= 0 {
		return 0
	}

	period := config.ClockHz / (config.FullStepsPerRev * config.Microsteps * speed)
	if period >= math.MaxUint32 {
		period = math.MaxUint32
	}

	cycles := uint32(period)
	if cycles <= config.Overhead {
		return 0
	}
	return cycles - config.Overhead
}
