// Package stepper turns speed requests for the trickler motors into ordered
// ramps and pulse periods.
package stepper

import (
	"math"
	"time"

	"github.com/ryansname/chargectl/src/governor"
)

// Direction of rotation carried by a MotionDelta
type Direction int

const (
	DirectionUnchanged Direction = iota
	DirectionForward
	DirectionBackward
)

func (d Direction) String() string {
	switch d {
	case DirectionForward:
		return "forward"
	case DirectionBackward:
		return "backward"
	default:
		return "unchanged"
	}
}

// MotionRequest asks a motor to reach Speed (rev/s, sign is direction)
type MotionRequest struct {
	Speed    float64
	RampRate float64 // rev/s per second
}

// MotionDelta is one ramp applied by the pulse generator. Speeds are magnitudes.
type MotionDelta struct {
	From      float64
	To        float64
	RampRate  float64
	Direction Direction
}

// Config describes one trickler motor and its driver
type Config struct {
	Name         string
	Pulse        governor.PulseConfig
	MinSpeed     float64 // Driver limits in rev/s
	MaxSpeed     float64
	RampRate     float64 // Used for speed updates from the control loop
	StopRampRate float64
	Inverted     bool          // Swap the sense of the direction pin
	Tick         time.Duration // Ramp interpolation interval
}

// Expand converts a request into the deltas needed to reach it from the
// committed speed and direction. A reversal ramps down to zero before
// ramping up in the new direction. It also returns the direction committed
// once the deltas are applied.
func Expand(speed float64, dir Direction, req MotionRequest, maxSpeed float64) ([]MotionDelta, Direction) {
	newDir := dir
	switch {
	case req.Speed > 0:
		newDir = DirectionForward
	case req.Speed < 0:
		newDir = DirectionBackward
	}

	target := math.Abs(req.Speed)
	if maxSpeed > 0 {
		target = min(target, maxSpeed)
	}

	if newDir != dir {
		return []MotionDelta{
			{From: speed, To: 0, RampRate: req.RampRate, Direction: DirectionUnchanged},
			{From: 0, To: target, RampRate: req.RampRate, Direction: newDir},
		}, newDir
	}

	return []MotionDelta{
		{From: speed, To: target, RampRate: req.RampRate, Direction: DirectionUnchanged},
	}, newDir
}
