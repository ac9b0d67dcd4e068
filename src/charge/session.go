// Package charge runs a charge session: wait for the empty pan to settle,
// trickle to the target weight, then wait for the cup to be lifted and returned.
package charge

import (
	"context"
	"time"

	"github.com/ryansname/chargectl/src/scale"
	"github.com/ryansname/chargectl/src/stepper"
)

// Phase of a charge session
type Phase int

const (
	PhaseWaitForZero Phase = iota
	PhaseWaitForComplete
	PhaseWaitForCupRemoval
	PhaseWaitForCupReturn
	PhaseExit
)

func (p Phase) String() string {
	switch p {
	case PhaseWaitForZero:
		return "wait_for_zero"
	case PhaseWaitForComplete:
		return "wait_for_complete"
	case PhaseWaitForCupRemoval:
		return "wait_for_cup_removal"
	case PhaseWaitForCupReturn:
		return "wait_for_cup_return"
	default:
		return "exit"
	}
}

// EventFlags records how the last charge finished
type EventFlags uint8

const (
	FlagUnderCharge EventFlags = 1 << iota
	FlagOverCharge
)

// Session is one charge-mode invocation
type Session struct {
	Target float64
	Phase  Phase
	Flags  EventFlags
}

// Status is what the indicator shows
type Status int

const (
	StatusIdle Status = iota
	StatusNotReady
	StatusCharging
	StatusNormal
	StatusUnderCharge
	StatusOverCharge
	StatusCleanup
)

func (s Status) String() string {
	switch s {
	case StatusNotReady:
		return "not_ready"
	case StatusCharging:
		return "charging"
	case StatusNormal:
		return "normal"
	case StatusUnderCharge:
		return "under_charge"
	case StatusOverCharge:
		return "over_charge"
	case StatusCleanup:
		return "cleanup"
	default:
		return "idle"
	}
}

// Event is a user input relevant to the running mode
type Event int

const (
	EventNone Event = iota
	EventCancel
	EventConfirm
	EventIncrease
	EventDecrease
)

// EventSource is polled without blocking at each loop iteration
type EventSource interface {
	Poll() Event
}

// StatusIndicator shows the session state to the operator
type StatusIndicator interface {
	SetStatus(s Status)
}

// Scale is the measurement source
type Scale interface {
	WaitForNext(ctx context.Context, timeout time.Duration) (scale.Measurement, bool)
	Current() scale.Measurement
	ForceZero() error
}

// Motors drives the coarse and fine tricklers
type Motors interface {
	SetSpeed(ctx context.Context, s stepper.Select, speed float64) error
	Limits(s stepper.Select) (minSpeed, maxSpeed float64)
	Stop(ctx context.Context) error
	SetEnabled(enabled bool) error
}

// ChanEvents adapts a channel of events to an EventSource
type ChanEvents <-chan Event

// Poll returns the next queued event or EventNone
func (c ChanEvents) Poll() Event {
	select {
	case e := <-c:
		return e
	default:
		return EventNone
	}
}
