package charge

import (
	"context"
	"log"
	"time"

	"github.com/pkg/errors"
	"github.com/ryansname/chargectl/src/governor"
	"github.com/ryansname/chargectl/src/stepper"
)

// Cleanup runs both tricklers at an operator-controlled speed so the powder
// can be emptied out. Increase and decrease step the speed, confirm stops,
// cancel leaves.
type Cleanup struct {
	motors Motors
	status StatusIndicator
	events EventSource
	clock  governor.Clock

	Step         float64       // Speed change per event, rev/s
	PollInterval time.Duration // Event poll spacing while idle
}

// NewCleanup creates a cleanup mode with a 1 rev/s step
func NewCleanup(motors Motors, status StatusIndicator, events EventSource, clock governor.Clock) *Cleanup {
	return &Cleanup{
		motors:       motors,
		status:       status,
		events:       events,
		clock:        clock,
		Step:         1,
		PollInterval: 20 * time.Millisecond,
	}
}

// Run blocks until cancelled. The motors are stopped and disabled on return.
func (c *Cleanup) Run(ctx context.Context) error {
	log.Println("Cleanup mode started")
	c.status.SetStatus(StatusCleanup)
	if err := c.motors.SetEnabled(true); err != nil {
		return errors.Wrap(err, "enable motors")
	}

	defer func() {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), exitTimeout)
		defer cancel()
		if err := c.motors.Stop(stopCtx); err != nil {
			log.Printf("Failed to stop motors: %v\n", err)
		}
		if err := c.motors.SetEnabled(false); err != nil {
			log.Printf("Failed to disable motors: %v\n", err)
		}
		c.status.SetStatus(StatusIdle)
		log.Println("Cleanup mode stopped")
	}()

	speed := 0.0
	for {
		if ctx.Err() != nil {
			return nil
		}

		switch c.events.Poll() {
		case EventIncrease:
			speed += c.Step
		case EventDecrease:
			speed -= c.Step
		case EventConfirm:
			speed = 0
		case EventCancel:
			return nil
		default:
			c.clock.Sleep(c.PollInterval)
			continue
		}

		log.Printf("Cleanup speed %.1f rev/s\n", speed)
		for _, s := range []stepper.Select{stepper.Coarse, stepper.Fine} {
			if err := c.motors.SetSpeed(ctx, s, speed); err != nil {
				return errors.Wrapf(err, "set %s speed", s)
			}
		}
	}
}
