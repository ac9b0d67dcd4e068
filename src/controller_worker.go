package main

import (
	"context"
	"log"

	"github.com/ryansname/chargectl/src/charge"
	"github.com/ryansname/chargectl/src/governor"
	"github.com/ryansname/chargectl/src/input"
	"github.com/ryansname/chargectl/src/scale"
)

// ControllerScale is the scale as seen by the controller
type ControllerScale interface {
	charge.Scale
	Send(cmd scale.Command, arg float64) error
}

// EventPusher queues an operator event as if it came from the encoder
type EventPusher interface {
	Push(e input.Event) bool
}

// ControllerConfig holds the controller's collaborators
type ControllerConfig struct {
	Charge  charge.Config
	Profile charge.Profile
	Scale   ControllerScale
	Motors  charge.Motors
	Status  charge.StatusIndicator
	Events  charge.EventSource
	Inputs  EventPusher
	Clock   governor.Clock

	ListPorts func() ([]string, error)
}

// controller runs at most one mode (charge or cleanup) at a time
type controller struct {
	config ControllerConfig

	cancelMode context.CancelFunc
	modeDone   chan struct{}
}

func newController(config ControllerConfig) *controller {
	return &controller{config: config}
}

// busy reports whether a mode is running
func (c *controller) busy() bool {
	return c.modeDone != nil
}

// start launches run as the current mode. Events queued while idle are stale
// and discarded first.
func (c *controller) start(ctx context.Context, name string, run func(ctx context.Context) error) {
	for c.config.Events.Poll() != charge.EventNone {
		// Drain
	}

	modeCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.cancelMode = cancel
	c.modeDone = done

	go func() {
		defer close(done)
		if err := run(modeCtx); err != nil {
			log.Printf("%s mode failed: %v\n", name, err)
		}
	}()
}

// finished clears the mode after its goroutine exits
func (c *controller) finished() {
	c.cancelMode()
	c.cancelMode = nil
	c.modeDone = nil
}

// stop cancels the running mode and waits for it to exit
func (c *controller) stop() {
	if !c.busy() {
		return
	}
	c.cancelMode()
	<-c.modeDone
	c.finished()
}

// handle runs one command
func (c *controller) handle(ctx context.Context, cmd Command) {
	switch cmd.Kind {
	case CommandCharge:
		if c.busy() {
			log.Println("Busy, cancel the running mode first")
			return
		}
		machine := charge.NewMachine(
			c.config.Charge, c.config.Profile,
			c.config.Scale, c.config.Motors, c.config.Status, c.config.Events, c.config.Clock,
		)
		target := cmd.Target
		c.start(ctx, "Charge", func(ctx context.Context) error {
			session, err := machine.Run(ctx, target)
			log.Printf("Charge mode finished (last flags %08b)\n", session.Flags)
			return err
		})

	case CommandCleanup:
		if c.busy() {
			log.Println("Busy, cancel the running mode first")
			return
		}
		cleanup := charge.NewCleanup(c.config.Motors, c.config.Status, c.config.Events, c.config.Clock)
		c.start(ctx, "Cleanup", cleanup.Run)

	case CommandEvent:
		c.config.Inputs.Push(cmd.Event)

	case CommandZero:
		if err := c.config.Scale.ForceZero(); err != nil {
			log.Printf("Zero failed: %v\n", err)
		}

	case CommandSend:
		if err := c.config.Scale.Send(cmd.Scale, cmd.Arg); err != nil {
			log.Printf("Send %s failed: %v\n", cmd.Scale, err)
		}

	case CommandWeight:
		m := c.config.Scale.Current()
		if !m.Valid {
			log.Println("Weight: invalid")
			return
		}
		log.Printf("Weight: %s\n", c.config.Charge.FormatWeight(m.Value))

	case CommandPorts:
		ports, err := c.config.ListPorts()
		if err != nil {
			log.Printf("Failed to list ports: %v\n", err)
			return
		}
		log.Printf("Serial ports (%d):\n", len(ports))
		for _, p := range ports {
			log.Printf("  %s\n", p)
		}

	case CommandHelp:
		log.Println("Commands:")
		for _, line := range helpText {
			log.Printf("  %s\n", line)
		}
	}
}

// controllerWorker runs commands from the console and the command topic
func controllerWorker(ctx context.Context, commandChan <-chan Command, config ControllerConfig) {
	log.Println("Controller worker started")

	c := newController(config)
	defer c.stop()

	for {
		select {
		case cmd := <-commandChan:
			c.handle(ctx, cmd)

		case <-c.modeDone:
			c.finished()

		case <-ctx.Done():
			log.Println("Controller worker stopped")
			return
		}
	}
}
