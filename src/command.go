package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ryansname/chargectl/src/input"
	"github.com/ryansname/chargectl/src/scale"
)

// CommandKind selects what a console or remote command does
type CommandKind int

const (
	CommandCharge CommandKind = iota
	CommandCleanup
	CommandEvent
	CommandZero
	CommandSend
	CommandWeight
	CommandPorts
	CommandHelp
)

// Command is one parsed console or remote command line
type Command struct {
	Kind   CommandKind
	Target float64       // CommandCharge
	Event  input.Event   // CommandEvent
	Scale  scale.Command // CommandSend
	Arg    float64       // CommandSend
}

// helpText lists the command grammar, shared by the console and the command topic
var helpText = []string{
	"charge <weight>        - Charge to weight repeatedly until cancelled",
	"cleanup                - Run both tricklers, cw/ccw adjust speed, press stops",
	"cancel | rst           - Cancel the running mode",
	"confirm | press        - Confirm (press the encoder)",
	"cw | ccw               - Rotate the encoder one detent",
	"zero                   - Zero the scale",
	"send <command> [arg]   - Send a scale command (" + strings.Join(scale.CommandNames(), ", ") + ")",
	"weight                 - Show the current weight",
	"ports                  - List serial ports",
	"help                   - Show this help",
}

// ParseCommand parses one line of the command grammar
func ParseCommand(line string) (Command, error) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return Command{}, fmt.Errorf("empty command")
	}

	name := strings.ToLower(parts[0])
	args := parts[1:]

	switch name {
	case "charge":
		if len(args) != 1 {
			return Command{}, fmt.Errorf("usage: charge <weight>")
		}
		target, err := strconv.ParseFloat(args[0], 64)
		if err != nil || !(target > 0) {
			return Command{}, fmt.Errorf("charge weight must be a positive number, got %q", args[0])
		}
		return Command{Kind: CommandCharge, Target: target}, nil

	case "cleanup":
		return Command{Kind: CommandCleanup}, nil

	case "zero":
		return Command{Kind: CommandZero}, nil

	case "send":
		if len(args) == 0 || len(args) > 2 {
			return Command{}, fmt.Errorf("usage: send <command> [arg]")
		}
		cmd, ok := scale.ParseCommand(strings.ToLower(args[0]))
		if !ok {
			return Command{}, fmt.Errorf("unknown scale command %q", args[0])
		}
		c := Command{Kind: CommandSend, Scale: cmd}
		if len(args) == 2 {
			arg, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return Command{}, fmt.Errorf("invalid argument %q: %w", args[1], err)
			}
			c.Arg = arg
		}
		return c, nil

	case "weight":
		return Command{Kind: CommandWeight}, nil

	case "ports":
		return Command{Kind: CommandPorts}, nil

	case "help":
		return Command{Kind: CommandHelp}, nil
	}

	if e, ok := input.ParseEvent(name); ok {
		return Command{Kind: CommandEvent, Event: e}, nil
	}

	return Command{}, fmt.Errorf("unknown command: %s (try 'help')", parts[0])
}
