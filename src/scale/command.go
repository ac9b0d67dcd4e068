package scale

import (
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrUnsupportedCommand is returned when a balance has no equivalent for a command
var ErrUnsupportedCommand = errors.New("command not supported by scale")

// Command is a vendor-neutral request sent to the balance
type Command int

const (
	CommandZero Command = iota
	CommandTare
	CommandPrint
	CommandSample
	CommandMode
	CommandCalibrate
	CommandPower
	CommandDisplayOn
	CommandDisplayOff
	CommandContinuousOn
	CommandContinuousOff
	CommandSetTare
	CommandLockKeys
	CommandUnlockKeys
	CommandBeep
)

var commandNames = map[Command]string{
	CommandZero:          "zero",
	CommandTare:          "tare",
	CommandPrint:         "print",
	CommandSample:        "sample",
	CommandMode:          "mode",
	CommandCalibrate:     "calibrate",
	CommandPower:         "power",
	CommandDisplayOn:     "display-on",
	CommandDisplayOff:    "display-off",
	CommandContinuousOn:  "continuous-on",
	CommandContinuousOff: "continuous-off",
	CommandSetTare:       "set-tare",
	CommandLockKeys:      "lock",
	CommandUnlockKeys:    "unlock",
	CommandBeep:          "beep",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return "unknown"
}

// CommandNames returns every command name, sorted
func CommandNames() []string {
	names := make([]string, 0, len(commandNames))
	for _, name := range commandNames {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ParseCommand looks up a command by name
func ParseCommand(name string) (Command, bool) {
	for c, n := range commandNames {
		if n == name {
			return c, true
		}
	}
	return 0, false
}

// Encode renders cmd as CR-LF terminated bytes for this driver. arg is used
// by CommandSetTare (weight) and CommandBeep (milliseconds).
func (d Driver) Encode(cmd Command, arg float64) ([]byte, error) {
	render, ok := formats[d].commands[cmd]
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedCommand, "%s on %s", cmd, d)
	}
	return []byte(render(arg) + "\r\n"), nil
}

// Supports reports whether the driver can encode cmd
func (d Driver) Supports(cmd Command) bool {
	_, ok := formats[d].commands[cmd]
	return ok
}

func fixedCommands(m map[Command]string) map[Command]func(float64) string {
	out := make(map[Command]func(float64) string, len(m))
	for c, s := range m {
		out[c] = func(float64) string { return s }
	}
	return out
}

func mergeCommands(maps ...map[Command]func(float64) string) map[Command]func(float64) string {
	out := make(map[Command]func(float64) string)
	for _, m := range maps {
		for c, f := range m {
			out[c] = f
		}
	}
	return out
}

func formatFixed(v float64, places int) string {
	return strings.TrimSpace(strconv.FormatFloat(v, 'f', places, 64))
}
