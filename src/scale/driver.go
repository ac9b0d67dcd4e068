package scale

import (
	"math"
	"slices"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ErrUnknownDriver is returned by ParseDriver for a name outside the supported set
var ErrUnknownDriver = errors.New("unknown scale driver")

// Driver selects the wire format of the attached balance
type Driver int

const (
	DriverAndFXi Driver = iota
	DriverSteinberg
	DriverGnG
	DriverUSSolid
	DriverJMScience
	DriverCreedmoor
	DriverRadwag
)

// frameFormat is everything that distinguishes one vendor's protocol
type frameFormat struct {
	name     string
	size     int
	sentinel byte // Header byte that restarts the frame, 0 if none
	decode   func(frame []byte) (Measurement, bool)
	commands map[Command]func(arg float64) string

	pollInterval time.Duration
}

var formats = map[Driver]*frameFormat{
	// A&D FX-i: "ST,+00012.34  g\r\n"
	DriverAndFXi: {
		name: "and-fx-i",
		size: 17,
		decode: func(f []byte) (Measurement, bool) {
			return parseField(f[3:12], 1), true
		},
		commands: fixedCommands(map[Command]string{
			CommandZero:       "Z",
			CommandPrint:      "PRT",
			CommandSample:     "SMP",
			CommandMode:       "U",
			CommandCalibrate:  "CAL",
			CommandPower:      "P",
			CommandDisplayOff: "OFF",
			CommandDisplayOn:  "ON",
		}),
	},

	// Steinberg SBS: "SD   -12.345g \r\n"
	DriverSteinberg: {
		name: "steinberg",
		size: 16,
		decode: func(f []byte) (Measurement, bool) {
			return parseField(f[2:12], 1), true
		},
		commands: fixedCommands(map[Command]string{
			CommandZero: "T",
			CommandTare: "T",
		}),
	},

	// G&G JJ-B: "+   12.34GN \r\n", only transmits when polled
	DriverGnG: {
		name: "gng",
		size: 14,
		decode: func(f []byte) (Measurement, bool) {
			return parseField(f[2:9], signOf(f[0])), true
		},
		commands: fixedCommands(map[Command]string{
			CommandPrint:     "!p",
			CommandZero:      "!t",
			CommandTare:      "!t",
			CommandSample:    "!s",
			CommandCalibrate: "!q",
			CommandDisplayOn: "!u",
		}),
		pollInterval: 250 * time.Millisecond,
	},

	// US Solid: "+    20.758gn \r\n"
	DriverUSSolid: {
		name: "ussolid",
		size: 16,
		decode: func(f []byte) (Measurement, bool) {
			return parseField(f[2:11], signOf(f[0])), true
		},
		commands: map[Command]func(float64) string{},
	},

	// JM Science FA: "E S+   12.345 gn \r\n"
	DriverJMScience: {
		name:     "jm-science",
		size:     19,
		sentinel: 'E',
		decode: func(f []byte) (Measurement, bool) {
			return parseField(f[4:13], signOf(f[3])), true
		},
		commands: fixedCommands(map[Command]string{
			CommandZero: "T",
			CommandTare: "T",
		}),
	},

	// Creedmoor TRX-925: "+0142.02 GN \r\n"
	DriverCreedmoor: {
		name: "creedmoor",
		size: 14,
		decode: func(f []byte) (Measurement, bool) {
			return parseField(f[1:8], signOf(f[0])), true
		},
		commands: fixedCommands(map[Command]string{
			CommandZero: "T",
			CommandTare: "T",
		}),
	},

	// Radwag PS R2: "SUI        1.56 gr \r\n", '?' in the stability slot when unstable
	DriverRadwag: {
		name: "radwag",
		size: 21,
		decode: func(f []byte) (Measurement, bool) {
			if string(f[0:3]) != "SUI" {
				return Measurement{}, false
			}
			return parseField(f[4:16], 1), true
		},
		commands: mergeCommands(
			fixedCommands(map[Command]string{
				CommandZero:          "T",
				CommandTare:          "T",
				CommandContinuousOn:  "CU1",
				CommandContinuousOff: "CU0",
				CommandLockKeys:      "K1",
				CommandUnlockKeys:    "K0",
			}),
			map[Command]func(float64) string{
				CommandSetTare: func(v float64) string { return "UT " + formatFixed(v, 3) },
				CommandBeep:    func(ms float64) string { return "BP " + formatFixed(ms, 0) },
			},
		),
	},
}

// ParseDriver looks up a driver by its configuration name
func ParseDriver(name string) (Driver, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for d, f := range formats {
		if f.name == name {
			return d, nil
		}
	}
	return 0, errors.Wrapf(ErrUnknownDriver, "%q (valid: %s)", name, strings.Join(DriverNames(), ", "))
}

// DriverNames lists the configuration names of all drivers, sorted
func DriverNames() []string {
	names := make([]string, 0, len(formats))
	for _, f := range formats {
		names = append(names, f.name)
	}
	slices.Sort(names)
	return names
}

func (d Driver) String() string {
	if f, ok := formats[d]; ok {
		return f.name
	}
	return "unknown"
}

// FrameSize is the fixed length of one frame on the wire
func (d Driver) FrameSize() int {
	return formats[d].size
}

// PollInterval is how often the balance must be asked for a reading.
// Zero for balances that stream continuously.
func (d Driver) PollInterval() time.Duration {
	return formats[d].pollInterval
}

// PollCommand is the request sent each PollInterval, nil when not polled
func (d Driver) PollCommand() []byte {
	if d.PollInterval() == 0 {
		return nil
	}
	b, _ := d.Encode(CommandPrint, 0)
	return b
}

// NewDecoder returns a byte-at-a-time decoder for this driver's frames
func (d Driver) NewDecoder() *Decoder {
	f := formats[d]
	return &Decoder{format: f, buf: make([]byte, f.size)}
}

func signOf(b byte) float64 {
	if b == '-' {
		return -1
	}
	return 1
}

// parseField parses a weight field. With an explicit sign the field is
// treated as a magnitude.
func parseField(field []byte, sign float64) Measurement {
	v, ok := parseLeadingFloat(field)
	if !ok {
		return Invalid()
	}
	if sign < 0 {
		return Weight(-math.Abs(v))
	}
	return Weight(v)
}
