// Package scale decodes weight frames from serial balances and exposes the
// latest reading to the control loop.
package scale

import (
	"math"
	"strconv"
)

// Measurement is one decoded weight reading
type Measurement struct {
	Value float64
	Valid bool
}

// Invalid is the measurement produced for a frame whose weight field could not be parsed
func Invalid() Measurement {
	return Measurement{Value: math.NaN()}
}

// Weight returns a valid measurement of v
func Weight(v float64) Measurement {
	return Measurement{Value: v, Valid: true}
}

// parseLeadingFloat parses the numeric prefix of field the way strtof does:
// leading blanks are skipped, an optional sign, digits with at most one
// decimal point. ok is false when no digits were consumed.
func parseLeadingFloat(field []byte) (float64, bool) {
	i := 0
	for i < len(field) && (field[i] == ' ' || field[i] == '\t') {
		i++
	}
	start := i
	if i < len(field) && (field[i] == '+' || field[i] == '-') {
		i++
	}

	digits := 0
	seenPoint := false
	for ; i < len(field); i++ {
		c := field[i]
		if c >= '0' && c <= '9' {
			digits++
			continue
		}
		if c == '.' && !seenPoint {
			seenPoint = true
			continue
		}
		break
	}
	if digits == 0 {
		return 0, false
	}

	value, err := strconv.ParseFloat(string(field[start:i]), 64)
	if err != nil {
		return 0, false
	}
	return value, true
}
