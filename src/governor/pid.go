package governor

import (
	"math"
	"time"
)

// Gains holds PID coefficients
type Gains struct {
	Kp float64
	Ki float64
	Kd float64
}

// PIDTerms is one evaluation of the error terms, shared between controllers
// that act on the same error with different gains.
type PIDTerms struct {
	Error      float64
	Integral   float64
	Derivative float64 // Per millisecond
}

// Output applies the gains to the terms
func (g Gains) Output(t PIDTerms) float64 {
	return g.Kp*t.Error + g.Ki*t.Integral + g.Kd*t.Derivative
}

// PIDState accumulates integral and derivative state across samples.
// The zero value is ready to use.
type PIDState struct {
	integral    float64
	lastError   float64
	lastSample  time.Time
	initialized bool
}

// Update folds a new error sample into the state and returns the terms.
// The derivative is 0 on the first sample and whenever no time has elapsed.
func (s *PIDState) Update(e float64, at time.Time) PIDTerms {
	s.integral += e

	var derivative float64
	if s.initialized {
		elapsedMs := float64(at.Sub(s.lastSample)) / float64(time.Millisecond)
		if elapsedMs > 0 {
			derivative = (e - s.lastError) / elapsedMs
		}
	}

	s.lastError = e
	s.lastSample = at
	s.initialized = true

	return PIDTerms{Error: e, Integral: s.integral, Derivative: derivative}
}

// Reset clears all accumulated state
func (s *PIDState) Reset() {
	*s = PIDState{}
}

// Clamp limits v to [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
