package governor

import (
	"math"
	"time"
)

// StabilityWindow is a fixed-size sliding window of scale readings used to
// decide whether the reading has settled.
type StabilityWindow struct {
	samples     []float64
	times       []time.Time
	next        int
	count       int
	minInterval time.Duration
	lastAt      time.Time
}

// NewStabilityWindow creates a window holding size samples. Samples arriving
// less than minInterval after the previously accepted one are ignored.
func NewStabilityWindow(size int, minInterval time.Duration) *StabilityWindow {
	return &StabilityWindow{
		samples:     make([]float64, size),
		times:       make([]time.Time, size),
		minInterval: minInterval,
	}
}

// Add records a sample taken at the given time and reports whether it was accepted
func (w *StabilityWindow) Add(value float64, at time.Time) bool {
	if w.count > 0 && at.Sub(w.lastAt) < w.minInterval {
		return false
	}

	w.samples[w.next] = value
	w.times[w.next] = at
	w.next = (w.next + 1) % len(w.samples)
	w.count = min(w.count+1, len(w.samples))
	w.lastAt = at
	return true
}

// Full reports whether the window holds size samples
func (w *StabilityWindow) Full() bool {
	return w.count == len(w.samples)
}

// Len returns the number of samples held
func (w *StabilityWindow) Len() int {
	return w.count
}

// Span is the time between the oldest and newest held samples
func (w *StabilityWindow) Span() time.Duration {
	if w.count < 2 {
		return 0
	}
	oldest := (w.next - w.count + len(w.samples)) % len(w.samples)
	return w.lastAt.Sub(w.times[oldest])
}

// Mean of the held samples. NaN when empty or when any sample is NaN.
func (w *StabilityWindow) Mean() float64 {
	if w.count == 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range w.held() {
		sum += v
	}
	return sum / float64(w.count)
}

// StdDev is the population standard deviation of the held samples
func (w *StabilityWindow) StdDev() float64 {
	mean := w.Mean()
	if math.IsNaN(mean) {
		return math.NaN()
	}
	var sq float64
	for _, v := range w.held() {
		sq += (v - mean) * (v - mean)
	}
	return math.Sqrt(sq / float64(w.count))
}

// Settled reports whether the window is full and its standard deviation is
// below sdMargin. NaN samples never settle.
func (w *StabilityWindow) Settled(sdMargin float64) bool {
	if !w.Full() {
		return false
	}
	sd := w.StdDev()
	return !math.IsNaN(sd) && sd < sdMargin
}

// Stable is Settled with the additional test |mean| < meanMargin
func (w *StabilityWindow) Stable(sdMargin, meanMargin float64) bool {
	return w.Settled(sdMargin) && math.Abs(w.Mean()) < meanMargin
}

// Reset empties the window
func (w *StabilityWindow) Reset() {
	w.next = 0
	w.count = 0
	w.lastAt = time.Time{}
}

func (w *StabilityWindow) held() []float64 {
	if w.count < len(w.samples) {
		return w.samples[:w.count]
	}
	return w.samples
}
