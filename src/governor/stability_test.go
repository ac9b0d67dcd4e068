package governor

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fillWindow(w *StabilityWindow, start time.Time, spacing time.Duration, values ...float64) {
	for i, v := range values {
		w.Add(v, start.Add(time.Duration(i)*spacing))
	}
}

func TestStabilityWindow_StableZero(t *testing.T) {
	w := NewStabilityWindow(10, 300*time.Millisecond)
	start := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	// Alternating ±0.01 gives mean 0 and sd 0.01
	fillWindow(w, start, 300*time.Millisecond,
		0.01, -0.01, 0.01, -0.01, 0.01, -0.01, 0.01, -0.01, 0.01, -0.01)

	assert.True(t, w.Full())
	assert.InDelta(t, 0.0, w.Mean(), 1e-9)
	assert.InDelta(t, 0.01, w.StdDev(), 1e-9)
	assert.True(t, w.Stable(0.02, 0.02))
	assert.Equal(t, 2700*time.Millisecond, w.Span())
}

func TestStabilityWindow_OutlierIsNotStable(t *testing.T) {
	w := NewStabilityWindow(10, 0)
	start := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	// One 0.5 outlier pushes the mean to 0.05
	fillWindow(w, start, 300*time.Millisecond, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0.5)

	assert.InDelta(t, 0.05, w.Mean(), 1e-9)
	assert.False(t, w.Stable(0.02, 0.02))
}

func TestStabilityWindow_NotFull(t *testing.T) {
	w := NewStabilityWindow(10, 0)
	start := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	fillWindow(w, start, time.Second, 0, 0, 0)

	assert.Equal(t, 3, w.Len())
	assert.False(t, w.Stable(0.02, 0.02))
}

func TestStabilityWindow_NaNNeverStable(t *testing.T) {
	w := NewStabilityWindow(5, 0)
	start := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	fillWindow(w, start, time.Second, 0, 0, math.NaN(), 0, 0)

	assert.True(t, w.Full())
	assert.False(t, w.Stable(1, 1))
	assert.False(t, w.Settled(1))

	// NaN slides out after five more samples
	fillWindow(w, start.Add(10*time.Second), time.Second, 0, 0, 0, 0, 0)
	assert.True(t, w.Stable(1, 1))
}

func TestStabilityWindow_IgnoresSamplesInsideMinInterval(t *testing.T) {
	w := NewStabilityWindow(5, 300*time.Millisecond)
	start := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	assert.True(t, w.Add(0, start))
	assert.False(t, w.Add(0, start.Add(100*time.Millisecond)))
	assert.True(t, w.Add(0, start.Add(300*time.Millisecond)))
	assert.Equal(t, 2, w.Len())
}

func TestStabilityWindow_SlidesOldestOut(t *testing.T) {
	w := NewStabilityWindow(3, 0)
	start := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	fillWindow(w, start, time.Second, 9, 1, 2, 3)

	assert.InDelta(t, 2.0, w.Mean(), 1e-9)
	assert.Equal(t, 2*time.Second, w.Span())
}

func TestStabilityWindow_Reset(t *testing.T) {
	w := NewStabilityWindow(3, time.Second)
	start := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	fillWindow(w, start, time.Second, 1, 2, 3)

	w.Reset()
	assert.Equal(t, 0, w.Len())
	assert.True(t, w.Add(5, start), "First sample after reset is always accepted")
	assert.InDelta(t, 5.0, w.Mean(), 1e-9)
}
