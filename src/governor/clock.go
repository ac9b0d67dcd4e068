package governor

import "time"

// Clock is the time source used by control loops. Tests substitute a fake
// that advances on Sleep.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// SystemClock reads the monotonic wall clock
type SystemClock struct{}

// Now returns time.Now()
func (SystemClock) Now() time.Time { return time.Now() }

// Sleep blocks for d
func (SystemClock) Sleep(d time.Duration) { time.Sleep(d) }
