package input

import "time"

// DefaultDebounce is the minimum spacing between accepted button presses
const DefaultDebounce = 250 * time.Millisecond

// Clock provides the monotonic time used for debouncing
type Clock interface {
	Now() time.Time
}

// Debouncer accepts an edge only when the previous edge, accepted or not,
// is more than interval ago.
type Debouncer struct {
	clock    Clock
	interval time.Duration
	last     time.Time
	seen     bool
}

// NewDebouncer creates a debouncer reading time from clock
func NewDebouncer(clock Clock, interval time.Duration) *Debouncer {
	return &Debouncer{clock: clock, interval: interval}
}

// Allow records an edge and reports whether it counts as a press
func (d *Debouncer) Allow() bool {
	now := d.clock.Now()
	ok := !d.seen || now.Sub(d.last) > d.interval
	d.last = now
	d.seen = true
	return ok
}
