package input

import (
	"log"
	"sync"
)

// QueueSize matches the depth of the encoder event queue on the controller
const QueueSize = 5

// Device turns raw pin edges from the encoder and its two buttons into
// queued events. Edge handlers may be called from any goroutine.
type Device struct {
	mu      sync.Mutex
	encoder *Quadrature
	button  *Debouncer
	reset   *Debouncer

	events chan Event
}

// NewDevice creates a device with a QueueSize event queue
func NewDevice(clock Clock, inverted bool) *Device {
	return &Device{
		encoder: NewQuadrature(inverted),
		button:  NewDebouncer(clock, DefaultDebounce),
		reset:   NewDebouncer(clock, DefaultDebounce),
		events:  make(chan Event, QueueSize),
	}
}

// Events is the decoded event stream
func (d *Device) Events() <-chan Event {
	return d.events
}

// Push queues e without blocking. Events are dropped when the queue is full.
func (d *Device) Push(e Event) bool {
	select {
	case d.events <- e:
		return true
	default:
		log.Printf("Input queue full, dropping %s\n", e)
		return false
	}
}

// OnEncoderEdge is called with both pin levels whenever either changes
func (d *Device) OnEncoderEdge(en1, en2 bool) {
	d.mu.Lock()
	e, ok := d.encoder.Update(en1, en2)
	d.mu.Unlock()

	if ok {
		d.Push(e)
	}
}

// OnButtonEdge is called on each edge of the encoder push button
func (d *Device) OnButtonEdge() {
	d.mu.Lock()
	ok := d.button.Allow()
	d.mu.Unlock()

	if ok {
		d.Push(EventPressed)
	}
}

// OnResetEdge is called on each edge of the reset button
func (d *Device) OnResetEdge() {
	d.mu.Lock()
	ok := d.reset.Allow()
	d.mu.Unlock()

	if ok {
		d.Push(EventRstPressed)
	}
}
