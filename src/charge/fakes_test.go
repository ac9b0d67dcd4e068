package charge

import (
	"context"
	"math"
	"time"

	"github.com/ryansname/chargectl/src/governor"
	"github.com/ryansname/chargectl/src/scale"
	"github.com/ryansname/chargectl/src/stepper"
)

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time        { return c.now }
func (c *fakeClock) Sleep(d time.Duration) { c.now = c.now.Add(d) }

// fakeScale replays a script of readings, one per WaitForNext, 300ms apart
type fakeScale struct {
	clock   *fakeClock
	script  []scale.Measurement
	current scale.Measurement

	// Readings returned by Current before it falls back to the last reading
	currentScript []scale.Measurement

	onEmpty func()
	zeroed  int
}

func (s *fakeScale) WaitForNext(ctx context.Context, timeout time.Duration) (scale.Measurement, bool) {
	if len(s.script) == 0 {
		if s.onEmpty != nil {
			s.onEmpty()
		}
		return scale.Measurement{}, false
	}
	m := s.script[0]
	s.script = s.script[1:]
	s.clock.Sleep(300 * time.Millisecond)
	s.current = m
	return m, true
}

func (s *fakeScale) Current() scale.Measurement {
	if len(s.currentScript) > 0 {
		s.current = s.currentScript[0]
		s.currentScript = s.currentScript[1:]
	}
	return s.current
}

func (s *fakeScale) ForceZero() error {
	s.zeroed++
	return nil
}

func weights(values ...float64) []scale.Measurement {
	out := make([]scale.Measurement, 0, len(values))
	for _, v := range values {
		if math.IsNaN(v) {
			out = append(out, scale.Invalid())
			continue
		}
		out = append(out, scale.Weight(v))
	}
	return out
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// motorCall is one call into the motors, e.g. {"speed", Fine, 1.5}
type motorCall struct {
	kind  string
	motor stepper.Select
	speed float64
}

type fakeMotors struct {
	calls   []motorCall
	enabled bool
}

func (m *fakeMotors) SetSpeed(ctx context.Context, s stepper.Select, speed float64) error {
	m.calls = append(m.calls, motorCall{kind: "speed", motor: s, speed: speed})
	return nil
}

func (m *fakeMotors) Limits(s stepper.Select) (float64, float64) {
	return 0, 10
}

func (m *fakeMotors) Stop(ctx context.Context) error {
	m.calls = append(m.calls, motorCall{kind: "stop"})
	return nil
}

func (m *fakeMotors) SetEnabled(enabled bool) error {
	m.enabled = enabled
	kind := "disable"
	if enabled {
		kind = "enable"
	}
	m.calls = append(m.calls, motorCall{kind: kind})
	return nil
}

func (m *fakeMotors) speeds(s stepper.Select) []float64 {
	var out []float64
	for _, c := range m.calls {
		if c.kind == "speed" && c.motor == s {
			out = append(out, c.speed)
		}
	}
	return out
}

func (m *fakeMotors) count(kind string) int {
	n := 0
	for _, c := range m.calls {
		if c.kind == kind {
			n++
		}
	}
	return n
}

type fakeStatus struct {
	history []Status
}

func (s *fakeStatus) SetStatus(status Status) {
	s.history = append(s.history, status)
}

// fakeEvents returns queued events, then EventNone until cancelled is set
type fakeEvents struct {
	queue     []Event
	cancelled bool
}

func (e *fakeEvents) Poll() Event {
	if len(e.queue) > 0 {
		ev := e.queue[0]
		e.queue = e.queue[1:]
		return ev
	}
	if e.cancelled {
		return EventCancel
	}
	return EventNone
}

type harness struct {
	clock   *fakeClock
	scale   *fakeScale
	motors  *fakeMotors
	status  *fakeStatus
	events  *fakeEvents
	machine *Machine
}

func newHarness(config Config, profile Profile) *harness {
	h := &harness{
		clock:  newFakeClock(),
		motors: &fakeMotors{},
		status: &fakeStatus{},
		events: &fakeEvents{},
	}
	h.scale = &fakeScale{clock: h.clock, current: scale.Invalid()}
	h.scale.onEmpty = func() { h.events.cancelled = true }
	h.machine = NewMachine(config, profile, h.scale, h.motors, h.status, h.events, h.clock)
	return h
}

func testProfile() Profile {
	return Profile{
		Name:           "test",
		Coarse:         governor.Gains{Kp: 1.0},
		Fine:           governor.Gains{Kp: 2.0},
		CoarseMinSpeed: 0.1,
		CoarseMaxSpeed: 8,
		FineMinSpeed:   0.05,
		FineMaxSpeed:   4,
	}
}
