package stepper

import (
	"context"
	"log"
	"math"

	"github.com/pkg/errors"
	"github.com/ryansname/chargectl/src/governor"
)

// pendingRequest is a request waiting for the sequencer. done, when set, is
// closed once the request has been applied or superseded.
type pendingRequest struct {
	req  MotionRequest
	done chan struct{}
}

func (p pendingRequest) finish() {
	if p.done != nil {
		close(p.done)
	}
}

// Sequencer holds at most one pending MotionRequest and hands the deltas of
// the request in flight to the pulse generator one at a time. The next delta
// is only sent once the generator acknowledges the previous one on Applied.
type Sequencer struct {
	config   Config
	requests chan pendingRequest
	deltas   chan MotionDelta
	applied  chan struct{}

	// Owned by Run
	speed float64
	dir   Direction
}

// NewSequencer creates a sequencer for one motor. The motor is assumed to
// start stationary and facing forward.
func NewSequencer(config Config) *Sequencer {
	return &Sequencer{
		config:   config,
		requests: make(chan pendingRequest, 1),
		deltas:   make(chan MotionDelta),
		applied:  make(chan struct{}),
		dir:      DirectionForward,
	}
}

func (s *Sequencer) validate(req MotionRequest) error {
	if !(req.RampRate > 0) || math.IsNaN(req.Speed) {
		return errors.Wrapf(governor.ErrInvalidRampRate, "%s: speed %v rate %v", s.config.Name, req.Speed, req.RampRate)
	}
	return nil
}

// Submit queues req, blocking while another request is pending
func (s *Sequencer) Submit(ctx context.Context, req MotionRequest) error {
	if err := s.validate(req); err != nil {
		return err
	}

	select {
	case s.requests <- pendingRequest{req: req}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Preempt queues req in place of any pending request and never blocks. The
// returned channel is closed once req has been applied, or once a later
// request has replaced it.
func (s *Sequencer) Preempt(req MotionRequest) (<-chan struct{}, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	p := pendingRequest{req: req, done: make(chan struct{})}
	for {
		select {
		case s.requests <- p:
			return p.done, nil
		default:
		}

		select {
		case old := <-s.requests:
			log.Printf("%s: replacing pending %+v with %+v\n", s.config.Name, old.req, req)
			old.finish()
		default:
		}
	}
}

// Deltas is consumed by the motor's pulse generator
func (s *Sequencer) Deltas() <-chan MotionDelta {
	return s.deltas
}

// Applied is signalled by the pulse generator after each delta
func (s *Sequencer) Applied() chan<- struct{} {
	return s.applied
}

// Run expands requests until ctx is done
func (s *Sequencer) Run(ctx context.Context) {
	log.Printf("%s sequencer started\n", s.config.Name)

	for {
		select {
		case p := <-s.requests:
			if !s.perform(ctx, p.req) {
				log.Printf("%s sequencer stopped\n", s.config.Name)
				return
			}
			p.finish()

		case <-ctx.Done():
			log.Printf("%s sequencer stopped\n", s.config.Name)
			return
		}
	}
}

// perform hands each delta of req to the generator and waits for it to be
// applied. The rest of a reversal is dropped if a newer request is pending.
// Returns false once ctx is done.
func (s *Sequencer) perform(ctx context.Context, req MotionRequest) bool {
	deltas, _ := Expand(s.speed, s.dir, req, s.config.MaxSpeed)
	for i, d := range deltas {
		if i > 0 && len(s.requests) > 0 {
			log.Printf("%s: newer request pending, dropping %d remaining deltas\n", s.config.Name, len(deltas)-i)
			return true
		}

		select {
		case s.deltas <- d:
		case <-ctx.Done():
			return false
		}
		select {
		case <-s.applied:
		case <-ctx.Done():
			return false
		}

		s.speed = d.To
		if d.Direction != DirectionUnchanged {
			s.dir = d.Direction
		}
	}
	return true
}
