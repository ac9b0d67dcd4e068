package charge

import (
	"context"
	"log"
	"time"

	"github.com/pkg/errors"
	"github.com/ryansname/chargectl/src/governor"
	"github.com/ryansname/chargectl/src/stepper"
)

const (
	zeroWindowSize       = 10
	cupRemovalWindowSize = 5
	exitTimeout          = time.Second
)

// Machine walks a session through its phases
type Machine struct {
	config  Config
	profile Profile
	scale   Scale
	motors  Motors
	status  StatusIndicator
	events  EventSource
	clock   governor.Clock

	session Session
}

// NewMachine creates a machine bound to its collaborators. config and
// profile are copied and do not change for the life of the machine.
func NewMachine(
	config Config,
	profile Profile,
	scale Scale,
	motors Motors,
	status StatusIndicator,
	events EventSource,
	clock governor.Clock,
) *Machine {
	return &Machine{
		config:  config,
		profile: profile,
		scale:   scale,
		motors:  motors,
		status:  status,
		events:  events,
		clock:   clock,
	}
}

// Run charges to target repeatedly until cancelled. The returned session
// holds the flags of the last completed charge.
func (m *Machine) Run(ctx context.Context, target float64) (Session, error) {
	m.session = Session{Target: target, Phase: PhaseWaitForZero}
	log.Printf("Charge mode started, target %s (profile %s)\n", m.config.FormatWeight(target), m.profile.Name)

	for m.session.Phase != PhaseExit {
		var next Phase
		var err error

		switch m.session.Phase {
		case PhaseWaitForZero:
			next = m.waitForZero(ctx)
		case PhaseWaitForComplete:
			next, err = m.waitForComplete(ctx)
		case PhaseWaitForCupRemoval:
			next = m.waitForCupRemoval(ctx)
		case PhaseWaitForCupReturn:
			next = m.waitForCupReturn(ctx)
		}

		if err != nil {
			m.exit(ctx)
			return m.finish(), errors.Wrapf(err, "charge %s", m.session.Phase)
		}
		if next != m.session.Phase {
			log.Printf("Charge phase %s -> %s\n", m.session.Phase, next)
		}
		m.session.Phase = next
	}

	m.exit(ctx)
	return m.finish(), nil
}

// cancelled polls the event source once. Confirm re-zeroes the scale when
// allowZero is set.
func (m *Machine) cancelled(ctx context.Context, allowZero bool) bool {
	if ctx.Err() != nil {
		return true
	}

	switch m.events.Poll() {
	case EventCancel:
		log.Println("Charge cancelled")
		return true
	case EventConfirm:
		if allowZero {
			if err := m.scale.ForceZero(); err != nil {
				log.Printf("Force zero failed: %v\n", err)
			}
		}
	}
	return false
}

func (m *Machine) waitForZero(ctx context.Context) Phase {
	m.status.SetStatus(StatusNotReady)
	window := governor.NewStabilityWindow(zeroWindowSize, m.config.SampleSpacing)

	for {
		if m.cancelled(ctx, true) {
			return PhaseExit
		}

		reading, ok := m.scale.WaitForNext(ctx, m.config.PollBudget)
		if !ok {
			continue
		}

		window.Add(reading.Value, m.clock.Now())
		if window.Stable(m.config.SetPointSDMargin, m.config.SetPointMeanMargin) {
			return PhaseWaitForComplete
		}
	}
}

// speedBounds narrows the profile's speed range to what the driver allows
func (m *Machine) speedBounds(s stepper.Select) (lo, hi float64) {
	driverMin, driverMax := m.motors.Limits(s)
	if s == stepper.Fine {
		return max(m.profile.FineMinSpeed, driverMin), min(m.profile.FineMaxSpeed, driverMax)
	}
	return max(m.profile.CoarseMinSpeed, driverMin), min(m.profile.CoarseMaxSpeed, driverMax)
}

func (m *Machine) waitForComplete(ctx context.Context) (Phase, error) {
	m.status.SetStatus(StatusCharging)
	if err := m.motors.SetEnabled(true); err != nil {
		return PhaseExit, errors.Wrap(err, "enable motors")
	}

	fineMin, fineMax := m.speedBounds(stepper.Fine)
	coarseMin, coarseMax := m.speedBounds(stepper.Coarse)

	var pid governor.PIDState
	coarseRunning := true

	for {
		if m.cancelled(ctx, false) {
			return PhaseExit, nil
		}

		reading, ok := m.scale.WaitForNext(ctx, m.config.PollBudget)
		if !ok || !reading.Valid {
			continue
		}

		e := m.session.Target - reading.Value
		if e < m.config.FineStopThreshold {
			if err := m.motors.Stop(ctx); err != nil {
				return PhaseExit, errors.Wrap(err, "stop motors")
			}
			return PhaseWaitForCupRemoval, nil
		}

		if coarseRunning && e < m.config.CoarseStopThreshold {
			coarseRunning = false
			if err := m.motors.SetSpeed(ctx, stepper.Coarse, 0); err != nil {
				return PhaseExit, errors.Wrap(err, "stop coarse trickler")
			}
		}

		terms := pid.Update(e, m.clock.Now())

		fine := governor.Clamp(m.profile.Fine.Output(terms), fineMin, fineMax)
		if err := m.motors.SetSpeed(ctx, stepper.Fine, fine); err != nil {
			return PhaseExit, errors.Wrap(err, "set fine speed")
		}

		if coarseRunning {
			coarse := governor.Clamp(m.profile.Coarse.Output(terms), coarseMin, coarseMax)
			if err := m.motors.SetSpeed(ctx, stepper.Coarse, coarse); err != nil {
				return PhaseExit, errors.Wrap(err, "set coarse speed")
			}
		}
	}
}

// Classify judges the final error of a charge. An unreadable weight is
// reported as normal.
func Classify(e, fineStopThreshold float64) Status {
	switch {
	case e <= -fineStopThreshold:
		return StatusOverCharge
	case e >= fineStopThreshold:
		return StatusUnderCharge
	default:
		return StatusNormal
	}
}

// settle waits out SettleDelay in PollBudget slices, polling for cancel
// between them. Returns false when cancelled.
func (m *Machine) settle(ctx context.Context) bool {
	deadline := m.clock.Now().Add(m.config.SettleDelay)
	for {
		if m.cancelled(ctx, false) {
			return false
		}

		remaining := deadline.Sub(m.clock.Now())
		if remaining <= 0 {
			return true
		}
		if m.config.PollBudget > 0 {
			remaining = min(remaining, m.config.PollBudget)
		}
		m.clock.Sleep(remaining)
	}
}

func (m *Machine) waitForCupRemoval(ctx context.Context) Phase {
	if !m.settle(ctx) {
		return PhaseExit
	}

	reading, ok := m.scale.WaitForNext(ctx, m.config.PollBudget)
	if !ok {
		reading = m.scale.Current()
	}

	result := Classify(m.session.Target-reading.Value, m.config.FineStopThreshold)
	switch result {
	case StatusOverCharge:
		m.session.Flags = FlagOverCharge
	case StatusUnderCharge:
		m.session.Flags = FlagUnderCharge
	default:
		m.session.Flags = 0
	}
	m.status.SetStatus(result)
	log.Printf("Charge finished at %s (%s)\n", m.config.FormatWeight(reading.Value), result)

	window := governor.NewStabilityWindow(cupRemovalWindowSize, m.config.SampleSpacing)
	for {
		if m.cancelled(ctx, false) {
			return PhaseExit
		}

		reading, ok := m.scale.WaitForNext(ctx, m.config.PollBudget)
		if !ok {
			continue
		}

		window.Add(reading.Value, m.clock.Now())
		if window.Settled(m.config.SetPointSDMargin) &&
			window.Mean()+m.config.CupRemovalDrop < m.config.SetPointMeanMargin {
			return PhaseWaitForCupReturn
		}
	}
}

func (m *Machine) waitForCupReturn(ctx context.Context) Phase {
	m.status.SetStatus(StatusNotReady)

	for {
		if m.cancelled(ctx, true) {
			return PhaseExit
		}

		reading := m.scale.Current()
		if reading.Valid && reading.Value >= 0 {
			return PhaseWaitForZero
		}
		m.clock.Sleep(m.config.CupReturnPollInterval)
	}
}

// exit stops and disables the motors. It runs even when ctx is already done.
func (m *Machine) exit(ctx context.Context) {
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), exitTimeout)
	defer cancel()

	if err := m.motors.Stop(stopCtx); err != nil {
		log.Printf("Failed to stop motors: %v\n", err)
	}
	if err := m.motors.SetEnabled(false); err != nil {
		log.Printf("Failed to disable motors: %v\n", err)
	}
	m.status.SetStatus(StatusIdle)
	log.Println("Charge mode stopped")
}

// finish returns the final session and clears the machine's copy
func (m *Machine) finish() Session {
	final := m.session
	final.Phase = PhaseExit
	m.session = Session{}
	return final
}
