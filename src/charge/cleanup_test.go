package charge

import (
	"context"
	"testing"

	"github.com/ryansname/chargectl/src/stepper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanup_AdjustsBothMotors(t *testing.T) {
	motors := &fakeMotors{}
	status := &fakeStatus{}
	events := &fakeEvents{queue: []Event{
		EventIncrease,
		EventIncrease,
		EventNone,
		EventDecrease,
		EventConfirm,
		EventDecrease,
		EventCancel,
	}}

	c := NewCleanup(motors, status, events, newFakeClock())
	require.NoError(t, c.Run(context.Background()))

	expected := []float64{1, 2, 1, 0, -1}
	assert.Equal(t, expected, motors.speeds(stepper.Coarse))
	assert.Equal(t, expected, motors.speeds(stepper.Fine))

	assert.Equal(t, motorCall{kind: "enable"}, motors.calls[0])
	assert.Equal(t, []motorCall{{kind: "stop"}, {kind: "disable"}}, motors.calls[len(motors.calls)-2:])
	assert.Equal(t, []Status{StatusCleanup, StatusIdle}, status.history)
}

func TestCleanup_StopsOnContextDone(t *testing.T) {
	motors := &fakeMotors{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewCleanup(motors, &fakeStatus{}, &fakeEvents{}, newFakeClock())
	require.NoError(t, c.Run(ctx))
	assert.False(t, motors.enabled)
	assert.Empty(t, motors.speeds(stepper.Fine))
}
