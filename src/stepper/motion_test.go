package stepper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpand_SameDirection(t *testing.T) {
	deltas, dir := Expand(1.0, DirectionForward, MotionRequest{Speed: 2.5, RampRate: 4}, 0)

	assert.Equal(t, []MotionDelta{
		{From: 1.0, To: 2.5, RampRate: 4, Direction: DirectionUnchanged},
	}, deltas)
	assert.Equal(t, DirectionForward, dir)
}

func TestExpand_ReversalSplitsIntoTwo(t *testing.T) {
	deltas, dir := Expand(3.0, DirectionForward, MotionRequest{Speed: -1.5, RampRate: 2}, 0)

	assert.Equal(t, []MotionDelta{
		{From: 3.0, To: 0, RampRate: 2, Direction: DirectionUnchanged},
		{From: 0, To: 1.5, RampRate: 2, Direction: DirectionBackward},
	}, deltas)
	assert.Equal(t, DirectionBackward, dir)
}

func TestExpand_ZeroSpeedKeepsDirection(t *testing.T) {
	deltas, dir := Expand(2.0, DirectionBackward, MotionRequest{Speed: 0, RampRate: 2}, 0)

	assert.Len(t, deltas, 1)
	assert.Equal(t, 0.0, deltas[0].To)
	assert.Equal(t, DirectionBackward, dir)
}

func TestExpand_ClampsToMaxSpeed(t *testing.T) {
	deltas, _ := Expand(0, DirectionForward, MotionRequest{Speed: 50, RampRate: 2}, 8)
	assert.Equal(t, 8.0, deltas[0].To)

	deltas, _ = Expand(0, DirectionForward, MotionRequest{Speed: -50, RampRate: 2}, 8)
	assert.Equal(t, 8.0, deltas[1].To)
}
