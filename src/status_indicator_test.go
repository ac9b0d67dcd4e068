package main

import (
	"testing"

	"github.com/ryansname/chargectl/src/charge"
	"github.com/ryansname/chargectl/src/stepper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMQTTStatusIndicator_PublishesOnChange(t *testing.T) {
	ch := make(chan MQTTMessage, 10)
	indicator := newMQTTStatusIndicator(NewMQTTSender(ch, NewTopics("chargectl")))

	assert.Equal(t, charge.StatusIdle, indicator.Status())

	indicator.SetStatus(charge.StatusIdle)
	indicator.SetStatus(charge.StatusCharging)
	indicator.SetStatus(charge.StatusCharging)
	indicator.SetStatus(charge.StatusNormal)

	require.Len(t, ch, 2)
	first := <-ch
	assert.Equal(t, "chargectl/status", first.Topic)
	assert.Equal(t, charge.StatusCharging.String(), string(first.Payload))
	assert.True(t, first.Retain)
	second := <-ch
	assert.Equal(t, charge.StatusNormal.String(), string(second.Payload))
	assert.Equal(t, charge.StatusNormal, indicator.Status())
}

func TestMQTTPulseSink_Topics(t *testing.T) {
	ch := make(chan MQTTMessage, 10)
	sink := newMQTTPulseSink(stepper.Fine, NewMQTTSender(ch, NewTopics("rig/")))

	require.NoError(t, sink.SetDirection(false))
	require.NoError(t, sink.SetPeriod(1234))
	require.NoError(t, sink.SetEnabled(true))

	direction := <-ch
	assert.Equal(t, "rig/motor/fine/direction", direction.Topic)
	assert.Equal(t, "backward", string(direction.Payload))

	period := <-ch
	assert.Equal(t, "rig/motor/fine/period", period.Topic)
	assert.Equal(t, "1234", string(period.Payload))
	assert.True(t, isPeriodTopic(period.Topic))

	enable := <-ch
	assert.Equal(t, "rig/motor/fine/enable", enable.Topic)
	assert.Equal(t, "on", string(enable.Payload))
}
