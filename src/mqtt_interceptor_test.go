package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func msg(topic, payload string) MQTTMessage {
	return MQTTMessage{Topic: topic, Payload: []byte(payload)}
}

func TestCoalescer_KeepsLatestInFirstSeenOrder(t *testing.T) {
	c := newCoalescer()
	c.hold(msg("a/period", "1"))
	c.hold(msg("b/period", "2"))
	c.hold(msg("a/period", "3"))

	out := c.drain()
	require.Len(t, out, 2)
	assert.Equal(t, "a/period", out[0].Topic)
	assert.Equal(t, "3", string(out[0].Payload))
	assert.Equal(t, "b/period", out[1].Topic)
	assert.Equal(t, "2", string(out[1].Payload))

	assert.Empty(t, c.drain())
}

func TestMqttInterceptorWorker_FlushesBeforePassThrough(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	in := make(chan MQTTMessage, 10)
	out := make(chan MQTTMessage, 10)

	// Long interval so only the pass-through message can trigger a flush
	go mqttInterceptorWorker(ctx, "test", isPeriodTopic, time.Hour, in, out)

	in <- msg("p/motor/fine/period", "100")
	in <- msg("p/motor/fine/period", "50")
	in <- msg("p/motor/fine/direction", "forward")

	first := <-out
	second := <-out
	assert.Equal(t, "p/motor/fine/period", first.Topic)
	assert.Equal(t, "50", string(first.Payload))
	assert.Equal(t, "p/motor/fine/direction", second.Topic)
}

func TestMqttInterceptorWorker_FlushesOnTick(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	in := make(chan MQTTMessage, 10)
	out := make(chan MQTTMessage, 10)

	go mqttInterceptorWorker(ctx, "test", isPeriodTopic, 5*time.Millisecond, in, out)

	in <- msg("p/motor/coarse/period", "10")
	in <- msg("p/motor/coarse/period", "20")

	select {
	case m := <-out:
		assert.Equal(t, "20", string(m.Payload))
	case <-time.After(time.Second):
		t.Fatal("coalesced message was not flushed")
	}
}
