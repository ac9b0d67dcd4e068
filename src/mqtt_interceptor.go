package main

import (
	"context"
	"log"
	"time"
)

// coalesceInterval bounds how often a coalesced topic is published
const coalesceInterval = 50 * time.Millisecond

// coalescer holds the latest message per coalesced topic, in first-seen order
type coalescer struct {
	pending map[string]MQTTMessage
	order   []string
}

func newCoalescer() *coalescer {
	return &coalescer{pending: make(map[string]MQTTMessage)}
}

func (c *coalescer) hold(msg MQTTMessage) {
	if _, ok := c.pending[msg.Topic]; !ok {
		c.order = append(c.order, msg.Topic)
	}
	c.pending[msg.Topic] = msg
}

func (c *coalescer) drain() []MQTTMessage {
	if len(c.order) == 0 {
		return nil
	}
	out := make([]MQTTMessage, 0, len(c.order))
	for _, topic := range c.order {
		out = append(out, c.pending[topic])
	}
	clear(c.pending)
	c.order = c.order[:0]
	return out
}

// mqttInterceptorWorker forwards messages from inputChan to outputChan,
// holding topics matched by coalesce and publishing only their latest value
// every interval. Any other message flushes the held ones first so ordering
// against it is kept.
func mqttInterceptorWorker(
	ctx context.Context,
	name string,
	coalesce func(topic string) bool,
	interval time.Duration,
	inputChan <-chan MQTTMessage,
	outputChan chan<- MQTTMessage,
) {
	log.Printf("%s interceptor started\n", name)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	held := newCoalescer()
	forward := func(msgs ...MQTTMessage) bool {
		for _, msg := range msgs {
			select {
			case outputChan <- msg:
			case <-ctx.Done():
				return false
			}
		}
		return true
	}

	for {
		select {
		case msg := <-inputChan:
			if coalesce(msg.Topic) {
				held.hold(msg)
				continue
			}
			if !forward(held.drain()...) || !forward(msg) {
				return
			}

		case <-ticker.C:
			if !forward(held.drain()...) {
				return
			}

		case <-ctx.Done():
			log.Printf("%s interceptor stopped\n", name)
			return
		}
	}
}
