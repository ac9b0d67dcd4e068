package main

import (
	"log"
	"sync/atomic"

	"github.com/ryansname/chargectl/src/charge"
)

// mqttStatusIndicator publishes status changes and remembers the latest for telemetry
type mqttStatusIndicator struct {
	sender  *MQTTSender
	current atomic.Int32
}

func newMQTTStatusIndicator(sender *MQTTSender) *mqttStatusIndicator {
	s := &mqttStatusIndicator{sender: sender}
	s.current.Store(int32(charge.StatusIdle))
	return s
}

// SetStatus publishes s when it differs from the current status
func (i *mqttStatusIndicator) SetStatus(s charge.Status) {
	if charge.Status(i.current.Swap(int32(s))) == s {
		return
	}
	log.Printf("Status: %s\n", s)
	i.sender.PublishStatus(s)
}

// Status returns the last status set
func (i *mqttStatusIndicator) Status() charge.Status {
	return charge.Status(i.current.Load())
}
