package main

import (
	"github.com/ryansname/chargectl/src/stepper"
)

// mqttPulseSink drives one motor's pulse and enable boundary over MQTT
type mqttPulseSink struct {
	motor  stepper.Select
	sender *MQTTSender
}

func newMQTTPulseSink(motor stepper.Select, sender *MQTTSender) *mqttPulseSink {
	return &mqttPulseSink{motor: motor, sender: sender}
}

func (s *mqttPulseSink) SetPeriod(period uint32) error {
	s.sender.PublishMotorPeriod(s.motor, period)
	return nil
}

func (s *mqttPulseSink) SetDirection(forward bool) error {
	s.sender.PublishMotorDirection(s.motor, forward)
	return nil
}

func (s *mqttPulseSink) SetEnabled(enabled bool) error {
	s.sender.PublishMotorEnable(s.motor, enabled)
	return nil
}
