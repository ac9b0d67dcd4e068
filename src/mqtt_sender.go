package main

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/ryansname/chargectl/src/charge"
	"github.com/ryansname/chargectl/src/stepper"
)

// MQTTMessage represents an outgoing MQTT message
type MQTTMessage struct {
	Topic   string
	Payload []byte
	QoS     byte
	Retain  bool
}

// Topics builds the topic names under the configured prefix
type Topics struct {
	prefix string
}

// NewTopics creates topic names rooted at prefix
func NewTopics(prefix string) Topics {
	return Topics{prefix: strings.TrimSuffix(prefix, "/")}
}

func (t Topics) Status() string { return t.prefix + "/status" }
func (t Topics) Weight() string { return t.prefix + "/weight" }
func (t Topics) Command() string { return t.prefix + "/command" }

// Motor is the pulse boundary topic for one motor, leaf is period, direction or enable
func (t Topics) Motor(s stepper.Select, leaf string) string {
	return t.prefix + "/motor/" + s.String() + "/" + leaf
}

// Input is the raw input edge topic, leaf is encoder, button or reset
func (t Topics) Input(leaf string) string {
	return t.prefix + "/input/" + leaf
}

// isPeriodTopic reports whether topic carries high-rate pulse periods
func isPeriodTopic(topic string) bool {
	return strings.HasSuffix(topic, "/period")
}

// MQTTSender wraps a channel for sending MQTT messages with helper methods
type MQTTSender struct {
	ch     chan<- MQTTMessage
	topics Topics
}

// NewMQTTSender creates a new MQTTSender wrapping the given channel
func NewMQTTSender(ch chan<- MQTTMessage, topics Topics) *MQTTSender {
	return &MQTTSender{ch: ch, topics: topics}
}

// Send sends a raw MQTTMessage
func (s *MQTTSender) Send(msg MQTTMessage) {
	s.ch <- msg
}

// PublishStatus publishes the retained status indication
func (s *MQTTSender) PublishStatus(status charge.Status) {
	s.Send(MQTTMessage{
		Topic:   s.topics.Status(),
		Payload: []byte(status.String()),
		QoS:     1,
		Retain:  true,
	})
}

// PublishTelemetry publishes an encoded Telemetry payload
func (s *MQTTSender) PublishTelemetry(payload []byte) {
	s.Send(MQTTMessage{
		Topic:   s.topics.Weight(),
		Payload: payload,
	})
}

// PublishMotorPeriod publishes a pulse period in generator clock cycles, 0 stops pulsing
func (s *MQTTSender) PublishMotorPeriod(m stepper.Select, period uint32) {
	s.Send(MQTTMessage{
		Topic:   s.topics.Motor(m, "period"),
		Payload: []byte(strconv.FormatUint(uint64(period), 10)),
	})
}

// PublishMotorDirection publishes the direction pin level
func (s *MQTTSender) PublishMotorDirection(m stepper.Select, forward bool) {
	value := "backward"
	if forward {
		value = "forward"
	}
	s.Send(MQTTMessage{
		Topic:   s.topics.Motor(m, "direction"),
		Payload: []byte(value),
		QoS:     1,
	})
}

// PublishMotorEnable publishes the driver enable state
func (s *MQTTSender) PublishMotorEnable(m stepper.Select, enabled bool) {
	value := "off"
	if enabled {
		value = "on"
	}
	s.Send(MQTTMessage{
		Topic:   s.topics.Motor(m, "enable"),
		Payload: []byte(value),
		QoS:     1,
		Retain:  true,
	})
}

// CreateSensorEntity creates a Home Assistant sensor via MQTT discovery.
// An empty jsonKey publishes the raw state topic value.
func (s *MQTTSender) CreateSensorEntity(
	deviceName, entityName, stateTopic, jsonKey string,
	displayPrecision int,
) error {
	type haDeviceConfig struct {
		Identifiers  []string `json:"identifiers"`
		Name         string   `json:"name"`
		Manufacturer string   `json:"manufacturer,omitempty"`
	}

	type haEntityConfig struct {
		Name             string         `json:"name,omitempty"`
		StateTopic       string         `json:"state_topic"`
		ValueTemplate    string         `json:"value_template"`
		UniqueId         string         `json:"unique_id"`
		ExpireAfter      uint           `json:"expire_after,omitempty"`
		StateClass       string         `json:"state_class,omitempty"`
		DisplayPrecision int            `json:"suggested_display_precision,omitempty"`
		Device           haDeviceConfig `json:"device"`
	}

	deviceId := strings.ReplaceAll(strings.ToLower(deviceName), " ", "_")
	entityId := strings.ReplaceAll(strings.ToLower(entityName), " ", "_")

	config := haEntityConfig{
		Name:             entityName,
		StateTopic:       stateTopic,
		ValueTemplate:    "{{ value }}",
		UniqueId:         deviceId + "_" + entityId,
		DisplayPrecision: displayPrecision,
		Device: haDeviceConfig{
			Identifiers:  []string{deviceId},
			Name:         deviceName,
			Manufacturer: "Custom",
		},
	}
	if jsonKey != "" {
		config.ValueTemplate = "{{ value_json." + jsonKey + " }}"
		config.ExpireAfter = 60 // Telemetry stops when the process does
		config.StateClass = "measurement"
	}

	payload, err := json.Marshal(config)
	if err != nil {
		return err
	}

	s.Send(MQTTMessage{
		Topic:   "homeassistant/sensor/" + config.UniqueId + "/config",
		Payload: payload,
		QoS:     2,
		Retain:  true,
	})

	return nil
}

// mqttSenderWorker publishes outgoing MQTT messages, queuing them until a client is connected
func mqttSenderWorker(
	ctx context.Context,
	outgoingChan <-chan MQTTMessage,
	clientChan <-chan mqtt.Client,
) {
	log.Println("MQTT sender worker started")

	var client mqtt.Client
	var messageQueue []MQTTMessage

	for {
		select {
		case newClient := <-clientChan:
			log.Println("MQTT sender worker received new client")
			client = newClient

			// Process any queued messages now that we have a client
			if client != nil && client.IsConnected() {
				queuedCount := len(messageQueue)
				for _, msg := range messageQueue {
					publish(client, msg)
				}
				messageQueue = nil
				if queuedCount > 0 {
					log.Printf("MQTT sender worker processed %d queued messages\n", queuedCount)
				}
			}

		case msg := <-outgoingChan:
			if client != nil && client.IsConnected() {
				publish(client, msg)
				continue
			}

			// Best-effort messages (telemetry, pulse periods) are stale by the time a client arrives
			if msg.QoS == 0 {
				continue
			}
			messageQueue = append(messageQueue, msg)
			log.Printf("MQTT sender worker queued message (total queued: %d)\n", len(messageQueue))

		case <-ctx.Done():
			log.Println("MQTT sender worker stopped")
			return
		}
	}
}

func publish(client mqtt.Client, msg MQTTMessage) {
	token := client.Publish(msg.Topic, msg.QoS, msg.Retain, msg.Payload)
	token.Wait()
	if token.Error() != nil {
		log.Printf("Failed to publish to %s: %v\n", msg.Topic, token.Error())
	}
}
