package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// InboundMessage represents a received MQTT message with topic and value
type InboundMessage struct {
	Topic string
	Value string
}

// MQTTConfig holds the broker connection settings
type MQTTConfig struct {
	Broker   string
	Username string
	Password string
	ClientID string
}

// mqttWorker manages MQTT connection and forwards messages to a channel
func mqttWorker(
	ctx context.Context,
	config MQTTConfig,
	topics []string,
	msgChan chan<- InboundMessage,
	clientChan chan<- mqtt.Client,
) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:1883", config.Broker))
	opts.SetClientID(config.ClientID)
	opts.SetUsername(config.Username)
	opts.SetPassword(config.Password)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)

	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		log.Printf("MQTT connection lost: %v\n", err)
	})

	opts.SetOnConnectHandler(func(client mqtt.Client) {
		log.Printf("Connected to MQTT broker at %s\n", config.Broker)

		// Send the new client to the sender worker
		select {
		case clientChan <- client:
			log.Println("Sent new MQTT client to sender worker")
		case <-ctx.Done():
			return
		}

		for _, topic := range topics {
			token := client.Subscribe(topic, 1, func(client mqtt.Client, msg mqtt.Message) {
				inbound := InboundMessage{
					Topic: msg.Topic(),
					Value: strings.TrimSpace(string(msg.Payload())),
				}
				select {
				case msgChan <- inbound:
				case <-ctx.Done():
					return
				}
			})

			if token.Wait() && token.Error() != nil {
				log.Printf("Failed to subscribe to topic %s: %v\n", topic, token.Error())
			} else {
				log.Printf("Subscribed to topic: %s\n", topic)
			}
		}
	})

	client := mqtt.NewClient(opts)

	log.Printf("Connecting to MQTT broker at %s...\n", config.Broker)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Printf("Failed to connect to MQTT broker: %v\n", token.Error())
		return
	}

	<-ctx.Done()

	if client.IsConnected() {
		client.Disconnect(250)
		log.Println("Disconnected from MQTT broker")
	}
}

// EdgeHandler receives raw pin edges from a remote input panel
type EdgeHandler interface {
	OnEncoderEdge(en1, en2 bool)
	OnButtonEdge()
	OnResetEdge()
}

// inboundTopics lists the topics inboundWorker understands
func inboundTopics(topics Topics) []string {
	return []string{
		topics.Command(),
		topics.Input("encoder"),
		topics.Input("button"),
		topics.Input("reset"),
	}
}

// parseEncoderLevels parses "<en1>,<en2>" where each level is 0 or 1
func parseEncoderLevels(value string) (en1, en2 bool, err error) {
	a, b, ok := strings.Cut(value, ",")
	if !ok {
		return false, false, fmt.Errorf("encoder levels must be <en1>,<en2>, got %q", value)
	}
	level := func(s string) (bool, error) {
		switch strings.TrimSpace(s) {
		case "0":
			return false, nil
		case "1":
			return true, nil
		}
		return false, fmt.Errorf("encoder level must be 0 or 1, got %q", s)
	}
	if en1, err = level(a); err != nil {
		return false, false, err
	}
	if en2, err = level(b); err != nil {
		return false, false, err
	}
	return en1, en2, nil
}

// handleInbound dispatches one received message. Commands are returned for
// the controller, pin edges go straight to the input device.
func handleInbound(msg InboundMessage, topics Topics, edges EdgeHandler) (Command, bool) {
	switch msg.Topic {
	case topics.Command():
		cmd, err := ParseCommand(msg.Value)
		if err != nil {
			log.Printf("Remote command rejected: %v\n", err)
			return Command{}, false
		}
		return cmd, true

	case topics.Input("encoder"):
		en1, en2, err := parseEncoderLevels(msg.Value)
		if err != nil {
			log.Printf("Ignoring encoder edge: %v\n", err)
			return Command{}, false
		}
		edges.OnEncoderEdge(en1, en2)

	case topics.Input("button"):
		edges.OnButtonEdge()

	case topics.Input("reset"):
		edges.OnResetEdge()

	default:
		log.Printf("Unexpected message on %s\n", msg.Topic)
	}
	return Command{}, false
}

// inboundWorker routes received MQTT messages to the input device and controller
func inboundWorker(
	ctx context.Context,
	msgChan <-chan InboundMessage,
	topics Topics,
	edges EdgeHandler,
	commandChan chan<- Command,
) {
	log.Println("Inbound worker started")

	for {
		select {
		case msg := <-msgChan:
			cmd, ok := handleInbound(msg, topics, edges)
			if !ok {
				continue
			}
			select {
			case commandChan <- cmd:
			case <-ctx.Done():
				return
			}

		case <-ctx.Done():
			log.Println("Inbound worker stopped")
			return
		}
	}
}
