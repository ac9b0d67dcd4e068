package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/joho/godotenv"
	"github.com/ryansname/chargectl/src/charge"
	"github.com/ryansname/chargectl/src/governor"
	"github.com/ryansname/chargectl/src/input"
	"github.com/ryansname/chargectl/src/scale"
	"github.com/ryansname/chargectl/src/stepper"
)

// SafeGo launches a goroutine with panic recovery and retry logic.
// On panic, retries with exponential backoff (max 10 retries).
// Retry count resets if worker ran for 2+ minutes before failing.
// After exhausting retries, cancels context to trigger shutdown.
func SafeGo(
	ctx context.Context,
	cancel context.CancelFunc,
	name string,
	fn func(ctx context.Context),
) {
	const maxRetries = 10
	const maxDelay = 10 * time.Minute
	const resetAfter = 2 * time.Minute

	go func() {
		retries := 0
		delay := time.Second

		for {
			startTime := time.Now()
			var panicValue any

			func() {
				defer func() {
					panicValue = recover()
				}()
				fn(ctx)
			}()

			// If function returned normally (no panic), exit the goroutine
			// This covers both context cancellation and unexpected completion
			if panicValue == nil {
				return
			}

			// If ran for resetAfter duration before panicking, reset retry state
			if time.Since(startTime) >= resetAfter {
				retries = 0
				delay = time.Second
			}

			retries++
			log.Printf("Panic in %s (attempt %d/%d): %v\n", name, retries, maxRetries, panicValue)

			// Check if we've exhausted retries
			if retries >= maxRetries {
				log.Printf("%s failed after %d retries, shutting down\n", name, maxRetries)
				cancel()
				return
			}

			// Wait before retry with exponential backoff
			log.Printf("%s will retry in %v\n", name, delay)
			select {
			case <-time.After(delay):
				// Double delay for next time, cap at max
				delay = min(delay*2, maxDelay)
			case <-ctx.Done():
				return
			}
		}
	}()
}

func main() {
	log.Println("Starting chargectl...")

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Error loading .env file: %v\n", err)
	}

	config, err := LoadAppConfigFromEnv()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	profile, err := config.Profile()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// Create context for lifecycle management
	ctx, cancel := context.WithCancel(context.Background())
	clock := governor.SystemClock{}
	topics := NewTopics(config.TopicPrefix)

	// Create channels for communication between workers
	inboundChan := make(chan InboundMessage, 10)
	commandChan := make(chan Command, 10)
	chargeEventChan := make(chan charge.Event, input.QueueSize)
	pulseChan := make(chan MQTTMessage, 100)
	mqttOutgoingChan := make(chan MQTTMessage, 100) // Larger buffer for queuing
	mqttClientChan := make(chan mqtt.Client, 1)     // Buffered to prevent blocking onConnect

	// Launch MQTT sender worker (receives client updates via channel)
	SafeGo(ctx, cancel, "mqtt-sender-worker", func(ctx context.Context) {
		mqttSenderWorker(ctx, mqttOutgoingChan, mqttClientChan)
	})

	// Pulse periods change every tick, only the latest per motor is published
	SafeGo(ctx, cancel, "pulse-interceptor", func(ctx context.Context) {
		mqttInterceptorWorker(ctx, "Pulse", isPeriodTopic, coalesceInterval, pulseChan, mqttOutgoingChan)
	})

	mqttSender := NewMQTTSender(mqttOutgoingChan, topics)
	pulseSender := NewMQTTSender(pulseChan, topics)

	log.Println("Creating Home Assistant entities...")
	entities := []struct {
		name, topic, key string
		precision        int
	}{
		{"Weight", topics.Weight(), "weight", config.Charge.DecimalPlaces},
		{"Flow Rate", topics.Weight(), "flow_rate", 3},
		{"Status", topics.Status(), "", 0},
	}
	for _, e := range entities {
		if err := mqttSender.CreateSensorEntity("Chargectl", e.name, e.topic, e.key, e.precision); err != nil {
			cancel()
			log.Fatalf("Failed to create %s entity: %v", e.name, err)
		}
	}

	// Open the scale
	port, err := scale.OpenSerial(config.ScaleConfig())
	if err != nil {
		cancel()
		log.Fatalf("Failed to open scale port %s: %v", config.ScalePort, err)
	}
	defer func() { _ = port.Close() }()

	balance := scale.New(config.ScaleDriver, port)
	SafeGo(ctx, cancel, "scale-reader", func(ctx context.Context) {
		if err := balance.Run(ctx); err != nil {
			log.Printf("Scale reader failed: %v\n", err)
			cancel()
		}
	})

	// Launch motor workers
	var motors stepper.Pair
	for _, sel := range []stepper.Select{stepper.Coarse, stepper.Fine} {
		sink := newMQTTPulseSink(sel, pulseSender)
		motor := stepper.NewMotor(config.MotorConfig(sel), sink, sink, clock)
		if sel == stepper.Fine {
			motors.Fine = motor
		} else {
			motors.Coarse = motor
		}

		SafeGo(ctx, cancel, sel.String()+"-sequencer", motor.RunSequencer)
		SafeGo(ctx, cancel, sel.String()+"-pulses", motor.RunPulses)
		log.Printf("%s motor workers started\n", sel)
	}
	if err := motors.SetEnabled(false); err != nil {
		log.Printf("Failed to disable motors: %v\n", err)
	}

	// Input device fed by remote pin edges and console events
	device := input.NewDevice(clock, config.EncoderInverted)
	SafeGo(ctx, cancel, "event-worker", func(ctx context.Context) {
		eventWorker(ctx, device.Events(), chargeEventChan)
	})

	status := newMQTTStatusIndicator(mqttSender)
	mqttSender.PublishStatus(status.Status())

	SafeGo(ctx, cancel, "telemetry-worker", func(ctx context.Context) {
		telemetryWorker(ctx, balance, status, mqttSender)
	})

	controllerConfig := ControllerConfig{
		Charge:    config.ChargeConfig(),
		Profile:   profile,
		Scale:     balance,
		Motors:    motors,
		Status:    status,
		Events:    charge.ChanEvents(chargeEventChan),
		Inputs:    device,
		Clock:     clock,
		ListPorts: scale.ListPorts,
	}
	SafeGo(ctx, cancel, "controller-worker", func(ctx context.Context) {
		controllerWorker(ctx, commandChan, controllerConfig)
	})

	SafeGo(ctx, cancel, "inbound-worker", func(ctx context.Context) {
		inboundWorker(ctx, inboundChan, topics, device, commandChan)
	})

	// Launch MQTT worker
	SafeGo(ctx, cancel, "mqtt-worker", func(ctx context.Context) {
		mqttWorker(ctx, config.MQTTConfig(), inboundTopics(topics), inboundChan, mqttClientChan)
	})

	if config.Console {
		SafeGo(ctx, cancel, "console-worker", func(ctx context.Context) {
			consoleWorker(ctx, cancel, commandChan)
		})
	}

	// Wait for interrupt signal or context cancellation (from panic)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Println("\nShutting down...")
	case <-ctx.Done():
		log.Println("\nShutting down due to error...")
	}
	cancel()
}
