package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ryansname/chargectl/src/charge"
	"github.com/ryansname/chargectl/src/governor"
	"github.com/ryansname/chargectl/src/scale"
	"github.com/ryansname/chargectl/src/stepper"
)

// AppConfig holds everything read from the environment at startup
type AppConfig struct {
	ScaleDriver scale.Driver
	ScalePort   string
	ScaleBaud   int

	MQTTBroker   string
	MQTTUsername string
	MQTTPassword string
	MQTTClientID string
	TopicPrefix  string

	Charge      charge.Config
	ProfileName string

	Coarse MotorSettings
	Fine   MotorSettings

	EncoderInverted bool
	Console         bool
}

// MotorSettings is the per-motor part of AppConfig
type MotorSettings struct {
	FullStepsPerRev float64
	Microsteps      float64
	MinSpeed        float64
	MaxSpeed        float64
	RampRate        float64
	StopRampRate    float64
	Inverted        bool
}

// pulseClockHz is the pulse generator's input clock
const pulseClockHz = 125_000_000

// pulseOverhead is the fixed cycle cost of emitting one pulse
const pulseOverhead = 3

// envReader collects parse errors so every bad key is reported at once
type envReader struct {
	getenv func(string) string
	errs   []error
}

func (r *envReader) str(key, def string) string {
	if v := r.getenv(key); v != "" {
		return v
	}
	return def
}

func (r *envReader) float(key string, def float64) float64 {
	v := r.getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return f
}

func (r *envReader) int(key string, def int) int {
	v := r.getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return i
}

func (r *envReader) bool(key string, def bool) bool {
	v := r.getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return b
}

func (r *envReader) duration(key string, def time.Duration) time.Duration {
	v := r.getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

func (r *envReader) motor(prefix string, def MotorSettings) MotorSettings {
	return MotorSettings{
		FullStepsPerRev: r.float(prefix+"_FULL_STEPS", def.FullStepsPerRev),
		Microsteps:      r.float(prefix+"_MICROSTEPS", def.Microsteps),
		MinSpeed:        r.float(prefix+"_MIN_SPEED", def.MinSpeed),
		MaxSpeed:        r.float(prefix+"_MAX_SPEED", def.MaxSpeed),
		RampRate:        r.float(prefix+"_RAMP_RATE", def.RampRate),
		StopRampRate:    r.float(prefix+"_STOP_RAMP_RATE", def.StopRampRate),
		Inverted:        r.bool(prefix+"_INVERTED", def.Inverted),
	}
}

// LoadAppConfig reads the configuration using getenv (os.Getenv outside tests)
func LoadAppConfig(getenv func(string) string) (AppConfig, error) {
	r := &envReader{getenv: getenv}

	driver, err := scale.ParseDriver(r.str("SCALE_DRIVER", scale.DriverAndFXi.String()))
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("SCALE_DRIVER: %w", err))
	}

	defaults := charge.DefaultConfig()
	config := AppConfig{
		ScaleDriver: driver,
		ScalePort:   r.str("SCALE_PORT", "/dev/ttyUSB0"),
		ScaleBaud:   r.int("SCALE_BAUD", 19200),

		MQTTBroker:   r.str("MQTT_BROKER", "localhost"),
		MQTTUsername: r.getenv("MQTT_USERNAME"),
		MQTTPassword: r.getenv("MQTT_PASSWORD"),
		MQTTClientID: r.str("MQTT_CLIENT_ID", "chargectl"),
		TopicPrefix:  r.str("MQTT_TOPIC_PREFIX", "chargectl"),

		Charge: charge.Config{
			CoarseStopThreshold:   r.float("COARSE_STOP_THRESHOLD", defaults.CoarseStopThreshold),
			FineStopThreshold:     r.float("FINE_STOP_THRESHOLD", defaults.FineStopThreshold),
			SetPointSDMargin:      r.float("SET_POINT_SD_MARGIN", defaults.SetPointSDMargin),
			SetPointMeanMargin:    r.float("SET_POINT_MEAN_MARGIN", defaults.SetPointMeanMargin),
			DecimalPlaces:         r.int("DECIMAL_PLACES", defaults.DecimalPlaces),
			SettleDelay:           r.duration("SETTLE_DELAY", defaults.SettleDelay),
			SampleSpacing:         defaults.SampleSpacing,
			PollBudget:            defaults.PollBudget,
			CupReturnPollInterval: defaults.CupReturnPollInterval,
			CupRemovalDrop:        r.float("CUP_REMOVAL_DROP", defaults.CupRemovalDrop),
		},
		ProfileName: r.str("PROFILE", "ball"),

		Coarse: r.motor("COARSE", MotorSettings{
			FullStepsPerRev: 200, Microsteps: 16, MinSpeed: 0.05, MaxSpeed: 10, RampRate: 20, StopRampRate: 100,
		}),
		Fine: r.motor("FINE", MotorSettings{
			FullStepsPerRev: 200, Microsteps: 16, MinSpeed: 0.02, MaxSpeed: 8, RampRate: 20, StopRampRate: 100,
		}),

		EncoderInverted: r.bool("ENCODER_INVERTED", false),
		Console:         r.bool("CONSOLE", true),
	}

	if dp := config.Charge.DecimalPlaces; dp != 2 && dp != 3 {
		r.errs = append(r.errs, fmt.Errorf("DECIMAL_PLACES: must be 2 or 3, got %d", dp))
	}

	if len(r.errs) > 0 {
		return config, fmt.Errorf("invalid configuration: %v", r.errs)
	}
	return config, nil
}

// LoadAppConfigFromEnv reads the process environment
func LoadAppConfigFromEnv() (AppConfig, error) {
	return LoadAppConfig(os.Getenv)
}

// ScaleConfig creates the serial settings for the balance
func (c *AppConfig) ScaleConfig() scale.PortConfig {
	return scale.PortConfig{
		Name:        c.ScalePort,
		BaudRate:    c.ScaleBaud,
		ReadTimeout: 100 * time.Millisecond,
	}
}

// MQTTConfig creates the broker connection settings
func (c *AppConfig) MQTTConfig() MQTTConfig {
	return MQTTConfig{
		Broker:   c.MQTTBroker,
		Username: c.MQTTUsername,
		Password: c.MQTTPassword,
		ClientID: c.MQTTClientID,
	}
}

// ChargeConfig returns the charge machine tuning
func (c *AppConfig) ChargeConfig() charge.Config {
	return c.Charge
}

// MotorConfig creates the stepper configuration for one trickler
func (c *AppConfig) MotorConfig(s stepper.Select) stepper.Config {
	m := c.Coarse
	if s == stepper.Fine {
		m = c.Fine
	}
	return stepper.Config{
		Name: s.String(),
		Pulse: governor.PulseConfig{
			ClockHz:         pulseClockHz,
			FullStepsPerRev: m.FullStepsPerRev,
			Microsteps:      m.Microsteps,
			Overhead:        pulseOverhead,
		},
		MinSpeed:     m.MinSpeed,
		MaxSpeed:     m.MaxSpeed,
		RampRate:     m.RampRate,
		StopRampRate: m.StopRampRate,
		Inverted:     m.Inverted,
		Tick:         10 * time.Millisecond,
	}
}

// Profile resolves the configured profile name
func (c *AppConfig) Profile() (charge.Profile, error) {
	return charge.FindProfile(charge.DefaultProfiles(), c.ProfileName)
}
