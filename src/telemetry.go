package main

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"time"

	"github.com/ryansname/chargectl/src/scale"
)

const (
	telemetryInterval = 250 * time.Millisecond
	statsWindow       = 2 * time.Second
	flowRateWindow    = 3 * time.Second
	readingsRetention = 10 * time.Second
)

// Reading represents a timestamped scale reading
type Reading struct {
	Value     float64
	Timestamp time.Time
}

// Readings is a collection of timestamped readings, oldest first
type Readings []Reading

// Since returns the readings strictly after cutoff
func (r Readings) Since(cutoff time.Time) Readings {
	i := sort.Search(len(r), func(i int) bool {
		return r[i].Timestamp.After(cutoff)
	})
	return r[i:]
}

// Telemetry is the JSON payload published on the weight topic
type Telemetry struct {
	Weight   float64 `json:"weight"`
	Valid    bool    `json:"valid"`
	Median   float64 `json:"median"`
	Spread   float64 `json:"spread"`    // P99 - P1 over the stats window
	FlowRate float64 `json:"flow_rate"` // Grams (or grains) per second
	Status   string  `json:"status"`
}

// weightedValue represents a value with its duration weight for percentile calculation
type weightedValue struct {
	value    float64
	duration float64
}

// calculateTimeWeightedPercentiles returns P1, P50 and P99 in a single pass
// where each value is weighted by how long it persisted.
// The pairs slice must be sorted by value in ascending order.
func calculateTimeWeightedPercentiles(pairs []weightedValue, totalDuration float64) (p1, p50, p99 float64) {
	if len(pairs) == 0 {
		return 0, 0, 0
	}
	lastValue := pairs[len(pairs)-1].value
	p1, p50, p99 = lastValue, lastValue, lastValue

	targets := []struct {
		fraction float64
		out      *float64
	}{
		{0.01, &p1},
		{0.50, &p50},
		{0.99, &p99},
	}

	var cumulative float64
	next := 0
	for _, pair := range pairs {
		cumulative += pair.duration
		for next < len(targets) && cumulative >= totalDuration*targets[next].fraction {
			*targets[next].out = pair.value
			next++
		}
		if next == len(targets) {
			break
		}
	}

	return p1, p50, p99
}

// calculateTimeWeightedStats computes time-weighted percentiles for a window.
// Each reading is weighted by the duration it was active (time until next reading).
func calculateTimeWeightedStats(readings Readings, windowDuration time.Duration, now time.Time) (p1, p50, p99 float64) {
	if len(readings) == 0 {
		return 0, 0, 0
	}

	lastReading := readings[len(readings)-1]
	windowReadings := readings.Since(now.Add(-windowDuration))

	// A single reading has zero duration, fall back to the last known value
	if len(windowReadings) <= 1 {
		v := lastReading.Value
		return v, v, v
	}

	pairs := make([]weightedValue, 0, len(windowReadings))
	var totalDuration float64
	for i, r := range windowReadings {
		var duration float64
		if i < len(windowReadings)-1 {
			duration = windowReadings[i+1].Timestamp.Sub(r.Timestamp).Seconds()
		} else {
			duration = now.Sub(r.Timestamp).Seconds()
		}
		pairs = append(pairs, weightedValue{value: r.Value, duration: duration})
		totalDuration += duration
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].value < pairs[j].value
	})

	return calculateTimeWeightedPercentiles(pairs, totalDuration)
}

// calculateFlowRate returns the least-squares slope of the readings in the
// window, in units per second. Fewer than two readings give zero.
func calculateFlowRate(readings Readings, windowDuration time.Duration, now time.Time) float64 {
	window := readings.Since(now.Add(-windowDuration))
	if len(window) < 2 {
		return 0
	}

	origin := window[0].Timestamp
	n := float64(len(window))
	var sumT, sumV, sumTT, sumTV float64
	for _, r := range window {
		t := r.Timestamp.Sub(origin).Seconds()
		sumT += t
		sumV += r.Value
		sumTT += t * t
		sumTV += t * r.Value
	}

	denominator := n*sumTT - sumT*sumT
	if denominator == 0 {
		return 0
	}
	return (n*sumTV - sumT*sumV) / denominator
}

// telemetryAt folds one measurement into the reading history and builds the
// payload for now. Invalid measurements are reported but not recorded.
func telemetryAt(readings Readings, m scale.Measurement, status string, now time.Time) (Readings, Telemetry) {
	if m.Valid {
		readings = append(readings, Reading{Value: m.Value, Timestamp: now})
	}

	// Keep at least the most recent reading for last known value
	if kept := readings.Since(now.Add(-readingsRetention)); len(kept) > 0 {
		readings = kept
	} else if len(readings) > 1 {
		readings = readings[len(readings)-1:]
	}

	p1, p50, p99 := calculateTimeWeightedStats(readings, statsWindow, now)
	t := Telemetry{
		Valid:    m.Valid,
		Median:   p50,
		Spread:   p99 - p1,
		FlowRate: calculateFlowRate(readings, flowRateWindow, now),
		Status:   status,
	}
	if m.Valid {
		t.Weight = m.Value
	}
	return readings, t
}

// WeightSource is the latest-value view of the scale
type WeightSource interface {
	Current() scale.Measurement
}

// telemetryWorker samples the scale on a fixed interval and publishes weight
// statistics. It only reads the latest value so it never consumes the
// measurement-ready signal the charge machine waits on.
func telemetryWorker(ctx context.Context, source WeightSource, status *mqttStatusIndicator, sender *MQTTSender) {
	log.Println("Telemetry worker started")

	ticker := time.NewTicker(telemetryInterval)
	defer ticker.Stop()

	var readings Readings
	for {
		select {
		case now := <-ticker.C:
			var t Telemetry
			readings, t = telemetryAt(readings, source.Current(), status.Status().String(), now)

			payload, err := json.Marshal(t)
			if err != nil {
				log.Printf("Failed to encode telemetry: %v\n", err)
				continue
			}
			sender.PublishTelemetry(payload)

		case <-ctx.Done():
			log.Println("Telemetry worker stopped")
			return
		}
	}
}
