package charge

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/ryansname/chargectl/src/governor"
)

// ErrUnknownProfile is returned when a profile name does not match any profile
var ErrUnknownProfile = errors.New("unknown profile")

// Config holds thresholds read at the start of each session
type Config struct {
	CoarseStopThreshold float64 // Coarse trickler stops once the remaining error drops below this
	FineStopThreshold   float64
	SetPointSDMargin    float64
	SetPointMeanMargin  float64
	DecimalPlaces       int // 2 or 3

	SettleDelay           time.Duration // Wait before judging the final weight
	SampleSpacing         time.Duration // Minimum spacing of samples in stability windows
	PollBudget            time.Duration // Longest wait for one measurement before re-polling events
	CupReturnPollInterval time.Duration

	// The reading drops by the cup's weight when it is lifted. The pan counts
	// as empty once the settled mean is this far below SetPointMeanMargin.
	// With 0 this becomes a plain mean < SetPointMeanMargin test; an
	// |mean| < SetPointMeanMargin test like WaitForZero would never see a lifted cup.
	CupRemovalDrop float64
}

// DefaultConfig returns thresholds suited to a 0.02gr balance
func DefaultConfig() Config {
	return Config{
		CoarseStopThreshold:   5.0,
		FineStopThreshold:     0.03,
		SetPointSDMargin:      0.02,
		SetPointMeanMargin:    0.02,
		DecimalPlaces:         2,
		SettleDelay:           time.Second,
		SampleSpacing:         300 * time.Millisecond,
		PollBudget:            200 * time.Millisecond,
		CupReturnPollInterval: 20 * time.Millisecond,
		CupRemovalDrop:        10,
	}
}

// FormatWeight renders w with the configured number of decimal places
func (c Config) FormatWeight(w float64) string {
	return strconv.FormatFloat(w, 'f', c.DecimalPlaces, 64)
}

// Profile holds the tuning for one powder
type Profile struct {
	Name   string
	Coarse governor.Gains
	Fine   governor.Gains

	// Flow speed bounds in rev/s
	CoarseMinSpeed float64
	CoarseMaxSpeed float64
	FineMinSpeed   float64
	FineMaxSpeed   float64
}

// DefaultProfiles is the built-in profile set
func DefaultProfiles() []Profile {
	return []Profile{
		{
			Name:           "ball",
			Coarse:         governor.Gains{Kp: 0.025},
			Fine:           governor.Gains{Kp: 2.0, Ki: 0.0, Kd: 150.0},
			CoarseMinSpeed: 0.1,
			CoarseMaxSpeed: 5.0,
			FineMinSpeed:   0.08,
			FineMaxSpeed:   5.0,
		},
		{
			Name:           "extruded",
			Coarse:         governor.Gains{Kp: 0.05},
			Fine:           governor.Gains{Kp: 3.0, Ki: 0.0, Kd: 200.0},
			CoarseMinSpeed: 0.2,
			CoarseMaxSpeed: 8.0,
			FineMinSpeed:   0.1,
			FineMaxSpeed:   6.0,
		},
		{
			Name:           "flake",
			Coarse:         governor.Gains{Kp: 0.02},
			Fine:           governor.Gains{Kp: 1.5, Ki: 0.0, Kd: 100.0},
			CoarseMinSpeed: 0.1,
			CoarseMaxSpeed: 4.0,
			FineMinSpeed:   0.05,
			FineMaxSpeed:   4.0,
		},
	}
}

// FindProfile returns the profile called name, case-insensitively
func FindProfile(profiles []Profile, name string) (Profile, error) {
	for _, p := range profiles {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	return Profile{}, errors.Wrapf(ErrUnknownProfile, "%q", name)
}
