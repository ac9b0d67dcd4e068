package scale

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// feed pushes every byte of s through the decoder and collects the measurements
func feed(d *Decoder, s string) []Measurement {
	var out []Measurement
	for i := 0; i < len(s); i++ {
		if m, ok := d.Feed(s[i]); ok {
			out = append(out, m)
		}
	}
	return out
}

func TestDecoder_WellFormedFrames(t *testing.T) {
	tests := []struct {
		driver   Driver
		frame    string
		expected float64
	}{
		{DriverAndFXi, "ST,+00012.34  g\r\n", 12.34},
		{DriverAndFXi, "ST,-00012.34  g\r\n", -12.34},
		{DriverSteinberg, "SD   -12.345g \r\n", -12.345},
		{DriverSteinberg, "S      7.125g \r\n", 7.125},
		{DriverGnG, "+   12.34GN \r\n", 12.34},
		{DriverGnG, "-   12.34GN \r\n", -12.34},
		{DriverUSSolid, "+    20.758gn \r\n", 20.758},
		{DriverUSSolid, "-    20.758gn \r\n", -20.758},
		{DriverJMScience, "E S+   12.345 gn \r\n", 12.345},
		{DriverJMScience, "E U-    0.020 gn \r\n", -0.02},
		{DriverCreedmoor, "+0142.02 GN \r\n", 142.02},
		{DriverCreedmoor, "-0142.02 GN \r\n", -142.02},
		{DriverCreedmoor, "+0.32445 oz \r\n", 0.32445},
		{DriverRadwag, "SUI        1.56 gr \r\n", 1.56},
		{DriverRadwag, "SUI?      -2.18 gr \r\n", -2.18},
	}

	for _, tt := range tests {
		t.Run(tt.driver.String()+" "+tt.frame[:len(tt.frame)-2], func(t *testing.T) {
			require.Len(t, tt.frame, tt.driver.FrameSize())

			got := feed(tt.driver.NewDecoder(), tt.frame)
			require.Len(t, got, 1)
			assert.True(t, got[0].Valid)
			assert.InDelta(t, tt.expected, got[0].Value, 1e-6)
		})
	}
}

func TestDecoder_NonNumericFieldIsNaN(t *testing.T) {
	tests := []struct {
		driver Driver
		frame  string
	}{
		{DriverAndFXi, "OL,---------  g\r\n"},
		{DriverSteinberg, "SD  --------g \r\n"},
		{DriverGnG, "+  ------GN \r\n"},
		{DriverUSSolid, "+ ---------gn \r\n"},
		{DriverJMScience, "E U+--------- gn \r\n"},
		{DriverCreedmoor, "+------- GN \r\n"},
		{DriverRadwag, "SUI^   -------- gr \r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.driver.String(), func(t *testing.T) {
			require.Len(t, tt.frame, tt.driver.FrameSize())

			got := feed(tt.driver.NewDecoder(), tt.frame)
			require.Len(t, got, 1)
			assert.False(t, got[0].Valid)
			assert.True(t, math.IsNaN(got[0].Value))
		})
	}
}

func TestDecoder_ResyncAfterNewline(t *testing.T) {
	d := DriverCreedmoor.NewDecoder()

	// Tail of a frame from before we started listening
	got := feed(d, "02 GN \r\n")
	assert.Empty(t, got)

	got = feed(d, "+0142.02 GN \r\n-0001.50 GN \r\n")
	require.Len(t, got, 2)
	assert.InDelta(t, 142.02, got[0].Value, 1e-6)
	assert.InDelta(t, -1.5, got[1].Value, 1e-6)
}

func TestDecoder_ResyncIsIdempotent(t *testing.T) {
	d := DriverAndFXi.NewDecoder()

	got := feed(d, "\n\n\n,+0001.00\n\nST,+00003.00  g\r\n")
	require.Len(t, got, 1)
	assert.InDelta(t, 3.0, got[0].Value, 1e-9)
}

func TestDecoder_JMScienceResyncsOnHeader(t *testing.T) {
	d := DriverJMScience.NewDecoder()

	// A truncated frame with no newline is abandoned when the next header arrives
	got := feed(d, "E S+   12.3E S+    1.000 gn \r\n")
	require.Len(t, got, 1)
	assert.InDelta(t, 1.0, got[0].Value, 1e-9)
}

func TestDecoder_RadwagIgnoresOtherResponses(t *testing.T) {
	d := DriverRadwag.NewDecoder()

	// Acknowledgement of a tare command padded to frame size
	got := feed(d, "T_OK                \n")
	assert.Empty(t, got)

	got = feed(d, "SUI        1.56 gr \r\n")
	require.Len(t, got, 1)
	assert.InDelta(t, 1.56, got[0].Value, 1e-9)
}

func TestDecoder_Reset(t *testing.T) {
	d := DriverCreedmoor.NewDecoder()
	feed(d, "+01")
	d.Reset()

	got := feed(d, "+0010.00 GN \r\n")
	require.Len(t, got, 1)
	assert.InDelta(t, 10.0, got[0].Value, 1e-9)
}

func TestParseDriver(t *testing.T) {
	d, err := ParseDriver(" Creedmoor ")
	require.NoError(t, err)
	assert.Equal(t, DriverCreedmoor, d)

	_, err = ParseDriver("ohaus")
	assert.ErrorIs(t, err, ErrUnknownDriver)
	assert.Contains(t, err.Error(), "radwag")
}

func TestParseLeadingFloat(t *testing.T) {
	tests := []struct {
		in       string
		expected float64
		ok       bool
	}{
		{"  12.5g", 12.5, true},
		{"+0142.02", 142.02, true},
		{"-3", -3, true},
		{"1.2.3", 1.2, true},
		{"   ", 0, false},
		{"-.", 0, false},
		{"gr", 0, false},
	}
	for _, tt := range tests {
		v, ok := parseLeadingFloat([]byte(tt.in))
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.InDelta(t, tt.expected, v, 1e-9, tt.in)
	}
}
