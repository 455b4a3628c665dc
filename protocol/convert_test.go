package protocol

import "testing"

func TestFreqToQSwitchPeriod(t *testing.T) {
	testCases := []struct {
		kHz      float64
		expected uint16
	}{
		{20, 1000},
		{40, 500},
		{30, 667},
		{80, 250},
	}

	for _, tc := range testCases {
		if got := FreqToQSwitchPeriod(tc.kHz); got != tc.expected {
			t.Errorf("FreqToQSwitchPeriod(%v) = %d, expected %d", tc.kHz, got, tc.expected)
		}
	}
}

func TestFreqToCO2Period(t *testing.T) {
	testCases := []struct {
		kHz      float64
		expected uint16
	}{
		{10, 0x03E8},
		{20, 0x01F4},
		{30, 0x014D},
		{80, 0x007D},
	}

	for _, tc := range testCases {
		if got := FreqToCO2Period(tc.kHz); got != tc.expected {
			t.Errorf("FreqToCO2Period(%v) = 0x%04X, expected 0x%04X", tc.kHz, got, tc.expected)
		}
	}
}

func TestPowerToRatio(t *testing.T) {
	testCases := []struct {
		percent  float64
		expected uint16
	}{
		{0, 0},
		{100, 0xFFF},
		{50, 0x800},
	}

	for _, tc := range testCases {
		if got := PowerToRatio(tc.percent); got != tc.expected {
			t.Errorf("PowerToRatio(%v) = 0x%04X, expected 0x%04X", tc.percent, got, tc.expected)
		}
	}
}

func TestPercentOfCO2Period(t *testing.T) {
	// Golden values observed from a CO2 source set() capture.
	testCases := []struct {
		percent  float64
		kHz      float64
		expected uint16
	}{
		{20, 10, 0x0190},
		{30, 20, 0x012C},
		{40, 30, 0x010B},
		{50, 80, 0x007D},
		{10, 10, 0x00C8},
		{10, 30, 0x0043},
	}

	for _, tc := range testCases {
		if got := PercentOfCO2Period(tc.percent, tc.kHz); got != tc.expected {
			t.Errorf("PercentOfCO2Period(%v, %v) = 0x%04X, expected 0x%04X",
				tc.percent, tc.kHz, got, tc.expected)
		}
	}
}

func TestSpeedToGalvo(t *testing.T) {
	if got := SpeedToGalvo(100, 500); got != 50 {
		t.Errorf("SpeedToGalvo(100, 500) = %d, expected 50", got)
	}
	if got := SpeedToGalvo(1e9, 500); got != 0xFFFF {
		t.Errorf("SpeedToGalvo overflow = %d, expected clamp to 0xFFFF", got)
	}
	// Sign of galvos_per_mm must not matter.
	if got := SpeedToGalvo(100, -500); got != 50 {
		t.Errorf("SpeedToGalvo(100, -500) = %d, expected 50", got)
	}
}

func TestSignedDelay(t *testing.T) {
	mag, sign := SignedDelay(5)
	if mag != 5 || sign != 0x0000 {
		t.Errorf("SignedDelay(5) = (%d, 0x%04X), expected (5, 0x0000)", mag, sign)
	}
	mag, sign = SignedDelay(-5)
	if mag != 5 || sign != 0x8000 {
		t.Errorf("SignedDelay(-5) = (%d, 0x%04X), expected (5, 0x8000)", mag, sign)
	}
}

func TestDistance(t *testing.T) {
	if got := Distance(0, 0, 3, 4); got != 5 {
		t.Errorf("Distance(0,0,3,4) = %d, expected 5", got)
	}
	// A full-field diagonal exceeds uint16 and must clamp.
	if got := Distance(0, 0, 0xFFFF, 0xFFFF); got != 0xFFFF {
		t.Errorf("Distance diagonal = %d, expected clamp to 0xFFFF", got)
	}
}
