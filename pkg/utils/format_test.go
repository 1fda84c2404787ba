package utils

import "testing"

func TestRoundHalfUp(t *testing.T) {
	tests := []struct {
		input    float64
		places   int
		expected float64
	}{
		{1.234, 2, 1.23},
		{1.5, 0, 2},
		{-1.5, 0, -1},
		{0.0004, 3, 0},
		{0.0006, 3, 0.001},
		{12.25, 1, 12.3},
		{-12.25, 1, -12.2},
		{99.999, 2, 100},
	}

	for _, tt := range tests {
		got := RoundHalfUp(tt.input, tt.places)
		if got != tt.expected {
			t.Errorf("RoundHalfUp(%v, %d) = %v, want %v", tt.input, tt.places, got, tt.expected)
		}
	}
}

func TestFormatUSD(t *testing.T) {
	tests := []struct {
		input    float64
		expected string
	}{
		{0, "$0.00"},
		{100, "$100.00"},
		{1000, "$1,000.00"},
		{123456, "$123,456.00"},
		{1234567.5, "$1,234,567.50"},
		{-1234.56, "-$1,234.56"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			result := FormatUSD(tt.input)
			if result != tt.expected {
				t.Errorf("FormatUSD(%f) = %s, want %s", tt.input, result, tt.expected)
			}
		})
	}
}

func TestFormatUSDCompact(t *testing.T) {
	tests := []struct {
		input    float64
		expected string
	}{
		{500, "$500.00"},
		{1500, "$1.5K"},
		{1500000, "$1.5M"},
		{2000000000, "$2B"},
		{2830000000000, "$2.83T"},
		{-1500000, "-$1.5M"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			result := FormatUSDCompact(tt.input)
			if result != tt.expected {
				t.Errorf("FormatUSDCompact(%f) = %s, want %s", tt.input, result, tt.expected)
			}
		})
	}
}

func TestFormatPct(t *testing.T) {
	if got := FormatPct(2.45); got != "+2.45%" {
		t.Errorf("FormatPct(2.45) = %s", got)
	}
	if got := FormatPct(-1.234); got != "-1.23%" {
		t.Errorf("FormatPct(-1.234) = %s", got)
	}
	if got := FormatPct(0); got != "+0.00%" {
		t.Errorf("FormatPct(0) = %s", got)
	}
}

func TestFormatVolume(t *testing.T) {
	tests := []struct {
		input    float64
		expected string
	}{
		{999, "999"},
		{2500, "2.50K"},
		{1500000, "1.50M"},
		{3200000000, "3.20B"},
	}
	for _, tt := range tests {
		if got := FormatVolume(tt.input); got != tt.expected {
			t.Errorf("FormatVolume(%f) = %s, want %s", tt.input, got, tt.expected)
		}
	}
}
