package quiz

import (
	"testing"
	"time"
)

func at(hh, mm int) TimeOfDay {
	return TimeOfDay(hh*60 + mm)
}

func TestIsQuietNow(t *testing.T) {
	tests := []struct {
		name       string
		now        TimeOfDay
		start, end string
		want       bool
	}{
		{"no bounds configured", at(23, 0), "", "", false},
		{"missing end bound", at(23, 0), "22:00", "", false},
		{"missing start bound", at(23, 0), "", "08:00", false},

		// Non-wrapping window 09:00–17:00
		{"before window", at(8, 59), "09:00", "17:00", false},
		{"start inclusive", at(9, 0), "09:00", "17:00", true},
		{"inside window", at(12, 30), "09:00", "17:00", true},
		{"end exclusive", at(17, 0), "09:00", "17:00", false},
		{"after window", at(20, 0), "09:00", "17:00", false},

		// Wrapping window 22:00–08:00
		{"wrap late evening", at(23, 30), "22:00", "08:00", true},
		{"wrap start inclusive", at(22, 0), "22:00", "08:00", true},
		{"wrap early morning", at(7, 59), "22:00", "08:00", true},
		{"wrap end exclusive", at(8, 0), "22:00", "08:00", false},
		{"wrap midday", at(12, 0), "22:00", "08:00", false},
		{"wrap midnight", at(0, 0), "22:00", "08:00", true},

		// Degenerate zero-length window
		{"start equals end", at(10, 0), "10:00", "10:00", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsQuietNow(tt.now, tt.start, tt.end); got != tt.want {
				t.Errorf("IsQuietNow(%d, %q, %q) = %v, want %v",
					tt.now, tt.start, tt.end, got, tt.want)
			}
		})
	}
}

func TestClockMinutes(t *testing.T) {
	ts := time.Date(2025, time.March, 4, 23, 30, 45, 0, time.UTC)
	if got := ClockMinutes(ts); got != at(23, 30) {
		t.Errorf("ClockMinutes = %d, want %d", got, at(23, 30))
	}
}
