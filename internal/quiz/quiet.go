package quiz

import (
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock time as minutes since midnight (0–1439).
type TimeOfDay int

// ClockMinutes converts a wall-clock instant to minutes since midnight.
func ClockMinutes(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

// IsQuietNow reports whether now falls inside the quiet-hours window.
// An empty bound means no quiet hours are configured. The window may wrap
// past midnight (start > end). The start minute is inclusive and the end
// minute exclusive, so 22:00–08:00 suppresses 22:00 and 07:59 but not
// 08:00.
//
// Bounds must be well-formed "HH:MM" strings or empty; the store
// guarantees that.
func IsQuietNow(now TimeOfDay, start, end string) bool {
	if start == "" || end == "" {
		return false
	}

	cur := int(now)
	startM := minutesOfDay(start)
	endM := minutesOfDay(end)

	if startM <= endM {
		return cur >= startM && cur < endM
	}
	// wrap: [start..1440) U [0..end)
	return cur >= startM || cur < endM
}

// minutesOfDay converts "HH:MM" to minutes since midnight.
func minutesOfDay(hhmm string) int {
	h, m, _ := strings.Cut(hhmm, ":")
	hours, _ := strconv.Atoi(h)
	mins, _ := strconv.Atoi(m)
	return hours*60 + mins
}
