package render

import (
	"fmt"
	"strings"
)

const (
	msPerSecond = 1000
	msPerMinute = 60 * msPerSecond
	msPerHour   = 60 * msPerMinute
	msPerDay    = 24 * msPerHour
	msPerMonth  = 30 * msPerDay
	msPerYear   = 365 * msPerDay
)

// FormatDuration renders a millisecond count for captions, largest unit
// first, e.g. "1hr 2min 3.400s". Zero components are omitted and sub-minute
// remainders are shown as seconds with millisecond precision, or as plain
// milliseconds when under a second.
func FormatDuration(ms uint64) string {
	if ms == 0 {
		return "0ms"
	}

	units := []struct {
		size   uint64
		suffix string
	}{
		{msPerYear, "y"},
		{msPerMonth, "mo"},
		{msPerDay, "d"},
		{msPerHour, "hr"},
		{msPerMinute, "min"},
	}

	var parts []string
	for _, u := range units {
		if n := ms / u.size; n > 0 {
			parts = append(parts, fmt.Sprintf("%d%s", n, u.suffix))
			ms %= u.size
		}
	}

	switch {
	case ms >= msPerSecond:
		parts = append(parts, fmt.Sprintf("%d.%03ds", ms/msPerSecond, ms%msPerSecond))
	case ms > 0:
		parts = append(parts, fmt.Sprintf("%dms", ms))
	}

	return strings.Join(parts, " ")
}
