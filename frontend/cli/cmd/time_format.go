package cmd

import (
	"fmt"
	"math"
	"time"
)

// FormatRelativeTime renders t relative to now. The engine clock supplies
// now, so displays stay stable under a fake clock.
func FormatRelativeTime(t, now time.Time) string {
	duration := t.Sub(now)

	value, unit := roundedUnits(duration.Abs())
	if duration <= 0 {
		return fmt.Sprintf("%d %s ago", value, unit)
	}
	return fmt.Sprintf("in %d %s", value, unit)
}

func roundedUnits(d time.Duration) (int, string) {
	var value int
	var unit string

	switch {
	case d < time.Hour:
		value = int(math.Round(d.Minutes()))
		unit = "minute"
	case d < 24*time.Hour:
		value = int(math.Round(d.Hours()))
		unit = "hour"
	default:
		value = int(math.Round(d.Hours() / 24))
		unit = "day"
	}

	if value != 1 {
		unit += "s"
	}
	return value, unit
}
