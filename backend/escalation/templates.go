package escalation

import (
	"fmt"
	"time"

	"github.com/tractionhq/traction/backend/task"
)

func messageFor(tier task.Tier, r *task.Record, elapsed time.Duration, daySwitches int) string {
	switch tier {
	case task.TierGentle:
		return fmt.Sprintf("Quick check: %q has a solution waiting. Still on it?", r.Description)
	case task.TierPattern:
		return fmt.Sprintf("%q has been waiting %s and you've switched contexts %d times today. That's the pattern talking.",
			r.Description, formatElapsed(elapsed), daySwitches)
	case task.TierAccountability:
		return fmt.Sprintf("%q has sat untouched for %s. Commit to it right now, defer it, or abandon it. Pick one.",
			r.Description, formatElapsed(elapsed))
	}
	return ""
}

func formatElapsed(elapsed time.Duration) string {
	minutes := int(elapsed.Round(time.Minute) / time.Minute)
	if minutes < 60 {
		return fmt.Sprintf("%d minutes", minutes)
	}

	hours := minutes / 60
	minutes = minutes % 60
	if minutes == 0 {
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	if hours == 1 {
		return fmt.Sprintf("1 hour %d minutes", minutes)
	}
	return fmt.Sprintf("%d hours %d minutes", hours, minutes)
}
