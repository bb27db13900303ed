package conv

import (
	"time"

	"github.com/tractionhq/traction/backend/report"
)

// DomainStats is the per-domain slice of a daily summary.
type DomainStats struct {
	Domain          string  `json:"domain"`
	Completed       int     `json:"completed"`
	Abandoned       int     `json:"abandoned"`
	Deferred        int     `json:"deferred"`
	CompletionRate  float64 `json:"completionRate"`
	AbandonmentRate float64 `json:"abandonmentRate"`
}

// Pattern names the domain or time-of-day bucket where abandonment ran
// highest.
type Pattern struct {
	Kind            string  `json:"kind"`
	Label           string  `json:"label"`
	AbandonmentRate float64 `json:"abandonmentRate"`
	Closed          int     `json:"closed"`
}

// DailySummary is the wire shape of one aggregated day.
type DailySummary struct {
	Date            string        `json:"date"`
	Completed       int           `json:"completed"`
	Abandoned       int           `json:"abandoned"`
	Deferred        int           `json:"deferred"`
	Closed          int           `json:"closed"`
	OpenCount       int           `json:"inProgress"`
	CompletionRate  float64       `json:"completionRate"`
	AbandonmentRate float64       `json:"abandonmentRate"`
	Streak          int           `json:"streak"`
	Domains         []DomainStats `json:"domains"`
	TopPattern      *Pattern      `json:"topPattern,omitempty"`
}

// DateFormat is the wire format for report dates.
const DateFormat = time.DateOnly

func ConvertDailySummary(s *report.DailySummary) *DailySummary {
	domains := make([]DomainStats, len(s.Domains))
	for i, stats := range s.Domains {
		domains[i] = DomainStats{
			Domain:          string(stats.Domain),
			Completed:       stats.Completed,
			Abandoned:       stats.Abandoned,
			Deferred:        stats.Deferred,
			CompletionRate:  stats.CompletionRate,
			AbandonmentRate: stats.AbandonmentRate,
		}
	}

	out := &DailySummary{
		Date:            s.Date.Format(DateFormat),
		Completed:       s.Completed,
		Abandoned:       s.Abandoned,
		Deferred:        s.Deferred,
		Closed:          s.Closed,
		OpenCount:       s.OpenCount,
		CompletionRate:  s.CompletionRate,
		AbandonmentRate: s.AbandonmentRate,
		Streak:          s.Streak,
		Domains:         domains,
	}
	if s.TopPattern != nil {
		out.TopPattern = &Pattern{
			Kind:            string(s.TopPattern.Kind),
			Label:           s.TopPattern.Label,
			AbandonmentRate: s.TopPattern.AbandonmentRate,
			Closed:          s.TopPattern.Closed,
		}
	}
	return out
}
