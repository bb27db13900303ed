// Package report aggregates closed records into daily accountability
// summaries: completion rates, streaks and the spot where abandonment
// concentrates.
package report

import (
	"context"
	"sort"
	"time"

	"github.com/tractionhq/traction/backend/store"
	"github.com/tractionhq/traction/backend/task"
	"github.com/tractionhq/traction/shared"
)

// DefaultStreakThreshold is the completion rate a day needs to keep a
// streak alive.
const DefaultStreakThreshold = 0.8

// Options configure an Aggregator.
type Options struct {
	// Location anchors what "a day" means. Summaries bucket records by
	// closedAt in this location.
	Location *time.Location
	// StreakThreshold is the minimum completion rate for a qualifying day.
	StreakThreshold float64
}

func DefaultOptions() Options {
	return Options{
		Location:        time.Local,
		StreakThreshold: DefaultStreakThreshold,
	}
}

// Option mutates Options.
type Option func(*Options)

func WithLocation(loc *time.Location) Option {
	return func(o *Options) {
		o.Location = loc
	}
}

func WithStreakThreshold(threshold float64) Option {
	return func(o *Options) {
		o.StreakThreshold = threshold
	}
}

// Aggregator answers read-only reporting queries straight off the store.
type Aggregator struct {
	store     store.Store
	loc       *time.Location
	threshold float64
}

func New(st store.Store, opts ...Option) (*Aggregator, error) {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	if options.Location == nil {
		return nil, shared.Errorf(shared.ErrorSourceSystem, "report location must not be nil")
	}
	if options.StreakThreshold < 0 || options.StreakThreshold > 1 {
		return nil, shared.Errorf(shared.ErrorSourceSystem,
			"streak threshold must be within [0, 1], got %v", options.StreakThreshold)
	}

	return &Aggregator{
		store:     st,
		loc:       options.Location,
		threshold: options.StreakThreshold,
	}, nil
}

// Location returns the time zone the aggregator buckets days in.
func (a *Aggregator) Location() *time.Location {
	return a.loc
}

// DomainStats is the closed-record breakdown for one domain.
type DomainStats struct {
	Domain          task.Domain
	Completed       int
	Abandoned       int
	Deferred        int
	CompletionRate  float64
	AbandonmentRate float64
}

// PatternKind says what a Pattern's label names.
type PatternKind string

const (
	PatternDomain    PatternKind = "domain"
	PatternTimeOfDay PatternKind = "timeOfDay"
)

// Pattern names the domain or time-of-day bucket where abandonment ran
// highest.
type Pattern struct {
	Kind            PatternKind
	Label           string
	AbandonmentRate float64
	Closed          int
}

// DailySummary aggregates one local day.
type DailySummary struct {
	// Date is midnight of the summarized day in the aggregator's location.
	Date            time.Time
	Completed       int
	Abandoned       int
	Deferred        int
	Closed          int
	CompletionRate  float64
	AbandonmentRate float64
	// OpenCount is records created that day still open at query time.
	OpenCount  int
	Streak     int
	Domains    []DomainStats
	TopPattern *Pattern
}

// Daily summarizes the local day containing date.
func (a *Aggregator) Daily(ctx context.Context, date time.Time) (*DailySummary, error) {
	dayStart := a.startOfDay(date)

	closed, err := a.closedDuring(ctx, dayStart)
	if err != nil {
		return nil, err
	}

	summary := &DailySummary{Date: dayStart, Closed: len(closed)}
	for _, record := range closed {
		switch record.State {
		case task.StateCompleted:
			summary.Completed++
		case task.StateAbandoned:
			summary.Abandoned++
		case task.StateDeferred:
			summary.Deferred++
		}
	}
	summary.CompletionRate = ratio(summary.Completed, summary.Closed)
	summary.AbandonmentRate = ratio(summary.Abandoned, summary.Closed)
	summary.Domains = domainBreakdown(closed)
	summary.TopPattern = topPattern(closed, a.loc)

	open, err := a.store.ListTasks(ctx, store.TaskFilter{
		CreatedWithin: &store.TimeRange{From: dayStart, To: dayStart.AddDate(0, 0, 1)},
		States:        []task.State{task.StateInitiated, task.StateSolutionProvided, task.StateInProgress},
	})
	if err != nil {
		return nil, shared.Wrap(shared.ErrorSourceStore, err, "list open records")
	}
	summary.OpenCount = len(open)

	streak, err := a.Streak(ctx, date)
	if err != nil {
		return nil, err
	}
	summary.Streak = streak

	return summary, nil
}

// Streak counts consecutive qualifying days ending at date. A day qualifies
// when at least one record closed and the day's completion rate met the
// threshold. The walk stops at the first day with no closed records, so it
// terminates at the edge of recorded history.
func (a *Aggregator) Streak(ctx context.Context, date time.Time) (int, error) {
	streak := 0
	for day := a.startOfDay(date); ; day = day.AddDate(0, 0, -1) {
		closed, err := a.closedDuring(ctx, day)
		if err != nil {
			return 0, err
		}
		if len(closed) == 0 {
			return streak, nil
		}

		completed := 0
		for _, record := range closed {
			if record.State == task.StateCompleted {
				completed++
			}
		}
		if ratio(completed, len(closed)) < a.threshold {
			return streak, nil
		}
		streak++
	}
}

func (a *Aggregator) closedDuring(ctx context.Context, dayStart time.Time) ([]*task.Record, error) {
	records, err := a.store.ListTasks(ctx, store.TaskFilter{
		States:       []task.State{task.StateCompleted, task.StateAbandoned, task.StateDeferred},
		ClosedWithin: &store.TimeRange{From: dayStart, To: dayStart.AddDate(0, 0, 1)},
	})
	if err != nil {
		return nil, shared.Wrap(shared.ErrorSourceStore, err, "list closed records")
	}
	return records, nil
}

func (a *Aggregator) startOfDay(date time.Time) time.Time {
	local := date.In(a.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, a.loc)
}

func domainBreakdown(closed []*task.Record) []DomainStats {
	byDomain := map[task.Domain]*DomainStats{}
	for _, record := range closed {
		stats, ok := byDomain[record.Domain]
		if !ok {
			stats = &DomainStats{Domain: record.Domain}
			byDomain[record.Domain] = stats
		}
		switch record.State {
		case task.StateCompleted:
			stats.Completed++
		case task.StateAbandoned:
			stats.Abandoned++
		case task.StateDeferred:
			stats.Deferred++
		}
	}

	out := make([]DomainStats, 0, len(byDomain))
	for _, stats := range byDomain {
		total := stats.Completed + stats.Abandoned + stats.Deferred
		stats.CompletionRate = ratio(stats.Completed, total)
		stats.AbandonmentRate = ratio(stats.Abandoned, total)
		out = append(out, *stats)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Domain < out[j].Domain
	})
	return out
}

// topPattern scores every domain and time-of-day bucket with at least one
// closed record by abandonment rate. Ties go to the lexicographically
// smaller label.
func topPattern(closed []*task.Record, loc *time.Location) *Pattern {
	if len(closed) == 0 {
		return nil
	}

	type group struct {
		kind      PatternKind
		abandoned int
		closed    int
	}
	groups := map[string]*group{}
	add := func(label string, kind PatternKind, abandoned bool) {
		g, ok := groups[label]
		if !ok {
			g = &group{kind: kind}
			groups[label] = g
		}
		g.closed++
		if abandoned {
			g.abandoned++
		}
	}

	for _, record := range closed {
		abandoned := record.State == task.StateAbandoned
		add(string(record.Domain), PatternDomain, abandoned)
		add(bucketFor(*record.ClosedAt, loc), PatternTimeOfDay, abandoned)
	}

	labels := make([]string, 0, len(groups))
	for label := range groups {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	var best *Pattern
	for _, label := range labels {
		g := groups[label]
		rate := ratio(g.abandoned, g.closed)
		if best == nil || rate > best.AbandonmentRate {
			best = &Pattern{Kind: g.kind, Label: label, AbandonmentRate: rate, Closed: g.closed}
		}
	}
	return best
}

func bucketFor(at time.Time, loc *time.Location) string {
	switch hour := at.In(loc).Hour(); {
	case hour < 6:
		return "night"
	case hour < 12:
		return "morning"
	case hour < 18:
		return "afternoon"
	default:
		return "evening"
	}
}

func ratio(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole)
}
