// Package escalation decides when a waiting task deserves a nudge and how
// hard the nudge should be.
package escalation

import (
	"fmt"
	"time"

	"github.com/tractionhq/traction/backend/task"
)

const (
	DefaultPatternAfter        = 30 * time.Minute
	DefaultAccountabilityAfter = 60 * time.Minute
)

// Policy maps elapsed time since a record's last transition onto an
// escalation tier. It is a pure function of time; it never touches the
// store.
type Policy struct {
	patternAfter        time.Duration
	accountabilityAfter time.Duration
}

func NewPolicy(patternAfter, accountabilityAfter time.Duration) (*Policy, error) {
	if patternAfter <= 0 {
		return nil, fmt.Errorf("patternAfter must be positive, got %s", patternAfter)
	}
	if accountabilityAfter <= patternAfter {
		return nil, fmt.Errorf("accountabilityAfter (%s) must be greater than patternAfter (%s)",
			accountabilityAfter, patternAfter)
	}

	return &Policy{
		patternAfter:        patternAfter,
		accountabilityAfter: accountabilityAfter,
	}, nil
}

func DefaultPolicy() *Policy {
	return &Policy{
		patternAfter:        DefaultPatternAfter,
		accountabilityAfter: DefaultAccountabilityAfter,
	}
}

// TierFor resolves the tier for an elapsed wait. Windows are half-open: at
// exactly patternAfter the tier is already PATTERN.
func (p *Policy) TierFor(elapsed time.Duration) task.Tier {
	switch {
	case elapsed >= p.accountabilityAfter:
		return task.TierAccountability
	case elapsed >= p.patternAfter:
		return task.TierPattern
	default:
		return task.TierGentle
	}
}

// Evaluation is one intervention to raise.
type Evaluation struct {
	Tier    task.Tier
	Message string
	Elapsed time.Duration
}

// Evaluate returns the intervention due for the record at now, or nil when
// nothing should fire. Records outside SOLUTION_PROVIDED and IN_PROGRESS are
// never escalated, and a tier already present on the record's ladder is
// never re-emitted, so evaluation is idempotent at a fixed time.
// daySwitches is the session's context-switch total for the day, quoted by
// the PATTERN message.
func (p *Policy) Evaluate(r *task.Record, now time.Time, daySwitches int) *Evaluation {
	if !r.State.Escalatable() {
		return nil
	}

	elapsed := now.Sub(r.LastTransitionAt)
	if elapsed < 0 {
		elapsed = 0
	}

	tier := p.TierFor(elapsed)
	if r.HasIntervention(tier) {
		return nil
	}

	return &Evaluation{
		Tier:    tier,
		Message: messageFor(tier, r, elapsed, daySwitches),
		Elapsed: elapsed,
	}
}
