package task

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Domain is the life area a task belongs to. The set is closed.
type Domain string

const (
	DomainBusiness Domain = "BUSINESS"
	DomainMichael  Domain = "MICHAEL"
	DomainFamily   Domain = "FAMILY"
	DomainPersonal Domain = "PERSONAL"
)

func Domains() []Domain {
	return []Domain{DomainBusiness, DomainMichael, DomainFamily, DomainPersonal}
}

func ParseDomain(s string) (Domain, error) {
	for _, d := range Domains() {
		if s == string(d) {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown domain %q", s)
}

// State is the lifecycle state of a task record.
type State string

const (
	StateInitiated        State = "INITIATED"
	StateSolutionProvided State = "SOLUTION_PROVIDED"
	StateInProgress       State = "IN_PROGRESS"
	StateCompleted        State = "COMPLETED"
	StateAbandoned        State = "ABANDONED"
	StateDeferred         State = "DEFERRED"
)

func States() []State {
	return []State{
		StateInitiated,
		StateSolutionProvided,
		StateInProgress,
		StateCompleted,
		StateAbandoned,
		StateDeferred,
	}
}

func ParseState(s string) (State, error) {
	for _, state := range States() {
		if s == string(state) {
			return state, nil
		}
	}
	return "", fmt.Errorf("unknown state %q", s)
}

// Terminal reports whether the state accepts no further events.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateAbandoned, StateDeferred:
		return true
	}
	return false
}

// Escalatable reports whether records in this state are swept for
// interventions. Only states where a solution is waiting on the user qualify.
func (s State) Escalatable() bool {
	return s == StateSolutionProvided || s == StateInProgress
}

// CloseReason records why a task record reached a terminal state.
type CloseReason string

const (
	CloseReasonCompleted            CloseReason = "completed"
	CloseReasonUserDeferred         CloseReason = "user-deferred"
	CloseReasonUserAbandoned        CloseReason = "user-abandoned"
	CloseReasonSessionForcedAbandon CloseReason = "session-forced-abandon"
)

// Tier is an escalation rung. Interventions never repeat a tier within one
// state episode.
type Tier string

const (
	TierGentle         Tier = "GENTLE"
	TierPattern        Tier = "PATTERN"
	TierAccountability Tier = "ACCOUNTABILITY"
)

// Rank orders tiers for ascending-ladder checks.
func (t Tier) Rank() int {
	switch t {
	case TierGentle:
		return 1
	case TierPattern:
		return 2
	case TierAccountability:
		return 3
	}
	return 0
}

// Record is one tracked task. Records are partitioned by session and become
// immutable once terminal.
type Record struct {
	ID                 uuid.UUID
	SessionID          uuid.UUID
	Domain             Domain
	Description        string
	State              State
	CreatedAt          time.Time
	LastTransitionAt   time.Time
	InterventionsSent  []Tier
	ContextSwitchCount int
	ClosedAt           *time.Time
	CloseReason        CloseReason
	Supersedes         *uuid.UUID
}

func (r *Record) Terminal() bool {
	return r.State.Terminal()
}

func (r *Record) HasIntervention(tier Tier) bool {
	return slices.Contains(r.InterventionsSent, tier)
}

// Clone returns a deep copy so store implementations can hand out records
// without aliasing internal state.
func (r *Record) Clone() *Record {
	clone := *r
	clone.InterventionsSent = slices.Clone(r.InterventionsSent)
	if r.ClosedAt != nil {
		closedAt := *r.ClosedAt
		clone.ClosedAt = &closedAt
	}
	if r.Supersedes != nil {
		supersedes := *r.Supersedes
		clone.Supersedes = &supersedes
	}
	return &clone
}

// Session is one tracked conversation. LastTaskID drives context-switch
// counting; a closed session rejects all further task events.
type Session struct {
	ID         uuid.UUID
	StartedAt  time.Time
	ClosedAt   *time.Time
	LastTaskID *uuid.UUID
}

func (s *Session) Closed() bool {
	return s.ClosedAt != nil
}

func (s *Session) Clone() *Session {
	clone := *s
	if s.ClosedAt != nil {
		closedAt := *s.ClosedAt
		clone.ClosedAt = &closedAt
	}
	if s.LastTaskID != nil {
		lastTaskID := *s.LastTaskID
		clone.LastTaskID = &lastTaskID
	}
	return &clone
}

// Transition is one audit row. Rows are append-only.
type Transition struct {
	ID        int64
	TaskID    uuid.UUID
	FromState State
	ToState   State
	Event     Event
	Reason    string
	At        time.Time
}

// Intervention is one emitted escalation message, kept for pattern analysis.
type Intervention struct {
	ID      int64
	TaskID  uuid.UUID
	Tier    Tier
	Message string
	At      time.Time
}
