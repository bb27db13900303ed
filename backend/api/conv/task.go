package conv

import (
	"time"

	"github.com/tractionhq/traction/backend/task"
	"github.com/tractionhq/traction/backend/tracker"
)

// Task is the wire shape of a task record.
type Task struct {
	ID                 string     `json:"id"`
	SessionID          string     `json:"sessionId"`
	Domain             string     `json:"domain"`
	Description        string     `json:"description"`
	State              string     `json:"state"`
	CreatedAt          time.Time  `json:"createdAt"`
	LastTransitionAt   time.Time  `json:"lastTransitionAt"`
	InterventionsSent  []string   `json:"interventionsSent"`
	ContextSwitchCount int        `json:"contextSwitchCount"`
	ClosedAt           *time.Time `json:"closedAt,omitempty"`
	CloseReason        string     `json:"closeReason,omitempty"`
	Supersedes         *string    `json:"supersedes,omitempty"`
}

func ConvertRecord(r *task.Record) *Task {
	tiers := make([]string, len(r.InterventionsSent))
	for i, tier := range r.InterventionsSent {
		tiers[i] = string(tier)
	}

	out := &Task{
		ID:                 r.ID.String(),
		SessionID:          r.SessionID.String(),
		Domain:             string(r.Domain),
		Description:        r.Description,
		State:              string(r.State),
		CreatedAt:          r.CreatedAt,
		LastTransitionAt:   r.LastTransitionAt,
		InterventionsSent:  tiers,
		ContextSwitchCount: r.ContextSwitchCount,
		CloseReason:        string(r.CloseReason),
	}
	if r.ClosedAt != nil {
		closedAt := *r.ClosedAt
		out.ClosedAt = &closedAt
	}
	if r.Supersedes != nil {
		supersedes := r.Supersedes.String()
		out.Supersedes = &supersedes
	}
	return out
}

func ConvertRecords(records []*task.Record) []*Task {
	out := make([]*Task, len(records))
	for i, record := range records {
		out[i] = ConvertRecord(record)
	}
	return out
}

// Session is the wire shape of session metadata.
type Session struct {
	ID         string     `json:"id"`
	StartedAt  time.Time  `json:"startedAt"`
	ClosedAt   *time.Time `json:"closedAt,omitempty"`
	LastTaskID *string    `json:"lastTaskId,omitempty"`
}

func ConvertSession(s *task.Session) *Session {
	out := &Session{
		ID:        s.ID.String(),
		StartedAt: s.StartedAt,
	}
	if s.ClosedAt != nil {
		closedAt := *s.ClosedAt
		out.ClosedAt = &closedAt
	}
	if s.LastTaskID != nil {
		lastTaskID := s.LastTaskID.String()
		out.LastTaskID = &lastTaskID
	}
	return out
}

// Closure is one audited record in the closure report.
type Closure struct {
	Task   *Task `json:"task"`
	Forced bool  `json:"forced"`
}

// ClosureReport is the wire shape of a session closure audit outcome.
type ClosureReport struct {
	SessionID string    `json:"sessionId"`
	ClosedAt  time.Time `json:"closedAt"`
	Closures  []Closure `json:"closures"`
}

func ConvertClosureReport(r *tracker.ClosureReport) *ClosureReport {
	closures := make([]Closure, len(r.Closures))
	for i, closure := range r.Closures {
		closures[i] = Closure{
			Task:   ConvertRecord(closure.Record),
			Forced: closure.Forced,
		}
	}
	return &ClosureReport{
		SessionID: r.SessionID.String(),
		ClosedAt:  r.ClosedAt,
		Closures:  closures,
	}
}

// Transition is one row from a task's audit trail.
type Transition struct {
	TaskID    string    `json:"taskId"`
	FromState string    `json:"fromState"`
	ToState   string    `json:"toState"`
	Event     string    `json:"event"`
	Reason    string    `json:"reason,omitempty"`
	At        time.Time `json:"at"`
}

func ConvertTransitions(transitions []*task.Transition) []*Transition {
	out := make([]*Transition, len(transitions))
	for i, tr := range transitions {
		out[i] = &Transition{
			TaskID:    tr.TaskID.String(),
			FromState: string(tr.FromState),
			ToState:   string(tr.ToState),
			Event:     string(tr.Event),
			Reason:    tr.Reason,
			At:        tr.At,
		}
	}
	return out
}

// Intervention is one emitted escalation message.
type Intervention struct {
	TaskID  string    `json:"taskId"`
	Tier    string    `json:"tier"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

func ConvertInterventions(interventions []*task.Intervention) []*Intervention {
	out := make([]*Intervention, len(interventions))
	for i, iv := range interventions {
		out[i] = &Intervention{
			TaskID:  iv.TaskID.String(),
			Tier:    string(iv.Tier),
			Message: iv.Message,
			At:      iv.At,
		}
	}
	return out
}
