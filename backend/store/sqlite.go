package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tractionhq/traction/backend/task"
	"github.com/tractionhq/traction/shared/resilience"
)

// SQLiteStore is the production Store. It keeps a single writer connection
// in WAL mode, so record updates are atomic and readers never block writers.
type SQLiteStore struct {
	db    *sql.DB
	retry resilience.RetryConfig
}

func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", path, err)
	}

	// A single connection serializes writers; WAL keeps readers concurrent.
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db, retry: resilience.DefaultRetryConfig()}, nil
}

// write runs a mutation, retrying lock contention from a serve daemon and a
// CLI command sharing the database file. busy_timeout covers waits inside
// sqlite; the retry covers errors it still surfaces.
func (s *SQLiteStore) write(ctx context.Context, op resilience.Operation) error {
	return resilience.Retry(ctx, s.retry, op, resilience.WithRetryIf(retryableBusy))
}

func retryableBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Times are stored as unix nanoseconds so fake-clock values round-trip
// exactly.
func nsec(t time.Time) int64 {
	return t.UnixNano()
}

func fromNsec(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func nullableNsec(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: nsec(*t), Valid: true}
}

func nullableID(id *uuid.UUID) sql.NullString {
	if id == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: id.String(), Valid: true}
}

func joinTiers(tiers []task.Tier) string {
	parts := make([]string, len(tiers))
	for i, tier := range tiers {
		parts[i] = string(tier)
	}
	return strings.Join(parts, ",")
}

func splitTiers(s string) []task.Tier {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tiers := make([]task.Tier, len(parts))
	for i, part := range parts {
		tiers[i] = task.Tier(part)
	}
	return tiers
}

func (s *SQLiteStore) CreateTask(ctx context.Context, record *task.Record) error {
	return s.write(ctx, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO tasks (
				id, session_id, domain, description, state,
				created_at, last_transition_at, interventions_sent,
				context_switch_count, closed_at, close_reason, supersedes
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			record.ID.String(),
			record.SessionID.String(),
			string(record.Domain),
			record.Description,
			string(record.State),
			nsec(record.CreatedAt),
			nsec(record.LastTransitionAt),
			joinTiers(record.InterventionsSent),
			record.ContextSwitchCount,
			nullableNsec(record.ClosedAt),
			string(record.CloseReason),
			nullableID(record.Supersedes),
		)
		if err != nil {
			return fmt.Errorf("failed to insert task %s: %w", record.ID, err)
		}
		return nil
	})
}

const taskColumns = `
	id, session_id, domain, description, state,
	created_at, last_transition_at, interventions_sent,
	context_switch_count, closed_at, close_reason, supersedes`

func scanTask(row interface{ Scan(...any) error }) (*task.Record, error) {
	var (
		record           task.Record
		id               string
		sessionID        string
		domain           string
		state            string
		createdAt        int64
		lastTransitionAt int64
		tiers            string
		closedAt         sql.NullInt64
		closeReason      string
		supersedes       sql.NullString
	)

	err := row.Scan(
		&id, &sessionID, &domain, &record.Description, &state,
		&createdAt, &lastTransitionAt, &tiers,
		&record.ContextSwitchCount, &closedAt, &closeReason, &supersedes,
	)
	if err != nil {
		return nil, err
	}

	if record.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("corrupt task id %q: %w", id, err)
	}
	if record.SessionID, err = uuid.Parse(sessionID); err != nil {
		return nil, fmt.Errorf("corrupt session id %q: %w", sessionID, err)
	}

	record.Domain = task.Domain(domain)
	record.State = task.State(state)
	record.CreatedAt = fromNsec(createdAt)
	record.LastTransitionAt = fromNsec(lastTransitionAt)
	record.InterventionsSent = splitTiers(tiers)
	record.CloseReason = task.CloseReason(closeReason)

	if closedAt.Valid {
		t := fromNsec(closedAt.Int64)
		record.ClosedAt = &t
	}
	if supersedes.Valid {
		parsed, err := uuid.Parse(supersedes.String)
		if err != nil {
			return nil, fmt.Errorf("corrupt supersedes id %q: %w", supersedes.String, err)
		}
		record.Supersedes = &parsed
	}

	return &record, nil
}

func (s *SQLiteStore) GetTask(ctx context.Context, id uuid.UUID) (*task.Record, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT"+taskColumns+" FROM tasks WHERE id = ?", id.String())

	record, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: task %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load task %s: %w", id, err)
	}
	return record, nil
}

func (s *SQLiteStore) UpdateTask(ctx context.Context, record *task.Record) error {
	return s.write(ctx, func(ctx context.Context) error {
		return s.updateTask(ctx, s.db, record)
	})
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLiteStore) updateTask(ctx context.Context, db execer, record *task.Record) error {
	result, err := db.ExecContext(ctx, `
		UPDATE tasks SET
			domain = ?, description = ?, state = ?,
			last_transition_at = ?, interventions_sent = ?,
			context_switch_count = ?, closed_at = ?, close_reason = ?, supersedes = ?
		WHERE id = ?`,
		string(record.Domain),
		record.Description,
		string(record.State),
		nsec(record.LastTransitionAt),
		joinTiers(record.InterventionsSent),
		record.ContextSwitchCount,
		nullableNsec(record.ClosedAt),
		string(record.CloseReason),
		nullableID(record.Supersedes),
		record.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update task %s: %w", record.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: task %s", ErrNotFound, record.ID)
	}
	return nil
}

func (s *SQLiteStore) ListTasks(ctx context.Context, filter TaskFilter) ([]*task.Record, error) {
	var (
		conditions []string
		args       []any
	)

	if filter.SessionID != nil {
		conditions = append(conditions, "session_id = ?")
		args = append(args, filter.SessionID.String())
	}
	if filter.Domain != nil {
		conditions = append(conditions, "domain = ?")
		args = append(args, string(*filter.Domain))
	}
	if len(filter.States) > 0 {
		placeholders := make([]string, len(filter.States))
		for i, state := range filter.States {
			placeholders[i] = "?"
			args = append(args, string(state))
		}
		conditions = append(conditions, "state IN ("+strings.Join(placeholders, ", ")+")")
	}
	if filter.CreatedWithin != nil {
		conditions = append(conditions, "created_at >= ? AND created_at < ?")
		args = append(args, nsec(filter.CreatedWithin.From), nsec(filter.CreatedWithin.To))
	}
	if filter.ClosedWithin != nil {
		conditions = append(conditions, "closed_at IS NOT NULL AND closed_at >= ? AND closed_at < ?")
		args = append(args, nsec(filter.ClosedWithin.From), nsec(filter.ClosedWithin.To))
	}

	query := "SELECT" + taskColumns + " FROM tasks"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var records []*task.Record
	for rows.Next() {
		record, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) ApplyTransition(ctx context.Context, record *task.Record, tr *task.Transition) error {
	// A failed attempt rolls back, so the whole transaction retries clean.
	return s.write(ctx, func(ctx context.Context) error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if err := s.updateTask(ctx, tx, record); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO task_transitions (task_id, from_state, to_state, event, reason, at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			tr.TaskID.String(),
			string(tr.FromState),
			string(tr.ToState),
			string(tr.Event),
			tr.Reason,
			nsec(tr.At),
		)
		if err != nil {
			return fmt.Errorf("failed to append transition for task %s: %w", tr.TaskID, err)
		}

		return tx.Commit()
	})
}

func (s *SQLiteStore) ListTransitions(ctx context.Context, taskID uuid.UUID) ([]*task.Transition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, task_id, from_state, to_state, event, reason, at
		FROM task_transitions WHERE task_id = ? ORDER BY id ASC`,
		taskID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list transitions for task %s: %w", taskID, err)
	}
	defer rows.Close()

	var transitions []*task.Transition
	for rows.Next() {
		var (
			tr        task.Transition
			id        string
			fromState string
			toState   string
			event     string
			at        int64
		)
		if err := rows.Scan(&tr.ID, &id, &fromState, &toState, &event, &tr.Reason, &at); err != nil {
			return nil, err
		}
		if tr.TaskID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("corrupt task id %q: %w", id, err)
		}
		tr.FromState = task.State(fromState)
		tr.ToState = task.State(toState)
		tr.Event = task.Event(event)
		tr.At = fromNsec(at)
		transitions = append(transitions, &tr)
	}
	return transitions, rows.Err()
}

func (s *SQLiteStore) RecordIntervention(ctx context.Context, record *task.Record, iv *task.Intervention) error {
	return s.write(ctx, func(ctx context.Context) error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if err := s.updateTask(ctx, tx, record); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO interventions (task_id, tier, message, at)
			VALUES (?, ?, ?, ?)`,
			iv.TaskID.String(),
			string(iv.Tier),
			iv.Message,
			nsec(iv.At),
		)
		if err != nil {
			return fmt.Errorf("failed to append intervention for task %s: %w", iv.TaskID, err)
		}

		return tx.Commit()
	})
}

func (s *SQLiteStore) ListInterventions(ctx context.Context, filter InterventionFilter) ([]*task.Intervention, error) {
	var (
		conditions []string
		args       []any
	)

	if filter.TaskID != nil {
		conditions = append(conditions, "task_id = ?")
		args = append(args, filter.TaskID.String())
	}
	if filter.RaisedWithin != nil {
		conditions = append(conditions, "at >= ? AND at < ?")
		args = append(args, nsec(filter.RaisedWithin.From), nsec(filter.RaisedWithin.To))
	}

	query := "SELECT id, task_id, tier, message, at FROM interventions"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list interventions: %w", err)
	}
	defer rows.Close()

	var interventions []*task.Intervention
	for rows.Next() {
		var (
			iv   task.Intervention
			id   string
			tier string
			at   int64
		)
		if err := rows.Scan(&iv.ID, &id, &tier, &iv.Message, &at); err != nil {
			return nil, err
		}
		if iv.TaskID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("corrupt task id %q: %w", id, err)
		}
		iv.Tier = task.Tier(tier)
		iv.At = fromNsec(at)
		interventions = append(interventions, &iv)
	}
	return interventions, rows.Err()
}

func (s *SQLiteStore) UpsertSession(ctx context.Context, session *task.Session) error {
	return s.write(ctx, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO sessions (id, started_at, closed_at, last_task_id)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				closed_at = excluded.closed_at,
				last_task_id = excluded.last_task_id`,
			session.ID.String(),
			nsec(session.StartedAt),
			nullableNsec(session.ClosedAt),
			nullableID(session.LastTaskID),
		)
		if err != nil {
			return fmt.Errorf("failed to upsert session %s: %w", session.ID, err)
		}
		return nil
	})
}

func (s *SQLiteStore) GetSession(ctx context.Context, id uuid.UUID) (*task.Session, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, started_at, closed_at, last_task_id FROM sessions WHERE id = ?",
		id.String())

	var (
		session    task.Session
		rawID      string
		startedAt  int64
		closedAt   sql.NullInt64
		lastTaskID sql.NullString
	)

	err := row.Scan(&rawID, &startedAt, &closedAt, &lastTaskID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}

	if session.ID, err = uuid.Parse(rawID); err != nil {
		return nil, fmt.Errorf("corrupt session id %q: %w", rawID, err)
	}
	session.StartedAt = fromNsec(startedAt)
	if closedAt.Valid {
		t := fromNsec(closedAt.Int64)
		session.ClosedAt = &t
	}
	if lastTaskID.Valid {
		parsed, err := uuid.Parse(lastTaskID.String)
		if err != nil {
			return nil, fmt.Errorf("corrupt task id %q: %w", lastTaskID.String, err)
		}
		session.LastTaskID = &parsed
	}

	return &session, nil
}

var _ Store = (*SQLiteStore)(nil)
