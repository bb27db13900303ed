package store

import (
	"context"
	"database/sql"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id            TEXT PRIMARY KEY,
	started_at    INTEGER NOT NULL,
	closed_at     INTEGER,
	last_task_id  TEXT
);

CREATE TABLE IF NOT EXISTS tasks (
	id                    TEXT PRIMARY KEY,
	session_id            TEXT NOT NULL REFERENCES sessions(id),
	domain                TEXT NOT NULL,
	description           TEXT NOT NULL,
	state                 TEXT NOT NULL,
	created_at            INTEGER NOT NULL,
	last_transition_at    INTEGER NOT NULL,
	interventions_sent    TEXT NOT NULL DEFAULT '',
	context_switch_count  INTEGER NOT NULL DEFAULT 0,
	closed_at             INTEGER,
	close_reason          TEXT NOT NULL DEFAULT '',
	supersedes            TEXT
);

CREATE INDEX IF NOT EXISTS idx_tasks_session    ON tasks(session_id);
CREATE INDEX IF NOT EXISTS idx_tasks_state      ON tasks(state);
CREATE INDEX IF NOT EXISTS idx_tasks_created_at ON tasks(created_at);
CREATE INDEX IF NOT EXISTS idx_tasks_closed_at  ON tasks(closed_at);

CREATE TABLE IF NOT EXISTS task_transitions (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	task_id     TEXT NOT NULL REFERENCES tasks(id),
	from_state  TEXT NOT NULL,
	to_state    TEXT NOT NULL,
	event       TEXT NOT NULL,
	reason      TEXT NOT NULL DEFAULT '',
	at          INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transitions_task ON task_transitions(task_id);

CREATE TABLE IF NOT EXISTS interventions (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	task_id  TEXT NOT NULL REFERENCES tasks(id),
	tier     TEXT NOT NULL,
	message  TEXT NOT NULL,
	at       INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_interventions_task ON interventions(task_id);
CREATE INDEX IF NOT EXISTS idx_interventions_at   ON interventions(at);
`

func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
