package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/tractionhq/traction/backend/task"
)

// MemoryStore is an in-process Store for tests and ephemeral runs. All
// records are deep-copied on the way in and out, so callers can never alias
// internal state.
type MemoryStore struct {
	mu            sync.RWMutex
	tasks         map[uuid.UUID]*task.Record
	sessions      map[uuid.UUID]*task.Session
	transitions   []*task.Transition
	interventions []*task.Intervention
	nextLogID     int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tasks:    make(map[uuid.UUID]*task.Record),
		sessions: make(map[uuid.UUID]*task.Session),
	}
}

func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) CreateTask(_ context.Context, record *task.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[record.ID]; exists {
		return fmt.Errorf("task %s already exists", record.ID)
	}
	s.tasks[record.ID] = record.Clone()
	return nil
}

func (s *MemoryStore) GetTask(_ context.Context, id uuid.UUID) (*task.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: task %s", ErrNotFound, id)
	}
	return record.Clone(), nil
}

func (s *MemoryStore) UpdateTask(_ context.Context, record *task.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateTaskLocked(record)
}

func (s *MemoryStore) updateTaskLocked(record *task.Record) error {
	if _, ok := s.tasks[record.ID]; !ok {
		return fmt.Errorf("%w: task %s", ErrNotFound, record.ID)
	}
	s.tasks[record.ID] = record.Clone()
	return nil
}

func (s *MemoryStore) ListTasks(_ context.Context, filter TaskFilter) ([]*task.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []*task.Record
	for _, record := range s.tasks {
		if filter.matches(record) {
			records = append(records, record.Clone())
		}
	}

	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.Before(records[j].CreatedAt)
		}
		return records[i].ID.String() < records[j].ID.String()
	})
	return records, nil
}

func (s *MemoryStore) ApplyTransition(_ context.Context, record *task.Record, tr *task.Transition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.updateTaskLocked(record); err != nil {
		return err
	}

	s.nextLogID++
	row := *tr
	row.ID = s.nextLogID
	s.transitions = append(s.transitions, &row)
	return nil
}

func (s *MemoryStore) ListTransitions(_ context.Context, taskID uuid.UUID) ([]*task.Transition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var transitions []*task.Transition
	for _, tr := range s.transitions {
		if tr.TaskID == taskID {
			row := *tr
			transitions = append(transitions, &row)
		}
	}
	return transitions, nil
}

func (s *MemoryStore) RecordIntervention(_ context.Context, record *task.Record, iv *task.Intervention) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.updateTaskLocked(record); err != nil {
		return err
	}

	s.nextLogID++
	row := *iv
	row.ID = s.nextLogID
	s.interventions = append(s.interventions, &row)
	return nil
}

func (s *MemoryStore) ListInterventions(_ context.Context, filter InterventionFilter) ([]*task.Intervention, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var interventions []*task.Intervention
	for _, iv := range s.interventions {
		if filter.TaskID != nil && iv.TaskID != *filter.TaskID {
			continue
		}
		if filter.RaisedWithin != nil && !filter.RaisedWithin.Contains(iv.At) {
			continue
		}
		row := *iv
		interventions = append(interventions, &row)
	}
	return interventions, nil
}

func (s *MemoryStore) UpsertSession(_ context.Context, session *task.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.sessions[session.ID]
	if ok {
		// StartedAt is immutable after first sight.
		clone := session.Clone()
		clone.StartedAt = existing.StartedAt
		s.sessions[session.ID] = clone
		return nil
	}
	s.sessions[session.ID] = session.Clone()
	return nil
}

func (s *MemoryStore) GetSession(_ context.Context, id uuid.UUID) (*task.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, id)
	}
	return session.Clone(), nil
}

var _ Store = (*MemoryStore)(nil)
