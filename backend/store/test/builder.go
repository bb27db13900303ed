package test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tractionhq/traction/backend/store"
	"github.com/tractionhq/traction/backend/task"
)

var (
	SessionID = uuid.MustParse("01960a11-7c3e-7f10-9b8a-3d2f11aa0001")
	TaskID    = uuid.MustParse("01960a11-7c3e-7f10-9b8a-3d2f11aa0002")
	BaseTime  = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
)

type entityBuilder struct {
	store store.Store
	t     *testing.T
}

func newEntityBuilder(t *testing.T, s store.Store) *entityBuilder {
	if t == nil {
		panic("testing.T is required")
	}

	if s == nil {
		t.Fatal("store is required")
	}

	return &entityBuilder{
		t:     t,
		store: s,
	}
}

type SessionBuilder struct {
	*entityBuilder
	sessionID uuid.UUID
	startedAt time.Time
}

func NewSessionBuilder(t *testing.T, s store.Store) *SessionBuilder {
	return &SessionBuilder{
		entityBuilder: newEntityBuilder(t, s),
		sessionID:     SessionID,
		startedAt:     BaseTime,
	}
}

func (b *SessionBuilder) WithID(id uuid.UUID) *SessionBuilder {
	b.sessionID = id
	return b
}

func (b *SessionBuilder) WithStartedAt(startedAt time.Time) *SessionBuilder {
	b.startedAt = startedAt
	return b
}

func (b *SessionBuilder) Build(ctx context.Context) *task.Session {
	session := &task.Session{
		ID:        b.sessionID,
		StartedAt: b.startedAt,
	}
	if err := b.store.UpsertSession(ctx, session); err != nil {
		b.t.Fatalf("failed to build session: %v", err)
	}
	return session
}

type RecordBuilder struct {
	*entityBuilder
	id          uuid.UUID
	sessionID   uuid.UUID
	domain      task.Domain
	description string
	state       task.State
	createdAt   time.Time
	closedAt    *time.Time
	closeReason task.CloseReason
	supersedes  *uuid.UUID
}

func NewRecordBuilder(t *testing.T, s store.Store) *RecordBuilder {
	return &RecordBuilder{
		entityBuilder: newEntityBuilder(t, s),
		id:            TaskID,
		sessionID:     SessionID,
		domain:        task.DomainBusiness,
		description:   "send the revised quote",
		state:         task.StateInitiated,
		createdAt:     BaseTime,
	}
}

func (b *RecordBuilder) WithID(id uuid.UUID) *RecordBuilder {
	b.id = id
	return b
}

func (b *RecordBuilder) WithSession(sessionID uuid.UUID) *RecordBuilder {
	b.sessionID = sessionID
	return b
}

func (b *RecordBuilder) WithDomain(domain task.Domain) *RecordBuilder {
	b.domain = domain
	return b
}

func (b *RecordBuilder) WithDescription(description string) *RecordBuilder {
	b.description = description
	return b
}

func (b *RecordBuilder) WithState(state task.State) *RecordBuilder {
	b.state = state
	return b
}

func (b *RecordBuilder) WithCreatedAt(createdAt time.Time) *RecordBuilder {
	b.createdAt = createdAt
	return b
}

func (b *RecordBuilder) ClosedAt(closedAt time.Time, reason task.CloseReason) *RecordBuilder {
	b.closedAt = &closedAt
	b.closeReason = reason
	return b
}

func (b *RecordBuilder) Superseding(previous uuid.UUID) *RecordBuilder {
	b.supersedes = &previous
	return b
}

func (b *RecordBuilder) Build(ctx context.Context) *task.Record {
	record := &task.Record{
		ID:               b.id,
		SessionID:        b.sessionID,
		Domain:           b.domain,
		Description:      b.description,
		State:            b.state,
		CreatedAt:        b.createdAt,
		LastTransitionAt: b.createdAt,
		ClosedAt:         b.closedAt,
		CloseReason:      b.closeReason,
		Supersedes:       b.supersedes,
	}
	if err := b.store.CreateTask(ctx, record); err != nil {
		b.t.Fatalf("failed to build task record: %v", err)
	}
	return record
}
