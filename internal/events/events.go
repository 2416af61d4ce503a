// Package events publishes todo lifecycle notifications for downstream
// consumers (reminders, analytics). Publishing is best effort.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TodoCreated   Type = "todo.created"
	TodoCompleted Type = "todo.completed"
	TodoDeleted   Type = "todo.deleted"
)

type Event struct {
	ID          string    `json:"id"`
	Type        Type      `json:"type"`
	TodoID      int64     `json:"todoId"`
	UserID      int64     `json:"userId"`
	SuccessorID *int64    `json:"successorId,omitempty"`
	OccurredAt  time.Time `json:"occurredAt"`
}

func New(t Type, todoID, userID int64, at time.Time) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		TodoID:     todoID,
		UserID:     userID,
		OccurredAt: at.UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Fanout publishes every event to all of its publishers and joins their
// errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
