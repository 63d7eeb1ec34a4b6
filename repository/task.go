package repository

import (
	"context"

	"github.com/dreamloop/backend/domain"
)

type TaskFilter struct {
	UserID string
	Status string
	Kind   string
	Limit  int
	Offset int
}

// ReminderTarget identifies an owner with open tasks for the reminder sweep.
type ReminderTarget struct {
	UserID    string
	Email     string
	OpenTasks int
}

type TaskRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	List(ctx context.Context, filter TaskFilter) ([]domain.Task, error)
	Create(ctx context.Context, task *domain.Task) (*domain.Task, error)
	// Update writes the task guarded by the submission version the caller
	// read; a stale version yields domain.ErrTaskConflict and the write is
	// discarded. On success the version is bumped in place.
	Update(ctx context.Context, task *domain.Task) error
	Delete(ctx context.Context, id string) error
	IncompleteByOwner(ctx context.Context) ([]ReminderTarget, error)
}
