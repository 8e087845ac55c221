package store

import (
	"context"
	"errors"

	"nretrack/internal/domain"
)

var ErrNotFound = errors.New("not found")

// Store is the record store holding task rows. Both backends order
// ListTasks by createdAt descending and replace whole records on update;
// there is no partial write below the API boundary.
type Store interface {
	ListTasks(ctx context.Context) ([]domain.Task, error)
	GetTask(ctx context.Context, id string) (domain.Task, error)
	InsertTask(ctx context.Context, t domain.Task) error
	UpdateTask(ctx context.Context, t domain.Task) error
	DeleteTask(ctx context.Context, id string) error
	Close() error
}
