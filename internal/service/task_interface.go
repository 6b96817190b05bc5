package service

import (
	"context"

	"taskboard/internal/models/task"
)

// TaskRepository is the durable task collection behind the store API.
type TaskRepository interface {
	HealthCheck(context.Context) error
	List(ctx context.Context, ownerKey string) ([]*task.Task, error)
	GetByID(ctx context.Context, id string) (*task.Task, error)
	Create(context.Context, *task.Task) error
	Update(context.Context, *task.Task) error
	Delete(ctx context.Context, id string) error
}
