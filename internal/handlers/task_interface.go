package handlers

import (
	"context"

	"taskboard/internal/models/task"
)

type Service interface {
	HealthCheck(ctx context.Context) error
	ListTasks(ctx context.Context, ownerKey string) ([]*task.Task, error)
	CreateTask(ctx context.Context, in task.Task) (*task.Task, error)
	UpdateTask(ctx context.Context, id string, in task.Task) (*task.Task, error)
	DeleteTask(ctx context.Context, id, ownerKey string) error
}
