package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskboard/internal/logger"
	"taskboard/internal/models/task"
	rep "taskboard/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RankStep is the spacing used when the store has to pick a rank itself.
const RankStep = 1024.0

// business rules of the store API live here

type TaskService struct {
	repo  TaskRepository
	now   func() time.Time
	newID func() string
}

func NewTaskService(repo TaskRepository) *TaskService {
	return &TaskService{
		repo:  repo,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

func (s *TaskService) HealthCheck(ctx context.Context) error {
	if err := s.repo.HealthCheck(ctx); err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	return nil
}

// ListTasks returns every task, or only ownerKey's when it is set.
func (s *TaskService) ListTasks(ctx context.Context, ownerKey string) ([]*task.Task, error) {
	tasks, err := s.repo.List(ctx, ownerKey)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// CreateTask assigns the id and fills in creation time and rank when the client left them
// empty.
func (s *TaskService) CreateTask(ctx context.Context, in task.Task) (*task.Task, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	created := in.Clone()
	created.ID = s.newID()
	created.UpdatedAt = nil
	if created.CreatedAt.IsZero() {
		created.CreatedAt = s.now()
	}
	if created.Rank == 0 {
		rank, err := s.nextRank(ctx, created.OwnerKey, created.Category)
		if err != nil {
			return nil, err
		}
		created.Rank = rank
	}

	if err := s.repo.Create(ctx, &created); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	logger.Info("Service: task created",
		zap.String("task_id", created.ID),
		zap.String("category", created.Category.String()))
	return &created, nil
}

// UpdateTask replaces the editable fields of task id with the full payload in. Owner and
// creation time are immutable and kept from the stored copy.
func (s *TaskService) UpdateTask(ctx context.Context, id string, in task.Task) (*task.Task, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			logger.Info("Service: task not found", zap.String("target_id", id))
			return nil, NewNotFound("task", id)
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	if in.OwnerKey == "" {
		in.OwnerKey = existing.OwnerKey
	}
	if err := validate(in); err != nil {
		return nil, err
	}
	if in.OwnerKey != existing.OwnerKey {
		return nil, NewValidationError("email", "owner cannot change")
	}

	updated := existing.Clone()
	opts := []task.TaskOption{
		task.WithTitle(in.Title),
		task.WithDescription(in.Description),
		task.WithCategory(in.Category),
		task.WithRank(in.Rank),
	}
	for _, opt := range opts {
		opt(&updated)
	}

	if err := s.repo.Update(ctx, &updated); err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			return nil, NewNotFound("task", id)
		}
		return nil, fmt.Errorf("update task: %w", err)
	}
	return &updated, nil
}

// DeleteTask removes task id. A non-empty ownerKey restricts it to that owner's tasks, any
// other task being reported as not found.
func (s *TaskService) DeleteTask(ctx context.Context, id, ownerKey string) error {
	if ownerKey != "" {
		existing, err := s.repo.GetByID(ctx, id)
		if err != nil && !errors.Is(err, rep.ErrNotFound) {
			return fmt.Errorf("get task: %w", err)
		}
		if err != nil || existing.OwnerKey != ownerKey {
			logger.Info("Service: task not found for owner", zap.String("target_id", id))
			return NewNotFound("task", id)
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			logger.Info("Service: task not found", zap.String("target_id", id))
			return NewNotFound("task", id)
		}
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

func (s *TaskService) nextRank(ctx context.Context, ownerKey string, category task.Category) (float64, error) {
	tasks, err := s.repo.List(ctx, ownerKey)
	if err != nil {
		return 0, fmt.Errorf("list tasks: %w", err)
	}
	top, found := 0.0, false
	for _, t := range tasks {
		if t.Category != category {
			continue
		}
		if !found || t.Rank > top {
			top, found = t.Rank, true
		}
	}
	return top + RankStep, nil
}

func validate(t task.Task) error {
	if t.OwnerKey == "" {
		return NewValidationError("email", "owner is required")
	}
	if err := task.Validate(t); err != nil {
		var fe *task.FieldError
		if errors.As(err, &fe) {
			return NewValidationError(fe.Field, fe.Reason)
		}
		return NewValidationError("task", err.Error())
	}
	return nil
}
