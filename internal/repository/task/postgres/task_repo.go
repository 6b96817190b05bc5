package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskboard/internal/logger"
	"taskboard/internal/models/task"
	repo "taskboard/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const (
	slowQuery       = 100 * time.Millisecond
	uniqueViolation = "23505"
)

type PoolConfig struct {
	MaxConns        int32
	MinConns        int32
	MaxConnIdleTime time.Duration
}

type Storage struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, connString string, pc PoolConfig) (*Storage, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		logger.Error("Repository: failed to parse pool config", err)
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnIdleTime = 5 * time.Minute
	if pc.MaxConns > 0 {
		config.MaxConns = pc.MaxConns
	}
	if pc.MinConns > 0 {
		config.MinConns = pc.MinConns
	}
	if pc.MaxConnIdleTime > 0 {
		config.MaxConnIdleTime = pc.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		logger.Error("Repository: failed to create pool", err)
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		logger.Error("Repository: ping failed", err)
		return nil, fmt.Errorf("ping: %w", err)
	}

	logger.Info("Repository: connected to PostgreSQL")
	return &Storage{pool: pool}, nil
}

func (s *Storage) Close() {
	s.pool.Close()
	logger.Info("Repository: PostgreSQL connections closed")
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		logger.Error("Repository: ping failed", err)
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

func (s *Storage) Create(ctx context.Context, taskToCreate *task.Task) error {
	start := time.Now()
	defer warnIfSlow("create", start)

	query := `INSERT INTO tasks
				(id, owner_key, title, description, category, rank, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, NOW()))
				RETURNING created_at`

	var createdAt *time.Time
	if !taskToCreate.CreatedAt.IsZero() {
		createdAt = &taskToCreate.CreatedAt
	}

	err := s.pool.QueryRow(ctx, query,
		taskToCreate.ID,
		taskToCreate.OwnerKey,
		taskToCreate.Title,
		taskToCreate.Description,
		taskToCreate.Category.String(),
		taskToCreate.Rank,
		createdAt,
	).Scan(&taskToCreate.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return repo.ErrAlreadyExists
		}
		logger.Error("Repository: failed to insert task", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (s *Storage) Update(ctx context.Context, taskToUpdate *task.Task) error {
	start := time.Now()
	defer warnIfSlow("update", start)

	query := `UPDATE tasks
			SET title = $1,
				description = $2,
				category = $3,
				rank = $4,
				updated_at = NOW()
			WHERE id = $5
			RETURNING updated_at`

	err := s.pool.QueryRow(ctx, query,
		taskToUpdate.Title,
		taskToUpdate.Description,
		taskToUpdate.Category.String(),
		taskToUpdate.Rank,
		taskToUpdate.ID,
	).Scan(&taskToUpdate.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repo.ErrNotFound
		}
		logger.Error("Repository: failed to update task", err, zap.String("task_id", taskToUpdate.ID))
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

func (s *Storage) GetByID(ctx context.Context, id string) (*task.Task, error) {
	start := time.Now()
	defer warnIfSlow("get", start)

	query := `SELECT id, owner_key, title, description, category, rank, created_at, updated_at
				FROM tasks
				WHERE id = $1`

	t, err := scanTask(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: failed to get task", err, zap.String("task_id", id))
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

func (s *Storage) Delete(ctx context.Context, id string) error {
	start := time.Now()
	defer warnIfSlow("delete", start)

	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		logger.Error("Repository: failed to delete task", err, zap.String("task_id", id))
		return fmt.Errorf("delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// List returns tasks in creation order; an empty ownerKey lists everything.
func (s *Storage) List(ctx context.Context, ownerKey string) ([]*task.Task, error) {
	start := time.Now()
	defer warnIfSlow("list", start)

	query := `SELECT id, owner_key, title, description, category, rank, created_at, updated_at
				FROM tasks
				WHERE $1 = '' OR owner_key = $1
				ORDER BY created_at, id`

	rows, err := s.pool.Query(ctx, query, ownerKey)
	if err != nil {
		logger.Error("Repository: failed to list tasks", err)
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*task.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			logger.Warn("Repository: skipping unreadable task row", zap.Error(err))
			continue
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Repository: row iteration failed", err)
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return tasks, nil
}

func scanTask(row pgx.Row) (*task.Task, error) {
	var (
		t        task.Task
		category string
	)
	if err := row.Scan(
		&t.ID,
		&t.OwnerKey,
		&t.Title,
		&t.Description,
		&category,
		&t.Rank,
		&t.CreatedAt,
		&t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	parsed, err := task.ParseCategory(category)
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", t.ID, err)
	}
	t.Category = parsed
	return &t, nil
}

func warnIfSlow(op string, start time.Time) {
	if elapsed := time.Since(start); elapsed > slowQuery {
		logger.Warn("Repository: slow query", zap.String("op", op), zap.Duration("ms", elapsed))
	}
}
