package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"taskboard/internal/logger"
	"taskboard/internal/models/task"
	"taskboard/internal/service"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	keyPrefix = "taskboard:tasks:"
	allOwners = "*"
)

// Repository caches List results in Redis and evicts them on every write. Redis failures are
// logged and never fail the call.
type Repository struct {
	service.TaskRepository
	redis *redis.Client
	ttl   time.Duration
}

func New(base service.TaskRepository, client *redis.Client, ttl time.Duration) *Repository {
	if base == nil {
		panic("cache.New: base repository is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Repository{
		TaskRepository: base,
		redis:          client,
		ttl:            ttl,
	}
}

func (r *Repository) HealthCheck(ctx context.Context) error {
	if err := r.TaskRepository.HealthCheck(ctx); err != nil {
		return err
	}
	if r.redis == nil {
		return nil
	}
	if err := r.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (r *Repository) List(ctx context.Context, ownerKey string) ([]*task.Task, error) {
	if tasks, ok := r.load(ctx, ownerKey); ok {
		return tasks, nil
	}

	tasks, err := r.TaskRepository.List(ctx, ownerKey)
	if err != nil {
		return nil, err
	}

	r.store(ctx, ownerKey, tasks)
	return tasks, nil
}

func (r *Repository) Create(ctx context.Context, t *task.Task) error {
	if err := r.TaskRepository.Create(ctx, t); err != nil {
		return err
	}
	r.evict(ctx, t.OwnerKey)
	return nil
}

func (r *Repository) Update(ctx context.Context, t *task.Task) error {
	if err := r.TaskRepository.Update(ctx, t); err != nil {
		return err
	}
	r.evict(ctx, t.OwnerKey)
	return nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	owner := ""
	if existing, err := r.TaskRepository.GetByID(ctx, id); err == nil {
		owner = existing.OwnerKey
	}
	if err := r.TaskRepository.Delete(ctx, id); err != nil {
		return err
	}
	r.evict(ctx, owner)
	return nil
}

func (r *Repository) load(ctx context.Context, ownerKey string) ([]*task.Task, bool) {
	if r.redis == nil {
		return nil, false
	}
	key := listKey(ownerKey)
	data, err := r.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warn("Repository: cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	var tasks []*task.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		logger.Warn("Repository: dropping unreadable cache entry", zap.String("key", key), zap.Error(err))
		_ = r.redis.Del(ctx, key).Err()
		return nil, false
	}
	logger.Debug("Repository: cache hit", zap.String("key", key), zap.Int("count", len(tasks)))
	return tasks, true
}

func (r *Repository) store(ctx context.Context, ownerKey string, tasks []*task.Task) {
	if r.redis == nil || r.ttl == 0 {
		return
	}
	data, err := json.Marshal(tasks)
	if err != nil {
		logger.Warn("Repository: cache encode failed", zap.Error(err))
		return
	}
	if err := r.redis.Set(ctx, listKey(ownerKey), data, r.ttl).Err(); err != nil {
		logger.Warn("Repository: cache write failed", zap.Error(err))
	}
}

// evict drops the owner's list and the unfiltered one. An unknown owner drops every list.
func (r *Repository) evict(ctx context.Context, ownerKey string) {
	if r.redis == nil {
		return
	}
	keys := []string{listKey("")}
	if ownerKey != "" {
		keys = append(keys, listKey(ownerKey))
	} else {
		found, err := r.redis.Keys(ctx, keyPrefix+"*").Result()
		if err != nil {
			logger.Warn("Repository: cache scan failed", zap.Error(err))
		}
		keys = append(keys, found...)
	}
	if err := r.redis.Del(ctx, keys...).Err(); err != nil {
		logger.Warn("Repository: cache evict failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

func listKey(ownerKey string) string {
	if ownerKey == "" {
		return keyPrefix + allOwners
	}
	return keyPrefix + ownerKey
}
