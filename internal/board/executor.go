package board

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskboard/internal/logger"
	"taskboard/internal/models/task"
	"taskboard/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TaskStore is the remote task collection. Implementations report a missing task with an
// error wrapping repository.ErrNotFound.
type TaskStore interface {
	List(ctx context.Context) ([]task.Task, error)
	Create(ctx context.Context, t task.Task) (task.Task, error)
	Update(ctx context.Context, id string, t task.Task) (task.Task, error)
	Delete(ctx context.Context, id string) error
}

type ExecutorOption func(*Executor)

func WithClock(now func() time.Time) ExecutorOption {
	return func(e *Executor) {
		e.now = now
	}
}

func WithIDGenerator(newID func() string) ExecutorOption {
	return func(e *Executor) {
		e.newID = newID
	}
}

// Executor applies intents and edits to the repository first and then persists them,
// restoring the previous local state when the store rejects the change.
type Executor struct {
	repo  *Repository
	store TaskStore
	queue   *keyedQueue
	deletes *deleteLog
	now     func() time.Time
	newID   func() string
}

func NewExecutor(repo *Repository, store TaskStore, opts ...ExecutorOption) *Executor {
	e := &Executor{
		repo:  repo,
		store: store,
		queue:   newKeyedQueue(),
		deletes: newDeleteLog(),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute applies a drag intent.
func (e *Executor) Execute(ctx context.Context, in Intent) error {
	switch in := in.(type) {
	case Move:
		return e.ApplyMoveAt(ctx, in.TaskID, in.To, in.ToIndex)
	case Reorder:
		return e.ApplyReorder(ctx, in.TaskID, in.Category, in.FromIndex, in.ToIndex)
	default:
		return fmt.Errorf("execute: unsupported intent %T", in)
	}
}

// ApplyMove moves a task to the end of another column.
func (e *Executor) ApplyMove(ctx context.Context, id string, to task.Category) error {
	return e.queue.run(ctx, id, func() error {
		return e.move(ctx, id, to, -1)
	})
}

// ApplyMoveAt moves a task into column to at index (clamped to the column bounds).
func (e *Executor) ApplyMoveAt(ctx context.Context, id string, to task.Category, index int) error {
	if index < 0 {
		index = 0
	}
	return e.queue.run(ctx, id, func() error {
		return e.move(ctx, id, to, index)
	})
}

// ApplyReorder moves the task at from to position to within its column.
func (e *Executor) ApplyReorder(ctx context.Context, id string, category task.Category, from, to int) error {
	return e.queue.run(ctx, id, func() error {
		return e.reorder(ctx, id, category, from, to)
	})
}

// ApplyCreate shows a provisional task immediately and swaps it for the store's copy once
// the store confirms it.
func (e *Executor) ApplyCreate(ctx context.Context, ownerKey string, draft task.Draft) (task.Task, error) {
	if ownerKey == "" {
		return task.Task{}, newValidationError(&task.FieldError{Field: "email", Reason: "owner is required"})
	}
	prov := task.Task{
		ID:          task.ProvisionalPrefix + e.newID(),
		OwnerKey:    ownerKey,
		Title:       draft.Title,
		Description: draft.Description,
		Category:    draft.Category,
		CreatedAt:   e.now(),
	}
	if err := task.Validate(prov); err != nil {
		return task.Task{}, newValidationError(err)
	}
	column := Project(e.repo.All(), ownerKey).Column(prov.Category)
	// a tie with the last rank still sorts after it by creation time
	prov.Rank, _ = rankAt(column, len(column))

	var created task.Task
	err := e.queue.run(ctx, prov.ID, func() error {
		e.repo.Upsert(prov)

		payload := prov.Clone()
		payload.ID = ""
		saved, err := e.store.Create(ctx, payload)
		if err != nil {
			e.repo.Remove(prov.ID)
			logger.Warn("Executor: create failed, provisional task removed",
				zap.String("provisional_id", prov.ID), zap.Error(err))
			return newRemoteError("create", prov.ID, err)
		}
		e.repo.Replace(prov.ID, saved)
		created = saved
		logger.Debug("Executor: task created",
			zap.String("provisional_id", prov.ID), zap.String("task_id", saved.ID))
		return nil
	})
	return created, err
}

// ApplyEdit validates the merged fields before touching anything, then updates optimistically.
func (e *Executor) ApplyEdit(ctx context.Context, id string, patch task.Patch) error {
	if patch.Category != nil && !patch.Category.Valid() {
		return newValidationError(&task.FieldError{Field: "category", Reason: "unknown category"})
	}
	return e.queue.run(ctx, id, func() error {
		current, err := e.lookup(id)
		if err != nil {
			return err
		}
		updated := patch.Apply(current)
		if err := task.Validate(updated); err != nil {
			return newValidationError(err)
		}

		var others []task.Task
		if updated.Category != current.Category {
			column := Project(e.repo.All(), current.OwnerKey).Column(updated.Category)
			others = e.placeRank(&updated, column, len(column))
		}
		return e.commit(ctx, "edit", current, updated, others)
	})
}

// ApplyDelete removes the task at once and puts it back where it was if the store fails.
// A resync running meanwhile keeps the task out of the repository.
func (e *Executor) ApplyDelete(ctx context.Context, id string) error {
	end := e.deletes.begin(id)
	err := e.queue.run(ctx, id, func() error {
		current, err := e.lookup(id)
		if err != nil {
			return err
		}
		pos := e.repo.IndexOf(id)
		e.repo.Remove(id)

		if err := e.store.Delete(ctx, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				e.repo.Remove(id)
				logger.Warn("Executor: task already gone from store", zap.String("task_id", id))
				return nil
			}
			if _, back := e.repo.Get(id); !back {
				e.repo.InsertAt(pos, current)
			}
			logger.Warn("Executor: delete failed, task restored", zap.String("task_id", id), zap.Error(err))
			return newRemoteError("delete", id, err)
		}
		e.repo.Remove(id)
		return nil
	})
	end(err == nil)
	return err
}

// Pending reports how many task ids have operations queued or in flight.
func (e *Executor) Pending() int {
	return e.queue.pending()
}

func (e *Executor) lookup(id string) (task.Task, error) {
	t, ok := e.repo.Get(id)
	if !ok {
		return task.Task{}, newNotFound(id)
	}
	if t.IsProvisional() {
		return task.Task{}, &Error{
			Code:    CodeNotFound,
			Message: fmt.Sprintf("task %s is not confirmed by the store yet", id),
			Details: map[string]any{"id": id},
		}
	}
	return t, nil
}

func (e *Executor) move(ctx context.Context, id string, to task.Category, index int) error {
	if !to.Valid() {
		return newValidationError(&task.FieldError{Field: "category", Reason: "unknown category"})
	}
	current, err := e.lookup(id)
	if err != nil {
		return err
	}
	column := Project(e.repo.All(), current.OwnerKey).Column(to)

	if current.Category == to {
		from := positionOf(column, id)
		if index < 0 || index >= len(column) {
			index = len(column) - 1
		}
		return e.reorder(ctx, id, to, from, index)
	}

	if index < 0 || index > len(column) {
		index = len(column)
	}
	moved := current.Clone()
	moved.Category = to
	others := e.placeRank(&moved, column, index)
	return e.commit(ctx, "move", current, moved, others)
}

func (e *Executor) reorder(ctx context.Context, id string, category task.Category, from, to int) error {
	current, err := e.lookup(id)
	if err != nil {
		return err
	}
	column := Project(e.repo.All(), current.OwnerKey).Column(category)
	n := len(column)
	if from < 0 || from >= n || to < 0 || to >= n || column[from].ID != id {
		return newInvalidRange(category, from, to, n)
	}
	if from == to {
		return nil
	}

	rest := make([]task.Task, 0, n-1)
	rest = append(rest, column[:from]...)
	rest = append(rest, column[from+1:]...)

	moved := current.Clone()
	others := e.placeRank(&moved, rest, to)
	return e.commit(ctx, "reorder", current, moved, others)
}

// placeRank gives t a rank for position index of column (which excludes t) and records
// where it must sit in collection order. When the neighbours leave no gap the column is
// re-ranked and the other tasks whose rank changed are returned.
func (e *Executor) placeRank(t *task.Task, column []task.Task, index int) []task.Task {
	if rank, ok := rankAt(column, index); ok {
		t.Rank = rank
		return nil
	}

	full := make([]task.Task, 0, len(column)+1)
	full = append(full, column[:index]...)
	full = append(full, *t)
	full = append(full, column[index:]...)

	var others []task.Task
	for _, c := range Rebalance(full) {
		if c.ID == t.ID {
			t.Rank = c.Rank
			continue
		}
		others = append(others, c)
	}
	logger.Debug("Executor: column re-ranked",
		zap.String("category", t.Category.String()), zap.Int("changed", len(others)))
	return others
}

// commit applies updated (and re-ranked neighbours) locally, persists them, and restores the
// previous state on failure. A store 404 removes the task locally, the store being the
// source of truth.
func (e *Executor) commit(ctx context.Context, op string, current, updated task.Task, others []task.Task) error {
	pos := e.repo.IndexOf(current.ID)
	previous := make([]task.Task, 0, len(others))
	for _, o := range others {
		if prev, ok := e.repo.Get(o.ID); ok {
			previous = append(previous, prev)
		}
	}

	e.repo.Upsert(updated)
	for _, o := range others {
		e.repo.Upsert(o)
	}
	if updated.Rank != current.Rank || updated.Category != current.Category {
		e.reposition(updated)
	}

	rollback := func() {
		for _, p := range previous {
			if _, ok := e.repo.Get(p.ID); ok {
				e.repo.Upsert(p)
			}
		}
		if _, ok := e.repo.Get(current.ID); ok {
			e.repo.InsertAt(pos, current)
		}
	}

	for _, o := range others {
		saved, err := e.store.Update(ctx, o.ID, o)
		if err != nil {
			rollback()
			logger.Warn("Executor: re-rank failed, rolled back",
				zap.String("op", op), zap.String("task_id", o.ID), zap.Error(err))
			return newRemoteError(op, current.ID, err)
		}
		e.confirm(saved)
	}

	saved, err := e.store.Update(ctx, updated.ID, updated)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			e.repo.Remove(current.ID)
			logger.Warn("Executor: task missing in store, removed locally",
				zap.String("op", op), zap.String("task_id", current.ID))
			nf := newNotFound(current.ID)
			nf.Err = err
			return nf
		}
		rollback()
		logger.Warn("Executor: update failed, rolled back",
			zap.String("op", op), zap.String("task_id", current.ID), zap.Error(err))
		return newRemoteError(op, current.ID, err)
	}
	e.confirm(saved)
	return nil
}

// confirm stores the store's copy unless the task disappeared meanwhile (e.g. a resync
// dropped it), so a late response never resurrects a task.
func (e *Executor) confirm(saved task.Task) {
	if _, ok := e.repo.Get(saved.ID); !ok {
		return
	}
	e.repo.Upsert(saved)
}

// reposition moves t in collection order to match its rank within its owner's column.
func (e *Executor) reposition(t task.Task) {
	column := Project(e.repo.All(), t.OwnerKey).Column(t.Category)
	var prev, next *task.Task
	for i := range column {
		c := column[i]
		if c.ID == t.ID {
			continue
		}
		if c.Rank < t.Rank {
			prev = &column[i]
			continue
		}
		if next == nil {
			next = &column[i]
		}
	}
	switch {
	case next != nil:
		e.repo.Place(t.ID, next.ID, false)
	case prev != nil:
		e.repo.Place(t.ID, prev.ID, true)
	}
}
