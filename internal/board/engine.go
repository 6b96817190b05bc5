package board

import (
	"context"
	"fmt"
	"time"

	"taskboard/internal/identity"
	"taskboard/internal/logger"
	"taskboard/internal/models/task"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Engine is the board state engine: it owns the session repository, projects it for the
// current identity, interprets drags and routes every mutation through the executor.
type Engine struct {
	repo     *Repository
	store    TaskStore
	identity identity.Provider
	executor *Executor
	drag     *DragInterpreter
	reloads  singleflight.Group
}

func NewEngine(store TaskStore, ident identity.Provider, opts ...ExecutorOption) *Engine {
	repo := NewRepository()
	e := &Engine{
		repo:     repo,
		store:    store,
		identity: ident,
		executor: NewExecutor(repo, store, opts...),
	}
	e.drag = NewDragInterpreter(e)
	return e
}

func (e *Engine) Repository() *Repository {
	return e.repo
}

func (e *Engine) Executor() *Executor {
	return e.executor
}

func (e *Engine) Drag() *DragInterpreter {
	return e.drag
}

// Load performs the initial bulk load.
func (e *Engine) Load(ctx context.Context) error {
	return e.Reload(ctx)
}

// Reload replaces the repository with the store's listing, which wins on conflict.
// Provisional tasks of creates still in flight are kept, and tasks with a delete queued,
// in flight or finished after the listing was taken are left as the executor has them.
// Concurrent calls share one listing.
func (e *Engine) Reload(ctx context.Context) error {
	_, err, shared := e.reloads.Do("reload", func() (any, error) {
		start := time.Now()
		mark := e.executor.deletes.mark()
		tasks, err := e.store.List(ctx)
		if err != nil {
			logger.Error("Board: reload failed", err)
			return nil, fmt.Errorf("list tasks: %w", err)
		}

		valid := tasks[:0]
		for _, t := range tasks {
			if !t.Category.Valid() || t.ID == "" {
				logger.Warn("Board: skipping malformed task from store", zap.String("task_id", t.ID))
				continue
			}
			valid = append(valid, t)
		}
		SortByRank(valid)

		var count int
		e.executor.deletes.settle(mark, func(state func(id string) deleteState) {
			local := e.repo.All()
			byID := make(map[string]task.Task, len(local))
			for _, t := range local {
				byID[t.ID] = t
			}

			merged := make([]task.Task, 0, len(valid)+len(local))
			for _, t := range valid {
				switch state(t.ID) {
				case notDeleted:
					merged = append(merged, t)
				case deleteRunning:
					if l, ok := byID[t.ID]; ok {
						merged = append(merged, l)
					}
				default:
					logger.Debug("Board: skipping task deleted during reload", zap.String("task_id", t.ID))
				}
			}
			for _, t := range local {
				if t.IsProvisional() {
					merged = append(merged, t)
				}
			}
			e.repo.Reset(merged)
			count = len(merged)
		})

		logger.Info("Board: tasks loaded",
			zap.Int("count", count),
			zap.Duration("ms", time.Since(start)))
		return nil, nil
	})
	if shared {
		logger.Debug("Board: reload coalesced")
	}
	return err
}

// Owner implements ViewSource.
func (e *Engine) Owner() (string, bool) {
	if e.identity == nil {
		return "", false
	}
	id, ok := e.identity.Current()
	if !ok || id.Key == "" {
		return "", false
	}
	return id.Key, true
}

// Lookup implements ViewSource.
func (e *Engine) Lookup(id string) (task.Task, bool) {
	return e.repo.Get(id)
}

// View projects the repository for the current identity; signed out yields empty columns.
func (e *Engine) View() View {
	owner, _ := e.Owner()
	return Project(e.repo.All(), owner)
}

func (e *Engine) StartDrag(id string) bool {
	return e.drag.Start(id)
}

func (e *Engine) HoverDrag(target Target) {
	e.drag.Hover(target)
}

func (e *Engine) CancelDrag() {
	e.drag.Cancel()
}

// Drop resolves the drag on target and executes the resulting intent, if any.
func (e *Engine) Drop(ctx context.Context, target Target) error {
	in, ok := e.drag.Drop(target)
	if !ok {
		return nil
	}
	return e.execute(ctx, in)
}

// DropHovered resolves the drag on the last hovered target.
func (e *Engine) DropHovered(ctx context.Context) error {
	in, ok := e.drag.DropHovered()
	if !ok {
		return nil
	}
	return e.execute(ctx, in)
}

func (e *Engine) execute(ctx context.Context, in Intent) error {
	if err := e.executor.Execute(ctx, in); err != nil {
		logger.Warn("Board: intent failed", zap.String("intent", fmt.Sprintf("%+v", in)), zap.Error(err))
		return err
	}
	return nil
}

func (e *Engine) Create(ctx context.Context, draft task.Draft) (task.Task, error) {
	owner, ok := e.Owner()
	if !ok {
		return task.Task{}, newValidationError(&task.FieldError{Field: "email", Reason: "not signed in"})
	}
	return e.executor.ApplyCreate(ctx, owner, draft)
}

func (e *Engine) Edit(ctx context.Context, id string, patch task.Patch) error {
	if err := e.visible(id); err != nil {
		return err
	}
	return e.executor.ApplyEdit(ctx, id, patch)
}

func (e *Engine) Delete(ctx context.Context, id string) error {
	if err := e.visible(id); err != nil {
		return err
	}
	return e.executor.ApplyDelete(ctx, id)
}

func (e *Engine) Move(ctx context.Context, id string, to task.Category) error {
	if err := e.visible(id); err != nil {
		return err
	}
	return e.executor.ApplyMove(ctx, id, to)
}

func (e *Engine) Reorder(ctx context.Context, id string, category task.Category, from, to int) error {
	if err := e.visible(id); err != nil {
		return err
	}
	return e.executor.ApplyReorder(ctx, id, category, from, to)
}

// visible hides other owners' tasks behind NotFound.
func (e *Engine) visible(id string) error {
	owner, ok := e.Owner()
	if !ok {
		return newNotFound(id)
	}
	t, found := e.repo.Get(id)
	if !found || t.OwnerKey != owner {
		return newNotFound(id)
	}
	return nil
}
