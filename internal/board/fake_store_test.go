package board

import (
	"context"
	"fmt"
	"sync"
	"time"

	"taskboard/internal/models/task"
	"taskboard/internal/repository"
)

const owner = "a@x.io"

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeStore is an in-process TaskStore. When gate is set every write blocks until it is
// closed; entered receives one value per write that reached the store.
type fakeStore struct {
	mtx       sync.Mutex
	tasks     map[string]task.Task
	order     []string
	seq       int
	calls     []string
	listErr   error
	createErr error
	deleteErr error
	updateErr map[string]error
	gate      chan struct{}
	entered   chan struct{}
}

func newFakeStore(tasks ...task.Task) *fakeStore {
	s := &fakeStore{
		tasks:     make(map[string]task.Task),
		updateErr: make(map[string]error),
	}
	for _, t := range tasks {
		s.tasks[t.ID] = t.Clone()
		s.order = append(s.order, t.ID)
	}
	return s
}

func (s *fakeStore) wait() {
	if s.entered != nil {
		s.entered <- struct{}{}
	}
	if s.gate != nil {
		<-s.gate
	}
}

func (s *fakeStore) List(ctx context.Context) ([]task.Task, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]task.Task, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.tasks[id].Clone())
	}
	return out, nil
}

func (s *fakeStore) Create(ctx context.Context, t task.Task) (task.Task, error) {
	s.wait()
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.calls = append(s.calls, "create")
	if s.createErr != nil {
		return task.Task{}, s.createErr
	}
	if t.ID != "" {
		return task.Task{}, fmt.Errorf("create: unexpected id %q", t.ID)
	}
	s.seq++
	t.ID = fmt.Sprintf("srv-%d", s.seq)
	s.tasks[t.ID] = t.Clone()
	s.order = append(s.order, t.ID)
	return t, nil
}

func (s *fakeStore) Update(ctx context.Context, id string, t task.Task) (task.Task, error) {
	s.wait()
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.calls = append(s.calls, "update:"+id)
	if err := s.updateErr[id]; err != nil {
		return task.Task{}, err
	}
	if _, ok := s.tasks[id]; !ok {
		return task.Task{}, fmt.Errorf("update %s: %w", id, repository.ErrNotFound)
	}
	stamp := base.Add(time.Hour)
	t.ID = id
	t.UpdatedAt = &stamp
	s.tasks[id] = t.Clone()
	return t, nil
}

func (s *fakeStore) Delete(ctx context.Context, id string) error {
	s.wait()
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.calls = append(s.calls, "delete:"+id)
	if s.deleteErr != nil {
		return s.deleteErr
	}
	if _, ok := s.tasks[id]; !ok {
		return fmt.Errorf("delete %s: %w", id, repository.ErrNotFound)
	}
	delete(s.tasks, id)
	s.order = removeID(s.order, id)
	return nil
}

func (s *fakeStore) get(id string) (task.Task, bool) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	t, ok := s.tasks[id]
	return t, ok
}

func (s *fakeStore) recorded() []string {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return append([]string(nil), s.calls...)
}

func mk(id, ownerKey string, c task.Category, rank float64) task.Task {
	return task.Task{
		ID:        id,
		OwnerKey:  ownerKey,
		Title:     id,
		Category:  c,
		Rank:      rank,
		CreatedAt: base,
	}
}

func ids(tasks []task.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func ptr[T any](v T) *T {
	return &v
}
