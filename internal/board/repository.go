package board

import (
	"sync"

	"taskboard/internal/models/task"
)

// Repository holds the session's tasks. Collection order is kept in ids; it carries no
// meaning by itself but the projector preserves it, so it doubles as display order.
type Repository struct {
	storage map[string]task.Task
	mtx     *sync.RWMutex
	ids     []string
}

func NewRepository() *Repository {
	return &Repository{
		storage: make(map[string]task.Task),
		mtx:     &sync.RWMutex{},
		ids:     []string{},
	}
}

// Upsert inserts a new task at the end or replaces an existing one in place.
func (r *Repository) Upsert(t task.Task) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if _, ok := r.storage[t.ID]; !ok {
		r.ids = append(r.ids, t.ID)
	}
	r.storage[t.ID] = t.Clone()
}

// Remove is a no-op for unknown ids.
func (r *Repository) Remove(id string) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if _, ok := r.storage[id]; !ok {
		return
	}
	delete(r.storage, id)
	r.ids = removeID(r.ids, id)
}

func (r *Repository) All() []task.Task {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	res := make([]task.Task, 0, len(r.ids))
	for _, id := range r.ids {
		res = append(res, r.storage[id].Clone())
	}
	return res
}

func (r *Repository) Get(id string) (task.Task, bool) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	t, ok := r.storage[id]
	if !ok {
		return task.Task{}, false
	}
	return t.Clone(), true
}

func (r *Repository) Len() int {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	return len(r.ids)
}

// IndexOf returns the collection position of id, or -1.
func (r *Repository) IndexOf(id string) int {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	return indexOf(r.ids, id)
}

// Replace swaps the record stored under oldID for t, keeping its position. If oldID is
// unknown t is upserted. Any other record already stored under t.ID is dropped so ids stay
// unique.
func (r *Repository) Replace(oldID string, t task.Task) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	pos := indexOf(r.ids, oldID)
	if pos < 0 {
		if _, ok := r.storage[t.ID]; !ok {
			r.ids = append(r.ids, t.ID)
		}
		r.storage[t.ID] = t.Clone()
		return
	}
	if oldID != t.ID {
		if _, dup := r.storage[t.ID]; dup {
			r.ids = removeID(r.ids, t.ID)
			pos = indexOf(r.ids, oldID)
		}
		delete(r.storage, oldID)
		r.ids[pos] = t.ID
	}
	r.storage[t.ID] = t.Clone()
}

// InsertAt stores t at collection position index (clamped). An existing record with the
// same id is moved there.
func (r *Repository) InsertAt(index int, t task.Task) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if _, ok := r.storage[t.ID]; ok {
		r.ids = removeID(r.ids, t.ID)
	}
	r.ids = insertID(r.ids, index, t.ID)
	r.storage[t.ID] = t.Clone()
}

// Place moves id directly before (or after) anchorID in collection order. Unknown ids and
// self-anchoring are ignored.
func (r *Repository) Place(id, anchorID string, after bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if id == anchorID {
		return
	}
	if _, ok := r.storage[id]; !ok {
		return
	}
	if _, ok := r.storage[anchorID]; !ok {
		return
	}
	r.ids = removeID(r.ids, id)
	pos := indexOf(r.ids, anchorID)
	if after {
		pos++
	}
	r.ids = insertID(r.ids, pos, id)
}

// Reset replaces the whole collection, keeping the given order.
func (r *Repository) Reset(tasks []task.Task) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.storage = make(map[string]task.Task, len(tasks))
	r.ids = make([]string, 0, len(tasks))
	for _, t := range tasks {
		if _, dup := r.storage[t.ID]; !dup {
			r.ids = append(r.ids, t.ID)
		}
		r.storage[t.ID] = t.Clone()
	}
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

func removeID(ids []string, id string) []string {
	pos := indexOf(ids, id)
	if pos < 0 {
		return ids
	}
	return append(ids[:pos], ids[pos+1:]...)
}

func insertID(ids []string, index int, id string) []string {
	if index < 0 {
		index = 0
	}
	if index > len(ids) {
		index = len(ids)
	}
	ids = append(ids, "")
	copy(ids[index+1:], ids[index:])
	ids[index] = id
	return ids
}
