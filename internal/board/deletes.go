package board

import "sync"

type deleteState int

const (
	notDeleted deleteState = iota
	// deleteRunning: queued or in flight, the local copy wins over the store's
	deleteRunning
	// deletedSince: finished after the listing being merged was taken
	deletedSince
)

type deleteEntry struct {
	running int
	seq     uint64
}

// deleteLog remembers deletes so that a resync which listed the store while a delete was
// queued, in flight or just finished does not bring the task back.
type deleteLog struct {
	mtx     sync.Mutex
	seq     uint64
	entries map[string]*deleteEntry
}

func newDeleteLog() *deleteLog {
	return &deleteLog{entries: make(map[string]*deleteEntry)}
}

// begin registers a delete of id. end must be called exactly once; a delete that did not
// succeed is forgotten as soon as no other delete of id is running.
func (l *deleteLog) begin(id string) (end func(succeeded bool)) {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	l.seq++
	en, ok := l.entries[id]
	if !ok {
		en = &deleteEntry{}
		l.entries[id] = en
	}
	en.running++
	en.seq = l.seq

	return func(succeeded bool) {
		l.mtx.Lock()
		defer l.mtx.Unlock()
		en.running--
		if !succeeded && en.running == 0 && l.entries[id] == en {
			delete(l.entries, id)
		}
	}
}

// mark returns the position to pass to settle for a listing taken after this call.
func (l *deleteLog) mark() uint64 {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return l.seq
}

// settle runs fn while no delete can begin or end. state reports each id relative to mark.
// Finished deletes that a listing taken after mark already reflects are then dropped.
func (l *deleteLog) settle(mark uint64, fn func(state func(id string) deleteState)) {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	fn(func(id string) deleteState {
		en, ok := l.entries[id]
		switch {
		case !ok:
			return notDeleted
		case en.running > 0:
			return deleteRunning
		case en.seq > mark:
			return deletedSince
		}
		return notDeleted
	})

	for id, en := range l.entries {
		if en.running == 0 && en.seq <= mark {
			delete(l.entries, id)
		}
	}
}

func (l *deleteLog) size() int {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return len(l.entries)
}
