package board

import (
	"context"
	"sync"
)

// keyedQueue runs operations for the same key strictly in the order their tickets were
// taken. Different keys do not wait for each other.
type keyedQueue struct {
	mtx   sync.Mutex
	tails map[string]chan struct{}
}

func newKeyedQueue() *keyedQueue {
	return &keyedQueue{tails: make(map[string]chan struct{})}
}

// ticket reserves the next slot for key. prev is closed when the previous holder is done
// (nil if there is none); release must be called exactly once.
func (q *keyedQueue) ticket(key string) (prev <-chan struct{}, release func()) {
	q.mtx.Lock()
	defer q.mtx.Unlock()

	var before <-chan struct{}
	if ch, ok := q.tails[key]; ok {
		before = ch
	}
	mine := make(chan struct{})
	q.tails[key] = mine

	return before, func() {
		q.mtx.Lock()
		if q.tails[key] == mine {
			delete(q.tails, key)
		}
		q.mtx.Unlock()
		close(mine)
	}
}

// run takes a ticket for key and calls fn once every earlier operation on key finished.
// If ctx ends while waiting, fn is skipped but the slot is only released after the
// predecessor, so later operations still observe the order.
func (q *keyedQueue) run(ctx context.Context, key string, fn func() error) error {
	prev, release := q.ticket(key)
	if prev != nil {
		select {
		case <-prev:
		case <-ctx.Done():
			go func() {
				<-prev
				release()
			}()
			return ctx.Err()
		}
	}
	defer release()
	return fn()
}

// pending reports how many keys currently have queued or running operations.
func (q *keyedQueue) pending() int {
	q.mtx.Lock()
	defer q.mtx.Unlock()
	return len(q.tails)
}
