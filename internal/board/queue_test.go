package board

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedQueue_OrdersPerKey(t *testing.T) {
	ctx := context.Background()
	q := newKeyedQueue()

	var (
		mtx   sync.Mutex
		order []string
	)
	record := func(s string) {
		mtx.Lock()
		order = append(order, s)
		mtx.Unlock()
	}

	started := make(chan struct{})
	unblock := make(chan struct{})
	firstDone := make(chan error, 1)
	go func() {
		firstDone <- q.run(ctx, "a", func() error {
			close(started)
			<-unblock
			record("a1")
			return nil
		})
	}()
	<-started

	secondDone := make(chan error, 1)
	go func() {
		secondDone <- q.run(ctx, "a", func() error {
			record("a2")
			return nil
		})
	}()

	require.NoError(t, q.run(ctx, "b", func() error {
		record("b1")
		return nil
	}), "other keys do not wait")

	close(unblock)
	require.NoError(t, <-firstDone)
	require.NoError(t, <-secondDone)

	assert.Equal(t, []string{"b1", "a1", "a2"}, order)
	assert.Zero(t, q.pending())
}

func TestKeyedQueue_CancelledWaiterKeepsOrder(t *testing.T) {
	q := newKeyedQueue()

	started := make(chan struct{})
	unblock := make(chan struct{})
	firstDone := make(chan error, 1)
	go func() {
		firstDone <- q.run(context.Background(), "a", func() error {
			close(started)
			<-unblock
			return nil
		})
	}()
	<-started

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	ran := false
	err := q.run(cancelled, "a", func() error {
		ran = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ran)

	thirdDone := make(chan error, 1)
	go func() {
		thirdDone <- q.run(context.Background(), "a", func() error { return nil })
	}()

	close(unblock)
	require.NoError(t, <-firstDone)
	require.NoError(t, <-thirdDone)
	assert.Eventually(t, func() bool { return q.pending() == 0 }, time.Second, 10*time.Millisecond)
}
