package remote

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"taskboard/internal/models/task"
	"taskboard/internal/repository"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL+"/", opts...)
	require.NoError(t, err)
	c.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return c
}

func TestNewClient_RejectsBadURL(t *testing.T) {
	_, err := NewClient("ftp://store")
	assert.Error(t, err)
	_, err = NewClient("://nope")
	assert.Error(t, err)
}

func TestClient_ListRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tasks", r.URL.Path)
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, `[{"_id":"1","email":"a@x.io","title":"T","description":"","category":"In Progress","rank":1024,"timestamp":"2024-03-01T12:00:00Z"}]`)
	})

	tasks, err := c.List(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, calls.Load())
	require.Len(t, tasks, 1)
	assert.Equal(t, "1", tasks[0].ID)
	assert.Equal(t, task.InProgress, tasks[0].Category)
	assert.Equal(t, 1024.0, tasks[0].Rank)
}

func TestClient_ListGivesUp(t *testing.T) {
	t.Run("after max retries", func(t *testing.T) {
		var calls atomic.Int32
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}, WithListRetries(2))

		_, err := c.List(context.Background())
		var se *StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
		assert.True(t, se.Temporary())
		assert.EqualValues(t, 3, calls.Load())
	})

	t.Run("client errors are permanent", func(t *testing.T) {
		var calls atomic.Int32
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			http.Error(w, "bad filter", http.StatusBadRequest)
		})

		_, err := c.List(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bad filter")
		assert.EqualValues(t, 1, calls.Load())
	})
}

func TestClient_ListEmptyAndFiltered(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "a+b@x.io", r.URL.Query().Get("email"))
		_, _ = io.WriteString(w, `null`)
	}, WithOwnerFilter("a+b@x.io"))

	tasks, err := c.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, tasks)
	assert.Empty(t, tasks)
}

func TestClient_Create(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{name: "bare", reply: `{"_id":"srv-1","email":"a@x.io","title":"T","category":"To-Do","rank":1024}`},
		{name: "wrapped", reply: `{"task":{"_id":"srv-1","email":"a@x.io","title":"T","category":"To-Do","rank":1024}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

				var body map[string]any
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Equal(t, "", body["_id"], "ids are assigned by the store")
				assert.Equal(t, "To-Do", body["category"])

				w.WriteHeader(http.StatusCreated)
				_, _ = io.WriteString(w, tt.reply)
			})

			created, err := c.Create(context.Background(), task.Task{
				ID:       task.ProvisionalPrefix + "x",
				OwnerKey: "a@x.io",
				Title:    "T",
				Category: task.ToDo,
				Rank:     1024,
			})
			require.NoError(t, err)
			assert.Equal(t, "srv-1", created.ID)
			assert.Equal(t, task.ToDo, created.Category)
		})
	}

	t.Run("reply without id", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"title":"T"}`)
		})
		_, err := c.Create(context.Background(), task.Task{Title: "T", Category: task.ToDo})
		assert.Error(t, err)
	})
}

func TestClient_Update(t *testing.T) {
	t.Run("store copy", func(t *testing.T) {
		stamp := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPut, r.Method)
			assert.Equal(t, "/tasks/abc", r.URL.Path)

			var in task.Task
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			assert.Equal(t, "abc", in.ID)
			in.UpdatedAt = &stamp
			_ = json.NewEncoder(w).Encode(in)
		})

		got, err := c.Update(context.Background(), "abc", task.Task{Title: "T", Category: task.Done})
		require.NoError(t, err)
		assert.Equal(t, "abc", got.ID)
		require.NotNil(t, got.UpdatedAt)
		assert.True(t, stamp.Equal(*got.UpdatedAt))
	})

	t.Run("acknowledged only", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"acknowledged":true}`)
		})

		got, err := c.Update(context.Background(), "abc", task.Task{Title: "T", Category: task.Done})
		require.NoError(t, err)
		assert.Equal(t, "abc", got.ID)
		assert.Equal(t, "T", got.Title)
	})

	t.Run("not found", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		_, err := c.Update(context.Background(), "abc", task.Task{Title: "T", Category: task.Done})
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestClient_Delete(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		if r.URL.Path == "/tasks/gone" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}, WithBearerToken("tok"))

	require.NoError(t, c.Delete(context.Background(), "abc"))
	assert.ErrorIs(t, c.Delete(context.Background(), "gone"), repository.ErrNotFound)
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, WithTimeout(50*time.Millisecond))
	defer close(release)

	err := c.Delete(context.Background(), "abc")
	assert.Error(t, err)
}
