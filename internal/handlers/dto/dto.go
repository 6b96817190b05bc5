package dto

import (
	"time"

	"taskboard/internal/models/task"
)

// TaskRequest is the body of POST /tasks and PUT /tasks/{id}. Unknown category literals are
// rejected while decoding.
type TaskRequest struct {
	ID          string        `json:"_id,omitempty"`
	Email       string        `json:"email"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Category    task.Category `json:"category"`
	Rank        float64       `json:"rank"`
	Timestamp   *time.Time    `json:"timestamp,omitempty"`
}

func (r TaskRequest) ToTask() task.Task {
	t := task.Task{
		ID:          r.ID,
		OwnerKey:    r.Email,
		Title:       r.Title,
		Description: r.Description,
		Category:    r.Category,
		Rank:        r.Rank,
	}
	if r.Timestamp != nil {
		t.CreatedAt = *r.Timestamp
	}
	return t
}

type TaskResponse struct {
	ID          string     `json:"_id"`
	Email       string     `json:"email"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Rank        float64    `json:"rank"`
	Timestamp   time.Time  `json:"timestamp"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

func FromTask(t *task.Task) TaskResponse {
	return TaskResponse{
		ID:          t.ID,
		Email:       t.OwnerKey,
		Title:       t.Title,
		Description: t.Description,
		Category:    t.Category.String(),
		Rank:        t.Rank,
		Timestamp:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func FromTaskList(tasks []*task.Task) []TaskResponse {
	result := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		result[i] = FromTask(t)
	}
	return result
}
