package task

import (
	"strings"
	"time"
)

// ProvisionalPrefix marks ids assigned locally before the store confirms a task.
const ProvisionalPrefix = "provisional-"

type Task struct {
	ID          string     `json:"_id"`
	OwnerKey    string     `json:"email"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    Category   `json:"category"`
	Rank        float64    `json:"rank"`
	CreatedAt   time.Time  `json:"timestamp"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

// IsProvisional reports whether the task still carries a locally assigned id.
func (t Task) IsProvisional() bool {
	return strings.HasPrefix(t.ID, ProvisionalPrefix)
}

// Clone returns a copy that shares no pointers with t.
func (t Task) Clone() Task {
	if t.UpdatedAt != nil {
		updated := *t.UpdatedAt
		t.UpdatedAt = &updated
	}
	return t
}

// Draft carries the user supplied fields of a task that does not exist yet.
type Draft struct {
	Title       string
	Description string
	Category    Category
}

// Patch is a partial edit. Nil fields are left untouched.
type Patch struct {
	Title       *string
	Description *string
	Category    *Category
}

// Apply returns a copy of t with the patch fields merged in.
func (p Patch) Apply(t Task) Task {
	out := t.Clone()
	for _, opt := range p.Options() {
		opt(&out)
	}
	return out
}

// Options converts the patch into TaskOption setters.
func (p Patch) Options() []TaskOption {
	var opts []TaskOption
	if p.Title != nil {
		opts = append(opts, WithTitle(*p.Title))
	}
	if p.Description != nil {
		opts = append(opts, WithDescription(*p.Description))
	}
	if p.Category != nil {
		opts = append(opts, WithCategory(*p.Category))
	}
	return opts
}
