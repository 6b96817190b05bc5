package board

import (
	"taskboard/internal/models/task"
)

// View is the per-category projection of one owner's tasks.
type View struct {
	ToDo       []task.Task
	InProgress []task.Task
	Done       []task.Task
}

// Column returns the sequence for c; nil for an invalid category.
func (v View) Column(c task.Category) []task.Task {
	switch c {
	case task.ToDo:
		return v.ToDo
	case task.InProgress:
		return v.InProgress
	case task.Done:
		return v.Done
	default:
		return nil
	}
}

// Len counts the tasks across all columns.
func (v View) Len() int {
	return len(v.ToDo) + len(v.InProgress) + len(v.Done)
}

// Project filters tasks by exact owner match and partitions them by category, preserving
// the order of tasks. An empty owner projects empty columns.
func Project(tasks []task.Task, ownerKey string) View {
	v := View{
		ToDo:       []task.Task{},
		InProgress: []task.Task{},
		Done:       []task.Task{},
	}
	if ownerKey == "" {
		return v
	}
	for _, t := range tasks {
		if t.OwnerKey != ownerKey {
			continue
		}
		switch t.Category {
		case task.ToDo:
			v.ToDo = append(v.ToDo, t)
		case task.InProgress:
			v.InProgress = append(v.InProgress, t)
		case task.Done:
			v.Done = append(v.Done, t)
		}
	}
	return v
}

func positionOf(column []task.Task, id string) int {
	for i, t := range column {
		if t.ID == id {
			return i
		}
	}
	return -1
}
