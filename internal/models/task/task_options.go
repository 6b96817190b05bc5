package task

type TaskOption func(*Task)

func WithTitle(title string) TaskOption {
	return func(task *Task) {
		task.Title = title
	}
}

func WithDescription(description string) TaskOption {
	return func(task *Task) {
		task.Description = description
	}
}

// WithCategory ignores invalid categories so an option can never break the enum.
func WithCategory(category Category) TaskOption {
	return func(task *Task) {
		if category.Valid() {
			task.Category = category
		}
	}
}

func WithRank(rank float64) TaskOption {
	return func(task *Task) {
		task.Rank = rank
	}
}
