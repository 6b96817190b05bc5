package task

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	MaxTitleLength       = 50
	MaxDescriptionLength = 200
)

// FieldError describes a single invalid field.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return &FieldError{Field: "title", Reason: "title is required"}
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return &FieldError{Field: "title", Reason: fmt.Sprintf("title must be at most %d characters", MaxTitleLength)}
	}
	return nil
}

func ValidateDescription(description string) error {
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return &FieldError{Field: "description", Reason: fmt.Sprintf("description must be at most %d characters", MaxDescriptionLength)}
	}
	return nil
}

// Validate checks the user editable fields of t.
func Validate(t Task) error {
	if err := ValidateTitle(t.Title); err != nil {
		return err
	}
	if err := ValidateDescription(t.Description); err != nil {
		return err
	}
	if !t.Category.Valid() {
		return &FieldError{Field: "category", Reason: "category must be one of To-Do, In Progress, Done"}
	}
	return nil
}
