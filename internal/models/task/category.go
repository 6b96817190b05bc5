package task

import (
	"encoding/json"
	"fmt"
)

// Category is one of the three board columns. The zero value is not a valid category.
type Category uint8

const (
	ToDo Category = iota + 1
	InProgress
	Done
)

// Categories lists the columns in board order.
var Categories = []Category{ToDo, InProgress, Done}

func (c Category) String() string {
	switch c {
	case ToDo:
		return "To-Do"
	case InProgress:
		return "In Progress"
	case Done:
		return "Done"
	default:
		return fmt.Sprintf("Category(%d)", uint8(c))
	}
}

func (c Category) Valid() bool {
	switch c {
	case ToDo, InProgress, Done:
		return true
	default:
		return false
	}
}

// ParseCategory accepts only the exact wire literals.
func ParseCategory(s string) (Category, error) {
	switch s {
	case "To-Do":
		return ToDo, nil
	case "In Progress":
		return InProgress, nil
	case "Done":
		return Done, nil
	default:
		return 0, &FieldError{Field: "category", Reason: fmt.Sprintf("unknown category %q", s)}
	}
}

func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("marshal category: invalid value %d", uint8(c))
	}
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// MarshalJSON is defined explicitly so an invalid category fails loudly instead of being
// encoded as a number.
func (c Category) MarshalJSON() ([]byte, error) {
	text, err := c.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(text))
}

func (c *Category) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return &FieldError{Field: "category", Reason: "must be a string"}
	}
	return c.UnmarshalText([]byte(s))
}
