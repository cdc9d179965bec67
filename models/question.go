package models

import "fmt"

// Category is one of the two fixed question partitions
type Category string

const (
	CategorySpecialty Category = "specialty"
	CategoryDirection Category = "direction"
)

// Categories lists every category in a stable order
var Categories = []Category{CategorySpecialty, CategoryDirection}

// Valid reports whether c is a known category
func (c Category) Valid() bool {
	return c == CategorySpecialty || c == CategoryDirection
}

// ParseCategory converts a stored category name back into a Category
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

// ActiveQuestion is the question currently posed to a user.
// Number is the 1-based position of the question inside its category.
type ActiveQuestion struct {
	Number   int      `json:"number"`
	Category Category `json:"category"`
}
