package corpus

import (
	"fmt"
	"strings"
)

// MaxDescriptionSize is the maximum description size in bytes.
const MaxDescriptionSize = 32768

// Entry is one tour in the retrieval corpus (immutable value object).
type Entry struct {
	id          string
	title       string
	description string
	vector      []float32
}

// NewEntry validates and creates an Entry. The vector is copied.
func NewEntry(id, title, description string, vector []float32) (Entry, error) {
	if strings.TrimSpace(id) == "" {
		return Entry{}, fmt.Errorf("entry ID is required")
	}
	if strings.TrimSpace(title) == "" {
		return Entry{}, fmt.Errorf("entry %q: title is required", id)
	}
	if len(description) > MaxDescriptionSize {
		return Entry{}, fmt.Errorf("entry %q: description too large (max %d bytes)", id, MaxDescriptionSize)
	}
	if len(vector) == 0 {
		return Entry{}, fmt.Errorf("entry %q: vector is required", id)
	}
	v := make([]float32, len(vector))
	copy(v, vector)
	return Entry{id: id, title: title, description: description, vector: v}, nil
}

// ID returns the tour identifier.
func (e Entry) ID() string { return e.id }

// Title returns the tour title.
func (e Entry) Title() string { return e.title }

// Description returns the tour description.
func (e Entry) Description() string { return e.description }

// Vector returns the embedding. Callers must not modify it.
func (e Entry) Vector() []float32 { return e.vector }

// Dim returns the vector dimension.
func (e Entry) Dim() int { return len(e.vector) }
