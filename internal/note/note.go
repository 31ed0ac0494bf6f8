// Package note holds the starter's single domain entity and its
// persistence. It exists so the template ships with a worked example:
// a migrated table, a store, validation producing real failures, and
// handlers on both transports.
package note

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mkamau/groundwork/internal/failure"
)

const (
	// MinTitleLength is the minimum note title length.
	MinTitleLength = 5

	// MaxBodyLength caps the note body size.
	MaxBodyLength = 10000
)

// Note is a persisted note.
type Note struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// New creates a note with a fresh ID and timestamps.
func New(title, body string) Note {
	now := time.Now().UTC()
	return Note{
		ID:        uuid.New(),
		Title:     title,
		Body:      body,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate checks the note against schema rules. It reports every
// violated rule, not just the first, so the caller's envelope lists
// them all.
func (n Note) Validate() error {
	var messages []string

	if n.Title == "" {
		messages = append(messages, "title must not be empty")
	}
	if len(n.Title) < MinTitleLength {
		messages = append(messages, fmt.Sprintf("title must be at least %d characters long", MinTitleLength))
	}
	if len(n.Body) > MaxBodyLength {
		messages = append(messages, fmt.Sprintf("body must not exceed %d characters", MaxBodyLength))
	}

	if len(messages) > 0 {
		return failure.NewValidation(messages...)
	}
	return nil
}
