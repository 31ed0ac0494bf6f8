package note

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mkamau/groundwork/internal/failure"
)

// ErrNotFound is raised when a note does not exist. It is a domain
// failure so the envelope carries a 404 instead of a 500.
var ErrNotFound = failure.NewDomainStatus(http.StatusNotFound, "note not found")

// Store provides persistence for notes.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a note store on the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Create persists a new note.
func (s *Store) Create(ctx context.Context, n Note) (Note, error) {
	query := `
		INSERT INTO notes (id, title, body, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, title, body, created_at, updated_at
	`

	return s.scanNote(s.pool.QueryRow(ctx, query,
		n.ID, n.Title, n.Body, n.CreatedAt, n.UpdatedAt,
	))
}

// GetByID retrieves a note by ID.
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (Note, error) {
	query := `
		SELECT id, title, body, created_at, updated_at
		FROM notes
		WHERE id = $1
	`

	n, err := s.scanNote(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Note{}, ErrNotFound
	}
	return n, err
}

// List retrieves notes ordered by creation time, newest first.
func (s *Store) List(ctx context.Context, limit, offset int) ([]Note, error) {
	query := `
		SELECT id, title, body, created_at, updated_at
		FROM notes
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := s.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []Note
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.Title, &n.Body, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// Update persists changed fields of an existing note.
func (s *Store) Update(ctx context.Context, n Note) (Note, error) {
	query := `
		UPDATE notes
		SET title = $2, body = $3, updated_at = $4
		WHERE id = $1
		RETURNING id, title, body, created_at, updated_at
	`

	updated, err := s.scanNote(s.pool.QueryRow(ctx, query,
		n.ID, n.Title, n.Body, time.Now().UTC(),
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return Note{}, ErrNotFound
	}
	return updated, err
}

// Delete removes a note.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM notes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) scanNote(row pgx.Row) (Note, error) {
	var n Note
	err := row.Scan(&n.ID, &n.Title, &n.Body, &n.CreatedAt, &n.UpdatedAt)
	return n, err
}
